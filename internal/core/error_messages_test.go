package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name: "nil error returns empty",
		},
		{
			name:        "missing session",
			err:         fmt.Errorf("get session abc: %w", ErrSessionNotFound),
			wantCode:    "SES001",
			wantMessage: "Session not found",
		},
		{
			name:        "limiter full",
			err:         ErrTooManyRuns,
			wantCode:    "SES002",
			wantMessage: "System busy: too many runs in progress",
		},
		{
			name:        "request cancelled",
			err:         context.Canceled,
			wantCode:    "SES003",
			wantMessage: "Request was cancelled",
		},
		{
			name:        "oversized upload",
			err:         fmt.Errorf("read upload: %w", table.ErrFileTooLarge),
			wantCode:    "CSV001",
			wantMessage: "File exceeds the maximum upload size",
		},
		{
			name:        "header-less file",
			err:         table.ErrEmptyFile,
			wantCode:    "CSV002",
			wantMessage: "The uploaded file is empty",
		},
		{
			name:        "ontology not ready",
			err:         ErrReferenceNotLoaded,
			wantCode:    "REF001",
			wantMessage: "Reference data is not available yet",
		},
		{
			name:        "stage gate",
			err:         ErrStageLocked,
			wantCode:    "STG001",
			wantMessage: "A previous stage has not passed",
		},
		{
			name:        "superseded run",
			err:         ErrRunSuperseded,
			wantCode:    "STG002",
			wantMessage: "The run was replaced by a newer one",
		},
		{
			name:        "bad stage number",
			err:         errors.New(`invalid stage "9": must be 2-5`),
			wantCode:    "STG005",
			wantMessage: "Invalid request value",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("SESSION NOT FOUND"),
			wantCode:    "SES001",
			wantMessage: "Session not found",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrSessionNotFound)
	want := "Session not found (Code: SES001). The session may have expired. Upload the sheet again to start over"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrNoData, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("run stage: %w", ErrStageLocked)
		userErr := NewUserError(techErr)

		if userErr.Error() != "A previous stage has not passed" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrStageLocked) {
			t.Error("Unwrap() should reach the sentinel")
		}
	})
}
