// # Error Codes Reference
//
// This file maps internal errors to user-facing messages with a code users
// can quote to support.
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: the session expired or never existed
//	         Action: Upload the sheet again to start a new session
//	         Patterns: "session not found"
//
//	SES002 - System busy: too many pipeline runs in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many concurrent pipeline runs"
//
//	SES003 - Request cancelled
//	         Patterns: "context canceled"
//
//	SES004 - Request timed out
//	         Patterns: "context deadline exceeded"
//
// # File Errors (CSV001-CSV099)
//
//	CSV001 - File too large
//	         Patterns: "exceeds maximum upload size"
//
//	CSV002 - Empty file: no header row
//	         Patterns: "empty file"
//
//	CSV003 - No file in the request
//	         Patterns: "no file provided"
//
//	CSV004 - Unreadable CSV
//	         Patterns: "parse csv", "read csv"
//
//	CSV005 - Unknown column named in a request
//	         Patterns: "unknown column"
//
// # Reference Data Errors (REF001-REF099)
//
//	REF001 - Reference data still loading or unavailable
//	         Patterns: "reference data not loaded"
//
//	REF002 - Reference file unreadable
//	         Patterns: "load ontology", "load units", "load enums"
//
//	REF003 - Reference database unreachable
//	         Patterns: "connection refused"
//
// # Stage Flow Errors (STG001-STG099)
//
//	STG001 - A previous stage has not passed
//	         Patterns: "stage locked"
//
//	STG002 - The run was replaced by a newer one
//	         Patterns: "validation run superseded"
//
//	STG003 - Nothing to process yet
//	         Patterns: "no data"
//
//	STG004 - Mapping phases out of order
//	         Patterns: "mapping phase"
//
//	STG005 - Invalid request value (stage, mode, option)
//	         Patterns: "invalid stage", "invalid option", "unknown mode",
//	         "decode request"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Session
	{"session not found", UserMessage{
		Message: "Session not found",
		Action:  "The session may have expired. Upload the sheet again to start over",
		Code:    "SES001",
	}},
	{"too many concurrent pipeline runs", UserMessage{
		Message: "System busy: too many runs in progress",
		Action:  "Please wait a moment and try again",
		Code:    "SES002",
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "SES003",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller sheet or try again later",
		Code:    "SES004",
	}},

	// File
	{"exceeds maximum upload size", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the sheet into smaller files",
		Code:    "CSV001",
	}},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a CSV with a header row",
		Code:    "CSV002",
	}},
	{"no file provided", UserMessage{
		Message: "No file was provided",
		Action:  "Please select a CSV file to upload",
		Code:    "CSV003",
	}},
	{"parse csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a single header row",
		Code:    "CSV004",
	}},
	{"read csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a single header row",
		Code:    "CSV004",
	}},
	{"unknown column", UserMessage{
		Message: "Column not found in the sheet",
		Action:  "Pick a column from the uploaded header",
		Code:    "CSV005",
	}},

	// Reference data
	{"reference data not loaded", UserMessage{
		Message: "Reference data is not available yet",
		Action:  "Wait for the ontology to load, then run the stage again",
		Code:    "REF001",
	}},
	{"load ontology", UserMessage{
		Message: "Ontology reference data could not be read",
		Action:  "Check the ontology fields file and restart",
		Code:    "REF002",
	}},
	{"load units", UserMessage{
		Message: "Units reference data could not be read",
		Action:  "Check the units file and restart",
		Code:    "REF002",
	}},
	{"load enums", UserMessage{
		Message: "Enums reference data could not be read",
		Action:  "Check the enums file and restart",
		Code:    "REF002",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to the reference database",
		Action:  "Please try again in a few moments",
		Code:    "REF003",
	}},

	// Stage flow
	{"stage locked", UserMessage{
		Message: "A previous stage has not passed",
		Action:  "Fix the failing stage and run it again",
		Code:    "STG001",
	}},
	{"validation run superseded", UserMessage{
		Message: "The run was replaced by a newer one",
		Action:  "Use the results of the latest run",
		Code:    "STG002",
	}},
	{"no data", UserMessage{
		Message: "Nothing to process yet",
		Action:  "Complete the previous step first",
		Code:    "STG003",
	}},
	{"mapping phase", UserMessage{
		Message: "Mappings must be resolved in order: units, enums, facet names",
		Action:  "Finish the current mapping phase first",
		Code:    "STG004",
	}},
	{"invalid stage", UserMessage{
		Message: "Invalid request value",
		Action:  "Check the request parameters",
		Code:    "STG005",
	}},
	{"invalid option", UserMessage{
		Message: "Invalid request value",
		Action:  "Check the request parameters",
		Code:    "STG005",
	}},
	{"unknown mode", UserMessage{
		Message: "Invalid request value",
		Action:  "Check the request parameters",
		Code:    "STG005",
	}},
	{"decode request", UserMessage{
		Message: "Invalid request value",
		Action:  "Check the request parameters",
		Code:    "STG005",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The first
// pattern contained in the lowercased error text wins; ERR000 otherwise.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
