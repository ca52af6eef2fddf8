package templates

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

func render(t *testing.T, c interface {
	Render(context.Context, io.Writer) error
}) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestErrorAlert_Escapes(t *testing.T) {
	got := render(t, ErrorAlert("bad <input>", "retry", "CSV004"))
	if strings.Contains(got, "<input>") {
		t.Errorf("message not escaped: %s", got)
	}
	for _, want := range []string{"&lt;input&gt;", "retry", `data-code="CSV004"`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %s", want, got)
		}
	}
}

func TestStageReport_Failure(t *testing.T) {
	rep := &core.StageReport{
		Stage:  core.StageUniqueness,
		Passed: false,
		Checks: []core.CheckStatus{
			{Key: "s2-c1", Label: "Unique slotpaths", State: core.CheckFailed},
			{Key: "s2-c2", Label: "Unique handles", State: core.CheckPending},
		},
		Failure: &core.ErrorReport{
			Label:   "Unique slotpaths",
			Message: "Check failed: Unique slotpaths",
			OffendingRows: []core.Offending{
				{Row: 2, Record: table.Record{"slotpath": "a/b"}, Fields: []string{"slotpath"}},
			},
			Total: 12,
		},
	}
	got := render(t, StageReport("abc", rep))
	for _, want := range []string{
		`<section class="stage" data-stage="2" data-state="failed">`,
		`id="s2-c1" data-state="failed"`,
		`id="s2-c2" data-state="pending"`,
		"<td>a/b</td>",
		"Showing 1 of 12 offending rows.",
		"/api/sessions/abc/stages/2/offending.csv",
		"/api/sessions/abc/stages/2/cleaned.csv",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestStageReport_Skipped(t *testing.T) {
	got := render(t, StageReport("abc", core.SkippedReport(core.StageSuffix)))
	if !strings.Contains(got, `data-state="skipped"`) {
		t.Errorf("output = %s", got)
	}
}

func TestCheckList_EscapesLabels(t *testing.T) {
	got := render(t, CheckList([]core.CheckStatus{
		{Key: "s4-c0", Label: "<b>fields</b>", State: core.CheckFailed, Reason: "fields-not-loaded"},
	}))
	if strings.Contains(got, "<b>") {
		t.Errorf("label not escaped: %s", got)
	}
	for _, want := range []string{"&lt;b&gt;fields&lt;/b&gt;", `<span class="check-reason">fields-not-loaded</span>`} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %s", want, got)
		}
	}
}

func TestWarningPanel(t *testing.T) {
	if got := render(t, WarningPanel(nil)); !strings.Contains(got, "No warnings") {
		t.Errorf("nil report output = %s", got)
	}
	rep := &core.WarningReport{
		Message: core.DuplicateFieldsMessage,
		Devices: []core.DeviceWarning{{
			Device: "AHU-1",
			Rows:   []core.WarningRow{{Row: 3, Record: table.Record{"field": "fan", "slotpath": "x"}}},
		}},
	}
	got := render(t, WarningPanel(rep))
	for _, want := range []string{"AHU-1 (1)", "row 3: slotpath=x, field=fan"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %s", want, got)
		}
	}
}
