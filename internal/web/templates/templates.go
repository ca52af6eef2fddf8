// Package templates holds the templ components returned to HTMX clients.
// Edit the .templ files and run `templ generate`; the _templ.go files are
// generated.
package templates

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/core"
)

func stageState(rep *core.StageReport) string {
	switch {
	case rep.Skipped:
		return "skipped"
	case !rep.Passed:
		return "failed"
	}
	return "passed"
}

// stageURL is the API path of a session's stage, the base of its downloads.
func stageURL(sessionID string, stage core.Stage) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + "/stages/" + strconv.Itoa(int(stage))
}

// previewColumns lists the flagged columns of the offending rows in first
// appearance order.
func previewColumns(rows []core.Offending) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, o := range rows {
		for _, c := range o.Fields {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

func summarize(rec map[string]string) string {
	parts := make([]string, 0, 3)
	for _, k := range []string{"slotpath", "field", "pointName"} {
		if v := rec[k]; v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, ", ")
}
