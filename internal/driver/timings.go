package driver

import (
	"encoding/json"
	"fmt"

	"enumgen/internal/diag"
	"enumgen/internal/observ"
	"enumgen/internal/source"
)

// timingNote is the JSON note attached to a timing diagnostic.
type timingNote struct {
	Path string `json:"path"`
	observ.Report
}

// timingDiagnostic describes the phases of one file as an info diagnostic;
// the phase breakdown travels as a JSON note for machine consumers.
func timingDiagnostic(file source.FileID, path string, report observ.Report) diag.Diagnostic {
	sp := source.Span{File: file}
	d := diag.New(diag.SevInfo, diag.ObsTimings, sp, fmt.Sprintf("timings: total %.2f ms: %s", report.TotalMS, path))
	data, err := json.Marshal(timingNote{Path: path, Report: report})
	if err != nil {
		return d
	}
	return d.WithNote(sp, string(data))
}

// addAlways adds d even to a bag that reached its limit.
func addAlways(bag *diag.Bag, d diag.Diagnostic) {
	if bag == nil || bag.Add(d) {
		return
	}
	extra := diag.NewBag(0)
	extra.Add(d)
	bag.Merge(extra)
}
