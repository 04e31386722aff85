package driver

import (
	"encoding/json"
	"fmt"

	"sysc/internal/diag"
	"sysc/internal/observ"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// AppendTimings adds the phases recorded by t to bag as one ObsTimings
// diagnostic whose note carries the JSON report. It goes in even when the
// bag is full.
func AppendTimings(bag *diag.Bag, t *observ.Timer, kind, path string) {
	if bag == nil || t == nil {
		return
	}
	report := t.Report()
	payload := timingPayload{Kind: kind, Path: path, TotalMS: report.TotalMS, Phases: report.Phases}
	if payload.Kind == "" {
		payload.Kind = "pipeline"
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	if payload.Path != "" {
		msg = fmt.Sprintf("%s, %s", msg, payload.Path)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	entry := diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  msg,
		Primary:  diag.Location{File: path},
		Notes:    []diag.Note{{Where: diag.Location{File: path}, Msg: string(data)}},
	}

	bag.Force(entry)
}
