package diag

import (
	"fmt"
	"io"
	"sync"
)

// Reporter receives diagnostics from lowering, the passes and the analyses.
type Reporter interface {
	Report(code Code, sev Severity, primary Location, msg string, notes []Note)
}

// ReportBuilder assembles a diagnostic and its notes; Emit hands it over.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

func newReportBuilder(r Reporter, sev Severity, code Code, primary Location, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		diag: Diagnostic{
			Severity: sev,
			Code:     code,
			Message:  msg,
			Primary:  primary,
		},
	}
}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, primary Location, msg string) *ReportBuilder {
	return newReportBuilder(r, SevError, code, primary, msg)
}

// ReportWarning is a shortcut for SevWarning diagnostics.
func ReportWarning(r Reporter, code Code, primary Location, msg string) *ReportBuilder {
	return newReportBuilder(r, SevWarning, code, primary, msg)
}

// ReportInfo is a shortcut for SevInfo diagnostics.
func ReportInfo(r Reporter, code Code, primary Location, msg string) *ReportBuilder {
	return newReportBuilder(r, SevInfo, code, primary, msg)
}

// WithNote appends a note to diagnostic.
func (b *ReportBuilder) WithNote(where Location, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.diag = b.diag.WithNote(where, msg)
	return b
}

// Emit sends diagnostic to underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.diag.Code, b.diag.Severity, b.diag.Primary, b.diag.Message, b.diag.Notes)
	}
	b.emitted = true
}

// BagReporter stores into Bag, subject to its limit.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Primary: primary, Notes: notes,
	})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Location, string, []Note) {}

// MultiReporter forwards each diagnostic to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	for _, r := range m {
		if r != nil {
			r.Report(code, sev, primary, msg, notes)
		}
	}
}

// WriterReporter prints one line per diagnostic. Info diagnostics print the
// bare message, which is how passes announce their counts; warnings and
// errors are prefixed with severity, code and location.
type WriterReporter struct {
	mu        sync.Mutex
	w         io.Writer
	threshold Severity
}

// NewWriterReporter prints diagnostics of severity threshold and above to w.
func NewWriterReporter(w io.Writer, threshold Severity) *WriterReporter {
	return &WriterReporter{w: w, threshold: threshold}
}

func (r *WriterReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	if r == nil || r.w == nil || sev < r.threshold {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if sev == SevInfo {
		fmt.Fprintln(r.w, msg)
	} else if primary.IsZero() {
		fmt.Fprintf(r.w, "%s %s: %s\n", sev, code.ID(), msg)
	} else {
		fmt.Fprintf(r.w, "%s %s %s: %s\n", sev, code.ID(), primary, msg)
	}
	for _, n := range notes {
		fmt.Fprintf(r.w, "  note: %s\n", n.Msg)
	}
}
