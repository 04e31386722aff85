package diag

// DedupReporter forwards each distinct diagnostic once. Passes rerun every
// pipeline round, so an unchanged problem would otherwise be repeated per
// round. Notes are not part of the identity.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]bool
}

type dedupKey struct {
	code  Code
	sev   Severity
	where Location
	msg   string
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]bool)}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary Location, msg string, notes []Note) {
	if r == nil || r.next == nil {
		return
	}
	k := dedupKey{code, sev, primary, msg}
	if r.seen[k] {
		return
	}
	r.seen[k] = true
	r.next.Report(code, sev, primary, msg, notes)
}
