package diag

// Severity orders diagnostics; Bag.Sort puts the highest first.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

// String is the lowercase label used in golden output and by the CLI.
func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	default:
		return "info"
	}
}
