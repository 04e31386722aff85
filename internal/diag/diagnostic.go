package diag

import "strings"

// Location names where a diagnostic applies. Empty fields are omitted.
type Location struct {
	File  string
	Func  string
	Block string
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.File, l.Func, l.Block} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}

// IsZero reports whether no field is set.
func (l Location) IsZero() bool {
	return l == Location{}
}

type Note struct {
	Where Location
	Msg   string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []Note
}
