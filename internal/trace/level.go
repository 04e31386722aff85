package trace

import (
	"fmt"
	"strings"
)

// Level selects how deep tracing goes. Each level records the scopes of the
// one below it plus one more.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // heartbeats only
	LevelPhase        // files and passes
	LevelDetail       // plus functions
	LevelDebug        // plus statements
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// deepest maps each level to the finest scope it records.
var deepest = [...]Scope{LevelPhase: ScopePass, LevelDetail: ScopeFunc, LevelDebug: ScopeNode}

// ShouldEmit reports whether events of scope are recorded at l.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(deepest) && scope <= deepest[l]
}

// StorageMode is where recorded events go.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1 // written as they happen
	ModeRing                          // kept in memory, dumped on failure
	ModeBoth
)

var modeNames = [...]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m StorageMode) String() string {
	if m > 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (StorageMode, error) {
	for i := 1; i < len(modeNames); i++ {
		if strings.EqualFold(s, modeNames[i]) {
			return StorageMode(i), nil
		}
	}
	return ModeRing, fmt.Errorf("invalid storage mode: %q (expected: stream|ring|both)", s)
}
