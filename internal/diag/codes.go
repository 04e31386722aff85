package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lowering
	LowInfo            Code = 1000
	LowUnsupportedType Code = 1001
	LowUnsupportedExpr Code = 1002
	LowUnsupportedStmt Code = 1003
	LowUnsupportedInit Code = 1004
	LowUnresolvedName  Code = 1005
	LowBadCallee       Code = 1006
	LowJumpOutsideLoop Code = 1007
	LowUnsupportedDecl Code = 1008

	// Optimization passes
	OptInfo                Code = 2000
	OptAlgebraicIdentity   Code = 2001
	OptCommonSubexpression Code = 2002
	OptDeadInstruction     Code = 2003
	OptDeadStore           Code = 2004
	OptStrengthReduction   Code = 2005
	OptVerifyFailed        Code = 2006
	OptUnknownPass         Code = 2007
	OptPipelineSummary     Code = 2008
	OptSimplifyCFG         Code = 2009

	// Analyses
	AnaInfo           Code = 3000
	AnaPostDominators Code = 3001

	// I/O
	IOLoadFileError Code = 4001
	IODecodeError   Code = 4002
	IOFormatVersion Code = 4003
	IOWriteError    Code = 4004

	// Configuration
	CfgInfo      Code = 5000
	CfgBadConfig Code = 5001

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	LowInfo:                "Lowering information",
	LowUnsupportedType:     "Unsupported type",
	LowUnsupportedExpr:     "Unsupported expression",
	LowUnsupportedStmt:     "Unsupported statement",
	LowUnsupportedInit:     "Unsupported initializer",
	LowUnresolvedName:      "Unresolved identifier",
	LowBadCallee:           "Callee is not a function",
	LowJumpOutsideLoop:     "break or continue outside a loop",
	LowUnsupportedDecl:     "Unsupported declaration",
	OptInfo:                "Optimization information",
	OptAlgebraicIdentity:   "Algebraic identities simplified",
	OptCommonSubexpression: "Common subexpressions eliminated",
	OptDeadInstruction:     "Dead instructions removed",
	OptDeadStore:           "Dead stores removed",
	OptStrengthReduction:   "Strength reductions applied",
	OptVerifyFailed:        "IR verification failed after pass",
	OptUnknownPass:         "Unknown pass name",
	OptPipelineSummary:     "Pipeline summary",
	OptSimplifyCFG:         "Control flow simplified",
	AnaInfo:                "Analysis information",
	AnaPostDominators:      "Post-dominator tree computed",
	IOLoadFileError:        "Failed to load input",
	IODecodeError:          "Malformed AST input",
	IOFormatVersion:        "Unsupported AST format version",
	IOWriteError:           "Failed to write output",
	CfgInfo:                "Configuration information",
	CfgBadConfig:           "Invalid configuration",
	ObsInfo:                "Observability information",
	ObsTimings:             "Phase timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("OPT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ANA%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
