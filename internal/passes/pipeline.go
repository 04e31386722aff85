package passes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sysc/internal/diag"
	"sysc/internal/ir"
	"sysc/internal/observ"
	"sysc/internal/trace"
)

// ErrUnknownPass is returned for pass names that are not registered.
var ErrUnknownPass = errors.New("unknown pass")

// maxRounds bounds a pipeline that repeats until nothing changes.
const maxRounds = 32

// Pipeline runs an ordered pass list over a module.
type Pipeline struct {
	Passes []Pass
	// Repeat is the number of rounds over the list. Zero repeats until a
	// round makes no rewrites.
	Repeat int
	// Verify checks the module after every pass.
	Verify bool
	// Timer, when set, records one phase per pass run.
	Timer *observ.Timer
}

// Stats summarizes a pipeline run.
type Stats struct {
	Rounds   int
	Rewrites int
	PerPass  map[string]int
}

// New builds a pipeline from registry names.
func New(names []string, repeat int, verify bool) (*Pipeline, error) {
	if repeat < 0 {
		return nil, fmt.Errorf("passes: negative repeat count %d", repeat)
	}
	p := &Pipeline{Repeat: repeat, Verify: verify}
	var errs []error
	for _, name := range names {
		pass, ok := Lookup(strings.TrimSpace(name))
		if !ok {
			errs = append(errs, fmt.Errorf("passes: %q: %w (known: %s)", name, ErrUnknownPass, strings.Join(Names(), ", ")))
			continue
		}
		p.Passes = append(p.Passes, pass)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

// Run applies the passes to m. Pass output goes to r; with Verify set the
// first invalid module stops the run with an error naming the pass.
func (p *Pipeline) Run(ctx context.Context, m *ir.Module, r diag.Reporter) (Stats, error) {
	stats := Stats{PerPass: make(map[string]int)}
	if m == nil {
		return stats, errors.New("passes: nil module")
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	rounds := p.Repeat
	if rounds == 0 {
		rounds = maxRounds
	}
	for round := 0; round < rounds; round++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("passes: %w", err)
		}
		changed := 0
		for _, pass := range p.Passes {
			span := trace.Begin(tracer, trace.ScopePass, pass.Name(), parent)
			phase := p.Timer.Begin(pass.Name())
			res := pass.Run(m, r)
			p.Timer.End(phase, fmt.Sprintf("%d rewrites", res.Rewrites))
			span.Count("rewrites", res.Rewrites).Count("round", round+1).End("")

			changed += res.Rewrites
			stats.PerPass[pass.Name()] += res.Rewrites

			if p.Verify {
				if err := ir.Verify(m); err != nil {
					diag.ReportError(r, diag.OptVerifyFailed, diag.Location{Func: pass.Name()},
						fmt.Sprintf("module invalid after %s", pass.Name())).
						WithNote(diag.Location{}, err.Error()).
						Emit()
					return stats, fmt.Errorf("passes: after %s: %w", pass.Name(), err)
				}
			}
		}
		stats.Rounds++
		stats.Rewrites += changed
		if p.Repeat == 0 && changed == 0 {
			trace.Point(tracer, trace.ScopePass, parent, "fixpoint", fmt.Sprintf("round %d", stats.Rounds))
			break
		}
	}
	diag.ReportInfo(r, diag.OptPipelineSummary, diag.Location{},
		fmt.Sprintf("Pipeline: %d rewrites in %d rounds", stats.Rewrites, stats.Rounds)).Emit()
	return stats, nil
}
