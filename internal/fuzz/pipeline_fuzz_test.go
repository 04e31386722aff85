package fuzztests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"sysc/internal/analysis"
	"sysc/internal/astio"
	"sysc/internal/diag"
	"sysc/internal/emit"
	"sysc/internal/passes"
)

// pipelineTimeout bounds one input; running longer points at a pass that
// never reaches a fixed point.
const pipelineTimeout = 5 * time.Second

func fuzzPipeline(f *testing.F, enc astio.Encoding) {
	addCorpusSeeds(f, enc)
	f.Fuzz(func(t *testing.T, input []byte) {
		tu, err := astio.Decode(bytes.NewReader(clampInput(input)), enc)
		if err != nil {
			return
		}
		m, err := emit.Lower(tu)
		if err != nil {
			return
		}

		p, err := passes.New(passes.DefaultOrder, 0, true)
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), pipelineTimeout)
		defer cancel()
		done := make(chan error, 1)
		bag := diag.NewBag(128)
		go func() {
			_, err := p.Run(ctx, m, diag.BagReporter{Bag: bag})
			done <- err
		}()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("pipeline on decoded input: %v", err)
			}
		case <-time.After(pipelineTimeout + time.Second):
			t.Fatalf("pipeline did not finish within %v", pipelineTimeout)
		}
		_ = analysis.Functions(m, nil)
	})
}

func FuzzMsgpackPipeline(f *testing.F) { fuzzPipeline(f, astio.Msgpack) }

func FuzzJSONPipeline(f *testing.F) { fuzzPipeline(f, astio.JSON) }
