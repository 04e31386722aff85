// Package fuzztests houses Go fuzz harnesses that feed arbitrary bytes
// through the AST decoder, the lowering and the pass pipeline. A harness
// fails on panics, hangs and IR that stops verifying after a pass;
// rejected inputs are fine.
//
// Seeds are the testkit programs in both interchange encodings.
package fuzztests
