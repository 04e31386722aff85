package diag

import (
	"math"
	"sort"

	"fortio.org/safecast"
)

// Bag collects the diagnostics of one input file, up to a limit. A pass that
// goes wrong on every block could otherwise produce thousands of lines.
type Bag struct {
	items   []Diagnostic
	limit   uint16
	dropped int
}

// NewBag returns a bag holding at most limit diagnostics; limits beyond
// uint16 are clamped.
func NewBag(limit int) *Bag {
	n, err := safecast.Conv[uint16](limit)
	if err != nil {
		n = math.MaxUint16
	}
	return &Bag{items: make([]Diagnostic, 0, min(n, 32)), limit: n}
}

// Add stores d, or counts it as dropped once the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.limit) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Force stores d even when the bag is full. Reports the driver appends
// after the fact, such as timings, go through Force.
func (b *Bag) Force(d Diagnostic) {
	b.items = append(b.items, d)
}

// Dropped is how many diagnostics Add turned away.
func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity == SevError {
			return true
		}
	}
	return false
}

// Items returns the stored diagnostics. The slice is the bag's own.
func (b *Bag) Items() []Diagnostic { return b.items }

// Sort orders by file, function, block, then severity, most severe first,
// then code. Diagnostics that tie keep their emission order, which for a
// single pass is block order.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		x, y := b.items[i], b.items[j]
		switch {
		case x.Primary.File != y.Primary.File:
			return x.Primary.File < y.Primary.File
		case x.Primary.Func != y.Primary.Func:
			return x.Primary.Func < y.Primary.Func
		case x.Primary.Block != y.Primary.Block:
			return x.Primary.Block < y.Primary.Block
		case x.Severity != y.Severity:
			return x.Severity > y.Severity
		}
		return x.Code < y.Code
	})
}

// Messages lists the messages in stored order.
func (b *Bag) Messages() []string {
	out := make([]string, len(b.items))
	for i, d := range b.items {
		out[i] = d.Message
	}
	return out
}

// Filter returns the diagnostics carrying code.
func (b *Bag) Filter(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}
