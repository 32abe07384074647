// Package assembler joins per-batch translation outcomes into the final
// subtitle document.
package assembler

import (
	"fmt"
	"strings"

	"github.com/MimeLyc/srt-batch-translator/internal/subtitle"
	"github.com/MimeLyc/srt-batch-translator/internal/translator"
)

// Document is the assembled output
type Document struct {
	Text string
	// BlockCount is the number of blocks parseable from Text
	BlockCount int
}

// Accumulator collects outcomes in batch order. It never re-sorts: the
// caller must add outcomes with strictly increasing sequence numbers.
type Accumulator struct {
	outcomes []translator.Outcome
}

func NewAccumulator(expected int) *Accumulator {
	return &Accumulator{outcomes: make([]translator.Outcome, 0, expected)}
}

// Add appends the next outcome
func (a *Accumulator) Add(o translator.Outcome) error {
	if n := len(a.outcomes); n > 0 && o.Sequence <= a.outcomes[n-1].Sequence {
		return fmt.Errorf("outcome for batch %d added after batch %d", o.Sequence, a.outcomes[n-1].Sequence)
	}
	a.outcomes = append(a.outcomes, o)
	return nil
}

// Len returns the number of outcomes added so far
func (a *Accumulator) Len() int {
	return len(a.outcomes)
}

// Outcomes returns a copy of the collected outcomes
func (a *Accumulator) Outcomes() []translator.Outcome {
	return append([]translator.Outcome(nil), a.outcomes...)
}

// Degraded returns every untranslated span in document order
func (a *Accumulator) Degraded() []translator.Span {
	var spans []translator.Span
	for _, o := range a.outcomes {
		spans = append(spans, o.Degraded...)
	}
	return spans
}

// Document joins outcome texts with one blank line between batches
func (a *Accumulator) Document() Document {
	parts := make([]string, 0, len(a.outcomes))
	for _, o := range a.outcomes {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return Assemble(parts)
}

// Assemble joins already ordered batch texts
func Assemble(parts []string) Document {
	text := strings.TrimSpace(strings.Join(parts, "\n\n"))
	return Document{
		Text:       text,
		BlockCount: subtitle.Count(text),
	}
}
