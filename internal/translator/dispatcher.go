package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MimeLyc/srt-batch-translator/internal/batch"
	"github.com/MimeLyc/srt-batch-translator/internal/subtitle"
	"github.com/MimeLyc/srt-batch-translator/pkg/log"
)

const (
	DefaultPaceDelay    = time.Second
	DefaultFailureDelay = 2 * time.Second
)

// Options tunes the dispatcher
type Options struct {
	// FallbackSize is the sub-batch size used after a batch fails.
	// Zero means a quarter of the failed batch's ceiling.
	FallbackSize int
	// PaceDelay is waited after every successful backend call
	PaceDelay time.Duration
	// FailureDelay is waited after every failed backend call
	FailureDelay time.Duration
}

// DefaultOptions returns the pacing used against hosted models
func DefaultOptions() Options {
	return Options{
		PaceDelay:    DefaultPaceDelay,
		FailureDelay: DefaultFailureDelay,
	}
}

// Dispatcher sends batches to a Backend and recovers from failed requests
// by retrying the batch once as smaller sub-batches. Sub-batches are never
// split again; a sub-batch that still fails keeps its original text.
type Dispatcher struct {
	backend Backend
	target  string
	opts    Options
	sleep   func(ctx context.Context, d time.Duration)
}

// NewDispatcher creates a dispatcher translating into targetLanguage, the
// human readable name handed to the backend
func NewDispatcher(backend Backend, targetLanguage string, opts Options) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		target:  targetLanguage,
		opts:    opts,
		sleep:   sleepContext,
	}
}

// Dispatch translates one batch. It always returns an outcome whose Text
// covers every block of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, b batch.Batch) Outcome {
	out := Outcome{
		Sequence: b.Sequence,
		First:    b.FirstIndex(),
		Last:     b.LastIndex(),
	}
	if b.Len() == 0 {
		out.Status = StatusSuccess
		return out
	}

	res, err := d.attempt(ctx, b.Blocks)
	out.Attempts++
	if err == nil {
		out.Status = StatusSuccess
		out.Text = res.text
		out.BlockCountMismatch = res.mismatch
		return out
	}

	size := batch.FallbackSize(b.MaxSize, d.opts.FallbackSize)
	subs := batch.Plan(b.Blocks, size)
	log.Warn("Batch %d (subtitles %s) failed, retrying as %d sub-batches of up to %d: %v",
		b.Sequence+1, out.Span(), len(subs), size, err)

	out.Status = StatusRecoveredWithFallback
	parts := make([]string, 0, len(subs))
	prevFailed := false
	for _, sub := range subs {
		res, err := d.attempt(ctx, sub.Blocks)
		out.Attempts++
		if err != nil {
			span := Span{First: sub.FirstIndex(), Last: sub.LastIndex()}
			log.Error("Subtitles %s failed in fallback, keeping original text: %v", span, err)

			out.Status = StatusFailedKeptOriginal
			if prevFailed {
				out.Degraded[len(out.Degraded)-1].Last = span.Last
			} else {
				out.Degraded = append(out.Degraded, span)
			}
			prevFailed = true
			parts = append(parts, subtitle.Serialize(sub.Blocks))
			continue
		}

		prevFailed = false
		out.BlockCountMismatch = out.BlockCountMismatch || res.mismatch
		parts = append(parts, res.text)
	}
	out.Text = strings.Join(parts, "\n\n")
	return out
}

type reply struct {
	text     string
	mismatch bool
}

// attempt makes exactly one backend call for blocks and waits out the
// pacing delay afterwards
func (d *Dispatcher) attempt(ctx context.Context, blocks []subtitle.Block) (reply, error) {
	request := subtitle.Serialize(blocks)

	// a stop request must not abort a call that is already in flight
	text, err := d.backend.Translate(context.WithoutCancel(ctx), request, d.target)
	if err == nil {
		text = normalizeReply(text)
		if text == "" {
			err = ErrEmptyReply
		}
	}
	if err != nil {
		d.sleep(ctx, d.opts.FailureDelay)
		return reply{}, fmt.Errorf("translate subtitles %d-%d: %w", blocks[0].Index, blocks[len(blocks)-1].Index, err)
	}
	d.sleep(ctx, d.opts.PaceDelay)

	return checkReply(blocks, text), nil
}

// checkReply compares the reply against the request. A reply with the same
// block count is re-stamped with the source indices and timestamps; any
// other reply is kept verbatim and flagged.
func checkReply(sent []subtitle.Block, text string) reply {
	got := subtitle.Parse(text)
	if len(got) != len(sent) {
		log.Warn("Block count mismatch for subtitles %d-%d: sent %d, received %d",
			sent[0].Index, sent[len(sent)-1].Index, len(sent), len(got))
		return reply{text: text, mismatch: true}
	}

	stamped := make([]subtitle.Block, len(sent))
	for i, src := range sent {
		stamped[i] = src.WithLines(got[i].Lines)
	}
	return reply{text: subtitle.Serialize(stamped)}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
