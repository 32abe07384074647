// Package pipeline sequences parsing, batch planning, dispatch and
// assembly for one subtitle document.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MimeLyc/srt-batch-translator/internal/assembler"
	"github.com/MimeLyc/srt-batch-translator/internal/batch"
	"github.com/MimeLyc/srt-batch-translator/internal/language"
	"github.com/MimeLyc/srt-batch-translator/internal/persistence"
	"github.com/MimeLyc/srt-batch-translator/internal/subtitle"
	"github.com/MimeLyc/srt-batch-translator/internal/translator"
	"github.com/MimeLyc/srt-batch-translator/pkg/log"
)

// Options configures a Pipeline
type Options struct {
	// BatchSize is the block ceiling of first-pass batches
	BatchSize int
	Dispatch  translator.Options
	// Notifier receives progress messages; nil logs them
	Notifier Notifier
	// Store enables checkpoints and run history when set
	Store Store
	// Fresh discards stored checkpoints of the document before translating
	Fresh bool
}

type Pipeline struct {
	backend  translator.Backend
	opts     Options
	notifier Notifier
	newRunID func() string
}

func New(backend translator.Backend, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = batch.DefaultMaxSize
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Pipeline{
		backend:  backend,
		opts:     opts,
		notifier: notifier,
		newRunID: uuid.NewString,
	}
}

// Request is one file-level translation
type Request struct {
	InputPath  string
	OutputPath string
	// TargetLanguage is a language code such as "fr" or "pt-BR"
	TargetLanguage string
}

type Result struct {
	RunID    string
	Target   language.Descriptor
	Document assembler.Document
	Outcomes []translator.Outcome
	// SourceBlocks is the number of blocks parsed from the input
	SourceBlocks int
	Batches      int
	// Degraded lists the subtitle ranges left untranslated
	Degraded []translator.Span
	// Mismatches counts batches whose reply changed the block count
	Mismatches int
	// Resumed counts batches restored from checkpoints
	Resumed int
	Stopped bool

	OutputPath string
	// Verified is the number of items astisub read back from the output
	Verified int
}

// runState is the mutable state of one run
type runState struct {
	id          string
	target      language.Descriptor
	batches     []batch.Batch
	acc         *assembler.Accumulator
	checkpoints *checkpointCache
	dispatcher  *translator.Dispatcher
	resumed     int
	mismatches  int
	stopped     bool
}

// Translate translates raw SRT text into target. A stop request through
// ctx keeps the remaining batches untranslated and returns the partial
// result together with ErrStopped.
func (p *Pipeline) Translate(ctx context.Context, raw string, target language.Descriptor) (*Result, error) {
	return p.translate(ctx, p.newRunID(), raw, target)
}

// Run reads req.InputPath, translates it and writes req.OutputPath.
// Every input problem is reported before the first backend call.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return nil, NewError(ErrInput, "no input file selected")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, NewError(ErrInput, "no destination chosen").WithContext("input", req.InputPath)
	}
	target, err := language.Lookup(req.TargetLanguage)
	if err != nil {
		return nil, WrapError(err, ErrLanguage, "unknown target language").WithContext("code", req.TargetLanguage)
	}

	file, err := subtitle.ReadFile(req.InputPath)
	if err != nil {
		return nil, WrapError(err, ErrFileRead, "failed to read input").WithContext("path", req.InputPath)
	}
	log.Info("Read %d subtitles from %s, detected source language: %s",
		len(file.Blocks), req.InputPath, language.Name(file.Language))

	runID := p.newRunID()
	p.startRun(ctx, persistence.Run{
		ID:             runID,
		DocKey:         DocKey(file.Raw, target.Code),
		SourcePath:     req.InputPath,
		OutputPath:     req.OutputPath,
		TargetLanguage: target.Code,
		Batches:        len(batch.Plan(file.Blocks, p.opts.BatchSize)),
	})

	res, err := p.translate(ctx, runID, file.Raw, target)
	if res == nil {
		p.finishRun(ctx, runID, persistence.RunFailed, nil, err)
		return nil, err
	}

	if werr := subtitle.WriteFile(req.OutputPath, res.Document.Text); werr != nil {
		werr = WrapError(werr, ErrFileWrite, "failed to write output").WithContext("path", req.OutputPath)
		p.finishRun(ctx, runID, persistence.RunFailed, res.Degraded, werr)
		return nil, werr
	}
	res.OutputPath = req.OutputPath

	if n, verr := subtitle.Verify(res.Document.Text); verr != nil {
		log.Warn("Output %s did not pass SRT verification: %v", req.OutputPath, verr)
	} else {
		res.Verified = n
	}
	p.notifier.Notify(fmt.Sprintf("Translation saved to %s", req.OutputPath))

	p.finishRun(ctx, runID, runStatus(res), res.Degraded, err)
	return res, err
}

func (p *Pipeline) translate(ctx context.Context, runID, raw string, target language.Descriptor) (*Result, error) {
	raw = subtitle.NormalizeLineEndings(raw)
	if strings.TrimSpace(raw) == "" {
		return nil, NewError(ErrInput, "source is empty")
	}
	blocks := subtitle.Parse(raw)
	if len(blocks) == 0 {
		return nil, NewError(ErrParse, "no subtitle blocks found in source")
	}

	st := &runState{
		id:         runID,
		target:     target,
		batches:    batch.Plan(blocks, p.opts.BatchSize),
		dispatcher: translator.NewDispatcher(p.backend, target.Name, p.opts.Dispatch),
	}
	st.acc = assembler.NewAccumulator(len(st.batches))
	if p.opts.Store != nil {
		cache, err := newCheckpointCache(ctx, p.opts.Store, DocKey(raw, target.Code), runID, p.opts.Fresh)
		if err != nil {
			log.Warn("Checkpoints unavailable, translating from scratch: %v", err)
		} else {
			st.checkpoints = cache
		}
	}

	p.notifier.Notify(fmt.Sprintf("Translating %d subtitles into %s in %d batches", len(blocks), target.Name, len(st.batches)))

	offset := 0
	for _, b := range st.batches {
		start, end := offset, offset+b.Len()
		offset = end

		if !st.stopped && ctx.Err() != nil {
			st.stopped = true
			p.notifier.Notify(fmt.Sprintf("Stop requested, keeping subtitles %d-%d untranslated",
				b.FirstIndex(), blocks[len(blocks)-1].Index))
		}

		out := p.runBatch(ctx, st, b, start, end)
		p.report(st, b, out)
		if err := st.acc.Add(out); err != nil {
			return nil, fmt.Errorf("assemble batch %d: %w", b.Sequence+1, err)
		}
	}

	doc := st.acc.Document()
	if doc.BlockCount != len(blocks) {
		p.notifier.Notify(fmt.Sprintf("Warning: translated document has %d subtitles, source had %d", doc.BlockCount, len(blocks)))
	}

	res := &Result{
		RunID:        st.id,
		Target:       target,
		Document:     doc,
		Outcomes:     st.acc.Outcomes(),
		SourceBlocks: len(blocks),
		Batches:      len(st.batches),
		Degraded:     st.acc.Degraded(),
		Mismatches:   st.mismatches,
		Resumed:      st.resumed,
		Stopped:      st.stopped,
	}
	p.summarize(res)
	if st.stopped {
		return res, ErrStopped
	}
	return res, nil
}

// runBatch produces the outcome of one batch from a checkpoint, the
// dispatcher, or the original text once the run was stopped
func (p *Pipeline) runBatch(ctx context.Context, st *runState, b batch.Batch, start, end int) translator.Outcome {
	label := batchLabel(b, len(st.batches))

	if st.stopped {
		return translator.Outcome{
			Sequence: b.Sequence,
			First:    b.FirstIndex(),
			Last:     b.LastIndex(),
			Status:   translator.StatusFailedKeptOriginal,
			Text:     subtitle.Serialize(b.Blocks),
			Degraded: []translator.Span{{First: b.FirstIndex(), Last: b.LastIndex()}},
		}
	}

	p.notifier.Notify(fmt.Sprintf("Translating %s", label))

	if cp, ok := st.checkpoints.Load(start, end); ok {
		st.resumed++
		p.notifier.Notify(fmt.Sprintf("Finished %s: %s (restored from checkpoint)", label, cp.status))
		return translator.Outcome{
			Sequence: b.Sequence,
			First:    b.FirstIndex(),
			Last:     b.LastIndex(),
			Status:   cp.status,
			Text:     cp.text,
		}
	}

	out := st.dispatcher.Dispatch(ctx, b)
	p.notifier.Notify(fmt.Sprintf("Finished %s: %s", label, out.Status))

	if err := st.checkpoints.Save(context.WithoutCancel(ctx), start, end, out); err != nil {
		log.Warn("Failed to save checkpoint for %s: %v", label, err)
	}
	return out
}

// report surfaces the diagnostics of one outcome
func (p *Pipeline) report(st *runState, b batch.Batch, out translator.Outcome) {
	if out.BlockCountMismatch {
		st.mismatches++
		p.notifier.Notify(fmt.Sprintf("Warning: %s came back with a different number of subtitles; review it in the output",
			batchLabel(b, len(st.batches))))
	}
	if st.stopped {
		return
	}
	for _, span := range out.Degraded {
		p.notifier.Notify(fmt.Sprintf("Warning: subtitles %s kept their original text; re-run them to translate", span))
	}
}

func (p *Pipeline) summarize(res *Result) {
	if len(res.Degraded) == 0 {
		p.notifier.Notify(fmt.Sprintf("Translated %d subtitles into %s", res.Document.BlockCount, res.Target.Name))
		return
	}
	spans := make([]string, len(res.Degraded))
	for i, s := range res.Degraded {
		spans[i] = s.String()
	}
	p.notifier.Notify(fmt.Sprintf("Finished with untranslated subtitles: %s", strings.Join(spans, ", ")))
}

func batchLabel(b batch.Batch, total int) string {
	return fmt.Sprintf("batch %d/%d (subtitles %d-%d)", b.Sequence+1, total, b.FirstIndex(), b.LastIndex())
}

func runStatus(res *Result) persistence.RunStatus {
	switch {
	case res.Stopped:
		return persistence.RunStopped
	case len(res.Degraded) > 0:
		return persistence.RunDegraded
	default:
		return persistence.RunSucceeded
	}
}

func (p *Pipeline) startRun(ctx context.Context, run persistence.Run) {
	if p.opts.Store == nil {
		return
	}
	run.Status = persistence.RunRunning
	if err := p.opts.Store.StartRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("Failed to record run %s: %v", run.ID, err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, id string, status persistence.RunStatus, degraded []translator.Span, runErr error) {
	if p.opts.Store == nil {
		return
	}
	if err := p.opts.Store.FinishRun(context.WithoutCancel(ctx), id, status, degraded, runErr); err != nil {
		log.Warn("Failed to finish run %s: %v", id, err)
	}
}
