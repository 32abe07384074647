package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-batch-translator/internal/batch"
	"github.com/MimeLyc/srt-batch-translator/internal/subtitle"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	args := m.Called(ctx, text, targetLanguage)
	return args.String(0), args.Error(1)
}

var errBackend = errors.New("503 service unavailable")

func testBlocks(n int) []subtitle.Block {
	blocks := make([]subtitle.Block, n)
	for i := range blocks {
		blocks[i] = subtitle.Block{
			Index:     i + 1,
			StartTime: fmt.Sprintf("00:00:%02d,000", i*2),
			EndTime:   fmt.Sprintf("00:00:%02d,500", i*2+1),
			Lines:     []string{fmt.Sprintf("Hello %d", i+1)},
		}
	}
	return blocks
}

// frenchOf renders what a well-behaved backend would return for blocks
func frenchOf(blocks []subtitle.Block) string {
	out := make([]subtitle.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.WithLines([]string{strings.Replace(b.Lines[0], "Hello", "Bonjour", 1)})
	}
	return subtitle.Serialize(out)
}

func newTestDispatcher(backend Backend, opts Options) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(backend, "French", opts)
	slept := &[]time.Duration{}
	d.sleep = func(_ context.Context, dur time.Duration) {
		*slept = append(*slept, dur)
	}
	return d, slept
}

func TestDispatch_Success(t *testing.T) {
	blocks := testBlocks(3)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks), "French").
		Return(frenchOf(blocks), nil).Once()

	d, slept := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 3)[0])

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, frenchOf(blocks), out.Text)
	assert.False(t, out.BlockCountMismatch)
	assert.Empty(t, out.Degraded)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, Span{First: 1, Last: 3}, out.Span())
	assert.Equal(t, []time.Duration{DefaultPaceDelay}, *slept)
	backend.AssertExpectations(t)
}

func TestDispatch_SingleFailureRecoversWithFallback(t *testing.T) {
	blocks := testBlocks(4)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks), "French").
		Return("", errBackend).Once()
	for i := range blocks {
		sub := blocks[i : i+1]
		backend.On("Translate", mock.Anything, subtitle.Serialize(sub), "French").
			Return(frenchOf(sub), nil).Once()
	}

	d, slept := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 4)[0])

	assert.Equal(t, StatusRecoveredWithFallback, out.Status)
	assert.Equal(t, frenchOf(blocks), out.Text)
	assert.Empty(t, out.Degraded)
	assert.Equal(t, 5, out.Attempts)
	assert.Equal(t, []time.Duration{
		DefaultFailureDelay, DefaultPaceDelay, DefaultPaceDelay, DefaultPaceDelay, DefaultPaceDelay,
	}, *slept)
	backend.AssertExpectations(t)
}

func TestDispatch_ConfiguredFallbackSize(t *testing.T) {
	blocks := testBlocks(6)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks), "French").
		Return("", errBackend).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[0:3]), "French").
		Return(frenchOf(blocks[0:3]), nil).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[3:6]), "French").
		Return(frenchOf(blocks[3:6]), nil).Once()

	opts := DefaultOptions()
	opts.FallbackSize = 3
	d, _ := newTestDispatcher(backend, opts)
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 6)[0])

	assert.Equal(t, StatusRecoveredWithFallback, out.Status)
	assert.Equal(t, 3, out.Attempts)
	backend.AssertExpectations(t)
}

func TestDispatch_ExhaustedKeepsOriginal(t *testing.T) {
	blocks := testBlocks(4)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, mock.Anything, "French").Return("", errBackend)

	d, _ := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 4)[0])

	assert.Equal(t, StatusFailedKeptOriginal, out.Status)
	assert.Equal(t, subtitle.Serialize(blocks), out.Text)
	assert.Equal(t, []Span{{First: 1, Last: 4}}, out.Degraded, "adjacent failed sub-batches merge into one span")
	backend.AssertNumberOfCalls(t, "Translate", 5)

	for i, got := range subtitle.Parse(out.Text) {
		assert.Equal(t, blocks[i], got)
	}
}

func TestDispatch_FailureLocalizedToSubBatch(t *testing.T) {
	blocks := testBlocks(2)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks), "French").
		Return("", errBackend).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[0:1]), "French").
		Return(frenchOf(blocks[0:1]), nil).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[1:2]), "French").
		Return("", errBackend).Once()

	d, _ := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 2)[0])

	assert.Equal(t, StatusFailedKeptOriginal, out.Status)
	assert.Equal(t, []Span{{First: 2, Last: 2}}, out.Degraded)

	got := subtitle.Parse(out.Text)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Bonjour 1"}, got[0].Lines)
	assert.Equal(t, blocks[1], got[1])
	backend.AssertExpectations(t)
}

func TestDispatch_NonAdjacentFailuresStaySeparate(t *testing.T) {
	blocks := testBlocks(3)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks), "French").Return("", errBackend).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[0:1]), "French").Return("", errBackend).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[1:2]), "French").Return(frenchOf(blocks[1:2]), nil).Once()
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks[2:3]), "French").Return("", errBackend).Once()

	d, _ := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 3)[0])

	assert.Equal(t, []Span{{First: 1, Last: 1}, {First: 3, Last: 3}}, out.Degraded)
}

func TestDispatch_BlockCountMismatchDoesNotTriggerFallback(t *testing.T) {
	blocks := testBlocks(2)
	merged := "1\n00:00:00,000 --> 00:00:03,500\nBonjour 1 Bonjour 2"
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, subtitle.Serialize(blocks), "French").Return(merged, nil).Once()

	d, _ := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 2)[0])

	assert.Equal(t, StatusSuccess, out.Status)
	assert.True(t, out.BlockCountMismatch)
	assert.Equal(t, merged, out.Text)
	backend.AssertNumberOfCalls(t, "Translate", 1)
}

func TestDispatch_RestampsHeadersWhenCountsMatch(t *testing.T) {
	blocks := testBlocks(2)
	drifted := "1\n00:00:00.000 --> 00:00:01.500\nBonjour 1\n\n" +
		"2\n00:00:02,000 --> 00:00:03,500\nBonjour 2"
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, mock.Anything, "French").Return("```srt\n"+frenchOf(blocks)+"\n```", nil).Once()
	backend.On("Translate", mock.Anything, mock.Anything, "French").Return(drifted, nil).Once()

	d, _ := newTestDispatcher(backend, DefaultOptions())

	fenced := d.Dispatch(context.Background(), batch.Plan(blocks, 2)[0])
	assert.Equal(t, frenchOf(blocks), fenced.Text)

	// the first block's timestamp line no longer parses, so counts differ
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 2)[0])
	assert.True(t, out.BlockCountMismatch)
}

func TestDispatch_RestampsIndexDrift(t *testing.T) {
	blocks := testBlocks(2)
	renumbered := "10\n00:00:00,000 --> 00:00:01,500\nBonjour 1\n\n" +
		"11\n00:00:02,000 --> 00:00:03,999\nBonjour 2"
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, mock.Anything, "French").Return(renumbered, nil).Once()

	d, _ := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 2)[0])

	assert.False(t, out.BlockCountMismatch)
	assert.Equal(t, frenchOf(blocks), out.Text)
}

func TestDispatch_EmptyReplyIsFailure(t *testing.T) {
	blocks := testBlocks(1)
	backend := &mockBackend{}
	backend.On("Translate", mock.Anything, mock.Anything, "French").Return("  \n", nil).Once()
	backend.On("Translate", mock.Anything, mock.Anything, "French").Return(frenchOf(blocks), nil).Once()

	d, slept := newTestDispatcher(backend, DefaultOptions())
	out := d.Dispatch(context.Background(), batch.Plan(blocks, 1)[0])

	assert.Equal(t, StatusRecoveredWithFallback, out.Status)
	assert.Equal(t, frenchOf(blocks), out.Text)
	assert.Equal(t, []time.Duration{DefaultFailureDelay, DefaultPaceDelay}, *slept)
}

func TestDispatch_InFlightCallSurvivesCancellation(t *testing.T) {
	blocks := testBlocks(1)
	backend := &mockBackend{}
	backend.On("Translate",
		mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
		mock.Anything, "French",
	).Return(frenchOf(blocks), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(backend, "French", DefaultOptions())
	start := time.Now()
	out := d.Dispatch(ctx, batch.Plan(blocks, 1)[0])

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Less(t, time.Since(start), DefaultPaceDelay, "pacing must end early once stopped")
	backend.AssertExpectations(t)
}

func TestDispatch_EmptyBatch(t *testing.T) {
	backend := &mockBackend{}
	d, _ := newTestDispatcher(backend, DefaultOptions())

	out := d.Dispatch(context.Background(), batch.Batch{Sequence: 3})
	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, 3, out.Sequence)
	backend.AssertNotCalled(t, "Translate", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusAndSpanStrings(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "recovered_with_fallback", StatusRecoveredWithFallback.String())
	assert.Equal(t, "failed_kept_original", StatusFailedKeptOriginal.String())
	assert.Equal(t, "7", Span{First: 7, Last: 7}.String())
	assert.Equal(t, "3-9", Span{First: 3, Last: 9}.String())
}

func TestParseStatus(t *testing.T) {
	for _, st := range []Status{StatusSuccess, StatusRecoveredWithFallback, StatusFailedKeptOriginal} {
		got, ok := ParseStatus(st.String())
		assert.True(t, ok)
		assert.Equal(t, st, got)
	}
	_, ok := ParseStatus("half_done")
	assert.False(t, ok)
}
