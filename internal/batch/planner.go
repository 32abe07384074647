// Package batch partitions parsed subtitle blocks into request-sized runs.
package batch

import (
	"github.com/MimeLyc/srt-batch-translator/internal/subtitle"
)

// DefaultMaxSize is the block ceiling used when no size is configured
const DefaultMaxSize = 150

// Batch is a contiguous run of blocks sent to the backend in one request
type Batch struct {
	Sequence int // 0-based position among the document's batches
	Blocks   []subtitle.Block
	MaxSize  int // ceiling in effect when the batch was created
}

// Len returns the number of blocks in the batch
func (b Batch) Len() int {
	return len(b.Blocks)
}

// FirstIndex returns the subtitle index of the first block, 0 when empty
func (b Batch) FirstIndex() int {
	if len(b.Blocks) == 0 {
		return 0
	}
	return b.Blocks[0].Index
}

// LastIndex returns the subtitle index of the last block, 0 when empty
func (b Batch) LastIndex() int {
	if len(b.Blocks) == 0 {
		return 0
	}
	return b.Blocks[len(b.Blocks)-1].Index
}

// Plan splits blocks into consecutive batches of maxSize blocks; only the
// last batch may be shorter. Blocks keep their order and each block lands
// in exactly one batch. A non-positive maxSize uses DefaultMaxSize.
func Plan(blocks []subtitle.Block, maxSize int) []Batch {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(blocks) == 0 {
		return nil
	}

	batches := make([]Batch, 0, (len(blocks)+maxSize-1)/maxSize)
	for start := 0; start < len(blocks); start += maxSize {
		end := min(start+maxSize, len(blocks))
		batches = append(batches, Batch{
			Sequence: len(batches),
			Blocks:   blocks[start:end:end],
			MaxSize:  maxSize,
		})
	}
	return batches
}

// FallbackSize returns the sub-batch size used after a batch of maxSize
// failed. A configured value inside [1, maxSize) wins; otherwise a quarter
// of maxSize, never below one block.
func FallbackSize(maxSize, configured int) int {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if configured >= 1 && configured < maxSize {
		return configured
	}
	return max(1, maxSize/4)
}

// Sizes returns the block count of each batch
func Sizes(batches []Batch) []int {
	ret := make([]int, len(batches))
	for i, b := range batches {
		ret[i] = b.Len()
	}
	return ret
}
