package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/MimeLyc/srt-batch-translator/internal/persistence"
	"github.com/MimeLyc/srt-batch-translator/internal/translator"
)

// Store persists batch checkpoints and run history. *persistence.SQLiteStore
// implements it.
type Store interface {
	LoadBatchCheckpoints(ctx context.Context, docKey string) ([]persistence.BatchCheckpoint, error)
	DeleteBatchCheckpoints(ctx context.Context, docKey string) error
	SaveBatchCheckpoint(ctx context.Context, cp persistence.BatchCheckpoint) error
	StartRun(ctx context.Context, run persistence.Run) error
	FinishRun(ctx context.Context, id string, status persistence.RunStatus, degraded []translator.Span, runErr error) error
}

// DocKey identifies a document translated into one target language
func DocKey(raw, targetCode string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]) + "|" + targetCode
}

type checkpoint struct {
	status translator.Status
	text   string
}

// checkpointCache is the checkpoint set of one document, loaded once per run
type checkpointCache struct {
	store  Store
	docKey string
	runID  string

	mu     sync.RWMutex
	cached map[string]checkpoint
}

// newCheckpointCache loads the checkpoints of docKey. fresh drops them
// first so every batch is translated again.
func newCheckpointCache(ctx context.Context, store Store, docKey, runID string, fresh bool) (*checkpointCache, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if docKey == "" {
		return nil, fmt.Errorf("doc key is empty")
	}
	if fresh {
		if err := store.DeleteBatchCheckpoints(ctx, docKey); err != nil {
			return nil, fmt.Errorf("clear checkpoints: %w", err)
		}
	}

	checkpoints, err := store.LoadBatchCheckpoints(ctx, docKey)
	if err != nil {
		return nil, err
	}

	cached := make(map[string]checkpoint, len(checkpoints))
	for _, cp := range checkpoints {
		status, ok := translator.ParseStatus(cp.Status)
		if !ok || status == translator.StatusFailedKeptOriginal {
			continue
		}
		cached[batchKey(cp.BatchStart, cp.BatchEnd)] = checkpoint{status: status, text: cp.TranslatedText}
	}

	return &checkpointCache{
		store:  store,
		docKey: docKey,
		runID:  runID,
		cached: cached,
	}, nil
}

// Load returns the stored translation for block offsets [start, end)
func (c *checkpointCache) Load(start, end int) (checkpoint, bool) {
	if c == nil {
		return checkpoint{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.cached[batchKey(start, end)]
	return cp, ok
}

// Save stores a finished batch. Outcomes that kept original text or whose
// reply changed the block count are skipped so the next run retries them.
func (c *checkpointCache) Save(ctx context.Context, start, end int, out translator.Outcome) error {
	if c == nil || out.Status == translator.StatusFailedKeptOriginal || out.BlockCountMismatch {
		return nil
	}
	if err := c.store.SaveBatchCheckpoint(ctx, persistence.BatchCheckpoint{
		DocKey:         c.docKey,
		BatchStart:     start,
		BatchEnd:       end,
		Status:         out.Status.String(),
		TranslatedText: out.Text,
		RunID:          c.runID,
	}); err != nil {
		return err
	}
	c.mu.Lock()
	c.cached[batchKey(start, end)] = checkpoint{status: out.Status, text: out.Text}
	c.mu.Unlock()
	return nil
}

func batchKey(start, end int) string {
	return fmt.Sprintf("%d:%d", start, end)
}
