package persistence

import (
	"time"

	"github.com/MimeLyc/srt-batch-translator/internal/translator"
)

// BatchCheckpoint is a stored translation for one batch range of a document.
// BatchStart and BatchEnd are block offsets, end exclusive.
type BatchCheckpoint struct {
	DocKey         string
	BatchStart     int
	BatchEnd       int
	Status         string
	TranslatedText string
	RunID          string
	UpdatedAt      time.Time
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunDegraded  RunStatus = "degraded"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Run records one pipeline run
type Run struct {
	ID             string
	DocKey         string
	SourcePath     string
	OutputPath     string
	TargetLanguage string
	Status         RunStatus
	Batches        int
	Degraded       []translator.Span
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time // zero while running
}
