package translator

import (
	"context"
	"errors"
	"fmt"
)

// Backend translates an SRT text blob into the target language.
// Implementations are stateless: every call is a single request.
type Backend interface {
	Translate(ctx context.Context, text string, targetLanguage string) (string, error)
}

// Completer is a provider transport that answers one instruction + text
// request with one complete reply
type Completer interface {
	Complete(ctx context.Context, instruction string, text string) (string, error)
}

// ErrEmptyReply reports a backend reply with no content
var ErrEmptyReply = errors.New("backend returned an empty reply")

// Status is the terminal state of one dispatched batch
type Status int

const (
	StatusSuccess Status = iota
	StatusRecoveredWithFallback
	StatusFailedKeptOriginal
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRecoveredWithFallback:
		return "recovered_with_fallback"
	case StatusFailedKeptOriginal:
		return "failed_kept_original"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusSuccess, StatusRecoveredWithFallback, StatusFailedKeptOriginal} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// Span is an inclusive range of subtitle indices
type Span struct {
	First int
	Last  int
}

func (s Span) String() string {
	if s.First == s.Last {
		return fmt.Sprintf("%d", s.First)
	}
	return fmt.Sprintf("%d-%d", s.First, s.Last)
}

// Outcome is the result of dispatching one batch
type Outcome struct {
	Sequence int
	First    int // first subtitle index of the batch
	Last     int // last subtitle index of the batch
	Status   Status
	// Text replaces the batch range in the final document
	Text string
	// BlockCountMismatch is set when a reply did not parse into as many
	// blocks as were sent
	BlockCountMismatch bool
	// Degraded lists ranges whose Text is the untranslated original
	Degraded []Span
	Attempts int
}

// Span returns the subtitle index range covered by the outcome
func (o Outcome) Span() Span {
	return Span{First: o.First, Last: o.Last}
}
