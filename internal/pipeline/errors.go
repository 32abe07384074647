package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/srt-batch-translator/pkg/log"
)

// ErrStopped is returned with a partial result when the run was asked to
// stop before every batch was sent
var ErrStopped = errors.New("translation stopped before all batches were sent")

type ErrorType int

const (
	ErrInput ErrorType = iota
	ErrFileRead
	ErrFileWrite
	ErrParse
	ErrConfig
	ErrLanguage
	ErrUnknown
)

// Error is a fatal input error. The run aborts before any backend call.
type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrInput:
		return "Input"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrParse:
		return "Parse"
	case ErrConfig:
		return "Config"
	case ErrLanguage:
		return "Language"
	default:
		return "Unknown"
	}
}

// Advice returns a hint for the user about how to fix err
func Advice(err error) string {
	var pErr *Error
	if !errors.As(err, &pErr) {
		return "Please review detailed error information and check relevant configuration and files"
	}
	switch pErr.Type {
	case ErrInput:
		return "Please choose an input .srt file and an output path"
	case ErrFileRead:
		return "Please check that the file exists, is an .srt file and is readable"
	case ErrFileWrite:
		return "Please ensure the output directory exists and has write permissions"
	case ErrParse:
		return "Please verify the file is SRT: an index line, a HH:MM:SS,mmm --> HH:MM:SS,mmm line, then caption text"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	case ErrLanguage:
		return "Please pick a target language from `srtx languages` or a valid BCP 47 code"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

// Report logs err with its advice. It returns false for errors that are
// not pipeline errors.
func Report(err error) bool {
	var pErr *Error
	if !errors.As(err, &pErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}
	log.Error("Error Detail: %v\n advice: %s", err, Advice(err))
	return true
}

func IsErrorType(err error, errorType ErrorType) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *Error {
	return NewErrorWithCause(errorType, message, err)
}
