package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapError(cause, ErrFileWrite, "failed to write output").
		WithContext("path", "/tmp/x_fr.srt").
		WithContext("attempt", 1)

	assert.Equal(t, "[FileWrite] failed to write output | context: attempt=1, path=/tmp/x_fr.srt | cause: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[Input] no input file selected", NewError(ErrInput, "no input file selected").Error())
}

func TestIsErrorType(t *testing.T) {
	err := fmt.Errorf("run: %w", NewError(ErrLanguage, "unknown target language"))
	assert.True(t, IsErrorType(err, ErrLanguage))
	assert.False(t, IsErrorType(err, ErrInput))
	assert.False(t, IsErrorType(errors.New("plain"), ErrLanguage))
}

func TestAdvice(t *testing.T) {
	types := []ErrorType{ErrInput, ErrFileRead, ErrFileWrite, ErrParse, ErrConfig, ErrLanguage, ErrUnknown}
	seen := map[string]bool{}
	for _, typ := range types {
		advice := Advice(NewError(typ, "x"))
		assert.NotEmpty(t, advice)
		seen[advice] = true
	}
	assert.Len(t, seen, len(types))
	assert.NotEmpty(t, Advice(errors.New("plain")))
}

func TestReport(t *testing.T) {
	assert.True(t, Report(NewError(ErrParse, "no subtitle blocks found in source")))
	assert.False(t, Report(errors.New("plain")))
}
