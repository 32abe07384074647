// Package backend builds the provider transports that answer translation
// requests: Gemini through google.golang.org/genai, OpenAI through
// openai-go, and any OpenAI-compatible gateway through internal/llm.
package backend

import (
	"context"
	"fmt"

	"github.com/MimeLyc/srt-batch-translator/internal/config"
	"github.com/MimeLyc/srt-batch-translator/internal/translator"
)

// New returns the completer for cfg.Provider
func New(ctx context.Context, cfg config.LLMConfig) (translator.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGemini(ctx, cfg)
	case config.ProviderOpenAI:
		return NewOpenAI(cfg)
	case config.ProviderCompatible:
		return NewCompatible(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
