package backend

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MimeLyc/srt-batch-translator/internal/config"
)

// OpenAI answers requests through the Chat Completions API
type OpenAI struct {
	client openai.Client
	cfg    config.LLMConfig
}

func NewOpenAI(cfg config.LLMConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// the dispatcher owns retries through its fallback
		option.WithMaxRetries(0),
	}
	if cfg.APIURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.TimeoutDuration()))
	}
	return &OpenAI{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (o *OpenAI) Complete(ctx context.Context, instruction, text string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	messages = append(messages, openai.UserMessage(text))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       o.cfg.Model,
		Temperature: openai.Float(o.cfg.Temperature),
		TopP:        openai.Float(o.cfg.TopP),
	}
	if o.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.cfg.MaxTokens))
	}

	response, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	choice := response.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("openai: completion blocked by content filter")
	}
	return choice.Message.Content, nil
}
