package backend

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MimeLyc/srt-batch-translator/internal/config"
)

// Gemini sends each request as a fresh single-turn GenerateContent call
type Gemini struct {
	client *genai.Client
	model  string
	cfg    config.LLMConfig
}

func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.APIURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, cfg: cfg}, nil
}

func (g *Gemini) generateConfig(instruction string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.cfg.Temperature)),
		TopP:            genai.Ptr(float32(g.cfg.TopP)),
		MaxOutputTokens: int32(g.cfg.MaxTokens),
	}
	if g.cfg.TopK > 0 {
		gc.TopK = genai.Ptr(float32(g.cfg.TopK))
	}
	if instruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(instruction, genai.RoleUser)
	}
	return gc
}

func (g *Gemini) Complete(ctx context.Context, instruction, text string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.TimeoutDuration())
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), g.generateConfig(instruction))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}
	return strings.TrimSpace(resp.Text()), nil
}
