package translator

import (
	"context"
	"regexp"
	"strings"
)

// llmBackend turns a provider Completer into a Backend by pairing every
// request with the subtitle translation instruction
type llmBackend struct {
	completer Completer
}

// NewLLMBackend creates a Backend on top of a chat style provider
func NewLLMBackend(completer Completer) Backend {
	return &llmBackend{completer: completer}
}

func (b *llmBackend) Translate(ctx context.Context, text string, targetLanguage string) (string, error) {
	return b.completer.Complete(ctx, BuildInstruction(targetLanguage), text)
}

// BuildInstruction builds the instruction sent alongside each SRT batch
func BuildInstruction(targetLanguage string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a professional subtitle translator. Translate this subtitle to " + targetLanguage + ". ")
	prompt.WriteString("Keep the exact SRT format, including sequence numbers and timestamps.\n\n")

	prompt.WriteString("=== RULES ===\n")
	prompt.WriteString("1. Translate ONLY the caption text lines into " + targetLanguage + "\n")
	prompt.WriteString("2. Sequence numbers and timestamp lines MUST remain exactly unchanged\n")
	prompt.WriteString("3. Keep one blank line between subtitle blocks\n")
	prompt.WriteString("4. Do NOT merge, split, reorder, or drop subtitle blocks\n")
	prompt.WriteString("5. Preserve line breaks inside a caption and inline tags such as <i>\n")

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY the translated SRT content.\n")
	prompt.WriteString("Do not include any explanations, notes, or code fences.\n")
	prompt.WriteString("The number of output blocks must exactly match the number of input blocks.\n")

	return prompt.String()
}

var codeFenceRe = regexp.MustCompile("(?s)```[^\\n]*\\n(.*?)\\n?```")

// normalizeReply strips the wrapping models commonly add around SRT output
func normalizeReply(raw string) string {
	s := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, "\r\n", "\n"), "\r", "\n"))

	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	lines := strings.Split(s, "\n")
	if len(lines) > 0 && strings.EqualFold(strings.TrimSpace(lines[0]), "SRT") {
		s = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(s)
}
