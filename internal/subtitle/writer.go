package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Serialize renders blocks back to SRT. Blocks are separated by one blank
// line and the result carries no trailing newline.
func Serialize(blocks []Block) string {
	var sb strings.Builder
	for i, block := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		writeBlock(&sb, block)
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, block Block) {
	if block.IndexLine != "" {
		sb.WriteString(block.IndexLine)
	} else {
		sb.WriteString(strconv.Itoa(block.Index))
	}
	sb.WriteByte('\n')
	sb.WriteString(block.StartTime)
	sb.WriteString(" --> ")
	sb.WriteString(block.EndTime)
	for _, line := range block.Lines {
		sb.WriteByte('\n')
		sb.WriteString(line)
	}
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// WriteFile writes document text to path followed by a single newline
func WriteFile(path string, text string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path is empty")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	content := strings.TrimRight(text, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
