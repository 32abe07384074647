package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// SRT time range: 00:02:16,612 --> 00:02:19,376
var timeRangeRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3}) --> (\d{2}:\d{2}:\d{2},\d{3})$`)

var indexRe = regexp.MustCompile(`^\d+$`)

// NormalizeLineEndings converts CRLF and lone CR to LF and drops a leading BOM
func NormalizeLineEndings(raw string) string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.ReplaceAll(raw, "\r", "\n")
}

// Parse converts SRT text into blocks. Groups that do not start with an
// index line followed by a time range line are skipped; they are treated as
// noise rather than a document error. Empty input yields no blocks.
func Parse(raw string) []Block {
	var blocks []Block
	for _, group := range splitGroups(NormalizeLineEndings(raw)) {
		block, ok := parseGroup(group)
		if !ok {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// Count returns the number of well-formed blocks in raw
func Count(raw string) int {
	return len(Parse(raw))
}

// splitGroups splits text on blank (empty or whitespace-only) lines
func splitGroups(text string) [][]string {
	var (
		groups  [][]string
		current []string
	)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func parseGroup(lines []string) (Block, bool) {
	if len(lines) < 2 {
		return Block{}, false
	}

	indexLine := strings.TrimSpace(lines[0])
	if !indexRe.MatchString(indexLine) {
		return Block{}, false
	}
	index, err := strconv.Atoi(indexLine)
	if err != nil {
		return Block{}, false
	}

	matches := timeRangeRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
	if len(matches) != 3 {
		return Block{}, false
	}

	return Block{
		Index:     index,
		IndexLine: lines[0],
		StartTime: matches[1],
		EndTime:   matches[2],
		Lines:     append([]string(nil), lines[2:]...),
	}, true
}

// ReadFile reads and parses an SRT file
func ReadFile(path string) (*File, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("subtitle file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return ReadBytes(data, path), nil
}

// ReadBytes parses SRT content that did not come from disk
func ReadBytes(data []byte, path string) *File {
	raw := NormalizeLineEndings(string(data))
	blocks := Parse(raw)
	return &File{
		Path:     path,
		Raw:      raw,
		Blocks:   blocks,
		Language: detectLanguage(blocks),
		Format:   "SRT",
	}
}

// detectLanguage returns the language detected for most blocks
func detectLanguage(blocks []Block) language.Tag {
	if len(blocks) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, block := range blocks {
		text := block.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		langMap[whatlanggo.DetectLang(text).Iso6391()]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.All.Make(topLang)
}
