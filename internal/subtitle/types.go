package subtitle

import "golang.org/x/text/language"

// Block is one SRT caption unit. Index and the timestamps are copied
// verbatim from the source and never rewritten.
type Block struct {
	Index     int      // parsed sequence number
	IndexLine string   // index line exactly as written, e.g. "01"
	StartTime string   // HH:MM:SS,mmm
	EndTime   string   // HH:MM:SS,mmm
	Lines     []string // caption text, one entry per line
}

// Text returns the caption lines joined with newlines
func (b Block) Text() string {
	return joinLines(b.Lines)
}

// WithLines returns a copy of b carrying different caption text
func (b Block) WithLines(lines []string) Block {
	return Block{
		Index:     b.Index,
		IndexLine: b.IndexLine,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Lines:     append([]string(nil), lines...),
	}
}

// File represents a subtitle file read from disk
type File struct {
	Path     string
	Raw      string // file content with normalized line endings
	Blocks   []Block
	Language language.Tag // detected caption language, Und when unknown
	Format   string
}
