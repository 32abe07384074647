package file

import (
	"path/filepath"
	"strings"
)

// WithSuffix inserts suffix between the file name and its extension:
// "/a/movie.srt" + "_pt-BR" -> "/a/movie_pt-BR.srt".
func WithSuffix(path, suffix string) string {
	if path == "" {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	if base == "" {
		// dotfile such as ".srt"
		base, ext = filepath.Base(path), ""
	}
	return filepath.Join(filepath.Dir(path), base+suffix+ext)
}

// TranslatedPath is the default destination for a translated subtitle file.
func TranslatedPath(inputPath, langCode string) string {
	if langCode == "" {
		return WithSuffix(inputPath, "_translated")
	}
	return WithSuffix(inputPath, "_"+langCode)
}
