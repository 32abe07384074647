package file

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslatedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		lang  string
		want  string
	}{
		{name: "regular", input: filepath.Join("subs", "ep01.srt"), lang: "pt-BR", want: filepath.Join("subs", "ep01_pt-BR.srt")},
		{name: "multiple dots", input: filepath.Join("subs", "show.s01e01.srt"), lang: "ja", want: filepath.Join("subs", "show.s01e01_ja.srt")},
		{name: "no extension", input: filepath.Join("subs", "raw"), lang: "fr", want: filepath.Join("subs", "raw_fr")},
		{name: "empty lang", input: "ep.srt", lang: "", want: "ep_translated.srt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TranslatedPath(tt.input, tt.lang))
		})
	}
}
