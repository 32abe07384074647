package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Descriptor identifies a translation target
type Descriptor struct {
	Code string       // short code as given by the user, e.g. "pt-BR"
	Name string       // human readable name used in the backend instruction
	Tag  language.Tag // parsed BCP 47 tag
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Code)
}

type entry struct {
	code string
	name string
}

// the codes offered by the translator, in display order
var table = []entry{
	{code: "pt-BR", name: "Brazilian Portuguese"},
	{code: "en", name: "English"},
	{code: "es", name: "Spanish"},
	{code: "fr", name: "French"},
	{code: "de", name: "German"},
	{code: "it", name: "Italian"},
	{code: "ja", name: "Japanese"},
	{code: "ko", name: "Korean"},
	{code: "zh", name: "Chinese"},
	{code: "zh-TW", name: "Traditional Chinese"},
	{code: "ru", name: "Russian"},
}

// Supported returns the built-in descriptors in display order
func Supported() []Descriptor {
	ret := make([]Descriptor, 0, len(table))
	for _, e := range table {
		ret = append(ret, Descriptor{
			Code: e.code,
			Name: e.name,
			Tag:  language.Make(e.code),
		})
	}
	return ret
}

// Lookup resolves a language code. Codes missing from the built-in table
// are accepted when they parse as BCP 47 and have an English display name.
func Lookup(code string) (Descriptor, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Descriptor{}, fmt.Errorf("language code is empty")
	}

	for _, e := range table {
		if strings.EqualFold(e.code, code) {
			return Descriptor{Code: e.code, Name: e.name, Tag: language.Make(e.code)}, nil
		}
	}

	tag, err := language.Parse(code)
	if err != nil {
		return Descriptor{}, fmt.Errorf("unknown language code %q: %w", code, err)
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return Descriptor{}, fmt.Errorf("no display name for language code %q", code)
	}
	return Descriptor{Code: tag.String(), Name: name, Tag: tag}, nil
}

// Name returns the display name for a detected source language tag
func Name(tag language.Tag) string {
	if tag == language.Und {
		return "unknown"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return tag.String()
}
