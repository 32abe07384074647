package subtitle

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astisub"
)

// Verify re-reads an assembled document with astisub to make sure a
// general-purpose SRT reader accepts it, and returns the number of items it
// found.
func Verify(text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("document is empty")
	}

	subs, err := astisub.ReadFromSRT(strings.NewReader(text + "\n"))
	if err != nil {
		return 0, fmt.Errorf("astisub rejected document: %w", err)
	}
	return len(subs.Items), nil
}
