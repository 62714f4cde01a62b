// Package estimate provides token-count estimates for selected content
// so the status bar can show prompt budget usage.
package estimate

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// Tokens returns the cl100k_base token count of text. When the codec is
// unavailable it falls back to the chars/4 rule of thumb rather than
// failing.
func Tokens(text string) int {
	c, err := getCodec()
	if err != nil {
		return len(text) / 4
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return len(text) / 4
	}
	return len(ids)
}

// Sizes aggregates byte and token counts for a set of contents.
type Sizes struct {
	Files  int
	Bytes  int
	Tokens int
}

// Sum estimates totals over the given file contents.
func Sum(contents []string) Sizes {
	var s Sizes
	for _, c := range contents {
		s.Files++
		s.Bytes += len(c)
		s.Tokens += Tokens(c)
	}
	return s
}
