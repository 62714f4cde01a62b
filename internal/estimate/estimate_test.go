package estimate

import (
	"strings"
	"testing"
)

func TestTokens(t *testing.T) {
	if got := Tokens(""); got != 0 {
		t.Errorf("Tokens(\"\") = %d", got)
	}
	text := strings.Repeat("hello world ", 100)
	got := Tokens(text)
	// Exact counts depend on the codec; either the real count or the
	// chars/4 fallback lands well inside this range.
	if got < 100 || got > len(text) {
		t.Errorf("Tokens = %d for %d chars", got, len(text))
	}
}

func TestSum(t *testing.T) {
	s := Sum([]string{"abcd", "efgh"})
	if s.Files != 2 {
		t.Errorf("files = %d", s.Files)
	}
	if s.Bytes != 8 {
		t.Errorf("bytes = %d", s.Bytes)
	}
	if s.Tokens <= 0 {
		t.Errorf("tokens = %d", s.Tokens)
	}
	if (Sizes{}) != Sum(nil) {
		t.Error("empty sum not zero")
	}
}
