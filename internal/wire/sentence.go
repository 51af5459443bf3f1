package wire

import (
	"bytes"
	"fmt"
	"strings"
)

// Sentence is a complete RouterOS API message: a reply tag or command
// word, a tag (`.tag=N`, rare for replies we originate), and the
// attribute words collected into a map.
type Sentence struct {
	// Word is the first word of the sentence: a reply tag (!re, !done,
	// !trap, !fatal) or a command path (/interface/print).
	Word string
	Tag  string
	Map  map[string]string
	// Positional holds non-attribute words that aren't the leading word
	// or the tag — rare, but the grammar allows them (e.g. `.id`).
	Positional []string
}

// NewSentence returns an empty Sentence ready to be populated.
func NewSentence() *Sentence {
	return &Sentence{Map: make(map[string]string)}
}

func (s *Sentence) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s", s.Word)

	if s.Tag != "" {
		fmt.Fprintf(&b, " @%s", s.Tag)
	}

	for k, v := range s.Map {
		fmt.Fprintf(&b, " =%s=%s", k, v)
	}

	return b.String()
}

// ParseAttrWord splits a `=KEY=VALUE` word on the first `=` following the
// leading one; VALUE may itself contain `=`. It returns ok=false if buf
// does not begin with `=`.
func ParseAttrWord(buf []byte) (key, value string, ok bool) {
	if len(buf) == 0 || buf[0] != '=' {
		return "", "", false
	}

	rest := buf[1:]

	idx := bytes.IndexByte(rest, '=')
	if idx < 0 {
		return string(rest), "", true
	}

	return string(rest[:idx]), string(rest[idx+1:]), true
}
