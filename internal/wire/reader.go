package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// Reader reads sentences off a RouterOS API connection.
type Reader struct {
	r   *bufio.Reader
	dec *charmap.Charmap
}

// NewReader returns a Reader that decodes word bytes from r.
//
// RouterOS devices transmit identity strings, comments and other
// user-supplied text as Windows-1250 on the wire; decode it the same way
// the upstream RouterOS API client does so non-ASCII router comments
// render correctly.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), dec: charmap.Windows1250}
}

// ReadWord reads and decodes one word. A zero-length word (the sentence
// terminator) is returned as an empty slice.
func (r *Reader) ReadWord() ([]byte, error) {
	raw, err := ReadWord(r.r)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return raw, nil
	}

	decoded, err := r.dec.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode word: %w", err)
	}

	return decoded, nil
}

// ReadSentence reads words until the empty terminator word and assembles
// a Sentence. The first word becomes Sentence.Word; `.tag=N` sets
// Sentence.Tag; `=KEY=VALUE` words populate Sentence.Map; anything else
// is kept as a positional word.
func (r *Reader) ReadSentence() (*Sentence, error) {
	sen := NewSentence()

	for {
		buf, err := r.ReadWord()
		if err != nil {
			return nil, err
		}

		if len(buf) == 0 {
			return sen, nil
		}

		if sen.Word == "" {
			sen.Word = string(buf)

			continue
		}

		if bytes.HasPrefix(buf, []byte(".tag=")) {
			sen.Tag = string(buf[len(".tag="):])

			continue
		}

		if key, value, ok := ParseAttrWord(buf); ok {
			sen.Map[key] = value

			continue
		}

		sen.Positional = append(sen.Positional, string(buf))
	}
}
