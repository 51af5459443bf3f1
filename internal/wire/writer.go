package wire

import (
	"bufio"
	"fmt"
	"io"
)

// Writer writes sentences to a RouterOS API connection.
type Writer struct {
	w *bufio.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteSentence writes every word in words followed by the empty
// terminator word, then flushes in one pass.
func (w *Writer) WriteSentence(words ...string) error {
	for _, word := range words {
		if err := WriteWord(w.w, word); err != nil {
			return err
		}
	}

	if err := WriteLength(w.w, 0); err != nil {
		return err
	}

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush sentence: %w", err)
	}

	return nil
}
