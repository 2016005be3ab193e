package core

import (
	"fmt"
	"io"
	"sync"

	"distsys/pkg/distsys/codec"
	"distsys/pkg/distsys/types"
)

// Writer owns exclusive write access to the output stream. A send is a
// critical section of bounded size: serialize, lock, write the line and
// the trailing newline, unlock. No await happens inside the section.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter wraps out with the line-atomicity guarantee described in
// spec.md §4.1.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// WriteLine writes a pre-serialized line followed by a single newline, with
// no interleaving from concurrent callers.
func (w *Writer) WriteLine(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if _, err := w.out.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// Send encodes msg and writes it atomically.
func Send[P types.Typed](w *Writer, msg types.Message[P]) error {
	line, err := codec.EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return w.WriteLine(line)
}
