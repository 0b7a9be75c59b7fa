// Package sink delivers a chosen password to the user. The core never
// depends on a particular sink.
package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when the platform has no clipboard tool
var ErrClipboardUnavailable = errors.New("clipboard is not available on this system")

// Sink consumes a single password
type Sink interface {
	Deliver(password string) error
}

// WriterSink prints passwords one per line
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink writes to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Deliver(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintln(s.w, password); err != nil {
		return fmt.Errorf("failed to write password: %w", err)
	}
	return nil
}

// ClipboardSink copies the password to the system clipboard
type ClipboardSink struct {
	write func(string) error
}

// NewClipboardSink uses the system clipboard
func NewClipboardSink() *ClipboardSink {
	return &ClipboardSink{write: clipboard.WriteAll}
}

// Available reports whether a clipboard backend was found
func (s *ClipboardSink) Available() bool {
	return !clipboard.Unsupported
}

func (s *ClipboardSink) Deliver(password string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := s.write(password); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// Multi delivers to every sink and joins their errors
type Multi []Sink

func (m Multi) Deliver(password string) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(password); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
