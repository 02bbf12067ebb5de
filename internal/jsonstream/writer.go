package jsonstream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Writer emits a pretty-printed JSON array one element at a time.
type Writer[T any] struct {
	w      *bufio.Writer
	closer io.Closer
	count  int
	closed bool
}

// NewWriter writes to w. Close must be called to terminate the array.
func NewWriter[T any](w io.Writer) *Writer[T] {
	return &Writer[T]{w: bufio.NewWriter(w)}
}

// Create truncates or creates the file at path.
func Create[T any](path string) (*Writer[T], error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := NewWriter[T](f)
	w.closer = f
	return w, nil
}

// Write appends v to the array.
func (w *Writer[T]) Write(v T) error {
	if w.closed {
		return errors.New("jsonstream: write to closed writer")
	}
	data, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode element %d: %w", w.count, err)
	}
	sep := ",\n  "
	if w.count == 0 {
		sep = "[\n  "
	}
	if _, err := w.w.WriteString(sep); err != nil {
		return err
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count is the number of elements written so far.
func (w *Writer[T]) Count() int {
	return w.count
}

// Close terminates the array, flushes, and closes the file opened by Create.
func (w *Writer[T]) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	end := "\n]\n"
	if w.count == 0 {
		end = "[]\n"
	}
	_, err := w.w.WriteString(end)
	if ferr := w.w.Flush(); err == nil {
		err = ferr
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
