// Package jsonstream reads and writes large top-level JSON arrays one element
// at a time, so that inputs never have to be held in memory.
package jsonstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrNotArray is returned when the input does not open with '['.
	ErrNotArray = errors.New("input did not start with an array")
	// ErrNotObject is returned when an array element is not a JSON object.
	ErrNotObject = errors.New("array element is not an object")
	// ErrTrailingData is returned when anything but whitespace follows ']'.
	ErrTrailingData = errors.New("unexpected data after array")
)

// Decoder pulls the elements of a top-level JSON array of objects.
type Decoder[T any] struct {
	dec     *json.Decoder
	closer  io.Closer
	name    string
	started bool
	done    bool
	index   int
}

// NewDecoder wraps r. The name is used in error messages only.
func NewDecoder[T any](name string, r io.Reader) *Decoder[T] {
	return &Decoder[T]{dec: json.NewDecoder(r), name: name}
}

// Open returns a decoder over the file at path. Close releases it.
func Open[T any](path string) (*Decoder[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	d := NewDecoder[T](path, f)
	d.closer = f
	return d, nil
}

// Next decodes the next element. It returns io.EOF after the closing bracket.
func (d *Decoder[T]) Next() (T, error) {
	var zero T
	if d.done {
		return zero, io.EOF
	}
	if !d.started {
		tok, err := d.dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return zero, fmt.Errorf("%s: %w: empty input", d.name, ErrNotArray)
			}
			return zero, fmt.Errorf("%s: %w", d.name, err)
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return zero, fmt.Errorf("%s: %w: found %v", d.name, ErrNotArray, tok)
		}
		d.started = true
	}

	if !d.dec.More() {
		if _, err := d.dec.Token(); err != nil {
			return zero, fmt.Errorf("%s: %w", d.name, err)
		}
		if tok, err := d.dec.Token(); !errors.Is(err, io.EOF) {
			if err != nil {
				return zero, fmt.Errorf("%s: %w: %w", d.name, ErrTrailingData, err)
			}
			return zero, fmt.Errorf("%s: %w: found %v", d.name, ErrTrailingData, tok)
		}
		d.done = true
		return zero, io.EOF
	}

	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		return zero, fmt.Errorf("%s: element %d: %w", d.name, d.index, err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return zero, fmt.Errorf("%s: element %d: %w", d.name, d.index, ErrNotObject)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("%s: element %d: %w", d.name, d.index, err)
	}
	d.index++
	return v, nil
}

// Close releases the file opened by Open. It is a no-op for NewDecoder.
func (d *Decoder[T]) Close() error {
	if d.closer == nil {
		return nil
	}
	c := d.closer
	d.closer = nil
	return c.Close()
}

// ReadAll drains r into a slice.
func ReadAll[T any](name string, r io.Reader) ([]T, error) {
	d := NewDecoder[T](name, r)
	var out []T
	for {
		v, err := d.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}
