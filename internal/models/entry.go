package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Entry pairs a site id with a value. On the wire it is a single-member
// object whose member name is the decimal id: {"1000": value}.
type Entry[V any] struct {
	Key   int
	Value V
}

// NewEntry is a convenience constructor.
func NewEntry[V any](key int, value V) Entry[V] {
	return Entry[V]{Key: key, Value: value}
}

func (e Entry[V]) MarshalJSON() ([]byte, error) {
	val, err := json.Marshal(e.Value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(strconv.Quote(strconv.Itoa(e.Key)))
	buf.WriteByte(':')
	buf.Write(val)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *Entry[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("entry: expected an object, found %v", tok)
	}

	// Members are counted as read so duplicate names are not merged.
	var (
		name  string
		value json.RawMessage
		count int
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("entry: %w", err)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("entry: %w", err)
		}
		if count == 0 {
			name, _ = tok.(string)
			value = raw
		}
		count++
	}
	if count != 1 {
		return fmt.Errorf("entry: expected exactly one member, got %d", count)
	}

	key, err := strconv.Atoi(name)
	if err != nil {
		return fmt.Errorf("entry: key %q is not an integer", name)
	}
	var v V
	if err := json.Unmarshal(value, &v); err != nil {
		return fmt.Errorf("entry %d: %w", key, err)
	}
	e.Key = key
	e.Value = v
	return nil
}
