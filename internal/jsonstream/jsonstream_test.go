package jsonstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecoder_StreamsElements(t *testing.T) {
	in := `[ {"id":1,"name":"a"},
	         {"id":2,"name":"b"} ]`
	d := NewDecoder[item]("test", strings.NewReader(in))

	first, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, item{1, "a"}, first)

	second, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, item{2, "b"}, second)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_EmptyArray(t *testing.T) {
	got, err := ReadAll[item]("empty", strings.NewReader("[]\n  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecoder_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"object at top level", `{"id":1}`, ErrNotArray},
		{"scalar at top level", `42`, ErrNotArray},
		{"empty input", ``, ErrNotArray},
		{"array of numbers", `[1,2]`, ErrNotObject},
		{"nested array", `[[{"id":1}]]`, ErrNotObject},
		{"object after array", `[{"id":1}]{"id":2}`, ErrTrailingData},
		{"second array", `[] []`, ErrTrailingData},
		{"garbage after array", "[]\nx", ErrTrailingData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll[item](tt.name, strings.NewReader(tt.in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestDecoder_Truncated(t *testing.T) {
	got, err := ReadAll[item]("trunc", strings.NewReader(`[{"id":1,"name":"a"},{"id":2`))
	require.Error(t, err)
	assert.Len(t, got, 1)
}

func TestWriter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[item](&buf)
	require.NoError(t, w.Write(item{1, "a"}))
	require.NoError(t, w.Write(item{2, "b"}))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())
	assert.Error(t, w.Write(item{3, "c"}))

	assert.True(t, json.Valid(buf.Bytes()), buf.String())
	assert.Contains(t, buf.String(), "\n  {\n    \"id\": 1,")

	got, err := ReadAll[item]("buf", &buf)
	require.NoError(t, err)
	assert.Equal(t, []item{{1, "a"}, {2, "b"}}, got)
}

func TestWriter_EmptyIsValidArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter[item](&buf)
	require.NoError(t, w.Close())
	assert.JSONEq(t, `[]`, buf.String())
}

func TestCreateOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	w, err := Create[item](path)
	require.NoError(t, err)
	require.NoError(t, w.Write(item{9, "z"}))
	require.NoError(t, w.Close())

	d, err := Open[item](path)
	require.NoError(t, err)
	defer d.Close()

	v, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, item{9, "z"}, v)
	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)

	_, err = Open[item](filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
