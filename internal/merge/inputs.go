package merge

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"sitemerge/internal/jsonstream"
	"sitemerge/internal/models"
)

// Files names the four inputs inside a directory.
type Files struct {
	Records   string
	Contacts  string
	Equipment string
	Materials string
}

// DefaultFiles are the names the generator writes.
func DefaultFiles() Files {
	return Files{
		Records:   "main.json",
		Contacts:  "poc.json",
		Equipment: "equipment.json",
		Materials: "materials.json",
	}
}

// Paths returns the four file paths under dir.
func (f Files) Paths(dir string) []string {
	return []string{
		filepath.Join(dir, f.Records),
		filepath.Join(dir, f.Contacts),
		filepath.Join(dir, f.Equipment),
		filepath.Join(dir, f.Materials),
	}
}

// OpenDir opens file-backed decoders for all four inputs. The returned
// closer releases every file that was opened.
func OpenDir(dir string, files Files) (Inputs, io.Closer, error) {
	var (
		in      Inputs
		closers multiCloser
	)
	records, err := jsonstream.Open[models.Record](filepath.Join(dir, files.Records))
	if err != nil {
		return Inputs{}, nil, err
	}
	closers = append(closers, records)
	in.Records = records

	contacts, err := jsonstream.Open[models.Entry[models.PointOfContact]](filepath.Join(dir, files.Contacts))
	if err != nil {
		closers.Close()
		return Inputs{}, nil, err
	}
	closers = append(closers, contacts)
	in.Contacts = contacts

	equipment, err := jsonstream.Open[models.Entry[models.EquipmentSet]](filepath.Join(dir, files.Equipment))
	if err != nil {
		closers.Close()
		return Inputs{}, nil, err
	}
	closers = append(closers, equipment)
	in.Equipment = equipment

	materials, err := jsonstream.Open[models.Entry[string]](filepath.Join(dir, files.Materials))
	if err != nil {
		closers.Close()
		return Inputs{}, nil, err
	}
	closers = append(closers, materials)
	in.Materials = materials

	return in, closers, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing inputs: %w", errors.Join(errs...))
	}
	return nil
}

// SliceIterator yields the given values and then io.EOF.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// FromSlice returns an Iterator over items.
func FromSlice[T any](items ...T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

func (s *SliceIterator[T]) Next() (T, error) {
	var zero T
	if s.pos >= len(s.items) {
		return zero, io.EOF
	}
	v := s.items[s.pos]
	s.pos++
	return v, nil
}
