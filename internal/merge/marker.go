package merge

import (
	"sitemerge/internal/models"
)

// Source identifies one of the four merge inputs. The numeric order is the
// tie-break order when several inputs hold the same key.
type Source int

const (
	SourceRecords Source = iota
	SourceContacts
	SourceEquipment
	SourceMaterials

	numSources
)

func (s Source) String() string {
	switch s {
	case SourceRecords:
		return "records"
	case SourceContacts:
		return "contacts"
	case SourceEquipment:
		return "equipment"
	case SourceMaterials:
		return "materials"
	default:
		return "unknown"
	}
}

// Marker is one keyed contribution to a merged record.
type Marker interface {
	Key() int
	Apply(b *models.Builder)
	// Noop reports a marker that only carries its key.
	Noop() bool
}

type recordMarker struct {
	rec models.Record
}

func (m recordMarker) Key() int { return m.rec.ID }
func (m recordMarker) Noop() bool { return false }
func (m recordMarker) Apply(b *models.Builder) {
	b.Apply(m.rec.Mutate())
}

type fieldMarker struct {
	key   int
	apply func(b *models.Builder)
}

func (m fieldMarker) Key() int { return m.key }
func (m fieldMarker) Noop() bool { return false }
func (m fieldMarker) Apply(b *models.Builder) { m.apply(b) }

type noopMarker struct {
	key int
}

func (m noopMarker) Key() int { return m.key }
func (m noopMarker) Noop() bool { return true }
func (m noopMarker) Apply(*models.Builder) {}

// RecordMarker contributes a site record.
func RecordMarker(r models.Record) Marker {
	return recordMarker{rec: r}
}

// ContactMarker contributes a point of contact.
func ContactMarker(e models.Entry[models.PointOfContact]) Marker {
	c := e.Value
	return fieldMarker{key: e.Key, apply: func(b *models.Builder) { b.SetContact(c) }}
}

// EquipmentMarker contributes required equipment. An empty set is a no-op.
func EquipmentMarker(e models.Entry[models.EquipmentSet]) Marker {
	if e.Value.Empty() {
		return noopMarker{key: e.Key}
	}
	s := e.Value
	return fieldMarker{key: e.Key, apply: func(b *models.Builder) { b.SetEquipment(s) }}
}

// MaterialsMarker contributes material counts. An empty map is a no-op.
func MaterialsMarker(e models.Entry[map[string]int64]) Marker {
	if len(e.Value) == 0 {
		return noopMarker{key: e.Key}
	}
	counts := e.Value
	return fieldMarker{key: e.Key, apply: func(b *models.Builder) { b.SetMaterials(counts) }}
}
