// Package models defines the construction-site records that flow through the
// generator and the merger, and their JSON wire forms.
package models

import (
	"errors"
	"fmt"
	"maps"
)

// ErrIncomplete is returned when a record is missing a required field.
var ErrIncomplete = errors.New("incomplete record")

// PointOfContact is the person responsible for a site.
type PointOfContact struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	PhoneNumber string `json:"phoneNumber"`
}

// Validate reports a missing name, title or phone number.
func (p PointOfContact) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: contact name", ErrIncomplete)
	case p.Title == "":
		return fmt.Errorf("%w: contact title", ErrIncomplete)
	case p.PhoneNumber == "":
		return fmt.Errorf("%w: contact phone number", ErrIncomplete)
	}
	return nil
}

// Record is one construction site. In main.json only ID, SiteName and
// Address are present; the merger fills in the rest.
type Record struct {
	ID                int              `json:"id"`
	SiteName          string           `json:"siteName"`
	Address           string           `json:"address"`
	Contact           *PointOfContact  `json:"contact,omitempty"`
	RequiredMaterials map[string]int64 `json:"requiredMaterials,omitempty"`
	RequiredEquipment EquipmentSet     `json:"requiredEquipment,omitempty"`
}

// Validate checks the required fields.
func (r Record) Validate() error {
	if r.SiteName == "" {
		return fmt.Errorf("%w: site %d has no site name", ErrIncomplete, r.ID)
	}
	if r.Address == "" {
		return fmt.Errorf("%w: site %d has no address", ErrIncomplete, r.ID)
	}
	if r.Contact != nil {
		if err := r.Contact.Validate(); err != nil {
			return fmt.Errorf("site %d: %w", r.ID, err)
		}
	}
	return nil
}

// Mutate returns a builder seeded with every field of r that is set.
func (r Record) Mutate() *Builder {
	b := NewBuilder().
		SetID(r.ID).
		SetSiteName(r.SiteName).
		SetAddress(r.Address)
	if r.Contact != nil {
		b.SetContact(*r.Contact)
	}
	if len(r.RequiredMaterials) > 0 {
		b.SetMaterials(r.RequiredMaterials)
	}
	if !r.RequiredEquipment.Empty() {
		b.SetEquipment(r.RequiredEquipment)
	}
	return b
}

// Builder accumulates the fields of a Record. Unset fields are nil so that
// Apply can tell "absent" from "empty".
type Builder struct {
	id        *int
	siteName  *string
	address   *string
	contact   *PointOfContact
	materials map[string]int64
	equipment *EquipmentSet
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetID(id int) *Builder {
	b.id = &id
	return b
}

func (b *Builder) SetSiteName(name string) *Builder {
	if name != "" {
		b.siteName = &name
	}
	return b
}

func (b *Builder) SetAddress(address string) *Builder {
	if address != "" {
		b.address = &address
	}
	return b
}

func (b *Builder) SetContact(c PointOfContact) *Builder {
	b.contact = &c
	return b
}

// SetMaterials replaces the material counts with a copy of m.
func (b *Builder) SetMaterials(m map[string]int64) *Builder {
	b.materials = maps.Clone(m)
	if b.materials == nil {
		b.materials = map[string]int64{}
	}
	return b
}

func (b *Builder) SetEquipment(s EquipmentSet) *Builder {
	b.equipment = &s
	return b
}

// Apply overlays every field that is set on other.
func (b *Builder) Apply(other *Builder) *Builder {
	if other.id != nil {
		b.SetID(*other.id)
	}
	if other.siteName != nil {
		b.SetSiteName(*other.siteName)
	}
	if other.address != nil {
		b.SetAddress(*other.address)
	}
	if other.contact != nil {
		b.SetContact(*other.contact)
	}
	if other.materials != nil {
		b.SetMaterials(other.materials)
	}
	if other.equipment != nil {
		b.SetEquipment(*other.equipment)
	}
	return b
}

// HasRecord reports whether the site fields are present.
func (b *Builder) HasRecord() bool {
	return b.id != nil && b.siteName != nil && b.address != nil
}

// Build produces the Record. Materials are always non-nil in the result.
func (b *Builder) Build() (Record, error) {
	if b.id == nil {
		return Record{}, fmt.Errorf("%w: no id", ErrIncomplete)
	}
	r := Record{
		ID:                *b.id,
		RequiredMaterials: maps.Clone(b.materials),
	}
	if b.siteName != nil {
		r.SiteName = *b.siteName
	}
	if b.address != nil {
		r.Address = *b.address
	}
	if b.contact != nil {
		c := *b.contact
		r.Contact = &c
	}
	if r.RequiredMaterials == nil {
		r.RequiredMaterials = map[string]int64{}
	}
	if b.equipment != nil {
		r.RequiredEquipment = *b.equipment
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
