package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HeavyEquipment is a kind of machine a site may require.
type HeavyEquipment uint8

const (
	Backhoe HeavyEquipment = iota
	Bulldozer
	Compactor
	Crawler
	Dragline
	DumpTruck
	Excavator
	FellerBuncher
	Grader
	Loader
	Paver
	Scraper
	SkidSteer
	Telehandler
	TowerCrane
	Trencher

	numEquipment
)

var equipmentNames = [numEquipment]string{
	Backhoe:       "Backhoe",
	Bulldozer:     "Bulldozer",
	Compactor:     "Compactor",
	Crawler:       "Crawler",
	Dragline:      "Dragline",
	DumpTruck:     "DumpTruck",
	Excavator:     "Excavator",
	FellerBuncher: "FellerBuncher",
	Grader:        "Grader",
	Loader:        "Loader",
	Paver:         "Paver",
	Scraper:       "Scraper",
	SkidSteer:     "SkidSteer",
	Telehandler:   "Telehandler",
	TowerCrane:    "TowerCrane",
	Trencher:      "Trencher",
}

// AllEquipment lists every HeavyEquipment in declaration order.
func AllEquipment() []HeavyEquipment {
	out := make([]HeavyEquipment, numEquipment)
	for i := range out {
		out[i] = HeavyEquipment(i)
	}
	return out
}

func (e HeavyEquipment) String() string {
	if e >= numEquipment {
		return fmt.Sprintf("HeavyEquipment(%d)", uint8(e))
	}
	return equipmentNames[e]
}

// ParseEquipment resolves a name case-insensitively. Spaces, hyphens and
// underscores are ignored, so "Dump Truck" and "TOWER_CRANE" both parse.
func ParseEquipment(name string) (HeavyEquipment, error) {
	norm := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.TrimSpace(name))
	for i, n := range equipmentNames {
		if strings.EqualFold(n, norm) {
			return HeavyEquipment(i), nil
		}
	}
	return 0, fmt.Errorf("unknown heavy equipment %q", name)
}

func (e HeavyEquipment) MarshalText() ([]byte, error) {
	if e >= numEquipment {
		return nil, fmt.Errorf("invalid heavy equipment %d", uint8(e))
	}
	return []byte(equipmentNames[e]), nil
}

func (e *HeavyEquipment) UnmarshalText(text []byte) error {
	v, err := ParseEquipment(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// EquipmentSet is a bitset of HeavyEquipment. Iteration and encoding follow
// declaration order regardless of insertion order.
type EquipmentSet uint32

// NewEquipmentSet builds a set from the given members.
func NewEquipmentSet(items ...HeavyEquipment) EquipmentSet {
	var s EquipmentSet
	for _, e := range items {
		s = s.With(e)
	}
	return s
}

// With returns s plus e.
func (s EquipmentSet) With(e HeavyEquipment) EquipmentSet {
	return s | 1<<e
}

func (s EquipmentSet) Has(e HeavyEquipment) bool {
	return s&(1<<e) != 0
}

func (s EquipmentSet) Empty() bool {
	return s == 0
}

func (s EquipmentSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Items returns the members in declaration order.
func (s EquipmentSet) Items() []HeavyEquipment {
	out := make([]HeavyEquipment, 0, s.Len())
	for i := HeavyEquipment(0); i < numEquipment; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

func (s EquipmentSet) String() string {
	items := s.Items()
	names := make([]string, len(items))
	for i, e := range items {
		names[i] = e.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func (s EquipmentSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

func (s *EquipmentSet) UnmarshalJSON(data []byte) error {
	var items []HeavyEquipment
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewEquipmentSet(items...)
	return nil
}
