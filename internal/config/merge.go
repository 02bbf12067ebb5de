package config

import (
	"fmt"
	"time"

	"sitemerge/internal/generator"
	"sitemerge/internal/merge"
)

// Files maps the input section onto merge.Files.
func (c *Config) Files() merge.Files {
	return merge.Files{
		Records:   c.Input.Records,
		Contacts:  c.Input.Contacts,
		Equipment: c.Input.Equipment,
		Materials: c.Input.Materials,
	}
}

// MergeOptions returns the merger options.
func (c *Config) MergeOptions() merge.Options {
	return merge.Options{Strict: c.Merge.Strict, Buffer: c.Merge.Buffer}
}

// GeneratorOptions returns the generator options.
func (c *Config) GeneratorOptions() generator.Options {
	return generator.Options{
		StartID:      c.Generator.StartID,
		Count:        c.Generator.Count,
		MaxMaterials: c.Generator.MaxMaterials,
		MaxEquipment: c.Generator.MaxEquipment,
		Seed:         c.Generator.Seed,
		Files:        c.Files(),
	}
}

// DebounceDuration parses merge.debounce, defaulting to 500ms when empty.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Merge.Debounce == "" {
		return 500 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Merge.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid merge.debounce %q: %w", c.Merge.Debounce, err)
	}
	return d, nil
}
