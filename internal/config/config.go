package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "sitemerge.yaml"

// Config holds all sitemerge configuration.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Generator GeneratorConfig `yaml:"generator"`
	Merge     MergeConfig     `yaml:"merge"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InputConfig locates the four input arrays.
type InputConfig struct {
	Dir       string `yaml:"dir"`
	Records   string `yaml:"records"`
	Contacts  string `yaml:"contacts"`
	Equipment string `yaml:"equipment"`
	Materials string `yaml:"materials"`
}

// GeneratorConfig configures synthetic data generation.
type GeneratorConfig struct {
	StartID      int    `yaml:"start_id"`
	Count        int    `yaml:"count"`
	MaxMaterials int    `yaml:"max_materials"`
	MaxEquipment int    `yaml:"max_equipment"`
	Seed         uint64 `yaml:"seed"` // 0 = random
}

// MergeConfig configures the merger.
type MergeConfig struct {
	Strict   bool   `yaml:"strict"`
	Buffer   int    `yaml:"buffer"`
	Debounce string `yaml:"debounce"` // watch mode
}

// OutputConfig selects where merged records go. Empty paths disable a sink.
type OutputConfig struct {
	JSONPath       string `yaml:"json_path"`
	DatabasePath   string `yaml:"database_path"`
	DatabaseDriver string `yaml:"database_driver"` // sqlite3 (cgo) or sqlite (pure Go)
	LogRecords     bool   `yaml:"log_records"`
}

// ValidDrivers lists the accepted database drivers.
var ValidDrivers = []string{"sqlite3", "sqlite"}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Dir:       "input",
			Records:   "main.json",
			Contacts:  "poc.json",
			Equipment: "equipment.json",
			Materials: "materials.json",
		},
		Generator: GeneratorConfig{
			StartID:      1000,
			Count:        1000,
			MaxMaterials: 6,
			MaxEquipment: 6,
		},
		Merge: MergeConfig{
			Buffer:   32,
			Debounce: "500ms",
		},
		Output: OutputConfig{
			DatabaseDriver: "sqlite3",
			LogRecords:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from path, returning defaults if it does not exist.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("SITEMERGE_INPUT_DIR"); dir != "" {
		c.Input.Dir = dir
	}
	if path := os.Getenv("SITEMERGE_DB"); path != "" {
		c.Output.DatabasePath = path
	}
	if driver := os.Getenv("SITEMERGE_DB_DRIVER"); driver != "" {
		c.Output.DatabaseDriver = driver
	}
	if level := os.Getenv("SITEMERGE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if seed := os.Getenv("SITEMERGE_SEED"); seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SITEMERGE_SEED %q: %w", seed, err)
		}
		c.Generator.Seed = v
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Generator.Count < 0 {
		return fmt.Errorf("generator.count must not be negative, got %d", c.Generator.Count)
	}
	if c.Generator.MaxMaterials < 0 || c.Generator.MaxEquipment < 0 {
		return fmt.Errorf("generator.max_materials and generator.max_equipment must not be negative")
	}
	if c.Merge.Buffer < 0 {
		return fmt.Errorf("merge.buffer must not be negative, got %d", c.Merge.Buffer)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if c.Output.DatabasePath != "" {
		valid := false
		for _, d := range ValidDrivers {
			if c.Output.DatabaseDriver == d {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid database driver: %s (valid: %v)", c.Output.DatabaseDriver, ValidDrivers)
		}
	}
	return c.Logging.Validate()
}
