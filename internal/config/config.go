// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `pktsnap:` root key in YAML.
type GlobalConfig struct {
	Log       LogConfig        `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Locator   LocatorConfig    `mapstructure:"locator" yaml:"locator"`
	Hook      HookConfig       `mapstructure:"hook" yaml:"hook"`
	Bus       BusConfig        `mapstructure:"bus" yaml:"bus"`
	Memory    MemoryConfig     `mapstructure:"memory" yaml:"memory"`
	Layouts   []LayoutConfig   `mapstructure:"layouts" yaml:"layouts"`
	Reporters []ReporterConfig `mapstructure:"reporters" yaml:"reporters"`
}

// ─── Introspection ───

// LocatorConfig names the private fields that hold a packet buffer's
// storage and write cursor. The mapping is supplied, never discovered.
type LocatorConfig struct {
	BufferField  string `mapstructure:"buffer_field" yaml:"buffer_field"`   // Field on the handle object holding the buffer; empty = handle is the buffer
	StorageField string `mapstructure:"storage_field" yaml:"storage_field"` // Field on the buffer holding the byte storage
	CursorField  string `mapstructure:"cursor_field" yaml:"cursor_field"`   // Field on the buffer holding the next write position
	ScaleFactor  int    `mapstructure:"scale_factor" yaml:"scale_factor"`   // Cursor units to bytes
}

// Configured reports whether any storage mapping has been supplied.
func (l LocatorConfig) Configured() bool {
	return l.StorageField != "" || l.CursorField != ""
}

// ─── Hook ───

// HookConfig configures the interception boundary.
type HookConfig struct {
	Source       string `mapstructure:"source" yaml:"source"`               // Event key; events of one source stay ordered
	PollInterval string `mapstructure:"poll_interval" yaml:"poll_interval"` // Polling installer interval, e.g. "100ms"
}

// PollIntervalDuration returns the parsed poll interval.
func (h HookConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(h.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// ─── Event Bus ───

// BusConfig configures the in-memory event bus.
type BusConfig struct {
	Partitions int `mapstructure:"partitions" yaml:"partitions"`
	QueueSize  int `mapstructure:"queue_size" yaml:"queue_size"`
}

// ─── Foreign Memory Layout ───

// MemoryConfig describes object layouts inside a foreign process.
type MemoryConfig struct {
	ByteOrder   string             `mapstructure:"byte_order" yaml:"byte_order"`     // little | big
	PointerSize int                `mapstructure:"pointer_size" yaml:"pointer_size"` // 4 | 8
	Types       []MemoryTypeConfig `mapstructure:"types" yaml:"types"`
}

// MemoryTypeConfig is one foreign type. Super names the type whose fields
// are inherited.
type MemoryTypeConfig struct {
	Name   string              `mapstructure:"name" yaml:"name"`
	Super  string              `mapstructure:"super" yaml:"super,omitempty"`
	Fields []MemoryFieldConfig `mapstructure:"fields" yaml:"fields"`
}

// MemoryFieldConfig is one field of a foreign type.
type MemoryFieldConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Offset       int    `mapstructure:"offset" yaml:"offset"`
	Kind         string `mapstructure:"kind" yaml:"kind"`                             // pointer | int8..int64 | uint8..uint64 | array | slice
	Type         string `mapstructure:"type" yaml:"type,omitempty"`                   // Pointee type for pointer fields
	LengthOffset int    `mapstructure:"length_offset" yaml:"length_offset,omitempty"` // array: int32 length within the array object
	DataOffset   int    `mapstructure:"data_offset" yaml:"data_offset,omitempty"`     // array: first element within the array object
}

// MemoryKinds lists the valid memory field kinds.
var MemoryKinds = []string{
	"pointer",
	"int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64",
	"array", "slice",
}

// ─── Layouts ───

// LayoutConfig declares the fields of one message shape.
type LayoutConfig struct {
	Name   string              `mapstructure:"name" yaml:"name"`
	Opcode *int                `mapstructure:"opcode" yaml:"opcode,omitempty"` // First byte value; nil = match by name only
	Fields []LayoutFieldConfig `mapstructure:"fields" yaml:"fields"`
}

// LayoutFieldConfig is one typed field. Offset nil = follows the previous field.
type LayoutFieldConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Kind   string `mapstructure:"kind" yaml:"kind"` // byte | short | int | string | cstring
	Offset *int   `mapstructure:"offset" yaml:"offset,omitempty"`
}

// LayoutKinds lists the valid layout field kinds.
var LayoutKinds = []string{"byte", "short", "int", "string", "cstring"}

// ─── Reporters ───

// ReporterConfig selects a reporter plugin by name.
type ReporterConfig struct {
	Name   string         `mapstructure:"name" yaml:"name"`
	Config map[string]any `mapstructure:"config" yaml:"config,omitempty"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktsnap: ...`.
type configRoot struct {
	Pktsnap GlobalConfig `mapstructure:"pktsnap"`
}

// Load loads configuration from file. An empty path loads defaults only.
// Env vars use the PKTSNAP_ prefix (e.g., PKTSNAP_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `pktsnap.` key prefix maps to `PKTSNAP_` via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktsnap

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "pktsnap." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktsnap.log.level", "info")
	v.SetDefault("pktsnap.log.format", "text")
	v.SetDefault("pktsnap.log.outputs.file.enabled", false)
	v.SetDefault("pktsnap.log.outputs.file.path", "/var/log/pktsnap/pktsnap.log")
	v.SetDefault("pktsnap.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("pktsnap.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("pktsnap.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("pktsnap.log.outputs.file.rotation.compress", true)

	// Metrics defaults
	v.SetDefault("pktsnap.metrics.enabled", false)
	v.SetDefault("pktsnap.metrics.listen", ":9091")
	v.SetDefault("pktsnap.metrics.path", "/metrics")

	// Locator defaults
	v.SetDefault("pktsnap.locator.scale_factor", 1)

	// Hook defaults
	v.SetDefault("pktsnap.hook.source", "default")
	v.SetDefault("pktsnap.hook.poll_interval", "100ms")

	// Bus defaults
	v.SetDefault("pktsnap.bus.partitions", 4)
	v.SetDefault("pktsnap.bus.queue_size", 4096)

	// Memory layout defaults
	v.SetDefault("pktsnap.memory.byte_order", "little")
	v.SetDefault("pktsnap.memory.pointer_size", 8)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	// ── Locator ──
	if cfg.Locator.ScaleFactor == 0 {
		cfg.Locator.ScaleFactor = 1
	}
	if err := cfg.Locator.Validate(); err != nil {
		return err
	}

	// ── Hook ──
	if cfg.Hook.Source == "" {
		cfg.Hook.Source = "default"
	}
	if cfg.Hook.PollInterval != "" {
		d, err := time.ParseDuration(cfg.Hook.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid hook.poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("hook.poll_interval must be positive, got %s", cfg.Hook.PollInterval)
		}
	}

	// ── Bus ──
	if cfg.Bus.Partitions < 1 {
		return fmt.Errorf("bus.partitions must be >= 1, got %d", cfg.Bus.Partitions)
	}
	if cfg.Bus.QueueSize < 1 {
		return fmt.Errorf("bus.queue_size must be >= 1, got %d", cfg.Bus.QueueSize)
	}

	// ── Memory layout ──
	if err := cfg.Memory.Validate(); err != nil {
		return err
	}

	// ── Layouts ──
	if err := validateLayouts(cfg.Layouts); err != nil {
		return err
	}

	// ── Reporters ──
	for i, r := range cfg.Reporters {
		if r.Name == "" {
			return fmt.Errorf("reporters[%d].name is required", i)
		}
	}

	return nil
}

// Validate checks a locator. An unconfigured locator is valid; a partial one is not.
func (l LocatorConfig) Validate() error {
	if !l.Configured() {
		return nil
	}
	if l.StorageField == "" {
		return fmt.Errorf("locator.storage_field is required when locator.cursor_field is set")
	}
	if l.CursorField == "" {
		return fmt.Errorf("locator.cursor_field is required when locator.storage_field is set")
	}
	if l.ScaleFactor < 1 {
		return fmt.Errorf("locator.scale_factor must be >= 1, got %d", l.ScaleFactor)
	}
	return nil
}

// Validate checks type names, super references and field kinds.
func (m MemoryConfig) Validate() error {
	if m.ByteOrder != "little" && m.ByteOrder != "big" {
		return fmt.Errorf("invalid memory.byte_order: %s (must be little/big)", m.ByteOrder)
	}
	if m.PointerSize != 4 && m.PointerSize != 8 {
		return fmt.Errorf("invalid memory.pointer_size: %d (must be 4/8)", m.PointerSize)
	}

	known := make(map[string]bool, len(m.Types))
	for _, t := range m.Types {
		if t.Name == "" {
			return fmt.Errorf("memory.types: type name is required")
		}
		if known[t.Name] {
			return fmt.Errorf("memory.types: duplicate type %q", t.Name)
		}
		known[t.Name] = true
	}

	for _, t := range m.Types {
		if t.Super != "" && !known[t.Super] {
			return fmt.Errorf("memory type %q: unknown super type %q", t.Name, t.Super)
		}
		for _, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("memory type %q: field name is required", t.Name)
			}
			if !contains(MemoryKinds, f.Kind) {
				return fmt.Errorf("memory type %q field %q: invalid kind %q", t.Name, f.Name, f.Kind)
			}
			if f.Offset < 0 || f.LengthOffset < 0 || f.DataOffset < 0 {
				return fmt.Errorf("memory type %q field %q: offsets must be non-negative", t.Name, f.Name)
			}
			if f.Kind == "pointer" && f.Type != "" && !known[f.Type] {
				return fmt.Errorf("memory type %q field %q: unknown pointee type %q", t.Name, f.Name, f.Type)
			}
		}
	}

	// Super chains must terminate.
	supers := make(map[string]string, len(m.Types))
	for _, t := range m.Types {
		supers[t.Name] = t.Super
	}
	for _, t := range m.Types {
		seen := map[string]bool{}
		for name := t.Name; name != ""; name = supers[name] {
			if seen[name] {
				return fmt.Errorf("memory type %q: super chain cycles through %q", t.Name, name)
			}
			seen[name] = true
		}
	}

	return nil
}

func validateLayouts(layouts []LayoutConfig) error {
	names := make(map[string]bool, len(layouts))
	for i, l := range layouts {
		if l.Name == "" {
			return fmt.Errorf("layouts[%d].name is required", i)
		}
		if names[l.Name] {
			return fmt.Errorf("duplicate layout %q", l.Name)
		}
		names[l.Name] = true

		if l.Opcode != nil && (*l.Opcode < 0 || *l.Opcode > 255) {
			return fmt.Errorf("layout %q: opcode %d out of byte range", l.Name, *l.Opcode)
		}
		for _, f := range l.Fields {
			if f.Name == "" {
				return fmt.Errorf("layout %q: field name is required", l.Name)
			}
			if !contains(LayoutKinds, f.Kind) {
				return fmt.Errorf("layout %q field %q: invalid kind %q", l.Name, f.Name, f.Kind)
			}
			if f.Offset != nil && *f.Offset < 0 {
				return fmt.Errorf("layout %q field %q: negative offset", l.Name, f.Name)
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
