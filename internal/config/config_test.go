package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
pktsnap:
  log:
    level: debug
    format: json
  locator:
    buffer_field: packetBuffer
    storage_field: array
    cursor_field: offset
    scale_factor: 2
  hook:
    source: writer-1
    poll_interval: 250ms
  bus:
    partitions: 2
    queue_size: 16
  memory:
    byte_order: little
    pointer_size: 8
    types:
      - name: Node
        fields:
          - {name: packetBuffer, offset: 16, kind: pointer, type: Buffer}
      - name: BufferBase
        fields:
          - {name: array, offset: 8, kind: array, length_offset: 16, data_offset: 24}
      - name: Buffer
        super: BufferBase
        fields:
          - {name: offset, offset: 16, kind: int32}
  layouts:
    - name: move
      opcode: 7
      fields:
        - {name: x, kind: short}
        - {name: y, kind: short}
        - {name: name, kind: string, offset: 8}
  reporters:
    - name: console
      config:
        format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "packetBuffer", cfg.Locator.BufferField)
	assert.Equal(t, 2, cfg.Locator.ScaleFactor)
	assert.Equal(t, "writer-1", cfg.Hook.Source)
	assert.Equal(t, int64(250e6), cfg.Hook.PollIntervalDuration().Nanoseconds())
	assert.Equal(t, 2, cfg.Bus.Partitions)
	require.Len(t, cfg.Memory.Types, 3)
	assert.Equal(t, "BufferBase", cfg.Memory.Types[2].Super)
	assert.Equal(t, 24, cfg.Memory.Types[1].Fields[0].DataOffset)

	require.Len(t, cfg.Layouts, 1)
	require.NotNil(t, cfg.Layouts[0].Opcode)
	assert.Equal(t, 7, *cfg.Layouts[0].Opcode)
	assert.Nil(t, cfg.Layouts[0].Fields[0].Offset)
	require.NotNil(t, cfg.Layouts[0].Fields[2].Offset)
	assert.Equal(t, 8, *cfg.Layouts[0].Fields[2].Offset)

	require.Len(t, cfg.Reporters, 1)
	assert.Equal(t, "json", cfg.Reporters[0].Config["format"])
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Locator.ScaleFactor)
	assert.False(t, cfg.Locator.Configured())
	assert.Equal(t, "default", cfg.Hook.Source)
	assert.Equal(t, 4, cfg.Bus.Partitions)
	assert.Equal(t, 4096, cfg.Bus.QueueSize)
	assert.Equal(t, "little", cfg.Memory.ByteOrder)
	assert.Equal(t, 8, cfg.Memory.PointerSize)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PKTSNAP_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "invalid log level",
			content: `
pktsnap:
  log: {level: loud}`,
			wantErr: "invalid log level",
		},
		{
			name: "partial locator",
			content: `
pktsnap:
  locator: {storage_field: array}`,
			wantErr: "cursor_field is required",
		},
		{
			name: "negative scale factor",
			content: `
pktsnap:
  locator: {storage_field: array, cursor_field: offset, scale_factor: -1}`,
			wantErr: "scale_factor must be >= 1",
		},
		{
			name: "bad poll interval",
			content: `
pktsnap:
  hook: {poll_interval: soon}`,
			wantErr: "invalid hook.poll_interval",
		},
		{
			name: "zero partitions",
			content: `
pktsnap:
  bus: {partitions: 0}`,
			wantErr: "bus.partitions",
		},
		{
			name: "unknown memory kind",
			content: `
pktsnap:
  memory:
    types:
      - name: A
        fields: [{name: f, kind: float}]`,
			wantErr: "invalid kind",
		},
		{
			name: "unknown super",
			content: `
pktsnap:
  memory:
    types:
      - {name: A, super: B}`,
			wantErr: "unknown super type",
		},
		{
			name: "super cycle",
			content: `
pktsnap:
  memory:
    types:
      - {name: A, super: B}
      - {name: B, super: A}`,
			wantErr: "cycles",
		},
		{
			name: "bad pointer size",
			content: `
pktsnap:
  memory: {pointer_size: 2}`,
			wantErr: "pointer_size",
		},
		{
			name: "duplicate layout",
			content: `
pktsnap:
  layouts:
    - {name: a}
    - {name: a}`,
			wantErr: "duplicate layout",
		},
		{
			name: "opcode out of range",
			content: `
pktsnap:
  layouts:
    - {name: a, opcode: 300}`,
			wantErr: "out of byte range",
		},
		{
			name: "bad layout kind",
			content: `
pktsnap:
  layouts:
    - name: a
      fields: [{name: f, kind: long}]`,
			wantErr: "invalid kind",
		},
		{
			name: "reporter without name",
			content: `
pktsnap:
  reporters:
    - config: {format: text}`,
			wantErr: "reporters[0].name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
