// Package console implements console debug reporter.
// Outputs packet records to stdout in human-readable format for debugging.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/core/decoder"
	"firestige.xyz/pktsnap/pkg/plugin"
)

// ConsoleReporter outputs packet records to console for debugging.
type ConsoleReporter struct {
	name          string
	config        Config
	mu            sync.Mutex // serializes multi-line writes
	out           io.Writer
	reportedCount atomic.Uint64
}

// Config represents console reporter configuration.
type Config struct {
	Format string `mapstructure:"format"` // "json" or "text", default "text"
	Hex    bool   `mapstructure:"hex"`    // text only: append a hex dump, default true
}

// NewConsoleReporter creates a new console reporter.
func NewConsoleReporter() plugin.Reporter {
	return &ConsoleReporter{
		name:   "console",
		config: Config{Format: "text", Hex: true},
		out:    os.Stdout,
	}
}

// Name returns the plugin name.
func (r *ConsoleReporter) Name() string {
	return r.name
}

// Init initializes the reporter with configuration.
func (r *ConsoleReporter) Init(config map[string]any) error {
	if config == nil {
		return nil
	}

	cfg := r.config
	if err := plugin.DecodeConfig(config, &cfg); err != nil {
		return err
	}
	if cfg.Format != "json" && cfg.Format != "text" {
		return fmt.Errorf("invalid format %q, must be json or text", cfg.Format)
	}
	r.config = cfg
	return nil
}

// Start starts the reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	slog.Info("console reporter started", "format", r.config.Format)
	return nil
}

// Stop stops the reporter.
func (r *ConsoleReporter) Stop(ctx context.Context) error {
	slog.Info("console reporter stopped", "total_reported", r.reportedCount.Load())
	return nil
}

// Report outputs a record to console.
func (r *ConsoleReporter) Report(ctx context.Context, rec *core.PacketRecord) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}

	var text string
	if r.config.Format == "json" {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("json marshal failed: %w", err)
		}
		text = string(data) + "\n"
	} else {
		text = r.formatText(rec)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, text); err != nil {
		return fmt.Errorf("console write failed: %w", err)
	}
	r.reportedCount.Add(1)
	return nil
}

// formatText renders a one-line header, the decoded fields and an
// optional hex dump.
func (r *ConsoleReporter) formatText(rec *core.PacketRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s origin=%s len=%d",
		rec.Snapshot.CapturedAt().Format("15:04:05.000"),
		rec.Source, rec.Origin, rec.Snapshot.Len())

	if rec.Layout != "" {
		fmt.Fprintf(&sb, " layout=%s", rec.Layout)
	}
	for _, f := range rec.Fields {
		fmt.Fprintf(&sb, " %s=%v", f.Name, f.Value)
	}
	sb.WriteByte('\n')

	if r.config.Hex && !rec.Snapshot.IsEmpty() {
		rec.Snapshot.View(func(data []byte) {
			sb.WriteString(strings.TrimRight(decoder.ToHexString(data), " \n"))
		})
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Flush is a no-op for console reporter (stdout auto-flushes).
func (r *ConsoleReporter) Flush(ctx context.Context) error {
	return nil
}
