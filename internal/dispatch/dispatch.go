// Package dispatch turns published snapshots into decoded records and
// hands them to reporters.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/eventbus"
	"firestige.xyz/pktsnap/internal/layout"
	"firestige.xyz/pktsnap/internal/metrics"
	"firestige.xyz/pktsnap/pkg/plugin"
)

// Dispatcher decodes PacketSent events and fans the records out.
type Dispatcher struct {
	catalog   *layout.Catalog
	reporters []plugin.Reporter
	ctx       context.Context
	logger    *slog.Logger
}

// New creates a dispatcher. catalog may be nil, in which case records
// carry no decoded fields.
func New(ctx context.Context, catalog *layout.Catalog, reporters ...plugin.Reporter) *Dispatcher {
	return &Dispatcher{
		catalog:   catalog,
		reporters: reporters,
		ctx:       ctx,
		logger:    slog.Default().With("component", "dispatcher"),
	}
}

// Attach subscribes the dispatcher to packet events on bus.
func (d *Dispatcher) Attach(bus eventbus.EventBus) error {
	return eventbus.SubscribePackets(bus, d.Handle)
}

// Start starts every reporter. On failure the reporters already started
// are stopped again.
func (d *Dispatcher) Start() error {
	for i, r := range d.reporters {
		if err := r.Start(d.ctx); err != nil {
			for _, started := range d.reporters[:i] {
				_ = started.Stop(d.ctx)
			}
			return fmt.Errorf("start reporter %s: %w", r.Name(), err)
		}
	}
	return nil
}

// Stop flushes and stops every reporter, returning the joined errors.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var errs []error
	for _, r := range d.reporters {
		if err := r.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush reporter %s: %w", r.Name(), err))
		}
		if err := r.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop reporter %s: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Record decodes ev against the catalog.
func (d *Dispatcher) Record(ev *core.PacketSent) *core.PacketRecord {
	rec := &core.PacketRecord{PacketSent: *ev}
	if d.catalog != nil {
		if name, fields, ok := d.catalog.Decode(ev.Snapshot); ok {
			rec.Layout = name
			rec.Fields = fields
		}
	}
	return rec
}

// Handle is the bus handler. Reporter errors are logged and counted; they
// never stop delivery to the remaining reporters.
func (d *Dispatcher) Handle(ev *core.PacketSent) error {
	rec := d.Record(ev)

	layoutLabel := rec.Layout
	if layoutLabel == "" {
		layoutLabel = "none"
	}
	metrics.RecordsDecodedTotal.WithLabelValues(layoutLabel).Inc()

	for _, r := range d.reporters {
		if err := r.Report(d.ctx, rec); err != nil {
			metrics.ReporterErrorsTotal.WithLabelValues(r.Name()).Inc()
			d.logger.Error("reporter failed", "reporter", r.Name(), "origin", rec.Origin, "error", err)
		}
	}
	return nil
}
