// Package plugin defines plugin interfaces.
package plugin

import (
	"context"

	"firestige.xyz/pktsnap/internal/core"
)

// Reporter sends decoded packet records to external systems.
type Reporter interface {
	Plugin
	Report(ctx context.Context, rec *core.PacketRecord) error
	Flush(ctx context.Context) error
}

// BatchReporter is an optional interface for reporters that write several
// records at once (e.g., Kafka batch writes).
type BatchReporter interface {
	Reporter
	ReportBatch(ctx context.Context, recs []*core.PacketRecord) error
}
