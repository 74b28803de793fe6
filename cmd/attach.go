package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/dispatch"
	"firestige.xyz/pktsnap/internal/eventbus"
	"firestige.xyz/pktsnap/internal/hook"
	"firestige.xyz/pktsnap/internal/introspect"
	"firestige.xyz/pktsnap/internal/introspect/memmodel"
	"firestige.xyz/pktsnap/internal/layout"
	"firestige.xyz/pktsnap/internal/metrics"
	"firestige.xyz/pktsnap/internal/process"
	"firestige.xyz/pktsnap/pkg/plugin"

	// Register built-in reporters
	_ "firestige.xyz/pktsnap/plugins"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Capture packet buffers from a running process",
	Long: `Attach to a running process and snapshot the packet buffer at --address.

The object at --address is read through the memory layout in the config file,
its buffer located with the configured locator, and each snapshot decoded and
sent to the configured reporters. Without reporters, records go to the console.

Examples:
  pktsnap attach -c pktsnap.yml --pid 4242 --address 0x7f3a2c001000 --type Connection
  pktsnap attach -c pktsnap.yml --pid 4242 --address 0x7f3a2c001000 --type Connection --count 10 --interval 1s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, err := process.Open(attachOpts.PID)
		if err != nil {
			return err
		}
		defer proc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runAttach(ctx, globalCfg, attachOpts, proc, cmd.OutOrStdout())
	},
}

type attachOptions struct {
	PID      int
	Address  string
	Type     string
	Count    int
	Interval time.Duration
}

var attachOpts attachOptions

func init() {
	attachCmd.Flags().IntVarP(&attachOpts.PID, "pid", "p", 0, "target process id (required)")
	attachCmd.Flags().StringVarP(&attachOpts.Address, "address", "a", "", "address of the handle object, e.g. 0x7f3a2c001000 (required)")
	attachCmd.Flags().StringVarP(&attachOpts.Type, "type", "t", "", "memory layout type of the handle object (required)")
	attachCmd.Flags().IntVarP(&attachOpts.Count, "count", "n", 0, "stop after this many snapshots (0 = until interrupted)")
	attachCmd.Flags().DurationVarP(&attachOpts.Interval, "interval", "i", 0, "poll interval (default hook.poll_interval)")
	attachCmd.MarkFlagRequired("pid")
	attachCmd.MarkFlagRequired("address")
	attachCmd.MarkFlagRequired("type")
}

func runAttach(ctx context.Context, cfg *config.GlobalConfig, opts attachOptions, reader memmodel.MemoryReader, out io.Writer) error {
	addr, err := strconv.ParseUint(opts.Address, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", opts.Address, err)
	}

	loc, err := introspect.NewLocator(cfg.Locator)
	if err != nil {
		return err
	}
	model, err := memmodel.New(cfg.Memory, reader)
	if err != nil {
		return err
	}
	catalog, err := layout.CatalogFromConfig(cfg.Layouts)
	if err != nil {
		return err
	}
	reporters, err := buildReporters(cfg.Reporters)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	bus := eventbus.NewInMemoryEventBus(cfg.Bus.Partitions, cfg.Bus.QueueSize)
	dispatcher := dispatch.New(ctx, catalog, reporters...)
	if err := dispatcher.Attach(bus); err != nil {
		_ = bus.Close()
		return err
	}
	if err := dispatcher.Start(); err != nil {
		_ = bus.Close()
		return err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = cfg.Hook.PollIntervalDuration()
	}
	installer := hook.NewPollingInstaller(memmodel.Handle(addr, opts.Type), interval, opts.Count)
	interceptor := hook.NewInterceptor(cfg.Hook.Source, loc, introspect.NewExtractor(model), bus, installer, nil)

	var errs []error
	if err := interceptor.Start(); err != nil {
		errs = append(errs, err)
	} else {
		slog.Info("attached", "address", fmt.Sprintf("0x%x", addr), "type", opts.Type,
			"locator", loc.String(), "interval", interval, "count", opts.Count)
		select {
		case <-ctx.Done():
		case <-installer.Done():
		}
		if err := interceptor.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	// Close drains queued events before reporters are flushed.
	if err := bus.Close(); err != nil {
		errs = append(errs, err)
	}
	stats := bus.GetStats()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dispatcher.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}

	fmt.Fprintf(out, "Captured %d snapshot(s), %d delivered, %d failed\n",
		stats.PublishedCount, stats.ProcessedCount, stats.FailedCount)
	return errors.Join(errs...)
}

// buildReporters instantiates configured reporters, falling back to console.
func buildReporters(cfgs []config.ReporterConfig) ([]plugin.Reporter, error) {
	if len(cfgs) == 0 {
		cfgs = []config.ReporterConfig{{Name: "console"}}
	}
	reporters := make([]plugin.Reporter, 0, len(cfgs))
	for _, rc := range cfgs {
		r, err := plugin.NewReporter(rc.Name, rc.Config)
		if err != nil {
			return nil, err
		}
		reporters = append(reporters, r)
	}
	return reporters, nil
}
