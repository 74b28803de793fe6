package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/introspect"
	"firestige.xyz/pktsnap/internal/layout"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file and print the effective configuration.

Defaults and PKTSNAP_* environment overrides are applied before printing.
Layouts and reporter settings are built exactly as attach would build them.

Examples:
  pktsnap validate -c pktsnap.yml
  PKTSNAP_LOG_LEVEL=debug pktsnap validate -c pktsnap.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(globalCfg, cmd.OutOrStdout())
	},
}

func runValidate(cfg *config.GlobalConfig, out io.Writer) error {
	locator := "unconfigured"
	if cfg.Locator.Configured() {
		loc, err := introspect.NewLocator(cfg.Locator)
		if err != nil {
			return err
		}
		locator = loc.String()
	}

	catalog, err := layout.CatalogFromConfig(cfg.Layouts)
	if err != nil {
		return err
	}

	reporters, err := buildReporters(cfg.Reporters)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(map[string]*config.GlobalConfig{"pktsnap": cfg})
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	fmt.Fprintf(out, "VALID: locator %s, %d layout(s), %d memory type(s), %d reporter(s)\n",
		locator, catalog.Len(), len(cfg.Memory.Types), len(reporters))
	fmt.Fprint(out, string(data))
	return nil
}
