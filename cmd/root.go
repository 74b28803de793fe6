// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/log"
)

var (
	// Global flags
	configFile string

	// globalCfg is loaded once before any subcommand runs.
	globalCfg *config.GlobalConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pktsnap",
	Short: "pktsnap - capture outbound packet buffers from a running client",
	Long: `pktsnap copies the bytes of an outgoing packet buffer at the moment it is sent
and publishes them as an immutable snapshot for logging and analysis.

The buffer's private storage and cursor are located through a configured
field mapping, so the client is observed without being modified.

Features:
  - Snapshot extraction through a pluggable object model
  - Live process attach via process_vm_readv
  - Declarative field layouts for decoding captured messages
  - Console and Kafka reporters`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadGlobalConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults only when empty)")

	// Add subcommands
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadGlobalConfig reads the config file and installs the default logger.
func loadGlobalConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	globalCfg = cfg
	return nil
}
