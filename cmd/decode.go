package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"firestige.xyz/pktsnap/internal/config"
	"firestige.xyz/pktsnap/internal/core"
	"firestige.xyz/pktsnap/internal/core/decoder"
	"firestige.xyz/pktsnap/internal/layout"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a captured packet",
	Long: `Decode a captured packet from a file or stdin.

The input is taken as a snapshot and printed as a hex dump. When a layout
matches (by --layout, or by the packet's first byte against the configured
opcodes) its fields are printed as well.

Examples:
  pktsnap decode packet.bin
  echo "01 00 05 48 65 6C 6C 6F" | pktsnap decode --hex -c pktsnap.yml
  pktsnap decode --hex --layout chat dump.txt -c pktsnap.yml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()
			in = f
		}
		return runDecode(globalCfg, decodeOpts, in, cmd.OutOrStdout())
	},
}

type decodeOptions struct {
	Hex    bool
	Layout string
}

var decodeOpts decodeOptions

func init() {
	decodeCmd.Flags().BoolVar(&decodeOpts.Hex, "hex", false,
		"input is hex text (whitespace ignored)")
	decodeCmd.Flags().StringVarP(&decodeOpts.Layout, "layout", "l", "",
		"decode with the named layout instead of matching by opcode")
}

func runDecode(cfg *config.GlobalConfig, opts decodeOptions, in io.Reader, out io.Writer) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	data := raw
	if opts.Hex {
		data, err = parseHexInput(raw)
		if err != nil {
			return err
		}
	}

	catalog, err := layout.CatalogFromConfig(cfg.Layouts)
	if err != nil {
		return err
	}

	snap := core.CopySnapshot(data, time.Now())
	fmt.Fprintf(out, "Length: %d bytes\n", snap.Len())
	fmt.Fprint(out, decoder.HexDump(snap.Bytes()))

	var l layout.Layout
	if opts.Layout != "" {
		var ok bool
		if l, ok = catalog.Get(opts.Layout); !ok {
			return fmt.Errorf("layout %q: %w", opts.Layout, core.ErrUnknownType)
		}
	} else {
		var ok bool
		if l, ok = catalog.Match(snap); !ok {
			fmt.Fprintln(out, "Layout: none")
			return nil
		}
	}

	fmt.Fprintf(out, "Layout: %s\n", l.Name)
	for _, f := range l.Decode(snap.Bytes()) {
		fmt.Fprintf(out, "  %-16s %-8s @%-4d %v\n", f.Name, f.Kind, f.Offset, formatValue(f.Value))
	}
	return nil
}

// parseHexInput accepts bytes separated by any whitespace, with an optional
// 0x prefix per token.
func parseHexInput(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, tok := range strings.FieldsFunc(string(raw), unicode.IsSpace) {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		buf.WriteString(tok)
	}
	data, err := hex.DecodeString(buf.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}
