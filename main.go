// Package main is the entry point for the pktsnap packet buffer capture tool.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pktsnap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
