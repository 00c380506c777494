// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

var validateConfigFile string

// validateCmd parses a configuration and reports its hostnames.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a pin configuration",
	Long: `Parse a pin configuration file (or stdin with --config -) and print
each hostname with its pin count. Exits with code 2 when the configuration
is invalid.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigFile, "config", "", "configuration file, or - for stdin (required)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	raw, err := readConfig(cmd, validateConfigFile)
	if err != nil {
		return err
	}

	cfg, err := pinconfig.Parse(raw)
	if err != nil {
		return err
	}

	slog.Debug("configuration valid", "hostnames", cfg.Len())
	return writeOutput(cmd, []byte(summarize(cfg)))
}

// summarize renders one "<hostname>\t<n> pin(s)" line per hostname.
func summarize(cfg *pinconfig.PinConfig) string {
	var b strings.Builder
	for _, host := range cfg.Hostnames() {
		fmt.Fprintf(&b, "%s\t%d pin(s)\n", host, len(cfg.Pins(host)))
	}
	return b.String()
}
