// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

var (
	linkConfigFile string
	linkAssetsDir  string
)

// linkCmd installs a validated configuration as an application asset.
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Copy a validated configuration into an assets directory",
	Long: `Validate a configuration and write it as indented JSON to
<assets>/ssl_config.json, the bundled asset consulted when no override
is set.`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkConfigFile, "config", "ssl_config.json", "configuration file, or - for stdin")
	linkCmd.Flags().StringVar(&linkAssetsDir, "assets", "", "assets directory (required)")
}

func runLink(cmd *cobra.Command, args []string) error {
	if linkAssetsDir == "" {
		return fmt.Errorf("%w: --assets is required", ErrInvalidInput)
	}

	raw, err := readConfig(cmd, linkConfigFile)
	if err != nil {
		return err
	}
	cfg, err := pinconfig.Parse(raw)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(linkAssetsDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	dest := filepath.Join(linkAssetsDir, pinconfig.DefaultAssetName)
	if err := os.WriteFile(dest, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrFileOperation, dest, err)
	}

	slog.Info("configuration linked", "path", dest, "hostnames", cfg.Len())
	return nil
}
