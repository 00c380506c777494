// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

var overrideConfigFile string

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable SSL pinning in the settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUsePinning(true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable SSL pinning in the settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setUsePinning(false)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pinning flag and configuration override",
	RunE:  runStatus,
}

// overrideCmd is the parent command for the persisted configuration override.
var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Manage the persisted configuration override",
	Long: `The override takes priority over the bundled configuration asset.

Subcommands:
  set   - Validate a configuration and store it as the override
  clear - Remove the override`,
}

var overrideSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a validated configuration as the override",
	RunE:  runOverrideSet,
}

var overrideClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the configuration override",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.SetConfigOverride(""); err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		slog.Info("configuration override cleared", "settings", store.Path())
		return nil
	},
}

func init() {
	overrideCmd.AddCommand(overrideSetCmd)
	overrideCmd.AddCommand(overrideClearCmd)

	overrideSetCmd.Flags().StringVar(&overrideConfigFile, "config", "", "configuration file, or - for stdin (required)")
}

func setUsePinning(enabled bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.SetUsePinning(enabled); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	slog.Info("pinning flag updated", "enabled", enabled, "settings", store.Path())
	return nil
}

// statusReport is the JSON document printed by the status command.
type statusReport struct {
	Enabled   bool     `json:"isSSLPinningEnabled"`
	Override  bool     `json:"overrideSet"`
	Valid     *bool    `json:"overrideValid,omitempty"`
	Hostnames []string `json:"hostnames,omitempty"`
	Settings  string   `json:"settings"`
	Format    string   `json:"format"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	enabled, err := store.UsePinning()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	override, err := store.ConfigOverride()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}

	report := statusReport{
		Enabled:  enabled,
		Override: strings.TrimSpace(override) != "",
		Settings: store.Path(),
		Format:   store.Format().String(),
	}
	if report.Override {
		cfg, parseErr := pinconfig.Parse(override)
		valid := parseErr == nil
		report.Valid = &valid
		if valid {
			report.Hostnames = cfg.Hostnames()
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, append(data, '\n'))
}

func runOverrideSet(cmd *cobra.Command, args []string) error {
	raw, err := readConfig(cmd, overrideConfigFile)
	if err != nil {
		return err
	}
	cfg, err := pinconfig.Parse(raw)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.SetConfigOverride(raw); err != nil {
		return fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	slog.Info("configuration override stored", "hostnames", cfg.Len(), "settings", store.Path())
	return nil
}
