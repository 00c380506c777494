// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

var (
	initConfigFile string
	initAssetFile  string
)

// initCmd validates and activates a configuration the way an application
// does at startup.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize SSL pinning and print the result",
	Long: `Initialize SSL pinning and print the result as JSON.

The configuration is taken from --config when given, otherwise from the
settings override, otherwise from the bundled asset (--asset). While
pinning is disabled validation is skipped.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initConfigFile, "config", "", "configuration file, or - for stdin")
	initCmd.Flags().StringVar(&initAssetFile, "asset", pinconfig.DefaultAssetName, "bundled configuration asset")
}

func runInit(cmd *cobra.Command, args []string) error {
	var raw string
	if initConfigFile != "" {
		var err error
		if raw, err = readConfig(cmd, initConfigFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := newManager(ctx, initAssetFile, nil)
	if err != nil {
		return err
	}
	result, err := m.Initialize(ctx, raw)
	if err != nil {
		return withCode(err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, append(data, '\n'))
}
