// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto"
	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto/pinsync"
)

// defaultSyncTimeout bounds connecting and fetching.
const defaultSyncTimeout = 15 * time.Second

var (
	syncServerAddr string
	syncServerKey  string
	syncSave       bool
)

// syncCmd fetches a configuration from a pin sync server.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch a pin configuration over Noise_NK",
	Long: `Connect to an 'sslpin serve' instance, fetch its pin configuration
and print it. With --save the configuration is stored as the settings
override.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncServerAddr, "server-addr", "", "server address host:port (required)")
	syncCmd.Flags().StringVar(&syncServerKey, "server-key", "", "hex server static public key (required)")
	syncCmd.Flags().BoolVar(&syncSave, "save", false, "store the configuration as the settings override")
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncServerAddr == "" {
		return fmt.Errorf("%w: --server-addr is required", ErrInvalidInput)
	}
	if syncServerKey == "" {
		return fmt.Errorf("%w: --server-key is required", ErrInvalidInput)
	}
	serverKey, err := noiseproto.DecodePublicKey(syncServerKey)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	client, err := pinsync.NewClient(&pinsync.ClientConfig{
		ServerAddr:      syncServerAddr,
		ServerStaticKey: serverKey,
		Logger:          slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer client.Close()

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()
	ctx, cancel := context.WithTimeout(sigCtx, defaultSyncTimeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	cfg, err := client.GetPinConfig(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	slog.Info("received pin configuration", "hostnames", cfg.Len())

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if syncSave {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.SetConfigOverride(string(data)); err != nil {
			return fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		slog.Info("configuration override stored", "settings", store.Path())
	}
	return writeOutput(cmd, append(data, '\n'))
}
