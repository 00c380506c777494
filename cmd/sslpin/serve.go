// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flynn/noise"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto"
	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto/pinsync"
	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// serveShutdownTimeout bounds graceful shutdown.
const serveShutdownTimeout = 10 * time.Second

var (
	serveConfigFile     string
	serveKeyFile        string
	serveListenAddr     string
	serveMaxConnections int
)

// serveCmd distributes a pin configuration over Noise_NK.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a pin configuration over Noise_NK",
	Long: `Run a Noise_NK server that distributes the pin configuration in
--config. The file is re-read and validated on every request, so edits
are picked up without a restart and an invalid edit is never served.

Clients need the server's public key, printed at startup and by
'sslpin noise show'. The key is generated on first start.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "pin configuration file (required)")
	serveCmd.Flags().StringVar(&serveKeyFile, "key-file", defaultNoiseKeyFile, "Noise static key file (hex)")
	serveCmd.Flags().StringVar(&serveListenAddr, "listen", pinsync.DefaultListenAddr, "TCP listen address")
	serveCmd.Flags().IntVar(&serveMaxConnections, "max-connections", pinsync.DefaultMaxConnections,
		"maximum concurrent connections")
}

func runServe(cmd *cobra.Command, args []string) error {
	server, err := startServer()
	if err != nil {
		return err
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigStop()

	<-sigCtx.Done()
	slog.Info("shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	return nil
}

// startServer validates the configuration once, loads the static key and
// starts listening.
func startServer() (*pinsync.Server, error) {
	raw, err := readFile(serveConfigFile)
	if err != nil {
		return nil, err
	}
	cfg, err := pinconfig.Parse(raw)
	if err != nil {
		return nil, err
	}

	staticKey, err := loadOrGenerateKey(serveKeyFile)
	if err != nil {
		return nil, err
	}

	server, err := pinsync.NewServer(&pinsync.ServerConfig{
		ListenAddr:     serveListenAddr,
		StaticKey:      staticKey,
		Source:         &pinconfig.FileSource{Path: serveConfigFile},
		MaxConnections: serveMaxConnections,
		Logger:         slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerStart, err)
	}
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServerStart, err)
	}

	slog.Info("serving pin configuration",
		"addr", server.Addr().String(),
		"hostnames", cfg.Len(),
		"public_key", hex.EncodeToString(staticKey.Public))
	return server, nil
}

func readFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: --config is required", ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrFileOperation, path, err)
	}
	return string(data), nil
}

// loadOrGenerateKey loads the static key at keyFile, generating and
// writing a new one when the file does not exist.
func loadOrGenerateKey(keyFile string) (*noise.DHKey, error) {
	key, err := noiseproto.ReadKeyFile(keyFile)
	if err == nil {
		slog.Info("loaded Noise static key", "path", keyFile)
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrKeyOperation, err)
	}

	slog.Debug("generating new Noise static key")
	key, err = noiseproto.GenerateStaticKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyOperation, err)
	}
	if err := noiseproto.WriteKeyFile(keyFile, key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileOperation, err)
	}
	slog.Info("key written", "path", keyFile)
	return key, nil
}
