// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
	"github.com/jeremyhahn/go-sslpinning/pkg/pinning"
)

// defaultGetTimeout bounds configuration loading plus the request.
const defaultGetTimeout = 30 * time.Second

var (
	getURL        string
	getConfigFile string
	getAssetFile  string
	getCAFile     string
)

// getCmd performs an HTTPS GET through a pinned client.
var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch a URL through a pinned HTTP client",
	Long: `Fetch a URL with an HTTP client that enforces the active pin
configuration and write the response body to stdout or --output.

A pin mismatch fails the request. While pinning is disabled, or when no
configuration can be resolved, a plain client is used.`,
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringVar(&getURL, "url", "", "HTTPS URL to fetch (required)")
	getCmd.Flags().StringVar(&getConfigFile, "config", "", "configuration file to activate first")
	getCmd.Flags().StringVar(&getAssetFile, "asset", pinconfig.DefaultAssetName, "bundled configuration asset")
	getCmd.Flags().StringVar(&getCAFile, "ca-file", "", "PEM roots to trust instead of the system pool")
}

func runGet(cmd *cobra.Command, args []string) error {
	if getURL == "" {
		return fmt.Errorf("%w: --url is required", ErrInvalidInput)
	}
	if _, err := url.ParseRequestURI(getURL); err != nil {
		return fmt.Errorf("%w: invalid --url: %w", ErrInvalidInput, err)
	}

	tlsConfig, err := loadTLSConfig(getCAFile)
	if err != nil {
		return err
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()
	ctx, cancel := context.WithTimeout(sigCtx, defaultGetTimeout)
	defer cancel()

	m, err := newManager(ctx, getAssetFile, tlsConfig)
	if err != nil {
		return err
	}
	if getConfigFile != "" {
		raw, err := readConfig(cmd, getConfigFile)
		if err != nil {
			return err
		}
		if _, err := m.Initialize(ctx, raw); err != nil {
			return withCode(err)
		}
	}

	client, err := m.HTTPClient(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, pinning.ErrPinMismatch) {
			return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
	}
	slog.Info("response received", "status", resp.StatusCode, "bytes", len(body))
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrFetchFailed, resp.Status)
	}
	return writeOutput(cmd, body)
}
