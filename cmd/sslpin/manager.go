// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
	"github.com/jeremyhahn/go-sslpinning/pkg/sslpinning"
)

// newManager opens the settings store and builds a manager that falls back
// to assetPath after the settings override and any extra sources.
func newManager(ctx context.Context, assetPath string, tlsConfig *tls.Config, sources ...pinconfig.Source) (*sslpinning.Manager, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return sslpinning.New(ctx, &sslpinning.Config{
		Settings:  store,
		AssetPath: assetPath,
		Sources:   sources,
		TLSConfig: tlsConfig,
		Verbose:   !quiet,
		Logger:    slog.Default(),
	})
}

// withCode prefixes err with its pinning error code.
func withCode(err error) error {
	return fmt.Errorf("%s: %w", sslpinning.ErrorCode(err), err)
}
