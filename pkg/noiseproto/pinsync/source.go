// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinsync

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// Source fetches the configuration from a pin sync server on every Load,
// so it can sit in a pinconfig.Chain ahead of the bundled asset.
type Source struct {
	Config *ClientConfig
}

// Name returns "noise".
func (s *Source) Name() string { return "noise" }

// Load connects, fetches one configuration and disconnects. Every failure
// wraps pinconfig.ErrConfigUnavailable so a chain falls through.
func (s *Source) Load(ctx context.Context) (string, error) {
	client, err := NewClient(s.Config)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pinconfig.ErrConfigUnavailable, err)
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", pinconfig.ErrConfigUnavailable, err)
	}
	raw, err := client.FetchRaw(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pinconfig.ErrConfigUnavailable, err)
	}
	return raw, nil
}
