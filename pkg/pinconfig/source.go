// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinconfig

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// DefaultAssetName is the file name of the bundled configuration asset.
const DefaultAssetName = "ssl_config.json"

// Source supplies a raw configuration payload. A source with nothing to
// offer returns an error wrapping ErrConfigUnavailable.
type Source interface {
	// Name identifies the source in logs and aggregate errors.
	Name() string

	// Load returns the raw, unparsed payload.
	Load(ctx context.Context) (string, error)
}

// OverrideReader reads a persisted configuration override. settings.Store
// implementations satisfy this interface.
type OverrideReader interface {
	ConfigOverride() (string, error)
}

// StaticSource supplies a payload passed directly by the caller.
type StaticSource struct {
	Payload string
}

// Name returns "explicit".
func (s *StaticSource) Name() string { return "explicit" }

// Load returns the payload, or ErrConfigUnavailable when it is blank.
func (s *StaticSource) Load(_ context.Context) (string, error) {
	if strings.TrimSpace(s.Payload) == "" {
		return "", fmt.Errorf("%w: no explicit payload", ErrConfigUnavailable)
	}
	return s.Payload, nil
}

// SettingsSource supplies the persisted configuration override.
type SettingsSource struct {
	Reader OverrideReader
}

// Name returns "settings".
func (s *SettingsSource) Name() string { return "settings" }

// Load reads the override from the settings store.
func (s *SettingsSource) Load(_ context.Context) (string, error) {
	if s.Reader == nil {
		return "", fmt.Errorf("%w: no settings store", ErrConfigUnavailable)
	}
	payload, err := s.Reader.ConfigOverride()
	if err != nil {
		return "", fmt.Errorf("%w: read override: %w", ErrConfigUnavailable, err)
	}
	if strings.TrimSpace(payload) == "" {
		return "", fmt.Errorf("%w: no override set", ErrConfigUnavailable)
	}
	return payload, nil
}

// FileSource supplies the bundled configuration asset from disk.
type FileSource struct {
	Path string
}

// Name returns "asset".
func (s *FileSource) Name() string { return "asset" }

// Load reads the asset file. A missing or unreadable file is reported as
// ErrConfigUnavailable.
func (s *FileSource) Load(_ context.Context) (string, error) {
	if s.Path == "" {
		return "", fmt.Errorf("%w: no asset path", ErrConfigUnavailable)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: asset %s not found", ErrConfigUnavailable, s.Path)
		}
		return "", fmt.Errorf("%w: read asset %s: %w", ErrConfigUnavailable, s.Path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: asset %s is empty", ErrConfigUnavailable, s.Path)
	}
	return string(data), nil
}

// Chain tries each source in priority order and returns the first payload.
// The payload is not parsed here; an invalid override does not fall through
// to lower priority sources.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

// NewChain creates a chain over the given sources. Nil sources are skipped.
// If logger is nil, slog.Default() is used.
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	filtered := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &Chain{
		sources: filtered,
		logger:  logger.With("component", "pinconfig_chain"),
	}
}

// Name returns "chain".
func (c *Chain) Name() string { return "chain" }

// Load returns the first payload any source supplies. When every source
// fails an *AggregateError is returned, which matches ErrConfigUnavailable.
func (c *Chain) Load(ctx context.Context) (string, error) {
	attempts := make([]AttemptError, 0, len(c.sources))

	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: context cancelled: %w", ErrConfigUnavailable, err)
		}

		payload, err := src.Load(ctx)
		if err == nil {
			c.logger.Debug("configuration source selected", "source", src.Name())
			return payload, nil
		}

		c.logger.Debug("configuration source unavailable", "source", src.Name(), "error", err)
		attempts = append(attempts, AttemptError{Source: src.Name(), Err: err})
	}

	return "", &AggregateError{Attempts: attempts}
}

// LoadAndParse loads a payload from src and parses it.
func LoadAndParse(ctx context.Context, src Source) (*PinConfig, error) {
	payload, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(payload)
}
