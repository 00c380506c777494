// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package settings persists the pinning enable flag and the optional
// configuration override.
package settings

import "errors"

const (
	// KeyUsePinning is the settings key of the enable flag.
	KeyUsePinning = "useSSLPinning"

	// KeyConfigOverride is the settings key of the configuration override.
	KeyConfigOverride = "sslConfig"

	// DefaultUsePinning is the flag value when none has been stored.
	DefaultUsePinning = true
)

var (
	// ErrUnsupportedFormat is returned for a settings file format that
	// cannot be encoded.
	ErrUnsupportedFormat = errors.New("settings: unsupported format")

	// ErrNoPath is returned when a file store is created without a path.
	ErrNoPath = errors.New("settings: no path")
)

// Store reads and writes pinning settings. Implementations are safe for
// concurrent use.
type Store interface {
	// UsePinning returns the stored flag, or DefaultUsePinning when unset.
	UsePinning() (bool, error)

	// SetUsePinning stores the flag.
	SetUsePinning(enabled bool) error

	// ConfigOverride returns the stored override payload, or "" when unset.
	ConfigOverride() (string, error)

	// SetConfigOverride stores the override payload. An empty payload
	// clears it.
	SetConfigOverride(payload string) error
}

// document is the persisted form shared by every encoding.
type document struct {
	UsePinning     *bool  `json:"useSSLPinning,omitempty" yaml:"useSSLPinning,omitempty" toml:"useSSLPinning"`
	ConfigOverride string `json:"sslConfig,omitempty" yaml:"sslConfig,omitempty" toml:"sslConfig,omitempty"`
}

func (d *document) usePinning() bool {
	if d.UsePinning == nil {
		return DefaultUsePinning
	}
	return *d.UsePinning
}
