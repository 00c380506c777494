// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinsync

import (
	"log/slog"
	"time"

	"github.com/flynn/noise"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

const (
	// DefaultListenAddr is the default TCP address the server binds to.
	DefaultListenAddr = ":8446"

	// DefaultMaxConnections is the default concurrent connection limit.
	DefaultMaxConnections = 100

	// MaxMaxConnections caps the MaxConnections setting.
	MaxMaxConnections = 10000

	// DefaultReadTimeout is the default deadline for reading one frame.
	DefaultReadTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default deadline for writing one frame.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultRateLimit is the per-IP token refill rate in connections per second.
	DefaultRateLimit = 10.0

	// DefaultRateBurst is the per-IP burst size.
	DefaultRateBurst = 20

	// MaxFrameSize is the largest frame payload, the Noise message limit.
	MaxFrameSize = 65535

	// FrameHeaderSize is the length of the big-endian size prefix.
	FrameHeaderSize = 2

	// MethodGetPinConfig requests the current pin configuration.
	MethodGetPinConfig = "get_pin_config"
)

// prologue binds both handshake sides to this protocol version.
var prologue = []byte("sslpin-pinsync/1")

// ServerConfig configures a Server.
type ServerConfig struct {
	// ListenAddr is the TCP address to bind. Default: DefaultListenAddr.
	ListenAddr string

	// StaticKey is the server's Curve25519 key pair. Required.
	StaticKey *noise.DHKey

	// Source supplies the configuration payload for each request. It is
	// loaded and validated per request so updates are served without a
	// restart.
	Source pinconfig.Source

	// MaxConnections limits simultaneous clients.
	MaxConnections int

	// ReadTimeout and WriteTimeout bound each frame.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RateLimit and RateBurst configure per-IP connection limiting.
	RateLimit float64
	RateBurst int

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// ServerAddr is the server's TCP address.
	ServerAddr string

	// ServerStaticKey is the server's 32-byte Curve25519 public key.
	ServerStaticKey []byte

	// ConnectTimeout bounds dialing and the handshake. Default: DefaultWriteTimeout.
	ConnectTimeout time.Duration

	// OperationTimeout bounds one request. Default: DefaultReadTimeout.
	OperationTimeout time.Duration

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.MaxConnections > MaxMaxConnections {
		c.MaxConnections = MaxMaxConnections
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
