// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto"
	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// Client fetches pin configurations from a Server as the NK initiator.
type Client struct {
	mu      sync.Mutex
	config  *ClientConfig
	conn    net.Conn
	session *noiseproto.Session
	logger  *slog.Logger
}

// NewClient creates a client. ServerStaticKey must be a 32-byte
// Curve25519 public key.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrHandshakeFailed)
	}
	if len(cfg.ServerStaticKey) != noiseproto.KeySize {
		return nil, fmt.Errorf("%w: server static key must be %d bytes, got %d",
			ErrHandshakeFailed, noiseproto.KeySize, len(cfg.ServerStaticKey))
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultWriteTimeout
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultReadTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{config: cfg, logger: logger.With("component", "pinsync_client")}, nil
}

// Connect dials the server and completes the NK handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.ServerAddr)
	if err != nil {
		return fmt.Errorf("%w: dial: %w", ErrConnectionFailed, err)
	}

	session, err := c.handshake(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.conn = conn
	c.session = session
	c.logger.Debug("handshake complete", "server", c.config.ServerAddr)
	return nil
}

func (c *Client) handshake(ctx context.Context, conn net.Conn) (*noiseproto.Session, error) {
	session, err := noiseproto.NewSession(&noiseproto.SessionConfig{
		Role:       noiseproto.Initiator,
		PeerStatic: c.config.ServerStaticKey,
		Prologue:   prologue,
	})
	if err != nil {
		return nil, err
	}

	deadline := c.deadline(ctx, c.config.ConnectTimeout)
	msg1, err := session.WriteHandshake()
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, msg1, deadline); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	msg2, err := ReadFrame(conn, deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if err := session.ReadHandshake(msg2); err != nil {
		return nil, err
	}
	return session, nil
}

// FetchRaw requests the configuration and returns the normalized JSON
// document the server sent.
func (c *Client) FetchRaw(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, &Request{Method: MethodGetPinConfig})
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrServerError, resp.Error)
	}
	if len(resp.Config) == 0 {
		return "", fmt.Errorf("%w: empty config", ErrInvalidRequest)
	}
	return string(resp.Config), nil
}

// GetPinConfig requests the configuration and validates it locally.
func (c *Client) GetPinConfig(ctx context.Context) (*pinconfig.PinConfig, error) {
	raw, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	return pinconfig.Parse(raw)
}

func (c *Client) call(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("%w: not connected", ErrConnectionFailed)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	sealed, err := c.session.Encrypt(payload)
	if err != nil {
		return nil, err
	}

	deadline := c.deadline(ctx, c.config.OperationTimeout)
	if err := WriteFrame(c.conn, sealed, deadline); err != nil {
		return nil, err
	}
	ciphertext, err := ReadFrame(c.conn, deadline)
	if err != nil {
		return nil, err
	}
	plaintext, err := c.session.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(plaintext, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrInvalidRequest, err)
	}
	return &resp, nil
}

// deadline returns the earlier of now+timeout and the context deadline.
func (c *Client) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// Close closes the connection. It is safe to call on an unconnected client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.session = nil
	return err
}
