// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// Request is the JSON request sent over the encrypted channel.
type Request struct {
	Method string `json:"method"`
}

// Response is the JSON reply. Config holds the normalized configuration
// document; on failure only Error is set.
type Response struct {
	Config    json.RawMessage `json:"config,omitempty"`
	Hostnames []string        `json:"hostnames,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type handlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Handler dispatches requests by method name.
type Handler struct {
	source   pinconfig.Source
	handlers map[string]handlerFunc
	logger   *slog.Logger
}

// NewHandler creates a Handler serving configurations from source. A nil
// source makes every request fail with ErrSourceNotConfigured.
func NewHandler(source pinconfig.Source, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{source: source, logger: logger}
	h.handlers = map[string]handlerFunc{
		MethodGetPinConfig: h.handleGetPinConfig,
	}
	return h
}

// Handle dispatches req. It returns ErrInvalidRequest for a nil request
// and ErrMethodNotFound for an unknown method.
func (h *Handler) Handle(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	fn, ok := h.handlers[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, req.Method)
	}
	return fn(ctx, req)
}

// handleGetPinConfig loads and validates the configuration. A payload that
// fails validation is never sent.
func (h *Handler) handleGetPinConfig(ctx context.Context, _ *Request) (*Response, error) {
	if h.source == nil {
		return nil, ErrSourceNotConfigured
	}

	cfg, err := pinconfig.LoadAndParse(ctx, h.source)
	if err != nil {
		h.logger.Warn("refusing to serve pin configuration", "source", h.source.Name(), "error", err)
		return nil, err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("pinsync: encode config: %w", err)
	}
	return &Response{Config: data, Hostnames: cfg.Hostnames()}, nil
}
