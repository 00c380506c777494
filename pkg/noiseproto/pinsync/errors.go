// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinsync serves and fetches pin configurations over an encrypted
// Noise_NK channel. Clients pin the server's static public key; the server
// validates every configuration before it is sent, so a client never
// receives a partial or malformed one.
//
// Wire format: every message is a 2-byte big-endian length followed by the
// payload. The first two messages carry the NK handshake; every later
// message is a Noise transport message holding a JSON Request or Response.
package pinsync

import "errors"

var (
	// ErrServerNotStarted indicates an operation before Start.
	ErrServerNotStarted = errors.New("pinsync: server not started")

	// ErrServerAlreadyStarted indicates Start on a running server.
	ErrServerAlreadyStarted = errors.New("pinsync: server already started")

	// ErrMaxConnections indicates the connection limit was reached.
	ErrMaxConnections = errors.New("pinsync: max connections reached")

	// ErrInvalidRequest indicates a malformed request or response.
	ErrInvalidRequest = errors.New("pinsync: invalid request")

	// ErrMethodNotFound indicates an unregistered request method.
	ErrMethodNotFound = errors.New("pinsync: method not found")

	// ErrSourceNotConfigured indicates the server has no configuration source.
	ErrSourceNotConfigured = errors.New("pinsync: configuration source not configured")

	// ErrConnectionFailed indicates a TCP connection could not be used.
	ErrConnectionFailed = errors.New("pinsync: connection failed")

	// ErrTimeout indicates an I/O deadline could not be applied.
	ErrTimeout = errors.New("pinsync: operation timeout")

	// ErrFrameTooLarge indicates a frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("pinsync: frame too large")

	// ErrHandshakeFailed indicates the Noise_NK handshake did not complete.
	ErrHandshakeFailed = errors.New("pinsync: handshake failed")

	// ErrRateLimited indicates a client rejected by per-IP rate limiting.
	ErrRateLimited = errors.New("pinsync: rate limited")

	// ErrServerError indicates the server answered with an error.
	ErrServerError = errors.New("pinsync: server error")
)
