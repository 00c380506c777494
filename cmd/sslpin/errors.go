// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"errors"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitFetchFailed indicates a fetch, pinning or network operation failed.
	ExitFetchFailed = 1

	// ExitConfigError indicates a configuration or input validation error.
	ExitConfigError = 2
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidInput is returned when required input parameters are missing or invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrFetchFailed is returned when a configuration or HTTPS fetch fails.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrVerificationFailed is returned when a pin check fails.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrKeyOperation is returned when a key generation or decoding operation fails.
	ErrKeyOperation = errors.New("key operation failed")

	// ErrFileOperation is returned when a file read or write operation fails.
	ErrFileOperation = errors.New("file operation failed")

	// ErrServerStart is returned when the pin sync server fails to start.
	ErrServerStart = errors.New("serve: server start failed")
)

// exitCode maps err to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, pinconfig.ErrInvalidConfiguration),
		errors.Is(err, pinconfig.ErrInvalidPinConfiguration),
		errors.Is(err, pinconfig.ErrConfigUnavailable):
		return ExitConfigError
	default:
		return ExitFetchFailed
	}
}
