// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package sslpinning

import (
	"errors"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// ErrInvalidConfig indicates the manager configuration is missing required
// fields.
var ErrInvalidConfig = errors.New("sslpinning: invalid configuration")

// Error codes reported to bridge callers.
const (
	CodeConfigUnavailable       = "CONFIG_UNAVAILABLE"
	CodeInvalidConfiguration    = "INVALID_CONFIGURATION"
	CodeInvalidPinConfiguration = "INVALID_PIN_CONFIGURATION"
	CodeSSLPinningError         = "SSL_PINNING_ERROR"
)

// ErrorCode maps err to a stable code. A nil error has no code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pinconfig.ErrInvalidPinConfiguration):
		return CodeInvalidPinConfiguration
	case errors.Is(err, pinconfig.ErrInvalidConfiguration):
		return CodeInvalidConfiguration
	case errors.Is(err, pinconfig.ErrConfigUnavailable):
		return CodeConfigUnavailable
	default:
		return CodeSSLPinningError
	}
}
