// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinning enforces a validated pin configuration on TLS
// connections. A host covered by the configuration is accepted only when at
// least one certificate in its chain carries a matching SHA-256 Subject
// Public Key Info pin; hosts outside the configuration use normal
// certificate verification only.
package pinning

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPinMismatch is returned when no certificate in the chain matches a
	// configured pin for the host.
	ErrPinMismatch = errors.New("pinning: certificate pin mismatch")

	// ErrNoCertificates is returned when a pinned host presents no certificates.
	ErrNoCertificates = errors.New("pinning: no certificates presented")

	// ErrNoConfig is returned when a pinner is created without a configuration.
	ErrNoConfig = errors.New("pinning: no pin configuration")
)

// MismatchError describes a rejected connection. It matches ErrPinMismatch.
type MismatchError struct {
	Host      string
	Presented []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("pinning: certificate pin mismatch for %s (presented %s)",
		e.Host, strings.Join(e.Presented, ", "))
}

func (e *MismatchError) Unwrap() error {
	return ErrPinMismatch
}
