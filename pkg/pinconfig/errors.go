// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package pinconfig parses and validates TLS pin configurations. A pin
// configuration maps hostnames to SHA-256 SubjectPublicKeyInfo digests in
// the "sha256/<base64>" form used by OkHttp's CertificatePinner and TrustKit.
// Parsing is all-or-nothing: a configuration is either fully valid and
// normalized, or rejected with a classified error.
package pinconfig

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigUnavailable is returned when no configuration payload could be
	// located (bundled asset missing, override absent).
	ErrConfigUnavailable = errors.New("pinconfig: configuration unavailable")

	// ErrInvalidConfiguration is returned when the payload is present but is
	// not a JSON object containing a well-formed pin map.
	ErrInvalidConfiguration = errors.New("pinconfig: invalid configuration")

	// ErrInvalidPinConfiguration is returned when a hostname's pin list fails
	// validation. The concrete error is a *PinError carrying the hostname.
	ErrInvalidPinConfiguration = errors.New("pinconfig: invalid pin configuration")
)

// Digest rule violations. These are wrapped by PinError.
var (
	// ErrNoPins indicates a hostname is mapped to an empty pin list.
	ErrNoPins = errors.New("no pins")

	// ErrMissingPrefix indicates a pin does not start with "sha256/".
	ErrMissingPrefix = errors.New("missing sha256/ prefix")

	// ErrNotBase64 indicates a digest contains characters outside the
	// standard base64 alphabet.
	ErrNotBase64 = errors.New("digest is not base64")

	// ErrWrongLength indicates a digest is not exactly DigestLength characters.
	ErrWrongLength = errors.New("wrong digest length")
)

// PinError reports an invalid pin list for a single hostname. It matches
// both ErrInvalidPinConfiguration and the specific digest rule violation.
type PinError struct {
	// Hostname is the configuration key whose pins were rejected.
	Hostname string

	// Err is the digest rule that failed.
	Err error
}

// Error returns a message naming the hostname. The offending pin value is
// never included.
func (e *PinError) Error() string {
	return fmt.Sprintf("pinconfig: invalid pin configuration for domain %s: %v", e.Hostname, e.Err)
}

// Unwrap returns ErrInvalidPinConfiguration and the rule violation.
func (e *PinError) Unwrap() []error {
	return []error{ErrInvalidPinConfiguration, e.Err}
}

// AttemptError records a single configuration source that could not supply
// a payload.
type AttemptError struct {
	// Source is the name of the source that failed.
	Source string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message including the source name.
func (e *AttemptError) Error() string {
	return fmt.Sprintf("pinconfig source %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *AttemptError) Unwrap() error {
	return e.Err
}

// AggregateError collects the failures of every source in a Chain.
type AggregateError struct {
	Attempts []AttemptError
}

// Error lists each failed source.
func (e *AggregateError) Error() string {
	var b strings.Builder
	b.WriteString("pinconfig: configuration unavailable: [")
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", a.Source, a.Err)
	}
	b.WriteString("]")
	return b.String()
}

// Unwrap returns ErrConfigUnavailable for use with errors.Is.
func (e *AggregateError) Unwrap() error {
	return ErrConfigUnavailable
}
