// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package dane discovers SPKI pins published as DNS TLSA records (RFC 6698)
// and renders pins as TLSA zone lines for publication. Only records with
// the SubjectPublicKeyInfo selector and SHA-256 matching type carry a pin.
package dane

import "errors"

var (
	// ErrNoTLSARecords indicates no TLSA records were found for the queried name.
	ErrNoTLSARecords = errors.New("dane: no TLSA records found")

	// ErrNoPinRecords indicates TLSA records exist but none carries a
	// SHA-256 SPKI digest.
	ErrNoPinRecords = errors.New("dane: no SPKI SHA-256 TLSA records")

	// ErrDNSLookupFailed indicates the DNS query for TLSA records failed.
	ErrDNSLookupFailed = errors.New("dane: DNS lookup failed")

	// ErrDNSSECRequired indicates the Authenticated Data flag was required
	// but absent from the response.
	ErrDNSSECRequired = errors.New("dane: DNSSEC validation required but AD flag not set")

	// ErrInvalidHostname indicates an empty or malformed hostname.
	ErrInvalidHostname = errors.New("dane: invalid hostname")

	// ErrInvalidPort indicates port number zero.
	ErrInvalidPort = errors.New("dane: invalid port")

	// ErrInvalidUsage indicates a certificate usage outside 0-3.
	ErrInvalidUsage = errors.New("dane: invalid certificate usage")

	// ErrInvalidPin indicates a pin that does not pass digest validation.
	ErrInvalidPin = errors.New("dane: invalid pin")

	// ErrResolverConfig indicates the resolver configuration is invalid.
	ErrResolverConfig = errors.New("dane: invalid resolver configuration")
)
