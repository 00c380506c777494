// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"log/slog"
	"time"
)

// Certificate usage values (RFC 6698 Section 2.1.1).
const (
	UsageCAConstraint uint8 = 0 // PKIX-TA
	UsageServiceCert  uint8 = 1 // PKIX-EE
	UsageDANETA       uint8 = 2 // DANE-TA
	UsageDANEEE       uint8 = 3 // DANE-EE
)

// Selector values (RFC 6698 Section 2.1.2).
const (
	SelectorFullCert uint8 = 0
	SelectorSPKI     uint8 = 1
)

// Matching type values (RFC 6698 Section 2.1.3).
const (
	MatchingExact  uint8 = 0
	MatchingSHA256 uint8 = 1
	MatchingSHA512 uint8 = 2
)

// TLSARecord is a parsed TLSA resource record.
type TLSARecord struct {
	Usage        uint8
	Selector     uint8
	MatchingType uint8

	// CertData is the certificate association data.
	CertData []byte
}

// IsPin reports whether the record carries a SHA-256 SPKI digest.
func (r *TLSARecord) IsPin() bool {
	return r != nil && r.Selector == SelectorSPKI && r.MatchingType == MatchingSHA256 && len(r.CertData) == 32
}

// ResolverConfig configures the DNS resolver used for TLSA lookups.
type ResolverConfig struct {
	// Server is the resolver address (e.g. "8.8.8.8:53"). When empty the
	// first nameserver in /etc/resolv.conf is used.
	Server string

	// UseTLS enables DNS-over-TLS on port 853.
	UseTLS bool

	// TLSServerName is the SNI value for DNS-over-TLS.
	TLSServerName string

	// RequireAD requires the Authenticated Data flag in responses.
	RequireAD bool

	// Timeout bounds a single query. Default: 5s.
	Timeout time.Duration

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// TLSARecordString is a TLSA record formatted for a DNS zone file.
type TLSARecordString struct {
	Name         string
	Usage        uint8
	Selector     uint8
	MatchingType uint8
	HexData      string

	// ZoneLine is the full zone file line, for example
	// "_443._tcp.api.example.com. IN TLSA 3 1 1 a1b2...".
	ZoneLine string
}
