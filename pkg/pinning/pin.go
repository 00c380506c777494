// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// ComputeSPKIPin returns the base64-encoded SHA-256 digest of a
// certificate's SubjectPublicKeyInfo, without the "sha256/" prefix.
func ComputeSPKIPin(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return base64.StdEncoding.EncodeToString(hash[:])
}

// FormatPin returns the configuration form of a certificate's pin.
func FormatPin(cert *x509.Certificate) string {
	return pinconfig.FormatDigest(ComputeSPKIPin(cert))
}

// ChainPins returns the SPKI pin of every certificate in certs, in order.
func ChainPins(certs []*x509.Certificate) []string {
	pins := make([]string, 0, len(certs))
	for _, cert := range certs {
		pins = append(pins, ComputeSPKIPin(cert))
	}
	return pins
}
