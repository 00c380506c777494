// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package noiseproto provides the Noise_NK primitives used to distribute pin
// configurations: Curve25519 static keys and a two-message handshake that
// authenticates the server to a client that already knows its public key.
// The cipher suite is fixed to 25519, ChaChaPoly and SHA-256.
package noiseproto

import "errors"

var (
	// ErrHandshakeFailed indicates the Noise handshake failed.
	ErrHandshakeFailed = errors.New("noise: handshake failed")

	// ErrEncryptionFailed indicates message encryption failed.
	ErrEncryptionFailed = errors.New("noise: encryption failed")

	// ErrDecryptionFailed indicates message decryption failed.
	ErrDecryptionFailed = errors.New("noise: decryption failed")

	// ErrInvalidKeySize indicates a key with an incorrect size.
	ErrInvalidKeySize = errors.New("noise: invalid key size")

	// ErrSessionNotReady indicates transport use before the handshake completed.
	ErrSessionNotReady = errors.New("noise: session not ready")

	// ErrOutOfOrder indicates a handshake step called in the wrong order
	// for the session's role.
	ErrOutOfOrder = errors.New("noise: handshake message out of order")
)
