// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package noiseproto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/flynn/noise"
	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of Curve25519 keys in bytes.
const KeySize = curve25519.ScalarSize

// keyFilePerm is the mode of persisted private keys.
const keyFilePerm = 0o600

// GenerateStaticKey generates a Curve25519 static key pair.
func GenerateStaticKey() (*noise.DHKey, error) {
	key, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %w", ErrHandshakeFailed, err)
	}
	return &key, nil
}

// LoadStaticKey builds a key pair from a raw private key, deriving the
// public half.
func LoadStaticKey(privateKey []byte) (*noise.DHKey, error) {
	if len(privateKey) != KeySize {
		return nil, ErrInvalidKeySize
	}

	priv := make([]byte, KeySize)
	copy(priv, privateKey)

	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		WipeBytes(priv)
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeySize, err)
	}
	return &noise.DHKey{Private: priv, Public: pub}, nil
}

// EncodeStaticKey returns the hex form of the private half of key.
func EncodeStaticKey(key *noise.DHKey) string {
	return hex.EncodeToString(key.Private)
}

// DecodeStaticKey parses a hex private key and derives the full pair.
func DecodeStaticKey(encoded string) (*noise.DHKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex encoding: %w", ErrInvalidKeySize, err)
	}
	defer WipeBytes(raw)
	return LoadStaticKey(raw)
}

// DecodePublicKey parses a hex public key as distributed to clients.
func DecodePublicKey(encoded string) ([]byte, error) {
	pub, err := hex.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex encoding: %w", ErrInvalidKeySize, err)
	}
	if len(pub) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return pub, nil
}

// WriteKeyFile stores the hex private key at path with mode 0600.
func WriteKeyFile(path string, key *noise.DHKey) error {
	if err := os.WriteFile(path, []byte(EncodeStaticKey(key)+"\n"), keyFilePerm); err != nil {
		return fmt.Errorf("noise: write key file: %w", err)
	}
	return nil
}

// ReadKeyFile loads a key written by WriteKeyFile.
func ReadKeyFile(path string) (*noise.DHKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("noise: read key file: %w", err)
	}
	defer WipeBytes(data)
	return DecodeStaticKey(string(data))
}
