// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package noiseproto

import (
	"fmt"
	"sync"

	"github.com/flynn/noise"
)

// MaxMessageSize is the largest plaintext a single transport message
// carries: the Noise message limit minus the AEAD tag.
const MaxMessageSize = 65535 - 16

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// Role selects the side of the NK handshake.
type Role int

const (
	// Initiator knows the responder's static public key in advance.
	Initiator Role = iota

	// Responder holds the static key pair.
	Responder
)

func (r Role) String() string {
	if r == Responder {
		return "responder"
	}
	return "initiator"
}

// SessionConfig configures one side of an NK session.
type SessionConfig struct {
	Role Role

	// StaticKey is the responder's key pair. Required for Responder.
	StaticKey *noise.DHKey

	// PeerStatic is the responder's public key. Required for Initiator.
	PeerStatic []byte

	// Prologue must match on both sides.
	Prologue []byte
}

// Session runs the two-message NK handshake:
//
//	-> e, es
//	<- e, ee
//
// and then encrypts transport messages. It is safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	role Role
	hs   *noise.HandshakeState
	step int
	send *noise.CipherState
	recv *noise.CipherState
}

// NewSession validates cfg and prepares the handshake state.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrHandshakeFailed)
	}

	ncfg := noise.Config{
		CipherSuite: cipherSuite,
		Pattern:     noise.HandshakeNK,
		Initiator:   cfg.Role == Initiator,
		Prologue:    cfg.Prologue,
	}
	switch cfg.Role {
	case Initiator:
		if len(cfg.PeerStatic) != KeySize {
			return nil, fmt.Errorf("%w: peer static key", ErrInvalidKeySize)
		}
		ncfg.PeerStatic = cfg.PeerStatic
	case Responder:
		if cfg.StaticKey == nil || len(cfg.StaticKey.Private) != KeySize {
			return nil, fmt.Errorf("%w: static key", ErrInvalidKeySize)
		}
		ncfg.StaticKeypair = *cfg.StaticKey
	default:
		return nil, fmt.Errorf("%w: unknown role %d", ErrHandshakeFailed, cfg.Role)
	}

	hs, err := noise.NewHandshakeState(ncfg)
	if err != nil {
		return nil, fmt.Errorf("%w: init: %w", ErrHandshakeFailed, err)
	}
	return &Session{role: cfg.Role, hs: hs}, nil
}

// Role returns the side of the session.
func (s *Session) Role() Role { return s.role }

// Complete reports whether transport ciphers are established.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send != nil
}

// WriteHandshake produces the next handshake message for this side:
// message one on the initiator, message two on the responder.
func (s *Session) WriteHandshake() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.role == Initiator && s.step == 0:
		msg, _, _, err := s.hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: write e, es: %w", ErrHandshakeFailed, err)
		}
		s.step++
		return msg, nil
	case s.role == Responder && s.step == 1:
		msg, cs1, cs2, err := s.hs.WriteMessage(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: write e, ee: %w", ErrHandshakeFailed, err)
		}
		s.finish(cs1, cs2)
		return msg, nil
	default:
		return nil, ErrOutOfOrder
	}
}

// ReadHandshake consumes the peer's handshake message.
func (s *Session) ReadHandshake(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.role == Responder && s.step == 0:
		if _, _, _, err := s.hs.ReadMessage(nil, msg); err != nil {
			return fmt.Errorf("%w: read e, es: %w", ErrHandshakeFailed, err)
		}
		s.step++
		return nil
	case s.role == Initiator && s.step == 1:
		_, cs1, cs2, err := s.hs.ReadMessage(nil, msg)
		if err != nil {
			return fmt.Errorf("%w: read e, ee (size=%d): %w", ErrHandshakeFailed, len(msg), err)
		}
		if cs1 == nil || cs2 == nil {
			return fmt.Errorf("%w: handshake did not complete", ErrHandshakeFailed)
		}
		s.finish(cs1, cs2)
		return nil
	default:
		return ErrOutOfOrder
	}
}

// finish installs transport ciphers. cs1 carries initiator to responder
// traffic. The handshake state is dropped afterwards.
func (s *Session) finish(cs1, cs2 *noise.CipherState) {
	if s.role == Initiator {
		s.send, s.recv = cs1, cs2
	} else {
		s.send, s.recv = cs2, cs1
	}
	s.hs = nil
	s.step = 2
}

// Encrypt seals one transport message.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.send == nil {
		return nil, ErrSessionNotReady
	}
	if len(plaintext) > MaxMessageSize {
		return nil, fmt.Errorf("%w: message size %d exceeds maximum %d",
			ErrEncryptionFailed, len(plaintext), MaxMessageSize)
	}
	ciphertext, err := s.send.Encrypt(nil, nil, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}
	return ciphertext, nil
}

// Decrypt opens one transport message.
func (s *Session) Decrypt(ciphertext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recv == nil {
		return nil, ErrSessionNotReady
	}
	plaintext, err := s.recv.Decrypt(nil, nil, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
