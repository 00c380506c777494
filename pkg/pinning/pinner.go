// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinning

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// DefaultIncludeSubdomains is the subdomain policy applied by callers that
// do not choose one explicitly.
const DefaultIncludeSubdomains = true

// Config configures a Pinner.
type Config struct {
	// Pins is the validated pin configuration. Required.
	Pins *pinconfig.PinConfig

	// IncludeSubdomains extends a plain hostname entry to every subdomain
	// beneath it. Wildcard entries ("*.", "**.") are unaffected.
	IncludeSubdomains bool

	// TLSConfig is the base client configuration used by DialTLSContext.
	// Certificate verification stays enabled; pins are checked on top of it.
	TLSConfig *tls.Config

	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Pinner checks certificate chains against configured pins. It is safe for
// concurrent use.
type Pinner struct {
	pins              *pinconfig.PinConfig
	patterns          []pattern
	includeSubdomains bool
	tlsConfig         *tls.Config
	logger            *slog.Logger
}

type pattern struct {
	entry string
	kind  patternKind
	base  string
}

type patternKind int

const (
	patternExact patternKind = iota
	patternSingleLabel
	patternAnyLabels
)

// NewPinner creates a Pinner from cfg.
func NewPinner(cfg *Config) (*Pinner, error) {
	if cfg == nil || cfg.Pins == nil {
		return nil, ErrNoConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hostnames := cfg.Pins.Hostnames()
	patterns := make([]pattern, 0, len(hostnames))
	for _, entry := range hostnames {
		patterns = append(patterns, compilePattern(entry))
	}

	return &Pinner{
		pins:              cfg.Pins,
		patterns:          patterns,
		includeSubdomains: cfg.IncludeSubdomains,
		tlsConfig:         cfg.TLSConfig,
		logger:            logger.With("component", "pinner"),
	}, nil
}

func compilePattern(entry string) pattern {
	lower := normalizeHost(entry)
	switch {
	case strings.HasPrefix(lower, "**."):
		return pattern{entry: entry, kind: patternAnyLabels, base: lower[3:]}
	case strings.HasPrefix(lower, "*."):
		return pattern{entry: entry, kind: patternSingleLabel, base: lower[2:]}
	default:
		return pattern{entry: entry, kind: patternExact, base: lower}
	}
}

func (p pattern) matches(host string, includeSubdomains bool) bool {
	switch p.kind {
	case patternAnyLabels:
		return host == p.base || strings.HasSuffix(host, "."+p.base)
	case patternSingleLabel:
		prefix, ok := strings.CutSuffix(host, "."+p.base)
		return ok && prefix != "" && !strings.Contains(prefix, ".")
	default:
		if host == p.base {
			return true
		}
		return includeSubdomains && strings.HasSuffix(host, "."+p.base)
	}
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// Config returns the pin configuration the pinner enforces.
func (p *Pinner) Config() *pinconfig.PinConfig {
	return p.pins
}

// Hostnames returns the configured hostname entries in sorted order.
func (p *Pinner) Hostnames() []string {
	return p.pins.Hostnames()
}

// PinsFor returns every pin that applies to host, collected from all
// matching entries. It returns nil when host is not pinned.
func (p *Pinner) PinsFor(host string) []string {
	host = normalizeHost(host)
	var pins []string
	for _, pat := range p.patterns {
		if !pat.matches(host, p.includeSubdomains) {
			continue
		}
		for _, pin := range p.pins.Pins(pat.entry) {
			if !slices.Contains(pins, pin) {
				pins = append(pins, pin)
			}
		}
	}
	return pins
}

// Check verifies chain against the pins for host. Unpinned hosts always
// pass. A pinned host passes when any certificate in chain matches.
func (p *Pinner) Check(host string, chain []*x509.Certificate) error {
	pins := p.PinsFor(host)
	if len(pins) == 0 {
		return nil
	}
	if len(chain) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCertificates, host)
	}

	presented := ChainPins(chain)
	for _, pin := range presented {
		if slices.Contains(pins, pin) {
			p.logger.Debug("certificate pin matched", "host", host)
			return nil
		}
	}

	p.logger.Warn("certificate pin mismatch", "host", host, "configured", len(pins), "presented", len(presented))
	return &MismatchError{Host: host, Presented: presented}
}

// DialTLSContext dials addr, completes a verified TLS handshake and then
// checks the chain against the pins for the dialed host. The connection is
// closed when the check fails. The returned connection is a *tls.Conn.
func (p *Pinner) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return p.dial(ctx, p.tlsConfig, network, addr)
}

func (p *Pinner) dial(ctx context.Context, base *tls.Config, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("pinning: invalid address %q: %w", addr, err)
	}

	var conf *tls.Config
	if base != nil {
		conf = base.Clone()
	} else {
		conf = &tls.Config{}
	}
	if conf.MinVersion == 0 {
		conf.MinVersion = tls.VersionTLS12
	}
	if conf.ServerName == "" {
		conf.ServerName = host
	}

	dialer := &tls.Dialer{Config: conf}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := conn.(*tls.Conn)
	state := tlsConn.ConnectionState()
	chain := state.PeerCertificates
	if len(state.VerifiedChains) > 0 {
		chain = state.VerifiedChains[0]
	}

	if err := p.Check(host, chain); err != nil {
		tlsConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// Transport returns an HTTP transport whose TLS connections are pinned.
// base overrides the pinner's TLS configuration when non-nil.
func (p *Pinner) Transport(base *tls.Config) *http.Transport {
	if base == nil {
		base = p.tlsConfig
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = base
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return p.dial(ctx, base, network, addr)
	}
	return transport
}
