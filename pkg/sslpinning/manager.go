// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

// Package sslpinning ties the enable flag, configuration sources and the
// certificate pinner together. A Manager validates a pin configuration on
// request, installs it, and hands out HTTP clients that enforce it while
// pinning is enabled.
package sslpinning

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
	"github.com/jeremyhahn/go-sslpinning/pkg/pinning"
	"github.com/jeremyhahn/go-sslpinning/pkg/settings"
)

const (
	// DefaultLoadTimeout bounds a single configuration load from the
	// source chain.
	DefaultLoadTimeout = 15 * time.Second

	// DefaultHTTPTimeout is the request timeout of clients from HTTPClient.
	DefaultHTTPTimeout = 30 * time.Second

	// MessageInitialized is the result message of a successful Initialize.
	MessageInitialized = "SSL Pinning initialized successfully"

	// MessageDisabled is the result message of Initialize while disabled.
	MessageDisabled = "SSL Pinning is disabled"
)

// Config configures a Manager.
type Config struct {
	// Settings stores the enable flag and configuration override. Required.
	Settings settings.Store

	// AssetPath is the bundled configuration file consulted last.
	// Default: pinconfig.DefaultAssetName.
	AssetPath string

	// Sources are consulted after the settings override and before the
	// bundled asset, in order.
	Sources []pinconfig.Source

	// IncludeSubdomains extends plain hostname entries to their subdomains.
	// Nil means pinning.DefaultIncludeSubdomains.
	IncludeSubdomains *bool

	// TLSConfig is the base TLS configuration of pinned clients.
	TLSConfig *tls.Config

	// LoadTimeout bounds a configuration load. Default: 15s.
	LoadTimeout time.Duration

	// HTTPTimeout is the request timeout of issued clients. Default: 30s.
	HTTPTimeout time.Duration

	// Verbose logs lifecycle events at Info instead of Debug.
	Verbose bool

	// AutoInit loads and installs a configuration from the sources in New.
	AutoInit bool

	// Logger for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Result reports the outcome of Initialize.
type Result struct {
	Message string   `json:"message"`
	Domains []string `json:"domains"`
	Enabled bool     `json:"isSSLPinningEnabled"`
	Active  bool     `json:"active"`
}

// Status is a snapshot of the manager state.
type Status struct {
	Enabled   bool     `json:"isSSLPinningEnabled"`
	Active    bool     `json:"active"`
	Domains   []string `json:"domains"`
	FactoryID string   `json:"factoryId"`
}

// Manager owns the active pin configuration. It is safe for concurrent use.
type Manager struct {
	store             settings.Store
	chain             *pinconfig.Chain
	includeSubdomains bool
	tlsConfig         *tls.Config
	loadTimeout       time.Duration
	httpTimeout       time.Duration
	verbose           bool
	logger            *slog.Logger

	mu        sync.RWMutex
	pinner    *pinning.Pinner
	factoryID string
}

// New creates a Manager. With AutoInit a configuration is loaded
// immediately; an unavailable configuration leaves pinning inactive, any
// other failure is returned.
func New(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil || cfg.Settings == nil {
		return nil, ErrInvalidConfig
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sslpinning")

	assetPath := cfg.AssetPath
	if assetPath == "" {
		assetPath = pinconfig.DefaultAssetName
	}
	includeSubdomains := pinning.DefaultIncludeSubdomains
	if cfg.IncludeSubdomains != nil {
		includeSubdomains = *cfg.IncludeSubdomains
	}
	loadTimeout := cfg.LoadTimeout
	if loadTimeout == 0 {
		loadTimeout = DefaultLoadTimeout
	}
	httpTimeout := cfg.HTTPTimeout
	if httpTimeout == 0 {
		httpTimeout = DefaultHTTPTimeout
	}

	sources := make([]pinconfig.Source, 0, len(cfg.Sources)+2)
	sources = append(sources, &pinconfig.SettingsSource{Reader: cfg.Settings})
	sources = append(sources, cfg.Sources...)
	sources = append(sources, &pinconfig.FileSource{Path: assetPath})

	m := &Manager{
		store:             cfg.Settings,
		chain:             pinconfig.NewChain(logger, sources...),
		includeSubdomains: includeSubdomains,
		tlsConfig:         cfg.TLSConfig,
		loadTimeout:       loadTimeout,
		httpTimeout:       httpTimeout,
		verbose:           cfg.Verbose,
		logger:            logger,
		factoryID:         uuid.NewString(),
	}

	if cfg.AutoInit {
		if _, err := m.Initialize(ctx, ""); err != nil {
			if !errors.Is(err, pinconfig.ErrConfigUnavailable) {
				return nil, err
			}
			m.logger.Warn("no pin configuration available, pinning inactive")
		}
	}

	return m, nil
}

func (m *Manager) lifecycle(msg string, args ...any) {
	if m.verbose {
		m.logger.Info(msg, args...)
		return
	}
	m.logger.Debug(msg, args...)
}

// UseSSLPinning returns the persisted enable flag.
func (m *Manager) UseSSLPinning() (bool, error) {
	return m.store.UsePinning()
}

// SetUseSSLPinning persists the enable flag and rotates the client factory
// so clients issued under the previous flag are recognisably stale.
func (m *Manager) SetUseSSLPinning(enabled bool) error {
	if err := m.store.SetUsePinning(enabled); err != nil {
		return err
	}

	m.mu.Lock()
	m.factoryID = uuid.NewString()
	id := m.factoryID
	m.mu.Unlock()

	m.lifecycle("pinning flag updated", "enabled", enabled, "factory_id", id)
	return nil
}

// Initialize validates and installs a pin configuration. When pinning is
// disabled validation is skipped. raw takes priority over every configured
// source when non-empty. On failure the previously installed configuration
// stays active.
func (m *Manager) Initialize(ctx context.Context, raw string) (*Result, error) {
	enabled, err := m.store.UsePinning()
	if err != nil {
		return nil, err
	}
	if !enabled {
		m.lifecycle("pinning disabled, skipping initialization")
		return &Result{Message: MessageDisabled, Domains: []string{}}, nil
	}

	cfg, err := m.resolve(ctx, raw)
	if err != nil {
		m.logger.Error("pin configuration rejected", "code", ErrorCode(err), "error", err)
		return nil, err
	}

	pinner, err := pinning.NewPinner(&pinning.Config{
		Pins:              cfg,
		IncludeSubdomains: m.includeSubdomains,
		TLSConfig:         m.tlsConfig,
		Logger:            m.logger,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.pinner = pinner
	m.mu.Unlock()

	domains := cfg.Hostnames()
	m.lifecycle("pinning initialized", "domains", len(domains))
	return &Result{
		Message: MessageInitialized,
		Domains: domains,
		Enabled: true,
		Active:  true,
	}, nil
}

// resolve parses raw when supplied, otherwise the first payload of the
// source chain.
func (m *Manager) resolve(ctx context.Context, raw string) (*pinconfig.PinConfig, error) {
	loadCtx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()

	chain := m.chain
	if raw != "" {
		chain = pinconfig.NewChain(m.logger, &pinconfig.StaticSource{Payload: raw}, m.chain)
	}
	return pinconfig.LoadAndParse(loadCtx, chain)
}

// Pinner returns the installed pinner, or nil when none is active.
func (m *Manager) Pinner() *pinning.Pinner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pinner
}

// Status returns the current flag and installed configuration.
func (m *Manager) Status() Status {
	enabled, err := m.store.UsePinning()
	if err != nil {
		m.logger.Warn("failed to read pinning flag", "error", err)
	}

	m.mu.RLock()
	pinner := m.pinner
	id := m.factoryID
	m.mu.RUnlock()

	st := Status{Enabled: enabled, Domains: []string{}, FactoryID: id}
	if pinner != nil {
		st.Active = true
		st.Domains = pinner.Hostnames()
	}
	return st
}

// FactoryID identifies the current client factory generation. It changes
// every time the enable flag is written.
func (m *Manager) FactoryID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.factoryID
}

// HTTPClient returns a client with a cookie jar. While pinning is enabled
// the client enforces the installed configuration, or one resolved from the
// sources when none is installed. When no configuration can be resolved the
// failure is logged and an unpinned client is returned.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar, Timeout: m.httpTimeout}

	enabled, err := m.store.UsePinning()
	if err != nil {
		m.logger.Warn("failed to read pinning flag, using default", "error", err)
		enabled = settings.DefaultUsePinning
	}
	if !enabled {
		m.lifecycle("pinning disabled, issuing plain client")
		client.Transport = m.plainTransport()
		return client, nil
	}

	pinner := m.Pinner()
	if pinner == nil {
		cfg, err := m.resolve(ctx, "")
		if err == nil {
			pinner, err = pinning.NewPinner(&pinning.Config{
				Pins:              cfg,
				IncludeSubdomains: m.includeSubdomains,
				TLSConfig:         m.tlsConfig,
				Logger:            m.logger,
			})
		}
		if err != nil {
			m.logger.Error("pin configuration unavailable, issuing plain client",
				"code", ErrorCode(err), "error", err)
			client.Transport = m.plainTransport()
			return client, nil
		}
	}

	client.Transport = pinner.Transport(m.tlsConfig)
	m.lifecycle("issuing pinned client", "domains", len(pinner.Hostnames()), "factory_id", m.FactoryID())
	return client, nil
}

func (m *Manager) plainTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if m.tlsConfig != nil {
		transport.TLSClientConfig = m.tlsConfig.Clone()
	}
	return transport
}
