// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jeremyhahn/go-sslpinning/pkg/noiseproto"
)

// Server answers pin configuration requests as the NK responder.
type Server struct {
	config  *ServerConfig
	handler *Handler
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	limiter  *ipLimiter
	conns    map[net.Conn]struct{}
	slots    chan struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

// NewServer validates cfg and applies defaults. StaticKey is required.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil || cfg.StaticKey == nil {
		return nil, fmt.Errorf("%w: static key is required", ErrHandshakeFailed)
	}
	if len(cfg.StaticKey.Private) != noiseproto.KeySize {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, noiseproto.ErrInvalidKeySize)
	}
	cfg.applyDefaults()

	logger := cfg.Logger.With("component", "pinsync_server")
	return &Server{
		config:  cfg,
		handler: NewHandler(cfg.Source, logger),
		logger:  logger,
	}, nil
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return ErrServerAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %w", ErrConnectionFailed, s.config.ListenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listener = ln
	s.cancel = cancel
	s.limiter = newIPLimiter(s.config.RateLimit, s.config.RateBurst, limiterStaleAge, limiterCleanupInterval)
	s.conns = make(map[net.Conn]struct{})
	s.slots = make(chan struct{}, s.config.MaxConnections)

	s.wg.Add(1)
	go s.acceptLoop(ctx, ln)

	s.logger.Info("pin sync server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for
// connection goroutines until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.listener == nil {
		s.mu.Unlock()
		return ErrServerNotStarted
	}
	ln := s.listener
	s.listener = nil
	s.cancel()
	s.limiter.Stop()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	err := ln.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("pin sync server stopped")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		remote := remoteIP(conn)
		if !s.limiter.Allow(remote) {
			s.logger.Warn("connection rejected", "remote", remote, "error", ErrRateLimited)
			conn.Close()
			continue
		}

		select {
		case s.slots <- struct{}{}:
		default:
			s.logger.Warn("connection rejected", "remote", remote, "error", ErrMaxConnections)
			conn.Close()
			continue
		}

		if !s.track(conn) {
			<-s.slots
			conn.Close()
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			defer s.untrack(conn)
			s.serve(ctx, conn)
		}()
	}
}

// track registers conn unless the server is stopping.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// serve completes the handshake and answers requests until the client
// closes the connection or a frame deadline passes.
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())

	session, err := s.handshake(conn)
	if err != nil {
		logger.Warn("handshake failed", "error", err)
		return
	}
	logger.Debug("handshake complete")

	for {
		ciphertext, err := ReadFrame(conn, time.Now().Add(s.config.ReadTimeout))
		if err != nil {
			logger.Debug("connection closed", "error", err)
			return
		}
		plaintext, err := session.Decrypt(ciphertext)
		if err != nil {
			logger.Warn("dropping connection", "error", err)
			return
		}

		resp := s.dispatch(ctx, plaintext)
		payload, err := json.Marshal(resp)
		if err != nil {
			logger.Error("encode response", "error", err)
			return
		}
		sealed, err := session.Encrypt(payload)
		if err != nil {
			logger.Error("encrypt response", "error", err)
			return
		}
		if err := WriteFrame(conn, sealed, time.Now().Add(s.config.WriteTimeout)); err != nil {
			logger.Debug("write response", "error", err)
			return
		}
	}
}

func (s *Server) handshake(conn net.Conn) (*noiseproto.Session, error) {
	session, err := noiseproto.NewSession(&noiseproto.SessionConfig{
		Role:      noiseproto.Responder,
		StaticKey: s.config.StaticKey,
		Prologue:  prologue,
	})
	if err != nil {
		return nil, err
	}

	msg1, err := ReadFrame(conn, time.Now().Add(s.config.ReadTimeout))
	if err != nil {
		return nil, err
	}
	if err := session.ReadHandshake(msg1); err != nil {
		return nil, err
	}
	msg2, err := session.WriteHandshake()
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, msg2, time.Now().Add(s.config.WriteTimeout)); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Server) dispatch(ctx context.Context, plaintext []byte) *Response {
	var req Request
	if err := json.Unmarshal(plaintext, &req); err != nil {
		return &Response{Error: fmt.Errorf("%w: %w", ErrInvalidRequest, err).Error()}
	}
	resp, err := s.handler.Handle(ctx, &req)
	if err != nil {
		return &Response{Error: err.Error()}
	}
	return resp
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
