// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinning"
)

// defaultPinFetchTimeout bounds the TLS handshake of pin fetch.
const defaultPinFetchTimeout = 15 * time.Second

var (
	pinCertFile   string
	pinAddr       string
	pinCAFile     string
	pinServerName string
	pinInsecure   bool
)

// pinCmd is the parent command for SPKI pin operations.
var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "SPKI pin operations",
	Long: `Compute "sha256/<base64>" pins as used in a pin configuration.

Subcommands:
  show  - Compute the pin of a PEM certificate file
  fetch - Connect to a TLS server and print the pins of its chain`,
}

var pinShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the SPKI pin of a PEM certificate file",
	RunE:  runPinShow,
}

var pinFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the SPKI pins of a server's certificate chain",
	Long: `Complete a TLS handshake with --addr and print the pin of every
certificate the server presents, leaf first. Use --insecure to inspect
servers whose chain does not verify.`,
	RunE: runPinFetch,
}

func init() {
	pinCmd.AddCommand(pinShowCmd)
	pinCmd.AddCommand(pinFetchCmd)

	pinShowCmd.Flags().StringVar(&pinCertFile, "cert-file", "", "path to PEM certificate file (required)")

	pinFetchCmd.Flags().StringVar(&pinAddr, "addr", "", "server address host:port (required)")
	pinFetchCmd.Flags().StringVar(&pinCAFile, "ca-file", "", "PEM roots to trust instead of the system pool")
	pinFetchCmd.Flags().StringVar(&pinServerName, "server-name", "", "TLS server name (default: host of --addr)")
	pinFetchCmd.Flags().BoolVar(&pinInsecure, "insecure", false, "skip chain verification")
}

func runPinShow(cmd *cobra.Command, args []string) error {
	if pinCertFile == "" {
		return fmt.Errorf("%w: --cert-file is required", ErrInvalidInput)
	}

	cert, err := loadCertFromPEMFile(pinCertFile)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pin:     %s\n", pinning.FormatPin(cert))
	fmt.Fprintf(&b, "Subject: %s\n", cert.Subject.String())
	fmt.Fprintf(&b, "Issuer:  %s\n", cert.Issuer.String())
	return writeOutput(cmd, []byte(b.String()))
}

func runPinFetch(cmd *cobra.Command, args []string) error {
	if pinAddr == "" {
		return fmt.Errorf("%w: --addr is required", ErrInvalidInput)
	}
	host, _, err := net.SplitHostPort(pinAddr)
	if err != nil {
		return fmt.Errorf("%w: invalid --addr: %w", ErrInvalidInput, err)
	}

	conf, err := loadTLSConfig(pinCAFile)
	if err != nil {
		return err
	}
	if conf == nil {
		conf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	conf.ServerName = host
	if pinServerName != "" {
		conf.ServerName = pinServerName
	}
	conf.InsecureSkipVerify = pinInsecure

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()
	ctx, cancel := context.WithTimeout(sigCtx, defaultPinFetchTimeout)
	defer cancel()

	slog.Debug("fetching certificate chain", "addr", pinAddr, "insecure", pinInsecure)

	dialer := &tls.Dialer{Config: conf}
	conn, err := dialer.DialContext(ctx, "tcp", pinAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	var b strings.Builder
	for _, cert := range certs {
		fmt.Fprintf(&b, "%s\t%s\n", pinning.FormatPin(cert), cert.Subject.String())
	}
	return writeOutput(cmd, []byte(b.String()))
}

// loadCertFromPEMFile reads the first CERTIFICATE block of a PEM file.
func loadCertFromPEMFile(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrFileOperation, path, err)
	}

	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no certificate in %s", ErrInvalidInput, path)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing certificate: %w", ErrInvalidInput, err)
		}
		return cert, nil
	}
}
