// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-sslpinning/pkg/dane"
	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

const (
	// defaultDANEPort is the default TLS port for TLSA lookups.
	defaultDANEPort = 443

	// defaultDANEResolveTimeout bounds all lookups of one dane pins run.
	defaultDANEResolveTimeout = 10 * time.Second
)

var (
	daneHostnames     []string
	danePort          uint16
	daneDNSServer     string
	daneUseTLS        bool
	daneTLSServerName string
	daneRequireAD     bool

	daneRecordPin      string
	daneRecordHostname string
	daneRecordPort     uint16
	daneRecordUsage    uint8
)

// daneCmd is the parent command for DANE/TLSA operations.
var daneCmd = &cobra.Command{
	Use:   "dane",
	Short: "DANE/TLSA pin discovery and publishing",
	Long: `Discover pins from DNS TLSA records (RFC 6698) and render pins as
TLSA records for zone publishing.

Subcommands:
  pins   - Build a pin configuration from TLSA records
  record - Render a pin as a TLSA zone line`,
}

var danePinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "Build a pin configuration from TLSA records",
	Long: `Query _<port>._tcp.<hostname> TLSA records for every --hostname and
print a pin configuration built from the SPKI SHA-256 records. Every host
must publish at least one such record.`,
	RunE: runDANEPins,
}

var daneRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Render a pin as a TLSA zone line",
	RunE:  runDANERecord,
}

func init() {
	daneCmd.AddCommand(danePinsCmd)
	daneCmd.AddCommand(daneRecordCmd)

	danePinsCmd.Flags().StringSliceVar(&daneHostnames, "hostname", nil, "hostname to look up (repeatable, required)")
	danePinsCmd.Flags().Uint16Var(&danePort, "port", defaultDANEPort, "TLS port")
	danePinsCmd.Flags().StringVar(&daneDNSServer, "dns-server", "", "DNS server (default: system resolver)")
	danePinsCmd.Flags().BoolVar(&daneUseTLS, "dot", false, "use DNS-over-TLS")
	danePinsCmd.Flags().StringVar(&daneTLSServerName, "tls-server-name", "", "SNI for DNS-over-TLS")
	danePinsCmd.Flags().BoolVar(&daneRequireAD, "require-ad", false, "require DNSSEC authenticated data")

	daneRecordCmd.Flags().StringVar(&daneRecordPin, "pin", "", "pin, with or without the sha256/ prefix (required)")
	daneRecordCmd.Flags().StringVar(&daneRecordHostname, "hostname", "", "hostname (required)")
	daneRecordCmd.Flags().Uint16Var(&daneRecordPort, "port", defaultDANEPort, "TLS port")
	daneRecordCmd.Flags().Uint8Var(&daneRecordUsage, "usage", dane.UsageDANEEE, "TLSA certificate usage (0-3)")
}

func runDANEPins(cmd *cobra.Command, args []string) error {
	if len(daneHostnames) == 0 {
		return fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}

	resolver, err := dane.NewResolver(&dane.ResolverConfig{
		Server:        daneDNSServer,
		UseTLS:        daneUseTLS,
		TLSServerName: daneTLSServerName,
		RequireAD:     daneRequireAD,
		Logger:        slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()
	ctx, cancel := context.WithTimeout(sigCtx, defaultDANEResolveTimeout)
	defer cancel()

	slog.Debug("discovering pins", "hosts", len(daneHostnames), "server", resolver.Server())

	pins, err := dane.DiscoverPins(ctx, resolver, daneHostnames, danePort)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	cfg, err := pinconfig.New(pins)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, append(data, '\n'))
}

func runDANERecord(cmd *cobra.Command, args []string) error {
	if daneRecordPin == "" {
		return fmt.Errorf("%w: --pin is required", ErrInvalidInput)
	}
	rec, err := dane.GenerateTLSARecord(daneRecordPin, daneRecordHostname, daneRecordPort, daneRecordUsage)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return writeOutput(cmd, []byte(rec.ZoneLine+"\n"))
}
