// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// maxConcurrentLookups bounds in-flight queries in DiscoverPins.
const maxConcurrentLookups = 8

// PinsFromRecords returns the "sha256/<base64>" pin of every SPKI SHA-256
// record, in record order with duplicates removed.
func PinsFromRecords(records []*TLSARecord) []string {
	var pins []string
	for _, rec := range records {
		if !rec.IsPin() {
			continue
		}
		pin := pinconfig.FormatDigest(base64.StdEncoding.EncodeToString(rec.CertData))
		if !slices.Contains(pins, pin) {
			pins = append(pins, pin)
		}
	}
	return pins
}

// DiscoverPins looks up TLSA records for every host concurrently and
// returns a hostname to pins map ready for pinconfig.New. Any host without
// pin records fails the whole discovery.
func DiscoverPins(ctx context.Context, resolver Lookuper, hosts []string, port uint16) (map[string][]string, error) {
	if len(hosts) == 0 {
		return nil, ErrInvalidHostname
	}

	var mu sync.Mutex
	result := make(map[string][]string, len(hosts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for _, host := range hosts {
		g.Go(func() error {
			records, err := resolver.LookupTLSA(gctx, host, port)
			if err != nil {
				return fmt.Errorf("%s: %w", host, err)
			}
			pins := PinsFromRecords(records)
			if len(pins) == 0 {
				return fmt.Errorf("%s: %w", host, ErrNoPinRecords)
			}
			mu.Lock()
			result[host] = pins
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateTLSARecord renders pin as a "usage 1 1" TLSA record for hostname
// and port. pin may carry the "sha256/" prefix or be a bare digest.
func GenerateTLSARecord(pin, hostname string, port uint16, usage uint8) (*TLSARecordString, error) {
	if hostname == "" {
		return nil, ErrInvalidHostname
	}
	if port == 0 {
		return nil, ErrInvalidPort
	}
	if usage > UsageDANEEE {
		return nil, ErrInvalidUsage
	}

	digest, err := pinconfig.ValidateDigest(withPrefix(pin))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPin, err)
	}
	raw, err := base64.StdEncoding.DecodeString(digest)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("%w: not a SHA-256 digest", ErrInvalidPin)
	}

	name := formatTLSAName(hostname, port)
	hexData := hex.EncodeToString(raw)
	return &TLSARecordString{
		Name:         name,
		Usage:        usage,
		Selector:     SelectorSPKI,
		MatchingType: MatchingSHA256,
		HexData:      hexData,
		ZoneLine:     fmt.Sprintf("%s IN TLSA %d %d %d %s", name, usage, SelectorSPKI, MatchingSHA256, hexData),
	}, nil
}

func withPrefix(pin string) string {
	pin = strings.TrimSpace(pin)
	if strings.HasPrefix(pin, pinconfig.DigestPrefix) {
		return pin
	}
	return pinconfig.DigestPrefix + pin
}
