// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package dane

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sslpinning/pkg/pinconfig"
)

// mockZone maps a TLSA owner name to the records served for it.
type mockZone map[string][]*dns.TLSA

// startMockDNS starts an in-process UDP DNS server answering TLSA queries
// from zone. The AD flag in responses is controlled by setAD.
func startMockDNS(t *testing.T, zone mockZone, setAD bool) string {
	t.Helper()

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.Authoritative = true
		m.AuthenticatedData = setAD

		for _, q := range r.Question {
			if q.Qtype != dns.TypeTLSA {
				continue
			}
			for _, rec := range zone[q.Name] {
				rr := *rec
				rr.Hdr = dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTLSA, Class: dns.ClassINET, Ttl: 300}
				m.Answer = append(m.Answer, &rr)
			}
		}
		if err := w.WriteMsg(m); err != nil {
			t.Logf("mock DNS: failed to write response: %v", err)
		}
	})
	return serveMockDNS(t, handler)
}

// startMockDNSWithRcode starts a DNS server that always returns rcode.
func startMockDNSWithRcode(t *testing.T, rcode int) string {
	t.Helper()
	return serveMockDNS(t, dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.Rcode = rcode
		_ = w.WriteMsg(m)
	}))
}

func serveMockDNS(t *testing.T, handler dns.Handler) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{PacketConn: pc, Handler: handler}
	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }

	go func() {
		_ = server.ActivateAndServe()
	}()

	<-started
	t.Cleanup(func() { server.Shutdown() })
	return pc.LocalAddr().String()
}

func spkiDigest(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}

func pinRecord(usage uint8, digest []byte) *dns.TLSA {
	return &dns.TLSA{
		Usage:        usage,
		Selector:     SelectorSPKI,
		MatchingType: MatchingSHA256,
		Certificate:  hex.EncodeToString(digest),
	}
}

func expectedPin(digest []byte) string {
	return pinconfig.FormatDigest(base64.StdEncoding.EncodeToString(digest))
}

func newTestResolver(t *testing.T, addr string, requireAD bool) *Resolver {
	t.Helper()
	r, err := NewResolver(&ResolverConfig{Server: addr, RequireAD: requireAD, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return r
}

func TestNewResolver(t *testing.T) {
	_, err := NewResolver(nil)
	assert.ErrorIs(t, err, ErrResolverConfig)

	tests := []struct {
		name   string
		cfg    ResolverConfig
		server string
		net    string
	}{
		{"udp without port", ResolverConfig{Server: "8.8.8.8"}, "8.8.8.8:53", "udp"},
		{"udp with port", ResolverConfig{Server: "8.8.8.8:5353"}, "8.8.8.8:5353", "udp"},
		{"dot without port", ResolverConfig{Server: "dns.example.com", UseTLS: true, TLSServerName: "dns.example.com"}, "dns.example.com:853", "tcp-tls"},
		{"dot with port", ResolverConfig{Server: "dns.example.com:8853", UseTLS: true}, "dns.example.com:8853", "tcp-tls"},
		{"ipv6 without port", ResolverConfig{Server: "::1"}, "[::1]:53", "udp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(&tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.server, r.Server())
			assert.Equal(t, tt.net, r.client.Net)
			assert.Equal(t, defaultTimeout, r.client.Timeout)
			if tt.cfg.UseTLS {
				require.NotNil(t, r.client.TLSConfig)
				assert.Equal(t, tt.cfg.TLSServerName, r.client.TLSConfig.ServerName)
			}
		})
	}
}

func TestNewResolver_SystemResolver(t *testing.T) {
	// Environments without /etc/resolv.conf report a configuration error.
	r, err := NewResolver(&ResolverConfig{})
	if err != nil {
		assert.ErrorIs(t, err, ErrResolverConfig)
		return
	}
	assert.NotEmpty(t, r.Server())
}

func TestLookupTLSA(t *testing.T) {
	digest := spkiDigest("api")
	addr := startMockDNS(t, mockZone{
		"_443._tcp.api.example.com.": {pinRecord(UsageDANEEE, digest)},
	}, true)
	r := newTestResolver(t, addr, true)

	records, err := r.LookupTLSA(context.Background(), "api.example.com", 443)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, UsageDANEEE, records[0].Usage)
	assert.Equal(t, digest, records[0].CertData)
	assert.True(t, records[0].IsPin())
}

func TestLookupTLSA_Errors(t *testing.T) {
	addr := startMockDNS(t, mockZone{
		"_443._tcp.api.example.com.": {pinRecord(UsageDANEEE, spkiDigest("api"))},
	}, false)

	t.Run("AD required", func(t *testing.T) {
		_, err := newTestResolver(t, addr, true).LookupTLSA(context.Background(), "api.example.com", 443)
		assert.ErrorIs(t, err, ErrDNSSECRequired)
	})

	t.Run("no records", func(t *testing.T) {
		_, err := newTestResolver(t, addr, false).LookupTLSA(context.Background(), "other.example.com", 443)
		assert.ErrorIs(t, err, ErrNoTLSARecords)
	})

	t.Run("invalid input", func(t *testing.T) {
		r := newTestResolver(t, addr, false)
		_, err := r.LookupTLSA(context.Background(), "", 443)
		assert.ErrorIs(t, err, ErrInvalidHostname)
		_, err = r.LookupTLSA(context.Background(), strings.Repeat("a", 254), 443)
		assert.ErrorIs(t, err, ErrInvalidHostname)
		_, err = r.LookupTLSA(context.Background(), "api.example.com", 0)
		assert.ErrorIs(t, err, ErrInvalidPort)
	})

	t.Run("servfail", func(t *testing.T) {
		failing := startMockDNSWithRcode(t, dns.RcodeServerFailure)
		_, err := newTestResolver(t, failing, false).LookupTLSA(context.Background(), "api.example.com", 443)
		assert.ErrorIs(t, err, ErrDNSLookupFailed)
		assert.Contains(t, err.Error(), "SERVFAIL")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestResolver(t, addr, false).LookupTLSA(ctx, "api.example.com", 443)
		assert.ErrorIs(t, err, ErrDNSLookupFailed)
	})
}

func TestPinsFromRecords(t *testing.T) {
	a := spkiDigest("a")
	b := spkiDigest("b")
	records := []*TLSARecord{
		{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingSHA256, CertData: a},
		{Usage: UsageDANETA, Selector: SelectorFullCert, MatchingType: MatchingSHA256, CertData: b},
		{Usage: UsageDANEEE, Selector: SelectorSPKI, MatchingType: MatchingSHA512, CertData: b},
		{Usage: UsageDANETA, Selector: SelectorSPKI, MatchingType: MatchingSHA256, CertData: a},
		{Usage: UsageServiceCert, Selector: SelectorSPKI, MatchingType: MatchingSHA256, CertData: b},
		nil,
	}

	pins := PinsFromRecords(records)
	assert.Equal(t, []string{expectedPin(a), expectedPin(b)}, pins)
	for _, pin := range pins {
		_, err := pinconfig.ValidateDigest(pin)
		assert.NoError(t, err)
	}
}

func TestDiscoverPins(t *testing.T) {
	api := spkiDigest("api")
	cdn := spkiDigest("cdn")
	addr := startMockDNS(t, mockZone{
		"_443._tcp.api.example.com.": {pinRecord(UsageDANEEE, api)},
		"_443._tcp.cdn.example.com.": {pinRecord(UsageDANETA, cdn), pinRecord(UsageDANEEE, api)},
		"_443._tcp.raw.example.com.": {{Usage: UsageDANEEE, Selector: SelectorFullCert, MatchingType: MatchingSHA256, Certificate: hex.EncodeToString(api)}},
	}, true)
	r := newTestResolver(t, addr, true)

	pins, err := DiscoverPins(context.Background(), r, []string{"api.example.com", "cdn.example.com"}, 443)
	require.NoError(t, err)
	assert.Equal(t, []string{expectedPin(api)}, pins["api.example.com"])
	assert.Equal(t, []string{expectedPin(cdn), expectedPin(api)}, pins["cdn.example.com"])

	cfg, err := pinconfig.New(pins)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Len())

	_, err = DiscoverPins(context.Background(), r, []string{"api.example.com", "raw.example.com"}, 443)
	assert.ErrorIs(t, err, ErrNoPinRecords)

	_, err = DiscoverPins(context.Background(), r, []string{"missing.example.com"}, 443)
	assert.ErrorIs(t, err, ErrNoTLSARecords)

	_, err = DiscoverPins(context.Background(), r, nil, 443)
	assert.ErrorIs(t, err, ErrInvalidHostname)
}

func TestGenerateTLSARecord(t *testing.T) {
	digest := spkiDigest("api")
	pin := expectedPin(digest)

	rec, err := GenerateTLSARecord(pin, "api.example.com", 443, UsageDANEEE)
	require.NoError(t, err)
	assert.Equal(t, "_443._tcp.api.example.com.", rec.Name)
	assert.Equal(t, hex.EncodeToString(digest), rec.HexData)
	assert.Equal(t, "_443._tcp.api.example.com. IN TLSA 3 1 1 "+rec.HexData, rec.ZoneLine)

	bare, err := GenerateTLSARecord(strings.TrimPrefix(pin, pinconfig.DigestPrefix), "api.example.com.", 443, UsageDANEEE)
	require.NoError(t, err)
	assert.Equal(t, rec.ZoneLine, bare.ZoneLine)

	rr, err := dns.NewRR(rec.ZoneLine)
	require.NoError(t, err)
	tlsa, ok := rr.(*dns.TLSA)
	require.True(t, ok)
	assert.Equal(t, SelectorSPKI, tlsa.Selector)
}

func TestGenerateTLSARecord_Errors(t *testing.T) {
	pin := expectedPin(spkiDigest("api"))

	_, err := GenerateTLSARecord(pin, "", 443, UsageDANEEE)
	assert.ErrorIs(t, err, ErrInvalidHostname)
	_, err = GenerateTLSARecord(pin, "api.example.com", 0, UsageDANEEE)
	assert.ErrorIs(t, err, ErrInvalidPort)
	_, err = GenerateTLSARecord(pin, "api.example.com", 443, 4)
	assert.ErrorIs(t, err, ErrInvalidUsage)

	_, err = GenerateTLSARecord("sha256/short", "api.example.com", 443, UsageDANEEE)
	assert.ErrorIs(t, err, ErrInvalidPin)
	assert.ErrorIs(t, err, pinconfig.ErrWrongLength)

	_, err = GenerateTLSARecord("sha256/"+strings.Repeat("A", 44), "api.example.com", 443, UsageDANEEE)
	assert.ErrorIs(t, err, ErrInvalidPin)
}
