// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinconfig

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDigest  = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	testDigest2 = "r/mIkG3eEpVdm+u/ko/cwxzOMo1bk4TyHIlByibiA5E="
)

func TestParse_SingleHostname(t *testing.T) {
	cfg, err := Parse(`{"sha256Keys":{"example.com":["sha256/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="]}}`)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Len())
	assert.Equal(t, []string{"example.com"}, cfg.Hostnames())
	assert.Equal(t, []string{testDigest}, cfg.Pins("example.com"))
	assert.Len(t, cfg.Pins("example.com")[0], DigestLength)
}

func TestParse_EmptyPinMap(t *testing.T) {
	cfg, err := Parse(`{"sha256Keys":{}}`)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.NotErrorIs(t, err, ErrInvalidPinConfiguration)
}

func TestParse_MissingPrefix(t *testing.T) {
	cfg, err := Parse(`{"sha256Keys":{"example.com":["not-a-pin"]}}`)
	assert.Nil(t, cfg)
	require.ErrorIs(t, err, ErrInvalidPinConfiguration)
	assert.ErrorIs(t, err, ErrMissingPrefix)

	var pinErr *PinError
	require.True(t, errors.As(err, &pinErr))
	assert.Equal(t, "example.com", pinErr.Hostname)
}

func TestParse_MalformedJSON(t *testing.T) {
	inputs := []string{
		`{"sha256Keys":{"example.com":["sha256/` + testDigest + `"]}`,
		`not json at all`,
		``,
		`null`,
		`[]`,
		`"sha256Keys"`,
	}
	for _, in := range inputs {
		cfg, err := Parse(in)
		assert.Nil(t, cfg, "input %q", in)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "input %q", in)
	}
}

func TestParse_EmbeddedNewlinesAndEscapedQuotes(t *testing.T) {
	raw := "{\\\"sha256Keys\\\":\n  {\\\"example.com\\\": [\n    \\\"sha256/" + testDigest + "\\\"\n  ]}\n}"

	cfg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{testDigest}, cfg.Pins("example.com"))
}

func TestParse_PipeArtifacts(t *testing.T) {
	raw := "| {\"sha256Keys\": {\n| \"api.example.com\": [\"sha256/" + testDigest2 + "\"]\n| }}"

	cfg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{testDigest2}, cfg.Pins("api.example.com"))
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing key", `{"pins":{"example.com":["sha256/` + testDigest + `"]}}`},
		{"pin map is array", `{"sha256Keys":["sha256/` + testDigest + `"]}`},
		{"pin map is null", `{"sha256Keys":null}`},
		{"pins are string", `{"sha256Keys":{"example.com":"sha256/` + testDigest + `"}}`},
		{"pins are null", `{"sha256Keys":{"example.com":null}}`},
		{"pins contain number", `{"sha256Keys":{"example.com":[42]}}`},
		{"pins contain null", `{"sha256Keys":{"example.com":[null]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.raw)
			assert.Nil(t, cfg)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestParse_EmptyPinArray(t *testing.T) {
	cfg, err := Parse(`{"sha256Keys":{"example.com":[]}}`)
	assert.Nil(t, cfg)
	require.ErrorIs(t, err, ErrInvalidPinConfiguration)
	assert.ErrorIs(t, err, ErrNoPins)

	var pinErr *PinError
	require.True(t, errors.As(err, &pinErr))
	assert.Equal(t, "example.com", pinErr.Hostname)
}

func TestParse_LengthBoundaries(t *testing.T) {
	for _, n := range []int{43, 45} {
		digest := strings.Repeat("A", n)
		raw := `{"sha256Keys":{"example.com":["sha256/` + digest + `"]}}`

		cfg, err := Parse(raw)
		assert.Nil(t, cfg, "length %d", n)
		assert.ErrorIs(t, err, ErrInvalidPinConfiguration, "length %d", n)
		assert.ErrorIs(t, err, ErrWrongLength, "length %d", n)
	}
}

func TestParse_NotBase64(t *testing.T) {
	digest := strings.Repeat("A", 43) + "-"
	cfg, err := Parse(`{"sha256Keys":{"example.com":["sha256/` + digest + `"]}}`)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrNotBase64)
}

func TestParse_AllOrNothing(t *testing.T) {
	raw := `{"sha256Keys":{
		"good.example.com":["sha256/` + testDigest + `"],
		"bad.example.com":["sha256/` + testDigest + `","sha256/short"]
	}}`

	cfg, err := Parse(raw)
	assert.Nil(t, cfg)

	var pinErr *PinError
	require.True(t, errors.As(err, &pinErr))
	assert.Equal(t, "bad.example.com", pinErr.Hostname)
}

func TestParse_ReportsFirstInvalidHostnameInSortedOrder(t *testing.T) {
	raw := `{"sha256Keys":{"zeta.example.com":[],"alpha.example.com":[]}}`

	_, err := Parse(raw)
	var pinErr *PinError
	require.True(t, errors.As(err, &pinErr))
	assert.Equal(t, "alpha.example.com", pinErr.Hostname)
}

func TestParse_TrimsPins(t *testing.T) {
	cfg, err := Parse(`{"sha256Keys":{"example.com":[" sha256/` + testDigest + ` "]}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{testDigest}, cfg.Pins("example.com"))
}

func TestParse_DuplicateHostnameLastWins(t *testing.T) {
	raw := `{"sha256Keys":{"example.com":["sha256/` + testDigest + `"],"example.com":["sha256/` + testDigest2 + `"]}}`

	cfg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{testDigest2}, cfg.Pins("example.com"))
}

func TestParse_HostnamesCaseSensitive(t *testing.T) {
	raw := `{"sha256Keys":{"Example.com":["sha256/` + testDigest + `"],"example.com":["sha256/` + testDigest2 + `"]}}`

	cfg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Len())
	assert.Equal(t, []string{testDigest}, cfg.Pins("Example.com"))
	assert.Equal(t, []string{testDigest2}, cfg.Pins("example.com"))
}

func TestParse_SameDigestAcrossHostnames(t *testing.T) {
	raw := `{"sha256Keys":{"a.example.com":["sha256/` + testDigest + `"],"b.example.com":["sha256/` + testDigest + `"]}}`

	cfg, err := Parse(raw)
	require.NoError(t, err)

	pins := cfg.Pins("a.example.com")
	pins[0] = "mutated"
	assert.Equal(t, []string{testDigest}, cfg.Pins("a.example.com"))
	assert.Equal(t, []string{testDigest}, cfg.Pins("b.example.com"))
}

func TestParse_PreservesPinOrder(t *testing.T) {
	raw := `{"sha256Keys":{"example.com":["sha256/` + testDigest2 + `","sha256/` + testDigest + `"]}}`

	cfg, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{testDigest2, testDigest}, cfg.Pins("example.com"))
}

func TestParse_Idempotent(t *testing.T) {
	raw := `{"sha256Keys":{"example.com":["sha256/` + testDigest + `","sha256/` + testDigest2 + `"],"api.example.org":["sha256/` + testDigest2 + `"]}}`

	first, err := Parse(raw)
	require.NoError(t, err)
	second, err := Parse(raw)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Map(), second.Map())
}

func TestParse_PrefixRoundTrip(t *testing.T) {
	pins := []string{"sha256/" + testDigest, "sha256/" + testDigest2}
	raw, err := json.Marshal(map[string]map[string][]string{PinMapKey: {"example.com": pins}})
	require.NoError(t, err)

	cfg, err := Parse(string(raw))
	require.NoError(t, err)

	for i, digest := range cfg.Pins("example.com") {
		assert.Equal(t, pins[i], FormatDigest(digest))
		assert.Len(t, digest, DigestLength)
		assert.True(t, isBase64Alphabet(digest))
	}
}

func TestParse_ConcurrentUse(t *testing.T) {
	raw := `{"sha256Keys":{"example.com":["sha256/` + testDigest + `"]}}`

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := Parse(raw)
			assert.NoError(t, err)
			assert.Equal(t, 1, cfg.Len())
		}()
	}
	wg.Wait()
}

func TestPinConfig_MarshalJSON(t *testing.T) {
	raw := `{"sha256Keys":{"example.com":["sha256/` + testDigest + `"]}}`
	cfg, err := Parse(raw)
	require.NoError(t, err)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(data))

	reparsed, err := Parse(string(data))
	require.NoError(t, err)
	assert.True(t, cfg.Equal(reparsed))
}

func TestPinConfig_PinsUnknownHostname(t *testing.T) {
	cfg, err := New(map[string][]string{"example.com": {"sha256/" + testDigest}})
	require.NoError(t, err)
	assert.Nil(t, cfg.Pins("other.example.com"))
}

func TestPinConfig_Equal(t *testing.T) {
	a, err := New(map[string][]string{"example.com": {"sha256/" + testDigest}})
	require.NoError(t, err)
	b, err := New(map[string][]string{"example.com": {"sha256/" + testDigest2}})
	require.NoError(t, err)
	c, err := New(map[string][]string{"example.org": {"sha256/" + testDigest}})
	require.NoError(t, err)

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestNew_Empty(t *testing.T) {
	cfg, err := New(nil)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestPinError_MessageOmitsPin(t *testing.T) {
	_, err := Parse(`{"sha256Keys":{"example.com":["secret-looking-value"]}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example.com")
	assert.NotContains(t, err.Error(), "secret-looking-value")
}
