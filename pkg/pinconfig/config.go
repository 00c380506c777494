// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// PinMapKey is the top-level JSON key holding the hostname to pin map.
const PinMapKey = "sha256Keys"

// PinConfig is a validated pin configuration. Every hostname has at least
// one digest and every digest is a bare 44-character base64 SHA-256 value.
// A PinConfig is immutable; accessors return copies.
type PinConfig struct {
	entries map[string][]string
}

// Parse cleans raw, parses it as a pin configuration and validates every
// digest. It returns ErrInvalidConfiguration when the payload is not a JSON
// object with a non-empty "sha256Keys" object of string arrays, and a
// *PinError when any hostname's pins violate the digest rules. Parse has no
// side effects and is safe for concurrent use.
func Parse(raw string) (*PinConfig, error) {
	cleaned := Clean(raw)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrInvalidConfiguration)
	}

	rawKeys, ok := doc[PinMapKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidConfiguration, PinMapKey)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(rawKeys, &keys); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, PinMapKey, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidConfiguration, PinMapKey)
	}

	rawPins := make(map[string][]string, len(keys))
	for hostname, value := range keys {
		pins, err := decodeStringArray(value)
		if err != nil {
			return nil, fmt.Errorf("%w: pins for %s: %w", ErrInvalidConfiguration, hostname, err)
		}
		rawPins[hostname] = pins
	}

	return New(rawPins)
}

// decodeStringArray decodes a JSON array whose every element is a string.
// null elements are rejected rather than decoded as empty strings.
func decodeStringArray(value json.RawMessage) ([]string, error) {
	if !isJSONKind(value, '[') {
		return nil, errors.New("not an array")
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(value, &elems); err != nil {
		return nil, err
	}
	pins := make([]string, 0, len(elems))
	for i, elem := range elems {
		if !isJSONKind(elem, '"') {
			return nil, fmt.Errorf("element %d is not a string", i)
		}
		var pin string
		if err := json.Unmarshal(elem, &pin); err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

// New validates a hostname to raw pin map and returns the normalized
// configuration. Hostnames are validated in sorted order so the reported
// hostname is deterministic.
func New(pins map[string][]string) (*PinConfig, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("%w: no hostnames", ErrInvalidConfiguration)
	}

	hostnames := make([]string, 0, len(pins))
	for hostname := range pins {
		hostnames = append(hostnames, hostname)
	}
	sort.Strings(hostnames)

	entries := make(map[string][]string, len(pins))
	for _, hostname := range hostnames {
		raw := pins[hostname]
		if len(raw) == 0 {
			return nil, &PinError{Hostname: hostname, Err: ErrNoPins}
		}
		digests := make([]string, 0, len(raw))
		for _, pin := range raw {
			digest, err := ValidateDigest(pin)
			if err != nil {
				return nil, &PinError{Hostname: hostname, Err: err}
			}
			digests = append(digests, digest)
		}
		entries[hostname] = digests
	}

	return &PinConfig{entries: entries}, nil
}

// Hostnames returns the configured hostnames in sorted order.
func (c *PinConfig) Hostnames() []string {
	hostnames := make([]string, 0, len(c.entries))
	for hostname := range c.entries {
		hostnames = append(hostnames, hostname)
	}
	sort.Strings(hostnames)
	return hostnames
}

// Pins returns the normalized digests for hostname, or nil when the
// hostname is not configured.
func (c *PinConfig) Pins(hostname string) []string {
	digests, ok := c.entries[hostname]
	if !ok {
		return nil
	}
	return slices.Clone(digests)
}

// Len returns the number of configured hostnames.
func (c *PinConfig) Len() int {
	return len(c.entries)
}

// Map returns a deep copy of the hostname to digest mapping.
func (c *PinConfig) Map() map[string][]string {
	out := make(map[string][]string, len(c.entries))
	for hostname, digests := range c.entries {
		out[hostname] = slices.Clone(digests)
	}
	return out
}

// Equal reports whether two configurations hold the same hostnames with the
// same digests in the same order.
func (c *PinConfig) Equal(other *PinConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.entries) != len(other.entries) {
		return false
	}
	for hostname, digests := range c.entries {
		otherDigests, ok := other.entries[hostname]
		if !ok || !slices.Equal(digests, otherDigests) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the configuration in its wire format with the
// "sha256/" prefix restored on every digest.
func (c *PinConfig) MarshalJSON() ([]byte, error) {
	keys := make(map[string][]string, len(c.entries))
	for hostname, digests := range c.entries {
		raw := make([]string, len(digests))
		for i, d := range digests {
			raw[i] = FormatDigest(d)
		}
		keys[hostname] = raw
	}
	return json.Marshal(map[string]map[string][]string{PinMapKey: keys})
}

// isJSONKind reports whether a raw JSON value starts with the given
// delimiter, ignoring leading whitespace.
func isJSONKind(value json.RawMessage, delim byte) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) > 0 && trimmed[0] == delim
}
