// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package noiseproto

import "github.com/flynn/noise"

// WipeBytes zeros b in place. The runtime may already hold copies.
func WipeBytes(b []byte) {
	clear(b)
}

// WipeDHKey zeros both halves of key. A nil key is ignored.
func WipeDHKey(key *noise.DHKey) {
	if key == nil {
		return
	}
	WipeBytes(key.Private)
	WipeBytes(key.Public)
}
