// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package pinconfig

import "strings"

// artifactReplacer removes transport artifacts in a single left-to-right
// pass, in the order they are listed.
var artifactReplacer = []struct {
	old string
	new string
}{
	{"\r", ""},
	{"\n", ""},
	{"| ", ""},
	{"\\ ", ""},
	{"\\\"", "\""},
}

// Clean normalizes formatting artifacts that upstream transports leave in a
// configuration payload: embedded newlines, "| " sequences, backslash-space
// sequences and escaped double quotes. Backslashes not followed by a quote
// are dropped and double spaces are collapsed. Clean is best-effort and is
// applied before structural parsing.
func Clean(raw string) string {
	cleaned := raw
	for _, r := range artifactReplacer {
		cleaned = strings.ReplaceAll(cleaned, r.old, r.new)
	}
	cleaned = dropStrayBackslashes(cleaned)
	return strings.ReplaceAll(cleaned, "  ", " ")
}

// dropStrayBackslashes removes every backslash that is not immediately
// followed by a double quote.
func dropStrayBackslashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && (i+1 >= len(s) || s[i+1] != '"') {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
