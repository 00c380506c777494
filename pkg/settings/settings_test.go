// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package settings

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overridePayload = `{"sha256Keys":{"example.com":["sha256/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="]}}`

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	enabled, err := s.UsePinning()
	require.NoError(t, err)
	assert.True(t, enabled, "flag defaults to enabled")

	require.NoError(t, s.SetUsePinning(false))
	enabled, err = s.UsePinning()
	require.NoError(t, err)
	assert.False(t, enabled)

	override, err := s.ConfigOverride()
	require.NoError(t, err)
	assert.Empty(t, override)

	require.NoError(t, s.SetConfigOverride(overridePayload))
	override, err = s.ConfigOverride()
	require.NoError(t, err)
	assert.Equal(t, overridePayload, override)

	enabled, err = s.UsePinning()
	require.NoError(t, err)
	assert.False(t, enabled, "override write keeps the flag")

	require.NoError(t, s.SetUsePinning(true))
	require.NoError(t, s.SetConfigOverride(""))
	override, err = s.ConfigOverride()
	require.NoError(t, err)
	assert.Empty(t, override)
	enabled, err = s.UsePinning()
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore_Formats(t *testing.T) {
	for _, name := range []string{"settings.json", "settings.yaml", "settings.yml", "settings.toml", "settings.conf"} {
		t.Run(name, func(t *testing.T) {
			s, err := NewFileStore(filepath.Join(t.TempDir(), name))
			require.NoError(t, err)
			exerciseStore(t, s)
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SetUsePinning(false))
	require.NoError(t, first.SetConfigOverride(overridePayload))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	enabled, err := second.UsePinning()
	require.NoError(t, err)
	assert.False(t, enabled)
	override, err := second.ConfigOverride()
	require.NoError(t, err)
	assert.Equal(t, overridePayload, override)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestFileStore_ReadsHandWrittenFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"settings.json", `{"useSSLPinning": false}`},
		{"settings.yaml", "useSSLPinning: false\n"},
		{"settings.toml", "useSSLPinning = false\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			s, err := NewFileStore(path)
			require.NoError(t, err)
			enabled, err := s.UsePinning()
			require.NoError(t, err)
			assert.False(t, enabled)
		})
	}
}

func TestFileStore_EmptyFileHoldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	enabled, err := s.UsePinning()
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.UsePinning()
	assert.Error(t, err)
	assert.Error(t, s.SetUsePinning(false))
}

func TestNewFileStore_NoPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("a.json"))
	assert.Equal(t, FormatYAML, FormatForPath("a.YAML"))
	assert.Equal(t, FormatYAML, FormatForPath("a.yml"))
	assert.Equal(t, FormatTOML, FormatForPath("a.toml"))
	assert.Equal(t, FormatJSON, FormatForPath("a"))
	assert.Equal(t, "toml", FormatTOML.String())
}

func TestFileStore_ConcurrentWrites(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.SetUsePinning(i%2 == 0))
		}(i)
	}
	wg.Wait()

	_, err = s.UsePinning()
	assert.NoError(t, err)
}
