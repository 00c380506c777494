// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a settings file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatForPath picks the encoding from the file extension. Unknown
// extensions use JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

const filePerm = 0o600

// FileStore persists settings in a single file. The file is re-read on
// every access so separate processes observe each other's writes. A missing
// file holds the defaults.
type FileStore struct {
	path   string
	format Format
	mu     sync.Mutex
}

// NewFileStore returns a store backed by path, encoded according to its
// extension. The file is not created until the first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	return &FileStore{path: path, format: FormatForPath(path)}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Format returns the encoding in use.
func (s *FileStore) Format() Format { return s.format }

func (s *FileStore) UsePinning() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return DefaultUsePinning, err
	}
	return doc.usePinning(), nil
}

func (s *FileStore) SetUsePinning(enabled bool) error {
	return s.update(func(doc *document) { doc.UsePinning = &enabled })
}

func (s *FileStore) ConfigOverride() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	return doc.ConfigOverride, nil
}

func (s *FileStore) SetConfigOverride(payload string) error {
	return s.update(func(doc *document) { doc.ConfigOverride = payload })
}

func (s *FileStore) update(mutate func(*document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	mutate(&doc)
	return s.save(doc)
}

func (s *FileStore) load() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	switch s.format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		_, err = toml.Decode(string(data), &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return document{}, fmt.Errorf("settings: decode %s as %s: %w", s.path, s.format, err)
	}
	return doc, nil
}

func (s *FileStore) encode(doc document) ([]byte, error) {
	switch s.format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.Indent = ""
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.format)
	}
}

// save writes doc through a temporary file in the same directory and
// renames it into place.
func (s *FileStore) save(doc document) error {
	data, err := s.encode(doc)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("settings: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}
