// Package settings persists user settings, chiefly the oracle API key, in a
// small YAML file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// APIKeyEntry is the key under which the oracle credential is stored.
const APIKeyEntry = "huggingface_api_key"

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

var (
	ErrEmptyKey         = errors.New("please enter an API key")
	ErrInvalidKeyFormat = errors.New("invalid Hugging Face API key format, keys start with hf_")
)

// ValidateAPIKey checks a credential before it is stored. Only Hugging Face
// keys have a known prefix.
func ValidateAPIKey(provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if (provider == "" || provider == "huggingface") && !strings.HasPrefix(key, "hf_") {
		return ErrInvalidKeyFormat
	}
	return nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	prefix := ""
	if strings.HasPrefix(secret, "hf_") {
		prefix = "hf_"
	}
	return prefix + strings.Repeat("*", len(secret)-len(prefix)-4) + secret[len(secret)-4:]
}

// Store is a key/value settings file. It is safe for concurrent use.
type Store struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// Open loads the settings file at path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, entries: map[string]string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.entries == nil {
		s.entries = map[string]string{}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

// Set stores value under key and writes the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = value
	if err := s.save(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

// Delete removes key and writes the file.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.save()
}

// APIKey returns the stored oracle credential, or "".
func (s *Store) APIKey() string {
	v, _ := s.Get(APIKeyEntry)
	return v
}

// SetAPIKey validates and stores the oracle credential.
func (s *Store) SetAPIKey(provider, key string) error {
	if err := ValidateAPIKey(provider, key); err != nil {
		return err
	}
	return s.Set(APIKeyEntry, strings.TrimSpace(key))
}

// save writes entries through a temp file so readers never see a partial file.
func (s *Store) save() error {
	data, err := yaml.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// ResolveAPIKey applies credential precedence: explicit argument, then
// configured value, then the store.
func ResolveAPIKey(argument, configured string, store *Store) string {
	if k := strings.TrimSpace(argument); k != "" {
		return k
	}
	if k := strings.TrimSpace(configured); k != "" {
		return k
	}
	if store != nil {
		return store.APIKey()
	}
	return ""
}
