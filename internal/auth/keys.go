// Package auth issues and verifies the bearer tokens that identify dashboard users.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// keySize is the PASETO v4 local key size in bytes.
const keySize = 32

// KeyFile is the name of the key file inside the data directory.
const KeyFile = "auth.key"

// LoadOrGenerateKey returns the access token key stored hex-encoded in
// <dataPath>/auth.key, creating the file with a random key on first use.
// A file that exists but cannot be read or decoded is an error; it is never
// silently replaced, since that would invalidate every issued token.
func LoadOrGenerateKey(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, KeyFile)

	key, err := readKey(keyPath)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	key = make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate auth key: %w", err)
	}
	if err := writeKey(dataPath, keyPath, key); err != nil {
		return nil, err
	}
	return key, nil
}

func readKey(path string) ([]byte, error) {
	//#nosec G304 -- key path is derived from the configured data path
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	key, err := decodeKey(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return key, nil
}

// decodeKey parses a hex-encoded key of exactly keySize bytes.
func decodeKey(encoded string) ([]byte, error) {
	if len(encoded) != hex.EncodedLen(keySize) {
		return nil, fmt.Errorf("auth key must be %d hex characters, got %d", hex.EncodedLen(keySize), len(encoded))
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("auth key is not valid hex: %w", err)
	}
	return key, nil
}

// writeKey stores key through a temporary file so a crash never leaves a
// truncated key behind.
func writeKey(dir, path string, key []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, KeyFile+".*")
	if err != nil {
		return fmt.Errorf("create auth key file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.WriteString(hex.EncodeToString(key)); err != nil {
		tmp.Close()
		return fmt.Errorf("write auth key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write auth key: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("restrict auth key: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save auth key: %w", err)
	}
	return nil
}
