// Package id generates identifiers for QR codes, scan events and short links.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for catalog identifiers.
const (
	PrefixQRCode = "qr"
	PrefixToken  = "tok"
	PrefixClient = "sse"
)

// shortTokenAlphabet omits look-alike characters so printed short links stay readable.
const shortTokenAlphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// ShortTokenLength is the length of dynamic QR short link tokens.
const ShortTokenLength = 8

// Generate creates a prefixed NanoID, e.g. "qr-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// ShortToken returns a random token for dynamic QR short links.
func ShortToken() (string, error) {
	token, err := gonanoid.Generate(shortTokenAlphabet, ShortTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate short token: %w", err)
	}
	return token, nil
}

// EventID returns a time-ordered UUIDv7 for a scan event.
// Successive events sort by insertion order, which keeps the event table's
// primary key index append-only.
func EventID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate event id: %w", err)
	}
	return u.String(), nil
}
