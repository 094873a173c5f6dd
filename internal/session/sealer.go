package session

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb:v1:"

var ErrInvalidSecret = errors.New("invalid session secret")

// Sealer encrypts the bearer token before it reaches storage.
// A nil *Sealer stores tokens as plain text.
type Sealer struct {
	key [32]byte
}

// NewSealer accepts a 32-byte key as base64, hex or raw text. An empty secret
// returns a nil Sealer.
func NewSealer(secret string) (*Sealer, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, nil
	}
	raw, err := decodeKey(trimmed)
	if err != nil {
		return nil, err
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

func (s *Sealer) Seal(plain string) (string, error) {
	if s == nil {
		return plain, nil
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (s *Sealer) Open(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, sealedPrefix) {
		// Written before a secret was configured.
		return trimmed, nil
	}
	if s == nil {
		return "", fmt.Errorf("token is sealed but no session secret is configured")
	}

	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(trimmed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed token: %w", err)
	}
	if len(box) < 24+secretbox.Overhead {
		return "", fmt.Errorf("sealed token too short")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("open sealed token: authentication failed")
	}
	return string(plain), nil
}

func decodeKey(raw string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(raw); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	return nil, ErrInvalidSecret
}
