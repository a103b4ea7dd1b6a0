package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf16"
)

// Hasher turns a bearer token into the pseudonymous id stored on a seat.
type Hasher interface {
	Hash(token string) string
}

// LegacyHasher is the 32-bit rolling hash (h*31 + code unit) that older
// clients and stored rooms were keyed with. Collisions are likely enough that
// it must not be treated as a security boundary.
type LegacyHasher struct{}

func (LegacyHasher) Hash(token string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(token)) {
		h = h*31 + int32(unit)
	}
	return fmt.Sprintf("h%d", uint32(h))
}

// HMACHasher keys the token hash with a server secret.
type HMACHasher struct {
	key []byte
}

func NewHMACHasher(secret string) (*HMACHasher, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("identity secret must be at least 16 bytes")
	}
	return &HMACHasher{key: []byte(secret)}, nil
}

func (h *HMACHasher) Hash(token string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(token))
	return "k" + hex.EncodeToString(mac.Sum(nil))[:32]
}

// NewHasher picks the HMAC hasher unless legacy mode is requested.
func NewHasher(mode, secret string) (Hasher, error) {
	switch mode {
	case "legacy":
		return LegacyHasher{}, nil
	case "", "hmac":
		return NewHMACHasher(secret)
	default:
		return nil, fmt.Errorf("unknown identity mode %q", mode)
	}
}
