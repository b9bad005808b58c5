package services

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/BradenHooton/customs/internal/models"
	"golang.org/x/crypto/blake2b"
)

// KeyBuilder derives store keys from identities. Raw identities never reach
// the store: each is normalised and hashed with a keyed BLAKE2b.
type KeyBuilder struct {
	prefix  string
	hashKey []byte
}

// NewKeyBuilder creates a KeyBuilder. hashKey may be empty (unkeyed hashing,
// development only) and must not exceed 64 bytes.
func NewKeyBuilder(prefix, hashKey string) (*KeyBuilder, error) {
	if len(hashKey) > blake2b.Size {
		return nil, fmt.Errorf("identity hash key must be at most %d bytes", blake2b.Size)
	}
	return &KeyBuilder{prefix: prefix, hashKey: []byte(hashKey)}, nil
}

// Normalize canonicalises an identity of the given kind.
func Normalize(kind, identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", fmt.Errorf("%w: empty %s", models.ErrInvalidIdentity, kind)
	}

	switch kind {
	case models.IdentityKindEmail:
		return strings.ToLower(identity), nil
	case models.IdentityKindIP:
		ip := net.ParseIP(identity)
		if ip == nil {
			return "", fmt.Errorf("%w: malformed ip", models.ErrInvalidIdentity)
		}
		return ip.String(), nil
	case models.IdentityKindUID:
		return identity, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", models.ErrInvalidIdentity, kind)
}

// Key returns the store key for identity.
func (b *KeyBuilder) Key(kind, identity string) (string, error) {
	normalized, err := Normalize(kind, identity)
	if err != nil {
		return "", err
	}

	h, err := blake2b.New256(b.hashKey)
	if err != nil {
		return "", fmt.Errorf("failed to create identity hash: %w", err)
	}
	h.Write([]byte(normalized))

	return b.prefix + ":" + kind + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// LimitsKey is where shared limits settings live.
func (b *KeyBuilder) LimitsKey() string {
	return b.prefix + ":limits"
}
