package services

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilder_Key(t *testing.T) {
	b, err := NewKeyBuilder("customs", "secret-hash-key")
	require.NoError(t, err)

	key, err := b.Key(models.IdentityKindEmail, "user@example.com")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^customs:email:[0-9a-f]{64}$`), key)
	assert.NotContains(t, key, "example")

	same, err := b.Key(models.IdentityKindEmail, "  USER@example.com")
	require.NoError(t, err)
	assert.Equal(t, key, same)

	asUID, err := b.Key(models.IdentityKindUID, "user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, strings.TrimPrefix(key, "customs:email:"), strings.TrimPrefix(asUID, "customs:uid:"),
		"uids are case sensitive")

	other, err := NewKeyBuilder("customs", "another-hash-key")
	require.NoError(t, err)
	otherKey, err := other.Key(models.IdentityKindEmail, "user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, key, otherKey)
}

func TestKeyBuilder_IPCanonicalForm(t *testing.T) {
	b, err := NewKeyBuilder("customs", "")
	require.NoError(t, err)

	short, err := b.Key(models.IdentityKindIP, "2001:db8::1")
	require.NoError(t, err)
	long, err := b.Key(models.IdentityKindIP, "2001:0db8:0000:0000:0000:0000:0000:0001")
	require.NoError(t, err)
	assert.Equal(t, short, long)
}

func TestKeyBuilder_Errors(t *testing.T) {
	_, err := NewKeyBuilder("customs", strings.Repeat("k", 65))
	assert.Error(t, err)

	b, err := NewKeyBuilder("customs", "k")
	require.NoError(t, err)

	tests := []struct {
		kind, identity string
	}{
		{models.IdentityKindEmail, ""},
		{models.IdentityKindIP, "300.1.1.1"},
		{"phone", "+15555550100"},
	}
	for _, tt := range tests {
		_, err := b.Key(tt.kind, tt.identity)
		assert.True(t, errors.Is(err, models.ErrInvalidIdentity), "%s %q", tt.kind, tt.identity)
	}

	assert.Equal(t, "customs:limits", b.LimitsKey())
}
