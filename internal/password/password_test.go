package password

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Small parameters keep the suite fast.
var testParams = Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(testParams)

	for _, secret := range []string{"a", "admin123", "pässwörd", strings.Repeat("x", 200)} {
		digest, err := h.Hash(secret)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=1024,t=1,p=1$"))
		assert.True(t, h.Verify(secret, digest))
		assert.False(t, h.Verify(secret+"!", digest))
	}
}

func TestHasher_DistinctSecretsDoNotVerify(t *testing.T) {
	h := NewHasher(testParams)

	digest, err := h.Hash("secret-one")
	require.NoError(t, err)
	assert.False(t, h.Verify("secret-two", digest))
}

func TestHasher_SaltIsPerCredential(t *testing.T) {
	h := NewHasher(testParams)

	d1, err := h.Hash("same")
	require.NoError(t, err)
	d2, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
	assert.True(t, h.Verify("same", d1))
	assert.True(t, h.Verify("same", d2))
}

func TestHasher_EmptySecret(t *testing.T) {
	_, err := NewHasher(testParams).Hash("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestHasher_MalformedDigestsNeverMatch(t *testing.T) {
	h := NewHasher(testParams)

	for _, digest := range []string{
		"",
		"plain",
		"$argon2id$",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$!!!",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$a2V5",
		"$2a$10$short",
		strings.Repeat("z", 64),
	} {
		assert.False(t, h.Verify("anything", digest), digest)
	}
}

func TestHasher_LegacySHA256(t *testing.T) {
	h := NewHasher(testParams)

	sum := sha256.Sum256([]byte("admin123"))
	legacy := hex.EncodeToString(sum[:])

	assert.Equal(t, SchemeLegacySHA256, DetectScheme(legacy))
	assert.True(t, h.Verify("admin123", legacy))
	assert.False(t, h.Verify("admin124", legacy))
	assert.True(t, h.NeedsRehash(legacy))
}

func TestHasher_LegacyBcrypt(t *testing.T) {
	h := NewHasher(testParams)

	digest, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.Equal(t, SchemeBcrypt, DetectScheme(string(digest)))
	assert.True(t, h.Verify("supersecret", string(digest)))
	assert.False(t, h.Verify("supersecreT", string(digest)))
	assert.True(t, h.NeedsRehash(string(digest)))
}

func TestHasher_NeedsRehash(t *testing.T) {
	weak := NewHasher(testParams)
	strong := NewHasher(Params{MemoryKiB: 2048, Iterations: 2, Parallelism: 1})

	digest, err := weak.Hash("secret")
	require.NoError(t, err)

	assert.False(t, weak.NeedsRehash(digest))
	assert.True(t, strong.NeedsRehash(digest))
	assert.True(t, strong.Verify("secret", digest))
}
