// Package password hashes and verifies user credentials.
//
// New digests are argon2id with a random per-credential salt. Digests written
// by earlier versions of the console (bcrypt, and unsalted SHA-256 hex from
// the first release) are still accepted by Verify and reported by
// NeedsRehash so they can be replaced on the next successful login.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptySecret      = errors.New("password: secret is empty")
	ErrMalformedDigest  = errors.New("password: malformed digest")
	ErrIncompatibleAlgo = errors.New("password: incompatible argon2 version")
)

// Scheme identifies the format of a stored digest.
type Scheme string

const (
	SchemeArgon2id     Scheme = "argon2id"
	SchemeBcrypt       Scheme = "bcrypt"
	SchemeLegacySHA256 Scheme = "sha256"
	SchemeUnknown      Scheme = "unknown"
)

// Params are the argon2id cost parameters.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the RFC 9106 second recommended option.
var DefaultParams = Params{
	MemoryKiB:   64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces and checks credential digests.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher. Zero fields in p fall back to DefaultParams.
func NewHasher(p Params) *Hasher {
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultParams.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultParams.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = DefaultParams.Parallelism
	}
	if p.SaltLength == 0 {
		p.SaltLength = DefaultParams.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = DefaultParams.KeyLength
	}
	return &Hasher{params: p}
}

// Hash returns an encoded argon2id digest of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches digest. Malformed or unknown digests
// never match.
func (h *Hasher) Verify(secret, digest string) bool {
	switch DetectScheme(digest) {
	case SchemeArgon2id:
		p, salt, key, err := decodeArgon2id(digest)
		if err != nil {
			return false
		}
		other := argon2.IDKey([]byte(secret), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(key)))
		return subtle.ConstantTimeCompare(key, other) == 1
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
	case SchemeLegacySHA256:
		sum := sha256.Sum256([]byte(secret))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(digest))) == 1
	default:
		return false
	}
}

// NeedsRehash reports whether digest should be replaced with a fresh Hash
// using the current parameters.
func (h *Hasher) NeedsRehash(digest string) bool {
	if DetectScheme(digest) != SchemeArgon2id {
		return true
	}
	p, _, key, err := decodeArgon2id(digest)
	if err != nil {
		return true
	}
	return p.MemoryKiB < h.params.MemoryKiB ||
		p.Iterations < h.params.Iterations ||
		uint32(len(key)) < h.params.KeyLength
}

// DetectScheme classifies a stored digest by its version tag.
func DetectScheme(digest string) Scheme {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return SchemeBcrypt
	case len(digest) == sha256.Size*2 && isHex(digest):
		return SchemeLegacySHA256
	default:
		return SchemeUnknown
	}
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

func decodeArgon2id(digest string) (Params, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return Params{}, nil, nil, ErrMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, ErrMalformedDigest
	}
	if version != argon2.Version {
		return Params{}, nil, nil, ErrIncompatibleAlgo
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return Params{}, nil, nil, ErrMalformedDigest
	}
	if p.Iterations == 0 || p.Parallelism == 0 {
		return Params{}, nil, nil, ErrMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrMalformedDigest
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return p, salt, key, nil
}
