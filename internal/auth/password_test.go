package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// cheap parameters keep the argon2 tests fast
var testArgon2Params = Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T, algorithm string) *Hasher {
	t.Helper()
	h, err := NewHasher(algorithm, bcrypt.MinCost)
	require.NoError(t, err)
	h.argon = testArgon2Params
	return h
}

func TestHasher_RoundTrip(t *testing.T) {
	for _, algo := range []string{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(algo, func(t *testing.T) {
			h := newTestHasher(t, algo)

			for _, pw := range []string{"secret1", "pässwörd", strings.Repeat("x", 64), " spaced "} {
				encoded, err := h.Hash(pw)
				require.NoError(t, err)
				assert.NotEqual(t, pw, encoded)
				assert.True(t, h.Verify(pw, encoded), "verify(%q)", pw)
				assert.False(t, h.Verify(pw+"!", encoded))
			}
		})
	}
}

func TestHasher_SaltedHashesDiffer(t *testing.T) {
	for _, algo := range []string{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(algo, func(t *testing.T) {
			h := newTestHasher(t, algo)

			a, err := h.Hash("secret1")
			require.NoError(t, err)
			b, err := h.Hash("secret1")
			require.NoError(t, err)

			assert.NotEqual(t, a, b)
			assert.True(t, h.Verify("secret1", a))
			assert.True(t, h.Verify("secret1", b))
		})
	}
}

func TestHasher_EncodingPrefix(t *testing.T) {
	argon, err := newTestHasher(t, AlgorithmArgon2id).Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(argon, "$argon2id$v=19$m=8192,t=1,p=1$"), argon)

	bc, err := newTestHasher(t, AlgorithmBcrypt).Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bc, "$2a$"), bc)
}

func TestHasher_VerifiesAcrossAlgorithms(t *testing.T) {
	bcryptHasher := newTestHasher(t, AlgorithmBcrypt)
	argonHasher := newTestHasher(t, AlgorithmArgon2id)

	fromBcrypt, err := bcryptHasher.Hash("secret1")
	require.NoError(t, err)
	fromArgon, err := argonHasher.Hash("secret1")
	require.NoError(t, err)

	assert.True(t, argonHasher.Verify("secret1", fromBcrypt))
	assert.True(t, bcryptHasher.Verify("secret1", fromArgon))
}

func TestHasher_MalformedHashNeverMatches(t *testing.T) {
	h := newTestHasher(t, AlgorithmArgon2id)

	for _, encoded := range []string{
		"",
		"secret1",
		"$argon2id$",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$!!!",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$2a$04$short",
	} {
		assert.False(t, h.Verify("secret1", encoded), "hash %q", encoded)
	}
}

func TestNewHasher_Validation(t *testing.T) {
	_, err := NewHasher("md5", 10)
	assert.Error(t, err)

	_, err = NewHasher(AlgorithmBcrypt, 99)
	assert.Error(t, err)

	_, err = NewHasher(AlgorithmArgon2id, 0)
	assert.NoError(t, err)
}
