package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumDeterministic(t *testing.T) {
	payload := []byte("hello")

	first := Sum(payload)
	second := Sum(payload)

	assert.Equal(t, first, second)
	assert.Len(t, first, HexLength)

	// Known SHA-256 vector, stable across processes and restarts
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", first)
}

func TestSumDistinguishesNearIdenticalPayloads(t *testing.T) {
	base := []byte("the quick brown fox jumps over the lazy dog")

	flipped := make([]byte, len(base))
	copy(flipped, base)
	flipped[len(flipped)-1] ^= 0x01

	assert.NotEqual(t, Sum(base), Sum(flipped))

	appended := append(append([]byte{}, base...), 0x00)
	assert.NotEqual(t, Sum(base), Sum(appended))
}

func TestSumEmptyPayload(t *testing.T) {
	// Empty input still yields a digest; rejecting empty uploads is the
	// engine's job, not the hash's
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Equal(t, Sum(nil), Sum([]byte{}))
}
