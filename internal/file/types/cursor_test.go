package types

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token := EncodeCursor("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
	require.NotEmpty(t, token)

	hash, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
}

func TestCursorIsURLSafe(t *testing.T) {
	token := EncodeCursor("abc123")

	// The token must survive URL transport untouched
	assert.Equal(t, token, url.QueryEscape(token))

	hash, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
}

func TestDecodeCursorEmptyMeansStart(t *testing.T) {
	hash, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64 at all!!",
		"aGVsbG8",          // valid base64, not JSON
		"e30",              // "{}", missing resume position
		"%%%",
	}

	for _, token := range cases {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, "token %q", token)
	}
}
