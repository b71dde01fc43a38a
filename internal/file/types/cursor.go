package types

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidCursor indicates a pagination token that cannot be decoded
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// pageCursor is the internal resume position of a listing scan.
// Records are scanned in content_hash order, so the last returned
// hash is enough to resume.
type pageCursor struct {
	LastHash string `json:"last_hash"`
}

// EncodeCursor packs a resume position into an opaque, URL-safe token
func EncodeCursor(lastHash string) string {
	raw, _ := json.Marshal(pageCursor{LastHash: lastHash})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor unpacks a token produced by EncodeCursor. An empty token
// means "start from the beginning".
func DecodeCursor(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidCursor
	}

	var cur pageCursor
	if err := json.Unmarshal(raw, &cur); err != nil {
		return "", ErrInvalidCursor
	}

	if cur.LastHash == "" {
		return "", ErrInvalidCursor
	}

	return cur.LastHash, nil
}
