// Package fingerprint computes the content digest used as the
// deduplication key. Identical bytes always produce identical digests,
// independent of any declared name or content type.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// HexLength is the length of a hex-encoded digest
const HexLength = sha256.Size * 2

// Sum returns the hex-encoded SHA-256 digest of data
func Sum(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
