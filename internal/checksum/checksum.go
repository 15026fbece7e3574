package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Canonical encodes v as JSON with map keys sorted and returns the encoding
// with its digest. Documents that differ only in key order or whitespace
// share a checksum.
func Canonical(v any) (string, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("checksum: canonical encode: %w", err)
	}
	return string(data), Sum(data), nil
}
