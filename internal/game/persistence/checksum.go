package persistence

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Checksum is the hex blake2b-256 digest of an encoded state document.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether data matches the expected digest. An
// empty expectation is treated as a match; legacy saves carry none.
func VerifyChecksum(data []byte, expected string) bool {
	if expected == "" {
		return true
	}
	return Checksum(data) == expected
}
