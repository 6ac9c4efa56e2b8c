package siphash

import "encoding/hex"

// Hex128 returns the full 128-bit digest as 32 lowercase hex characters.
func Hex128(data []byte) string {
	sum := Sum128(data)
	return hex.EncodeToString(sum[:])
}

// ShortHex returns the first 16 hex characters (64 bits) of the digest,
// used for directory-naming purposes where a full 128-bit hash is more
// than the filesystem needs.
func ShortHex(data []byte) string {
	sum := Sum128(data)
	return hex.EncodeToString(sum[:8])
}
