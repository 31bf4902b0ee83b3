package service

import (
	"crypto/sha256"
	"fmt"
)

// HashIdentity derives the privacy-preserving fingerprint stored in place of
// a raw client address. One-way and deterministic; the raw address never
// reaches the store.
func HashIdentity(rawAddress string) string {
	hash := sha256.Sum256([]byte(rawAddress))
	return fmt.Sprintf("%x", hash)
}
