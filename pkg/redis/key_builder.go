package redis

import "fmt"

// Cache key templates
const (
	KeyGeoAddress = "geo:addr:%s" // geo:addr:<raw address>
)

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = environment
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyGeo builds the memoization key for one raw client address.
func (kb *KeyBuilder) KeyGeo(rawAddress string) string {
	return kb.BuildKey(fmt.Sprintf(KeyGeoAddress, rawAddress))
}
