package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIdentityIsStable(t *testing.T) {
	a := HashIdentity("203.0.113.9")
	b := HashIdentity("203.0.113.9")
	assert.Equal(t, a, b)
}

func TestHashIdentityDistinguishesAddresses(t *testing.T) {
	assert.NotEqual(t, HashIdentity("203.0.113.9"), HashIdentity("203.0.113.10"))
}

func TestHashIdentityNeverEchoesInput(t *testing.T) {
	hash := HashIdentity("203.0.113.9")
	assert.NotContains(t, hash, "203.0.113.9")
	assert.Len(t, hash, 64)
}
