package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	h := NewHasher("secret")
	first := h.Fingerprint("+15551230000")
	second := h.Fingerprint("+15551230000")
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestFingerprintDistinguishesContacts(t *testing.T) {
	h := NewHasher("secret")
	assert.NotEqual(t, h.Fingerprint("+15551230000"), h.Fingerprint("+15551231111"))
}

func TestFingerprintStableAcrossHashersWithSameSecret(t *testing.T) {
	first := NewHasher("secret").Fingerprint("+15551230000")
	second := NewHasher("secret").Fingerprint("+15551230000")
	assert.Equal(t, first, second)
}

func TestFingerprintKeyed(t *testing.T) {
	// different secrets must not produce comparable fingerprints
	first := NewHasher("secret-a").Fingerprint("+15551230000")
	second := NewHasher("secret-b").Fingerprint("+15551230000")
	assert.NotEqual(t, first, second)
}

func TestFingerprintIgnoresSurroundingWhitespace(t *testing.T) {
	h := NewHasher("secret")
	assert.Equal(t, h.Fingerprint("+15551230000"), h.Fingerprint(" +15551230000 "))
}

func TestRandomKeyIsDeterministicWithinProcess(t *testing.T) {
	h := NewHasher("")
	assert.Equal(t, h.Fingerprint("+15551230000"), h.Fingerprint("+15551230000"))
}
