package identity

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/zeebo/blake3"
)

const deriveContext = "lightspeed-queue contact fingerprint v1"

// Hasher turns a raw contact identifier into a stable, non-reversible
// fingerprint. The hash is keyed, so fingerprints leak nothing about the
// contact, and deterministic: the same input always yields the same
// fingerprint for the lifetime of the key. Duplicate detection relies on that.
type Hasher struct {
	key [32]byte
}

// NewHasher derives the fingerprint key from the configured secret. With an
// empty secret a random per-process key is generated, fingerprints are then
// not comparable across restarts.
func NewHasher(secret string) *Hasher {
	h := &Hasher{}
	if secret == "" {
		if _, err := rand.Read(h.key[:]); err != nil {
			panic("identity: could not generate fingerprint key: " + err.Error())
		}
		globals.AppLogger.Warn("no identity secret configured, fingerprints will not survive a restart")
		return h
	}
	blake3.DeriveKey(deriveContext, []byte(secret), h.key[:])
	return h
}

// Fingerprint hashes a raw contact identifier. Surrounding whitespace is not
// part of the identity.
func (h *Hasher) Fingerprint(rawContact string) string {
	hasher, err := blake3.NewKeyed(h.key[:])
	if err != nil {
		panic("identity: invalid fingerprint key: " + err.Error())
	}
	_, _ = hasher.Write([]byte(strings.TrimSpace(rawContact)))
	return hex.EncodeToString(hasher.Sum(nil))
}
