package editplan

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashOf is the content-hash dedup key referenced by §4.5's "drop duplicate
// edits whose rendered payload matches the last-sent one". sha256 is
// stdlib rather than a third-party hash package: content hashing here is a
// pure equality check with no adversarial input, so the extra API surface
// of a hashing library (streaming, seeding, non-cryptographic speed
// tradeoffs) buys nothing over crypto/sha256.
func hashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HashOf exposes the same hash to the Reconciler so it can populate
// Existing.ContentHash after a successful Create/Edit without duplicating
// the algorithm.
func HashOf(content string) string { return hashOf(content) }
