// Package cache stores classifier responses between runs. Tuning the
// association window or the flag thresholds re-processes the same corpus;
// the expensive model calls should only happen once.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from the identifying parts of a classification
// request (provider, type set, document text). The text is hashed, not
// embedded: documents are large and may carry patient data that must not
// leak into file names.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "chronotrace:v1:" + hex.EncodeToString(hash[:])
}
