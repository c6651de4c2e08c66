package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TrialPageKey keys one page of the trial listing by a hash of its filters
// and pagination window.
func TrialPageKey(filterHash string) string {
	return fmt.Sprintf("trials:page:%s", filterHash)
}

// OrgDataKey keys a fully assembled org-detail bundle.
func OrgDataKey(orgID int64) string {
	return fmt.Sprintf("orgdata:%d", orgID)
}

// RateLimitKey keys the per-client meta-summary request counter.
func RateLimitKey(clientID string) string {
	return fmt.Sprintf("ratelimit:metasummary:%s", clientID)
}

// Hash returns a stable hex digest for cache key material.
func Hash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
