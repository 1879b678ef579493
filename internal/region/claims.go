package region

import "sync/atomic"

// ClaimSet hands out each index at most once across goroutines.
//
// Parallel producers (boundary detection, label inference while loading an
// archive) claim an index before doing the expensive work for it, so two
// workers that reach the same label never both trace it or both write it.
type ClaimSet struct {
	flags []atomic.Bool
}

// NewClaimSet returns a claim set for indices [0, n).
func NewClaimSet(n int) *ClaimSet {
	return &ClaimSet{flags: make([]atomic.Bool, max(n, 0))}
}

// Claim marks index i as taken and reports whether the caller won it.
// Indices outside the set are never claimable.
func (c *ClaimSet) Claim(i int) bool {
	if i < 0 || i >= len(c.flags) {
		return false
	}
	return c.flags[i].CompareAndSwap(false, true)
}
