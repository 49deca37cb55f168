// Package bloom provides fingerprint deduplication using Bloom filters.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter wraps a Bloom filter for cached-fingerprint prefiltering. A Test
// miss means the fingerprint is definitely not cached; a hit means it might
// be. The filter therefore only ever skips work, never fabricates a cache
// hit.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a new Bloom filter sized for n expected items
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add adds a fingerprint to the filter.
func (f *Filter) Add(fp string) {
	f.f.AddString(fp)
}

// Test returns true if the fingerprint might be in the filter.
// False positives are possible; false negatives are not.
func (f *Filter) Test(fp string) bool {
	return f.f.TestString(fp)
}

// EstimatedCount returns the approximate number of items in the filter.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
