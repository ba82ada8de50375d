// SPDX-License-Identifier: MIT

package bendybutt

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
)

// FieldCache remembers extracted fields by the sha256 of the envelope.
// It is safe for concurrent use and bounded in size. Buffers with equal content share an entry.
type FieldCache struct {
	entries *lru.Cache
}

// NewFieldCache returns a cache that holds at most size entries
func NewFieldCache(size int) (*FieldCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt: failed to create field cache")
	}
	return &FieldCache{entries: c}, nil
}

// Extract is ExtractFields with memoization. Failures are not cached.
func (fc *FieldCache) Extract(data []byte) (*Fields, error) {
	if fc == nil {
		return ExtractFields(data)
	}

	key := sha256.Sum256(data)
	if v, ok := fc.entries.Get(key); ok {
		return v.(*Fields), nil
	}

	f, err := ExtractFields(data)
	if err != nil {
		return nil, err
	}
	fc.entries.Add(key, f)
	return f, nil
}

// Len returns the number of cached entries
func (fc *FieldCache) Len() int {
	if fc == nil {
		return 0
	}
	return fc.entries.Len()
}

// Purge drops all entries
func (fc *FieldCache) Purge() {
	if fc != nil {
		fc.entries.Purge()
	}
}
