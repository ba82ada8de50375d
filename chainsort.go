// SPDX-License-Identifier: MIT

package bendybutt

import (
	"sort"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"

	"go.mindeco.de/ssb-bendybutt/bfe"
)

// ByPrevious sorts the envelopes of one feed by following their previous links.
// Call FillLookup before handing it to sort.Sort.
type ByPrevious struct {
	Items [][]byte

	hops []int // distance to the first entry
}

type msgKey [32]byte

// FillLookup links every entry to its predecessor.
// Exactly one entry may have a previous that is nil or not part of Items, and no two entries may share a previous.
func (bp *ByPrevious) FillLookup() error {
	n := len(bp.Items)

	var (
		index  = make(map[msgKey]int, n)
		before = make([]*msgKey, n)
		after  = make(map[msgKey]int, n)
	)

	for i, data := range bp.Items {
		key := msgKey(sha256.Sum256(data))
		if j, has := index[key]; has {
			return errors.Wrapf(ErrBrokenChain, "entries %d and %d are the same message", j, i)
		}
		index[key] = i

		f, err := ExtractFields(data)
		if err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		if !bfe.IsMessage(f.Previous) {
			continue
		}

		var prev msgKey
		copy(prev[:], f.Previous[2:])
		before[i] = &prev

		if j, has := after[prev]; has {
			return errors.Wrapf(ErrFork, "entries %d and %d", j, i)
		}
		after[prev] = i
	}

	root := -1
	for i, prev := range before {
		if prev != nil {
			if _, has := index[*prev]; has {
				continue
			}
		}
		if root != -1 {
			return errors.Wrapf(ErrBrokenChain, "entries %d and %d both start the chain", root, i)
		}
		root = i
	}

	bp.hops = make([]int, n)
	if n == 0 {
		return nil
	}
	if root == -1 {
		return errors.Wrap(ErrBrokenChain, "no entry starts the chain")
	}

	cur, hop := root, 0
	for {
		bp.hops[cur] = hop
		hop++
		next, has := after[msgKey(sha256.Sum256(bp.Items[cur]))]
		if !has {
			break
		}
		cur = next
	}
	if hop != n {
		return errors.Wrapf(ErrBrokenChain, "only %d of %d entries are linked", hop, n)
	}
	return nil
}

func (bp ByPrevious) Len() int { return len(bp.Items) }

func (bp ByPrevious) Less(i, j int) bool { return bp.hops[i] < bp.hops[j] }

func (bp ByPrevious) Swap(i, j int) {
	bp.Items[i], bp.Items[j] = bp.Items[j], bp.Items[i]
	bp.hops[i], bp.hops[j] = bp.hops[j], bp.hops[i]
}

// SortByPrevious returns msgs in chain order, which is the order ChainVerifier.Verify expects.
// It only looks at the links and does not validate anything.
func SortByPrevious(msgs [][]byte) ([][]byte, error) {
	bp := ByPrevious{Items: make([][]byte, len(msgs))}
	copy(bp.Items, msgs)
	if err := bp.FillLookup(); err != nil {
		return nil, err
	}
	sort.Sort(bp)
	return bp.Items, nil
}
