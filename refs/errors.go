// SPDX-License-Identifier: MIT

package refs

import (
	"errors"
	"fmt"
)

// Common errors for invalid references
var (
	ErrInvalidRef     = errors.New("ssb: Invalid Ref")
	ErrInvalidRefType = errors.New("ssb: Invalid Ref Type")
	ErrInvalidRefAlgo = errors.New("ssb: Invalid Ref Algo")
	ErrInvalidHash    = errors.New("ssb: Invalid Hash")
)

// ErrRefLen is returned when a parsed reference was too short.
type ErrRefLen struct {
	algo string
	n    int
}

func (e ErrRefLen) Error() string {
	return fmt.Sprintf("ssb: Invalid reference len for %s: %d", e.algo, e.n)
}

func newFeedRefLenError(n int) error {
	return ErrRefLen{algo: "feed/" + string(RefAlgoFeedBendyButt), n: n}
}

func newHashLenError(n int) error {
	return ErrRefLen{algo: "message/" + string(RefAlgoMessageBendyButt), n: n}
}
