// SPDX-License-Identifier: MIT

package bendybutt

import (
	stderr "errors"
	"fmt"

	"github.com/pkg/errors"
)

// The kinds of validation failures. Every ValidationError unwraps to one of these.
var (
	ErrShape                 = stderr.New("bendybutt: invalid shape")
	ErrSize                  = stderr.New("bendybutt: invalid size")
	ErrHMACKey               = stderr.New("bendybutt: invalid hmac key")
	ErrAuthorFormat          = stderr.New("bendybutt: invalid author")
	ErrFirstPrevious         = stderr.New("bendybutt: invalid previous of first message")
	ErrPreviousFormat        = stderr.New("bendybutt: invalid previous")
	ErrPreviousMismatch      = stderr.New("bendybutt: previous does not match")
	ErrSequence              = stderr.New("bendybutt: invalid sequence")
	ErrTimestamp             = stderr.New("bendybutt: invalid timestamp")
	ErrSignatureFormat       = stderr.New("bendybutt: invalid signature format")
	ErrSignatureVerification = stderr.New("bendybutt: signature verification failed")
	ErrContentShape          = stderr.New("bendybutt: invalid content section")

	// ErrAuthorMismatch is only reported by the ChainVerifier
	ErrAuthorMismatch = stderr.New("bendybutt: author differs from previous message")
)

// Errors of SortByPrevious
var (
	ErrFork        = stderr.New("bendybutt: two messages have the same previous")
	ErrBrokenChain = stderr.New("bendybutt: messages don't form a single chain")
)

// ErrNoBoxer is returned when content has recipients but the encoder can't encrypt
var ErrNoBoxer = stderr.New("bendybutt: content has recipients but no boxer is set")

// ValidationError is returned if a message has invalid values.
// The reason is stable and meant for logs; use errors.Is with the kinds above to branch on it.
type ValidationError struct {
	kind   error
	reason string
}

func newValidationError(kind error, format string, args ...interface{}) error {
	return ValidationError{kind: kind, reason: fmt.Sprintf(format, args...)}
}

func (ve ValidationError) Error() string { return ve.reason }

// Kind returns one of the Err* kinds
func (ve ValidationError) Kind() error { return ve.kind }

func (ve ValidationError) Unwrap() error { return ve.kind }

// DecodeError is returned when the input is not even well formed bencode or BFE
type DecodeError struct {
	cause error
}

func newDecodeError(cause error, msg string) error {
	return DecodeError{cause: errors.Wrap(cause, msg)}
}

func (de DecodeError) Error() string {
	return "bendybutt: decode failed: " + de.cause.Error()
}

// Cause satisfies github.com/pkg/errors
func (de DecodeError) Cause() error { return de.cause }

func (de DecodeError) Unwrap() error { return de.cause }

// IsMessageUnusable checks if an error is a DecodeError or a ValidationError,
// both mean the exact bytes will never be accepted.
func IsMessageUnusable(err error) bool {
	if err == nil {
		return false
	}
	var de DecodeError
	if errors.As(err, &de) {
		return true
	}
	var ve ValidationError
	return errors.As(err, &ve)
}

// ChainError wraps the failure of one entry in a batch
type ChainError struct {
	Index int
	Err   error
}

func (ce ChainError) Error() string {
	return fmt.Sprintf("bendybutt: chain entry %d: %s", ce.Index, ce.Err)
}

func (ce ChainError) Unwrap() error { return ce.Err }
