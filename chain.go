// SPDX-License-Identifier: MIT

package bendybutt

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ChainVerifier validates consecutive messages of one feed
type ChainVerifier struct {
	logger  log.Logger
	cache   *FieldCache
	hmacKey []byte
}

// ChainOption configures a ChainVerifier
type ChainOption func(*ChainVerifier) error

// WithLogger sets the logger for rejected entries. The default discards everything.
func WithLogger(l log.Logger) ChainOption {
	return func(cv *ChainVerifier) error {
		cv.logger = l
		return nil
	}
}

// WithCache shares extracted fields between the checks of neighbouring entries
func WithCache(fc *FieldCache) ChainOption {
	return func(cv *ChainVerifier) error {
		cv.cache = fc
		return nil
	}
}

// WithChainHMACKey verifies signatures with an hmac key
func WithChainHMACKey(key []byte) ChainOption {
	return func(cv *ChainVerifier) error {
		if _, err := hmacKeyFromBytes(key); err != nil {
			return err
		}
		cv.hmacKey = key
		return nil
	}
}

// NewChainVerifier returns a ChainVerifier with the options applied
func NewChainVerifier(opts ...ChainOption) (*ChainVerifier, error) {
	cv := &ChainVerifier{
		logger: log.NewNopLogger(),
	}
	for i, opt := range opts {
		if err := opt(cv); err != nil {
			return nil, errors.Wrapf(err, "NewChainVerifier: option %d failed", i)
		}
	}
	return cv, nil
}

// Verify checks msgs in order. The first entry is checked against previous, which is nil if msgs starts the feed.
// All entries need the same author.
// It returns how many entries are valid and a ChainError for the first one that isn't.
func (cv *ChainVerifier) Verify(previous []byte, msgs [][]byte) (int, error) {
	v := Validator{Cache: cv.cache}

	for i, msg := range msgs {
		if err := v.Validate(msg, previous, cv.hmacKey); err != nil {
			level.Warn(cv.logger).Log("event", "entry rejected", "idx", i, "err", err)
			return i, ChainError{Index: i, Err: err}
		}

		if len(previous) != 0 {
			if err := sameAuthor(previous, msg); err != nil {
				level.Warn(cv.logger).Log("event", "entry rejected", "idx", i, "err", err)
				return i, ChainError{Index: i, Err: err}
			}
		}

		previous = msg
	}

	level.Debug(cv.logger).Log("event", "chain verified", "count", len(msgs))
	return len(msgs), nil
}

// VerifyFeeds runs Verify for every feed concurrently, each starting from its first message.
// It returns the first error, annotated with the index of the feed.
func (cv *ChainVerifier) VerifyFeeds(ctx context.Context, feeds ...[][]byte) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		i, feed := i, feed
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := cv.Verify(nil, feed); err != nil {
				return errors.Wrapf(err, "feed %d", i)
			}
			return nil
		})
	}
	return g.Wait()
}

func sameAuthor(previous, msg []byte) error {
	prevAuthor, err := FeedID(previous)
	if err != nil {
		return err
	}
	author, err := FeedID(msg)
	if err != nil {
		return err
	}
	if !author.Equal(prevAuthor) {
		return newValidationError(ErrAuthorMismatch, "invalid message: author is %q but previous message is by %q", author.Ref(), prevAuthor.Ref())
	}
	return nil
}
