// SPDX-License-Identifier: MIT

package bendybutt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

func TestChainVerifier(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	fc, err := NewFieldCache(16)
	r.NoError(err)

	cv, err := NewChainVerifier(WithLogger(log.NewLogfmtLogger(&buf)), WithCache(fc))
	r.NoError(err)

	msgs := testFeed(t, testKey(50), nil, 5)
	n, err := cv.Verify(nil, msgs)
	r.NoError(err)
	r.Equal(5, n)

	// continue from the middle
	n, err = cv.Verify(msgs[1], msgs[2:])
	r.NoError(err)
	r.Equal(3, n)

	// swap two entries
	broken := [][]byte{msgs[0], msgs[1], msgs[3], msgs[2], msgs[4]}
	n, err = cv.Verify(nil, broken)
	r.Equal(2, n)
	var ce ChainError
	r.True(errors.As(err, &ce))
	r.Equal(2, ce.Index)
	r.True(errors.Is(err, ErrPreviousMismatch), "%s", err)
	r.Contains(buf.String(), "entry rejected")
	r.Contains(buf.String(), "idx=2")

	_, err = cv.Verify(nil, [][]byte{msgs[0], []byte("garbage")})
	r.True(errors.As(err, &ce))
	r.Equal(1, ce.Index)
	r.True(IsMessageUnusable(err))
}

func TestChainVerifierAuthor(t *testing.T) {
	r := require.New(t)
	keyA, keyB := testKey(51), testKey(52)

	first := testFeed(t, keyA, nil, 1)[0]
	id := MessageID(first)

	// valid link, but signed by someone else
	other, err := NewEnvelope(map[string]interface{}{"type": "x"}, nil, keyB, 2, &id, 0, nil, nil)
	r.NoError(err)
	r.NoError(Validate(other, first, nil))

	cv, err := NewChainVerifier()
	r.NoError(err)
	n, err := cv.Verify(nil, [][]byte{first, other})
	r.Equal(1, n)
	requireKind(t, err, ErrAuthorMismatch)
}

func TestChainVerifierHMAC(t *testing.T) {
	r := require.New(t)
	hmacKey := testHMAC(9)

	_, err := NewChainVerifier(WithChainHMACKey([]byte("short")))
	r.True(errors.Is(err, ErrHMACKey))

	msgs := testFeed(t, testKey(53), hmacKey, 3)

	cv, err := NewChainVerifier(WithChainHMACKey(hmacKey))
	r.NoError(err)
	_, err = cv.Verify(nil, msgs)
	r.NoError(err)

	plain, err := NewChainVerifier()
	r.NoError(err)
	n, err := plain.Verify(nil, msgs)
	r.Equal(0, n)
	requireKind(t, err, ErrSignatureVerification)
}

func TestVerifyFeeds(t *testing.T) {
	r := require.New(t)

	feeds := make([][][]byte, 4)
	for i := range feeds {
		feeds[i] = testFeed(t, testKey(byte(60+i)), nil, 4)
	}

	cv, err := NewChainVerifier()
	r.NoError(err)
	r.NoError(cv.VerifyFeeds(context.Background(), feeds...))

	feeds[2] = [][]byte{feeds[2][1]}
	err = cv.VerifyFeeds(context.Background(), feeds...)
	r.Error(err)
	r.Contains(err.Error(), "feed 2")
	r.True(errors.Is(err, ErrPreviousFormat), "%s", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Error(cv.VerifyFeeds(ctx, feeds[0]))
}
