// SPDX-License-Identifier: MIT

package bendybutt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"
	"golang.org/x/crypto/ed25519"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

func testKey(n byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{n}, ed25519.SeedSize))
}

func testHMAC(n byte) []byte {
	return bytes.Repeat([]byte{n}, HMACKeySize)
}

func feedOf(t *testing.T, key ed25519.PrivateKey) refs.FeedRef {
	fr, err := refs.NewFeedRefFromBytes(key.Public().(ed25519.PublicKey), refs.RefAlgoFeedBendyButt)
	require.NoError(t, err)
	return fr
}

func authorToken(t *testing.T, key ed25519.PrivateKey) []byte {
	tok, err := bfe.EncodeFeed(feedOf(t, key))
	require.NoError(t, err)
	return tok
}

func messageToken(t *testing.T, mr refs.MessageRef) []byte {
	tok, err := bfe.EncodeMessage(&mr)
	require.NoError(t, err)
	return tok
}

func plainSection(t *testing.T, key ed25519.PrivateKey, content interface{}) bencode.RawMessage {
	section, err := EncodeContentSection(content, key, nil)
	require.NoError(t, err)
	return section
}

// buildEnvelope signs whatever it is given, which allows creating messages NewEnvelope refuses to make
func buildEnvelope(t *testing.T, key ed25519.PrivateKey, hmacKey []byte, author []byte, sequence int64, previous []byte, timestamp int64, section interface{}) []byte {
	hmac, err := hmacKeyFromBytes(hmacKey)
	require.NoError(t, err)

	payload, err := bencode.EncodeBytes([]interface{}{author, sequence, previous, timestamp, section})
	require.NoError(t, err)

	sig, err := bfe.EncodeSignature(sign(key, hmac, payload))
	require.NoError(t, err)

	data, err := bencode.EncodeBytes([]interface{}{bencode.RawMessage(payload), sig})
	require.NoError(t, err)
	return data
}

// testFeed creates n consecutive messages
func testFeed(t *testing.T, key ed25519.PrivateKey, hmacKey []byte, n int) [][]byte {
	var (
		msgs = make([][]byte, n)
		prev *refs.MessageRef
	)
	for i := range msgs {
		content := map[string]interface{}{
			"type":  "test",
			"count": i,
		}
		data, err := NewEnvelope(content, nil, key, int64(i+1), prev, Timestamp(1000+i), hmacKey, nil)
		require.NoError(t, err)
		msgs[i] = data

		id := MessageID(data)
		prev = &id
	}
	return msgs
}

func requireKind(t *testing.T, err error, kind error) ValidationError {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "wrong kind: %s", err)
	var ve ValidationError
	require.True(t, errors.As(err, &ve), "not a validation error: %T", err)
	require.True(t, IsMessageUnusable(err))
	return ve
}
