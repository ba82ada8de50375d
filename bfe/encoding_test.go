// SPDX-FileCopyrightText: 2022 Henry Bubert
//
// SPDX-License-Identifier: CC0-1.0

package bfe_test

import (
	"bytes"
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

func mustMakeFeed(t *testing.T, key []byte) refs.FeedRef {
	fr, err := refs.NewFeedRefFromBytes(key, refs.RefAlgoFeedBendyButt)
	if err != nil {
		t.Fatal(err)
	}
	return fr
}

func mustMakeMessage(t *testing.T, hash []byte) refs.MessageRef {
	mr, err := refs.NewMessageRefFromBytes(hash, refs.RefAlgoMessageBendyButt)
	if err != nil {
		t.Fatal(err)
	}
	return mr
}

func TestTokens(t *testing.T) {
	type testcase struct {
		name string
		in   interface{}
		out  []byte
	}

	tcs := []testcase{
		{
			name: "feed",
			in:   mustMakeFeed(t, seq(0, 32)),
			out:  append([]byte{0x00, 0x03}, seq(0, 32)...),
		},
		{
			name: "message",
			in:   mustMakeMessage(t, seq(1, 33)),
			out:  append([]byte{0x01, 0x04}, seq(1, 33)...),
		},
		{
			name: "signature",
			in:   bfe.Signature(seq(0, 64)),
			out:  append([]byte{0x04, 0x00}, seq(0, 64)...),
		},
		{
			name: "box2",
			in:   bfe.Box2(seq(10, 20)),
			out:  append([]byte{0x05, 0x01}, seq(10, 20)...),
		},
		{
			name: "string",
			in:   "metafeed/add/derived",
			out:  append([]byte{0x06, 0x00}, []byte("metafeed/add/derived")...),
		},
		{
			name: "empty string",
			in:   "",
			out:  []byte{0x06, 0x00},
		},
		{
			name: "true",
			in:   true,
			out:  []byte{0x06, 0x01, 0x01},
		},
		{
			name: "false",
			in:   false,
			out:  []byte{0x06, 0x01, 0x00},
		},
		{
			name: "nil",
			in:   nil,
			out:  []byte{0x06, 0x02},
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)

			enc, err := bfe.Encode(tc.in)
			r.NoError(err)
			r.Equal(tc.out, enc)

			dec, err := bfe.DecodeToken(tc.out)
			r.NoError(err)
			r.Equal(tc.in, dec)
		})
	}
}

func TestTextForms(t *testing.T) {
	r := require.New(t)

	fr := mustMakeFeed(t, seq(0, 32))
	enc, err := bfe.Encode(fr.Ref())
	r.NoError(err)
	r.Equal(append([]byte{0x00, 0x03}, seq(0, 32)...), enc, "feed URI is encoded as feed token")

	mr := mustMakeMessage(t, seq(0, 32))
	enc, err = bfe.Encode(mr.Ref())
	r.NoError(err)
	r.Equal(append([]byte{0x01, 0x04}, seq(0, 32)...), enc, "message URI is encoded as message token")

	sig := bfe.Signature(seq(0, 64))
	enc, err = bfe.Encode(sig.String())
	r.NoError(err)
	r.Equal(append([]byte{0x04, 0x00}, seq(0, 64)...), enc)

	box := bfe.Box2([]byte("ciphertext"))
	enc, err = bfe.Encode(box.String())
	r.NoError(err)
	r.Equal(append([]byte{0x05, 0x01}, []byte("ciphertext")...), enc)

	// looks like a URI but is not a bendybutt one
	other := "ssb:feed/classic/6CAxOI3f-LUOVrbAl0IemqiS7ATpQvr9Mdw9LC4-Uv0="
	enc, err = bfe.Encode(other)
	r.NoError(err)
	r.Equal(bfe.EncodeString(other), enc)

	// wrong signature length stays a string
	short := "AAAA.sig.ed25519"
	enc, err = bfe.Encode(short)
	r.NoError(err)
	r.Equal(bfe.EncodeString(short), enc)
}

func TestDecodeTokenErrors(t *testing.T) {
	type testcase struct {
		name string
		in   []byte
		err  error
	}

	tcs := []testcase{
		{name: "empty", in: nil, err: bfe.ErrTooShort},
		{name: "one byte", in: []byte{0x06}, err: bfe.ErrTooShort},
		{name: "legacy nil", in: []byte{0x06, 0x15}, err: bfe.ErrUnhandledFormat},
		{name: "classic feed", in: append([]byte{0x00, 0x00}, seq(0, 32)...), err: bfe.ErrUnhandledFormat},
		{name: "legacy feed", in: append([]byte{0x00, 0x02}, seq(0, 32)...), err: bfe.ErrUnhandledFormat},
		{name: "legacy message", in: append([]byte{0x01, 0x02}, seq(0, 32)...), err: bfe.ErrUnhandledFormat},
		{name: "unknown type", in: []byte{0xff, 0x03}, err: bfe.ErrWrongType},
		{name: "blob type", in: append([]byte{0x02, 0x00}, seq(0, 32)...), err: bfe.ErrWrongType},
		{name: "short feed", in: append([]byte{0x00, 0x03}, seq(0, 31)...), err: bfe.ErrInvalidLength},
		{name: "long message", in: append([]byte{0x01, 0x04}, seq(0, 33)...), err: bfe.ErrInvalidLength},
		{name: "short signature", in: append([]byte{0x04, 0x00}, seq(0, 63)...), err: bfe.ErrInvalidLength},
		{name: "nil with data", in: []byte{0x06, 0x02, 0x00}, err: bfe.ErrInvalidLength},
		{name: "bool without data", in: []byte{0x06, 0x01}, err: bfe.ErrInvalidLength},
		{name: "bool two", in: []byte{0x06, 0x01, 0x02}, err: bfe.ErrUnsupportedValue},
		{name: "bad utf8", in: []byte{0x06, 0x00, 0xff, 0xfe}, err: bfe.ErrUnsupportedValue},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			v, err := bfe.DecodeToken(tc.in)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.err), "wrong error: %s", err)
			require.Nil(t, v)
		})
	}

	_, err := bfe.DecodeToken([]byte{0x07, 0x07})
	var unknown bfe.UnknownTagError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "0x0707", unknown.Tag.String())
	require.Contains(t, err.Error(), "0x0707")
}

func TestTreeRoundtrip(t *testing.T) {
	r := require.New(t)

	fr := mustMakeFeed(t, seq(0, 32))
	mr := mustMakeMessage(t, seq(32, 64))

	content := map[string]interface{}{
		"type":        "metafeed/add/derived",
		"feedpurpose": "indexes",
		"subfeed":     fr,
		"nonce":       int64(42),
		"bool":        true,
		"tangles": map[string]interface{}{
			"metafeed": map[string]interface{}{
				"root":     nil,
				"previous": []interface{}{mr},
			},
		},
	}

	data, err := bfe.Marshal(content)
	r.NoError(err)

	again, err := bfe.Marshal(content)
	r.NoError(err)
	r.Equal(data, again, "not deterministic")

	decoded, err := bfe.Decode(data)
	r.NoError(err)
	r.Equal(content, decoded)
}

func TestEncodeTypedValues(t *testing.T) {
	r := require.New(t)

	tree, err := bfe.Encode(map[string][]string{"list": {"a", "b"}})
	r.NoError(err)
	r.Equal(map[string]interface{}{
		"list": []interface{}{bfe.EncodeString("a"), bfe.EncodeString("b")},
	}, tree)

	n, err := bfe.Encode(float64(1456154934819))
	r.NoError(err)
	r.Equal(int64(1456154934819), n)

	n, err = bfe.Encode(uint32(7))
	r.NoError(err)
	r.Equal(int64(7), n)

	var nilFeed *refs.FeedRef
	tok, err := bfe.Encode(nilFeed)
	r.NoError(err)
	r.Equal(bfe.Nil(), tok)

	for _, bad := range []interface{}{
		1.5,
		math.NaN(),
		uint64(math.MaxUint64),
		[]byte("untyped"),
		map[int]string{1: "a"},
		struct{}{},
		bfe.Signature(seq(0, 12)),
	} {
		_, err := bfe.Encode(bad)
		r.Error(err, "%T should not encode", bad)
	}
}

func TestDecodeRejects(t *testing.T) {
	r := require.New(t)

	// unknown tag nested in a list
	data, err := bencode.EncodeBytes([]interface{}{[]byte{0x06, 0x00, 'a'}, []byte{0x06, 0x15}})
	r.NoError(err)
	_, err = bfe.Decode(data)
	r.Error(err)
	r.True(errors.Is(err, bfe.ErrUnhandledFormat))

	_, err = bfe.Decode(nil)
	r.True(errors.Is(err, bfe.ErrTooShort))

	_, err = bfe.Decode([]byte("x"))
	r.Error(err)

	_, err = bfe.Decode([]byte("l5:"))
	r.Error(err)

	deep := make([]byte, 0, 2*(bfe.MaxDepth+2))
	for i := 0; i < bfe.MaxDepth+2; i++ {
		deep = append(deep, 'l')
	}
	for i := 0; i < bfe.MaxDepth+2; i++ {
		deep = append(deep, 'e')
	}
	_, err = bfe.Decode(deep)
	r.True(errors.Is(err, bfe.ErrTooDeep), "got %v", err)
}

func TestScan(t *testing.T) {
	type testcase struct {
		name  string
		in    string
		depth int
		n     int
		err   error
	}

	tcs := []testcase{
		{name: "integer", in: "i-42e", depth: 1, n: 5},
		{name: "string", in: "3:abc", depth: 1, n: 5},
		{name: "empty string", in: "0:", depth: 1, n: 2},
		{name: "first value only", in: "lei1e", depth: 1, n: 2},
		{name: "nested", in: "ld1:ali1eee3:xyze", depth: 3, n: 17},
		{name: "at the limit", in: "llee", depth: 2, n: 4},
		{name: "too deep", in: "llleee", depth: 2, err: bfe.ErrTooDeep},
		{name: "open list", in: "l", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "unmatched end", in: "e", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "length past the end", in: "l1999999999:e", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "length too long", in: "99999999999:", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "no colon", in: "3abc", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "integer too long", in: "i123456789012345678901e", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "integer without digits", in: "i-e", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "integer without end", in: "i12", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "integer key", in: "di1ei2ee", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "key without value", in: "d1:ae", depth: 1, err: bfe.ErrInvalidBencode},
		{name: "garbage", in: "x", depth: 1, err: bfe.ErrInvalidBencode},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			n, err := bfe.Scan([]byte(tc.in), tc.depth)
			if tc.err != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.err), "wrong error: %s", err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.n, n)
		})
	}
}

func TestDecodeHostileInput(t *testing.T) {
	r := require.New(t)

	// would exhaust the stack of a recursive decoder
	_, err := bfe.Decode(bytes.Repeat([]byte("l"), 1000000))
	r.True(errors.Is(err, bfe.ErrTooDeep), "got %v", err)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	_, err = bfe.Decode([]byte("l1999999999:e"))
	runtime.ReadMemStats(&after)
	r.True(errors.Is(err, bfe.ErrInvalidBencode), "got %v", err)
	r.Less(after.TotalAlloc-before.TotalAlloc, uint64(1<<20), "declared length was allocated")

	_, err = bfe.Decode([]byte("lee"))
	r.True(errors.Is(err, bfe.ErrInvalidBencode), "trailing bytes: %v", err)
}

// utils

func seq(start, end int) []byte {
	out := make([]byte, end-start)
	for i := range out {
		out[i] = byte(i + start)
	}
	return out
}
