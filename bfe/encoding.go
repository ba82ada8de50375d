// SPDX-FileCopyrightText: 2022 Henry Bubert
//
// SPDX-License-Identifier: CC0-1.0

package bfe

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/zeebo/bencode"

	"go.mindeco.de/ssb-bendybutt/refs"
)

// MaxDepth limits how deeply lists and dictionaries may be nested
const MaxDepth = 64

// Encode converts a native value into a tree that can be handed to bencode.
// Leaves become BFE tokens ([]byte), numbers stay integers (int64),
// slices and arrays become []interface{} and string keyed maps stay maps.
//
// Strings which are feed or message URIs, or use the .sig.ed25519 or .box2 suffix,
// are encoded with the specific token. All other strings use the generic string token.
func Encode(v interface{}) (interface{}, error) {
	return encode(v, 0)
}

func encode(v interface{}, depth int) (interface{}, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	switch tv := v.(type) {
	case nil:
		return Nil(), nil

	case string:
		return encodeString(tv), nil

	case bool:
		return EncodeBool(tv), nil

	case refs.FeedRef:
		return EncodeFeed(tv)
	case *refs.FeedRef:
		if tv == nil {
			return Nil(), nil
		}
		return EncodeFeed(*tv)

	case refs.MessageRef:
		return EncodeMessage(&tv)
	case *refs.MessageRef:
		return EncodeMessage(tv)

	case Signature:
		return EncodeSignature(tv)

	case Box2:
		return EncodeBox2(tv), nil

	case int:
		return int64(tv), nil
	case int8:
		return int64(tv), nil
	case int16:
		return int64(tv), nil
	case int32:
		return int64(tv), nil
	case int64:
		return tv, nil
	case uint8:
		return int64(tv), nil
	case uint16:
		return int64(tv), nil
	case uint32:
		return int64(tv), nil
	case uint:
		return encodeUint(uint64(tv))
	case uint64:
		return encodeUint(tv)

	case float32:
		return encodeFloat(float64(tv))
	case float64:
		return encodeFloat(tv)

	case []byte:
		// raw bytes carry no tag and would be ambiguous on the wire
		return nil, fmt.Errorf("ssb/bfe: raw byte slices need a type: %w", ErrUnsupportedValue)

	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, elem := range tv {
			enc, err := encode(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("ssb/bfe: list element %d: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil

	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, elem := range tv {
			enc, err := encode(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("ssb/bfe: field %q: %w", k, err)
			}
			out[k] = enc
		}
		return out, nil
	}

	return encodeReflect(reflect.ValueOf(v), depth)
}

// encodeReflect handles typed slices and maps like []string or map[string]bool
func encodeReflect(rv reflect.Value, depth int) (interface{}, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			enc, err := encode(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("ssb/bfe: list element %d: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("ssb/bfe: map keys need to be strings, not %s: %w", rv.Type().Key(), ErrUnsupportedValue)
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			enc, err := encode(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, fmt.Errorf("ssb/bfe: field %q: %w", k, err)
			}
			out[k] = enc
		}
		return out, nil

	case reflect.Ptr:
		if rv.IsNil() {
			return Nil(), nil
		}
		return encode(rv.Elem().Interface(), depth)
	}

	return nil, fmt.Errorf("ssb/bfe: unhandled type %T: %w", rv.Interface(), ErrUnsupportedValue)
}

func encodeString(s string) []byte {
	switch {
	case strings.HasPrefix(s, refs.URIScheme+":"):
		if refs.IsFeedURI(s) {
			fr, err := refs.ParseFeedRef(s)
			if err == nil {
				tok, err := EncodeFeed(fr)
				if err == nil {
					return tok
				}
			}
		}
		if refs.IsMessageURI(s) {
			mr, err := refs.ParseMessageRef(s)
			if err == nil {
				tok, err := EncodeMessage(&mr)
				if err == nil {
					return tok
				}
			}
		}

	case strings.HasSuffix(s, sigSuffix):
		if sig, err := ParseSignature(s); err == nil {
			if tok, err := EncodeSignature(sig); err == nil {
				return tok
			}
		}

	case strings.HasSuffix(s, box2Suffix):
		if box, err := ParseBox2(s); err == nil {
			return EncodeBox2(box)
		}
	}
	return EncodeString(s)
}

func encodeUint(u uint64) (interface{}, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("ssb/bfe: integer %d overflows int64: %w", u, ErrUnsupportedValue)
	}
	return int64(u), nil
}

// bencode only knows integers. Whole numbers (like those from encoding/json) are fine.
func encodeFloat(f float64) (interface{}, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return nil, fmt.Errorf("ssb/bfe: %v is not an integer: %w", f, ErrUnsupportedValue)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, fmt.Errorf("ssb/bfe: %v overflows int64: %w", f, ErrUnsupportedValue)
	}
	return int64(f), nil
}

// Decode parses bencoded data and converts every byte string with DecodeToken.
// Lists become []interface{}, dictionaries map[string]interface{} and integers int64.
// data has to hold exactly one value.
func Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, ErrTooShort
	}
	n, err := Scan(data, MaxDepth+1)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidBencode, len(data)-n)
	}
	return decode(data, 0)
}

func decode(raw []byte, depth int) (interface{}, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	if len(raw) == 0 {
		return nil, ErrTooShort
	}

	switch c := raw[0]; {
	case c == 'l':
		var elems []bencode.RawMessage
		if err := bencode.DecodeBytes(raw, &elems); err != nil {
			return nil, fmt.Errorf("ssb/bfe: invalid bencode list: %w", err)
		}
		out := make([]interface{}, len(elems))
		for i, elem := range elems {
			v, err := decode(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("ssb/bfe: list element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil

	case c == 'd':
		var fields map[string]bencode.RawMessage
		if err := bencode.DecodeBytes(raw, &fields); err != nil {
			return nil, fmt.Errorf("ssb/bfe: invalid bencode dictionary: %w", err)
		}
		out := make(map[string]interface{}, len(fields))
		for k, elem := range fields {
			v, err := decode(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("ssb/bfe: field %q: %w", k, err)
			}
			out[k] = v
		}
		return out, nil

	case c == 'i':
		var n int64
		if err := bencode.DecodeBytes(raw, &n); err != nil {
			return nil, fmt.Errorf("ssb/bfe: invalid bencode integer: %w", err)
		}
		return n, nil

	case c >= '0' && c <= '9':
		var token []byte
		if err := bencode.DecodeBytes(raw, &token); err != nil {
			return nil, fmt.Errorf("ssb/bfe: invalid bencode string: %w", err)
		}
		return DecodeToken(token)
	}

	return nil, fmt.Errorf("ssb/bfe: unexpected bencode prefix %q: %w", raw[0], ErrUnsupportedValue)
}

// Marshal is Encode followed by bencoding the result
func Marshal(v interface{}) ([]byte, error) {
	tree, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return bencode.EncodeBytes(tree)
}
