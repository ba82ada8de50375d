// SPDX-FileCopyrightText: 2022 Henry Bubert
//
// SPDX-License-Identifier: CC0-1.0

package bfe

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.mindeco.de/ssb-bendybutt/refs"
)

// Signature is a raw ed25519 signature
type Signature []byte

const sigSuffix = ".sig.ed25519"

// String returns the base64 form with the .sig.ed25519 suffix
func (s Signature) String() string {
	return base64.StdEncoding.EncodeToString(s) + sigSuffix
}

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	sig, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// ParseSignature decodes the text form of a signature
func ParseSignature(input string) (Signature, error) {
	if !strings.HasSuffix(input, sigSuffix) {
		return nil, fmt.Errorf("ssb/bfe: signature without %s suffix: %w", sigSuffix, ErrUnsupportedValue)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(input, sigSuffix))
	if err != nil {
		return nil, fmt.Errorf("ssb/bfe: signature is not base64: %w", err)
	}
	if n := len(raw); n != SignatureLength-2 {
		return nil, LengthError{Tag: TagSignature, Want: SignatureLength, Got: n + 2}
	}
	return Signature(raw), nil
}

// Box2 is an opaque ciphertext, produced and opened outside of this package
type Box2 []byte

const box2Suffix = ".box2"

// String returns the base64 form with the .box2 suffix
func (b Box2) String() string {
	return base64.StdEncoding.EncodeToString(b) + box2Suffix
}

func (b Box2) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Box2) UnmarshalText(text []byte) error {
	box, err := ParseBox2(string(text))
	if err != nil {
		return err
	}
	*b = box
	return nil
}

// ParseBox2 decodes the text form of a ciphertext
func ParseBox2(input string) (Box2, error) {
	if !strings.HasSuffix(input, box2Suffix) {
		return nil, fmt.Errorf("ssb/bfe: ciphertext without %s suffix: %w", box2Suffix, ErrUnsupportedValue)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(input, box2Suffix))
	if err != nil {
		return nil, fmt.Errorf("ssb/bfe: ciphertext is not base64: %w", err)
	}
	return Box2(raw), nil
}

func withTag(t Tag, data []byte) []byte {
	out := make([]byte, 2+len(data))
	out[0], out[1] = t[0], t[1]
	copy(out[2:], data)
	return out
}

// Nil returns the 06 02 token, which also marks the missing previous of a first message
func Nil() []byte { return withTag(TagNil, nil) }

// EncodeFeed returns the 00 03 token of a feed
func EncodeFeed(fr refs.FeedRef) ([]byte, error) {
	if fr.Algo() != refs.RefAlgoFeedBendyButt {
		return nil, fmt.Errorf("ssb/bfe: unhandled feed format %q: %w", fr.Algo(), ErrUnhandledFormat)
	}
	return withTag(TagFeed, fr.PubKey()), nil
}

// EncodeMessage returns the 01 04 token of a message or the nil token if mr is nil
func EncodeMessage(mr *refs.MessageRef) ([]byte, error) {
	if mr == nil {
		return Nil(), nil
	}
	if mr.Algo() != refs.RefAlgoMessageBendyButt {
		return nil, fmt.Errorf("ssb/bfe: unhandled message format %q: %w", mr.Algo(), ErrUnhandledFormat)
	}
	return withTag(TagMessage, mr.Hash()), nil
}

// EncodeSignature returns the 04 00 token of a signature
func EncodeSignature(sig Signature) ([]byte, error) {
	if n := len(sig); n != SignatureLength-2 {
		return nil, LengthError{Tag: TagSignature, Want: SignatureLength, Got: n + 2}
	}
	return withTag(TagSignature, sig), nil
}

// EncodeBox2 returns the 05 01 token of a ciphertext
func EncodeBox2(ctxt Box2) []byte { return withTag(TagBox2, ctxt) }

// EncodeString returns the 06 00 token of a string
func EncodeString(s string) []byte { return withTag(TagString, []byte(s)) }

// EncodeBool returns the 06 01 token of a boolean
func EncodeBool(b bool) []byte {
	if b {
		return withTag(TagBool, []byte{1})
	}
	return withTag(TagBool, []byte{0})
}

// DecodeToken turns a single token back into its value.
// The result is one of refs.FeedRef, refs.MessageRef, Signature, Box2, string, bool or nil.
func DecodeToken(token []byte) (interface{}, error) {
	tag, err := TagOf(token)
	if err != nil {
		return nil, err
	}
	data := token[2:]

	switch tag {
	case TagFeed:
		if len(token) != FeedLength {
			return nil, LengthError{Tag: tag, Want: FeedLength, Got: len(token)}
		}
		fr, err := refs.NewFeedRefFromBytes(data, refs.RefAlgoFeedBendyButt)
		if err != nil {
			return nil, err
		}
		return fr, nil

	case TagMessage:
		if len(token) != MessageLength {
			return nil, LengthError{Tag: tag, Want: MessageLength, Got: len(token)}
		}
		mr, err := refs.NewMessageRefFromBytes(data, refs.RefAlgoMessageBendyButt)
		if err != nil {
			return nil, err
		}
		return mr, nil

	case TagSignature:
		if len(token) != SignatureLength {
			return nil, LengthError{Tag: tag, Want: SignatureLength, Got: len(token)}
		}
		return Signature(copyBytes(data)), nil

	case TagBox2:
		return Box2(copyBytes(data)), nil

	case TagString:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("ssb/bfe: string token is not valid utf8: %w", ErrUnsupportedValue)
		}
		return string(data), nil

	case TagBool:
		if len(token) != 3 {
			return nil, LengthError{Tag: tag, Want: 3, Got: len(token)}
		}
		switch data[0] {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return nil, fmt.Errorf("ssb/bfe: boolean token with value %d: %w", data[0], ErrUnsupportedValue)

	case TagNil:
		if len(token) != NilLength {
			return nil, LengthError{Tag: tag, Want: NilLength, Got: len(token)}
		}
		return nil, nil
	}

	return nil, UnknownTagError{Tag: tag}
}

// IsFeed reports whether token is a well formed bendybutt-v1 feed token
func IsFeed(token []byte) bool { return TagFeed.Is(token) && len(token) == FeedLength }

// IsMessage reports whether token is a well formed bendybutt-v1 message token
func IsMessage(token []byte) bool { return TagMessage.Is(token) && len(token) == MessageLength }

// IsNil reports whether token is the nil token
func IsNil(token []byte) bool { return TagNil.Is(token) && len(token) == NilLength }

// IsSignature reports whether token is a well formed ed25519 signature token
func IsSignature(token []byte) bool { return TagSignature.Is(token) && len(token) == SignatureLength }

// IsBox2 reports whether token is a ciphertext token
func IsBox2(token []byte) bool { return TagBox2.Is(token) }

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
