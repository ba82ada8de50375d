// Package bfe implements the binary field encoding (BFE) used by bendybutt-v1 envelopes.
//
// Every token is [type:1][format:1][data...]. Only the tags of the table below are
// understood; everything else is rejected with an UnknownTagError.
//
//	feed       00 03  32 bytes ed25519 public key
//	message    01 04  32 bytes sha256 of the envelope
//	signature  04 00  64 bytes ed25519 signature
//	box2       05 01  ciphertext
//	string     06 00  utf8
//	bool       06 01  one byte, 0 or 1
//	nil        06 02  no data
//
// See https://github.com/ssb-ngi-pointer/ssb-bfe-spec
package bfe

import (
	"errors"
	"fmt"
)

// Type are the BFE type values
const (
	TypeFeed      uint8 = 0
	TypeMessage   uint8 = 1
	TypeSignature uint8 = 4
	TypeEncrypted uint8 = 5
	TypeGeneric   uint8 = 6
)

// These are the BFE format values, their meaning depends on the type
const (
	FormatFeedBendyButt    uint8 = 3
	FormatMessageBendyButt uint8 = 4
	FormatSignatureEd25519 uint8 = 0
	FormatEncryptedBox2    uint8 = 1
)

// generic formats
const (
	FormatGenericString uint8 = iota
	FormatGenericBool
	FormatGenericNil
)

// Lengths of the fixed size tokens, including the two tag bytes
const (
	FeedLength      = 2 + 32
	MessageLength   = 2 + 32
	SignatureLength = 2 + 64
	NilLength       = 2
)

// Tag is the type and format prefix of a token
type Tag [2]byte

// The tags this package understands
var (
	TagFeed      = Tag{TypeFeed, FormatFeedBendyButt}
	TagMessage   = Tag{TypeMessage, FormatMessageBendyButt}
	TagSignature = Tag{TypeSignature, FormatSignatureEd25519}
	TagBox2      = Tag{TypeEncrypted, FormatEncryptedBox2}
	TagString    = Tag{TypeGeneric, FormatGenericString}
	TagBool      = Tag{TypeGeneric, FormatGenericBool}
	TagNil       = Tag{TypeGeneric, FormatGenericNil}
)

// TagOf returns the first two bytes of a token
func TagOf(token []byte) (Tag, error) {
	if len(token) < 2 {
		return Tag{}, ErrTooShort
	}
	return Tag{token[0], token[1]}, nil
}

// Is reports whether token starts with the tag
func (t Tag) Is(token []byte) bool {
	return len(token) >= 2 && token[0] == t[0] && token[1] == t[1]
}

func (t Tag) String() string {
	return fmt.Sprintf("0x%02x%02x", t[0], t[1])
}

// Common errors
var (
	ErrTooShort         = errors.New("ssb/bfe: data too short")
	ErrWrongType        = errors.New("ssb/bfe: unexpected type value")
	ErrUnhandledFormat  = errors.New("ssb/bfe: unhandled format value")
	ErrInvalidLength    = errors.New("ssb/bfe: invalid token length")
	ErrUnsupportedValue = errors.New("ssb/bfe: value can not be encoded")
	ErrTooDeep          = errors.New("ssb/bfe: value nested too deeply")
	ErrInvalidBencode   = errors.New("ssb/bfe: invalid bencode")
)

// UnknownTagError is returned for tokens with a tag outside of the table
type UnknownTagError struct {
	Tag Tag
}

func (e UnknownTagError) Error() string {
	return fmt.Sprintf("ssb/bfe: unknown tag %s", e.Tag)
}

// Unwrap distinguishes between an unknown type and a known type with an unknown format
func (e UnknownTagError) Unwrap() error {
	switch e.Tag[0] {
	case TypeFeed, TypeMessage, TypeSignature, TypeEncrypted, TypeGeneric:
		return ErrUnhandledFormat
	}
	return ErrWrongType
}

// LengthError is returned when a fixed size token has the wrong size
type LengthError struct {
	Tag       Tag
	Want, Got int
}

func (e LengthError) Error() string {
	return fmt.Sprintf("ssb/bfe: token %s has %d bytes, expected %d", e.Tag, e.Got, e.Want)
}

func (e LengthError) Unwrap() error { return ErrInvalidLength }
