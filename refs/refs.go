// SPDX-License-Identifier: MIT

// Package refs offers the feed and message reference types of the bendybutt-v1 feed format
// and their text encoding as ssb URIs, without pulling in the envelope codec.
package refs

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/ed25519"
)

// Ref is the abstract interface all reference types should implement.
type Ref interface {
	Ref() string      // returns the full reference as an ssb URI
	ShortRef() string // returns a shortend prefix
}

// RefAlgo names the format a reference belongs to
type RefAlgo string

// Some constant identifiers
const (
	RefAlgoFeedBendyButt    RefAlgo = "bendybutt-v1"
	RefAlgoMessageBendyButt RefAlgo = "bendybutt-v1"
)

// FeedRef defines a publickey as ID of a bendybutt-v1 metafeed or sub-feed.
type FeedRef struct {
	id   [32]byte
	algo RefAlgo
}

// NewFeedRefFromBytes copies the 32 bytes of a public key into a new FeedRef.
func NewFeedRefFromBytes(b []byte, algo RefAlgo) (FeedRef, error) {
	var fr FeedRef
	if n := len(b); n != 32 {
		return fr, newFeedRefLenError(n)
	}
	if algo != RefAlgoFeedBendyButt {
		return fr, ErrInvalidRefAlgo
	}
	copy(fr.id[:], b)
	fr.algo = algo
	return fr, nil
}

// Algo returns the feed format
func (ref FeedRef) Algo() RefAlgo { return ref.algo }

// PubKey returns the ed25519 public key of the feed
func (ref FeedRef) PubKey() ed25519.PublicKey {
	pk := make(ed25519.PublicKey, 32)
	copy(pk, ref.id[:])
	return pk
}

// Ref returns the ssb URI of the feed
func (ref FeedRef) Ref() string {
	return composeURI(KindFeed, ref.algo, ref.id[:])
}

func (ref FeedRef) ShortRef() string {
	return fmt.Sprintf("<@%s.%s>", base64.StdEncoding.EncodeToString(ref.id[:3]), ref.algo)
}

func (ref FeedRef) String() string { return ref.Ref() }

// Equal compares format and public key
func (ref FeedRef) Equal(b FeedRef) bool {
	if ref.algo != b.algo {
		return false
	}
	return bytes.Equal(ref.id[:], b.id[:])
}

var (
	_ encoding.TextMarshaler   = (*FeedRef)(nil)
	_ encoding.TextUnmarshaler = (*FeedRef)(nil)
)

func (ref FeedRef) MarshalText() ([]byte, error) {
	return []byte(ref.Ref()), nil
}

func (ref *FeedRef) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*ref = FeedRef{}
		return nil
	}
	newRef, err := ParseFeedRef(string(text))
	if err != nil {
		return err
	}
	*ref = newRef
	return nil
}

// ParseFeedRef uses ParseRef and checks that it returns a FeedRef
func ParseFeedRef(s string) (FeedRef, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return FeedRef{}, fmt.Errorf("feedRef: couldn't parse %q: %w", s, err)
	}
	newRef, ok := ref.(FeedRef)
	if !ok {
		return FeedRef{}, fmt.Errorf("feedRef: not a feed! %T: %w", ref, ErrInvalidRefType)
	}
	return newRef, nil
}

// MessageRef defines the content addressed version of a bendybutt message, identified by the hash of its envelope.
type MessageRef struct {
	hash [32]byte
	algo RefAlgo
}

// NewMessageRefFromBytes copies the 32 bytes of an envelope hash into a new MessageRef.
func NewMessageRefFromBytes(b []byte, algo RefAlgo) (MessageRef, error) {
	var mr MessageRef
	if n := len(b); n != 32 {
		return mr, newHashLenError(n)
	}
	if algo != RefAlgoMessageBendyButt {
		return mr, ErrInvalidRefAlgo
	}
	copy(mr.hash[:], b)
	mr.algo = algo
	return mr, nil
}

func (ref MessageRef) Algo() RefAlgo { return ref.algo }

// Hash returns a copy of the 32 hash bytes
func (ref MessageRef) Hash() []byte {
	h := make([]byte, 32)
	copy(h, ref.hash[:])
	return h
}

// Ref prints the full identifier as an ssb URI
func (ref MessageRef) Ref() string {
	return composeURI(KindMessage, ref.algo, ref.hash[:])
}

// ShortRef prints a shortend version
func (ref MessageRef) ShortRef() string {
	return fmt.Sprintf("<%%%s.%s>", base64.StdEncoding.EncodeToString(ref.hash[:3]), ref.algo)
}

func (ref MessageRef) String() string { return ref.Ref() }

func (ref MessageRef) Equal(other MessageRef) bool {
	if ref.algo != other.algo {
		return false
	}
	return bytes.Equal(ref.hash[:], other.hash[:])
}

var (
	_ encoding.TextMarshaler   = (*MessageRef)(nil)
	_ encoding.TextUnmarshaler = (*MessageRef)(nil)
)

func (ref MessageRef) MarshalText() ([]byte, error) {
	return []byte(ref.Ref()), nil
}

func (ref *MessageRef) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*ref = MessageRef{}
		return nil
	}
	newRef, err := ParseMessageRef(string(text))
	if err != nil {
		return fmt.Errorf("message(%s): unmarshal failed: %w", string(text), err)
	}
	*ref = newRef
	return nil
}

// ParseMessageRef uses ParseRef and checks that it returns a MessageRef
func ParseMessageRef(s string) (MessageRef, error) {
	ref, err := ParseRef(s)
	if err != nil {
		return MessageRef{}, fmt.Errorf("messageRef: failed to parse ref (%q): %w", s, err)
	}
	newRef, ok := ref.(MessageRef)
	if !ok {
		return MessageRef{}, fmt.Errorf("messageRef: not a message! %T: %w", ref, ErrInvalidRefType)
	}
	return newRef, nil
}

// ParseRef decodes an ssb URI of a bendybutt-v1 feed or message.
func ParseRef(str string) (Ref, error) {
	if len(str) == 0 {
		return nil, ErrInvalidRef
	}

	kind, algo, data, err := decomposeURI(str)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindFeed:
		if algo != RefAlgoFeedBendyButt {
			return nil, ErrInvalidRefAlgo
		}
		fr, err := NewFeedRefFromBytes(data, algo)
		if err != nil {
			return nil, err
		}
		return fr, nil
	case KindMessage:
		if algo != RefAlgoMessageBendyButt {
			return nil, ErrInvalidRefAlgo
		}
		mr, err := NewMessageRefFromBytes(data, algo)
		if err != nil {
			return nil, err
		}
		return mr, nil
	}

	return nil, ErrInvalidRefType
}
