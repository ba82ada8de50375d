// SPDX-License-Identifier: MIT

// Package bendybutt implements the bendybutt-v1 feed format, the bencoded message
// log used by ssb metafeeds to announce and tombstone their sub-feeds.
//
// An envelope is the bencoded list [Payload, Signature] where
//
//	Payload = [Author, Sequence, Previous, Timestamp, ContentSection]
//	ContentSection = [Content, ContentSignature] | box2 ciphertext
//
// and all byte strings are BFE tokens (see package bfe).
package bendybutt

import (
	"encoding/json"
	"fmt"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

// MaxMessageSize is the largest envelope, in bytes, that validates
const MaxMessageSize = 8192

// Message is the structured form of an envelope
type Message struct {
	Author    refs.FeedRef     `json:"author"`
	Sequence  int64            `json:"sequence"`
	Previous  *refs.MessageRef `json:"previous"`
	Timestamp Timestamp        `json:"timestamp"`

	// Content is a decoded map or list, or a bfe.Box2 if the content section is encrypted.
	Content interface{} `json:"content"`

	// ContentSignature is nil for encrypted content
	ContentSignature bfe.Signature `json:"contentSignature,omitempty"`

	Signature bfe.Signature `json:"signature"`
}

// IsBoxed reports whether the content section is ciphertext
func (msg Message) IsBoxed() bool {
	_, ok := msg.Content.(bfe.Box2)
	return ok
}

type plainMessage Message

var (
	_ json.Marshaler   = (*Message)(nil)
	_ json.Unmarshaler = (*Message)(nil)
)

// MarshalJSON renders refs as ssb URIs and signatures and ciphertext in their text forms
func (msg Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(plainMessage(msg))
}

// UnmarshalJSON is the inverse of MarshalJSON.
// Refs inside the content stay strings; Encode turns them back into the same tokens.
func (msg *Message) UnmarshalJSON(data []byte) error {
	var pm plainMessage
	if err := json.Unmarshal(data, &pm); err != nil {
		return err
	}

	if s, ok := pm.Content.(string); ok {
		box, err := bfe.ParseBox2(s)
		if err != nil {
			return fmt.Errorf("bendybutt/json: content is a string but not ciphertext: %w", err)
		}
		pm.Content = box
	}

	*msg = Message(pm)
	return nil
}
