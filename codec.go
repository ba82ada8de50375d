// SPDX-License-Identifier: MIT

package bendybutt

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/zeebo/bencode"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

// Encode turns a structured message into its envelope bytes.
// The output is deterministic; it doesn't sign anything, see NewEnvelope for that.
func Encode(msg Message) ([]byte, error) {
	author, err := bfe.EncodeFeed(msg.Author)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/encode: author")
	}

	previous, err := bfe.EncodeMessage(msg.Previous)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/encode: previous")
	}

	var section interface{}
	if box, ok := msg.Content.(bfe.Box2); ok {
		section = bfe.EncodeBox2(box)
	} else {
		content, err := bfe.Encode(msg.Content)
		if err != nil {
			return nil, errors.Wrap(err, "bendybutt/encode: content")
		}
		contentSig, err := bfe.EncodeSignature(msg.ContentSignature)
		if err != nil {
			return nil, errors.Wrap(err, "bendybutt/encode: content signature")
		}
		section = []interface{}{content, contentSig}
	}

	sig, err := bfe.EncodeSignature(msg.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/encode: signature")
	}

	payload := []interface{}{author, msg.Sequence, previous, int64(msg.Timestamp), section}
	return bencode.EncodeBytes([]interface{}{payload, sig})
}

// Decode parses envelope bytes into the structured form.
// It does not validate. Broken bencode or BFE is a DecodeError, wrong list lengths are ErrShape.
func Decode(data []byte) (*Message, error) {
	top, payload, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}

	var msg Message

	author, err := decodeTokenAs(payload[0], "author")
	if err != nil {
		return nil, err
	}
	fr, ok := author.(refs.FeedRef)
	if !ok {
		return nil, newDecodeError(errors.Errorf("got %T", author), "author is not a feed")
	}
	msg.Author = fr

	if !isInteger(payload[1]) {
		return nil, newDecodeError(errors.Errorf("prefix %q", firstByte(payload[1])), "sequence is not an integer")
	}
	if err := bencode.DecodeBytes(payload[1], &msg.Sequence); err != nil {
		return nil, newDecodeError(err, "sequence")
	}

	previous, err := decodeTokenAs(payload[2], "previous")
	if err != nil {
		return nil, err
	}
	switch tv := previous.(type) {
	case nil:
	case refs.MessageRef:
		msg.Previous = &tv
	default:
		return nil, newDecodeError(errors.Errorf("got %T", previous), "previous is not a message")
	}

	var ts int64
	if !isInteger(payload[3]) {
		return nil, newDecodeError(errors.Errorf("prefix %q", firstByte(payload[3])), "timestamp is not an integer")
	}
	if err := bencode.DecodeBytes(payload[3], &ts); err != nil {
		return nil, newDecodeError(err, "timestamp")
	}
	msg.Timestamp = Timestamp(ts)

	if err := decodeContentSection(&msg, payload[4]); err != nil {
		return nil, err
	}

	sig, err := decodeTokenAs(top[1], "signature")
	if err != nil {
		return nil, err
	}
	if msg.Signature, ok = sig.(bfe.Signature); !ok {
		return nil, newDecodeError(errors.Errorf("got %T", sig), "signature is not a signature")
	}

	return &msg, nil
}

// DecodeDecrypted decodes an envelope with boxed content and fills in the
// content and content signature from plaintext, which was decrypted elsewhere.
func DecodeDecrypted(plaintext, data []byte) (*Message, error) {
	msg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if !msg.IsBoxed() {
		return nil, newDecodeError(errors.New("content is not boxed"), "decrypted")
	}

	if err := checkSingleValue(plaintext); err != nil {
		return nil, err
	}
	if len(plaintext) == 0 || plaintext[0] != 'l' {
		return nil, newDecodeError(errors.New("expected a list"), "decrypted content section")
	}
	if err := decodeContentSection(msg, plaintext); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeContentSection(msg *Message, raw bencode.RawMessage) error {
	switch {
	case isByteString(raw):
		box, err := decodeTokenAs(raw, "content section")
		if err != nil {
			return err
		}
		ctxt, ok := box.(bfe.Box2)
		if !ok {
			return newDecodeError(errors.Errorf("got %T", box), "content section is neither a list nor ciphertext")
		}
		msg.Content = ctxt
		msg.ContentSignature = nil
		return nil

	case isList(raw):
		var section []bencode.RawMessage
		if err := bencode.DecodeBytes(raw, &section); err != nil {
			return newDecodeError(err, "content section")
		}
		if n := len(section); n != 2 {
			return newDecodeError(errors.Errorf("got %d elements", n), "content section is not a pair")
		}

		content, err := bfe.Decode(section[0])
		if err != nil {
			return newDecodeError(err, "content")
		}
		msg.Content = content

		sig, err := decodeTokenAs(section[1], "content signature")
		if err != nil {
			return err
		}
		var ok bool
		if msg.ContentSignature, ok = sig.(bfe.Signature); !ok {
			return newDecodeError(errors.Errorf("got %T", sig), "content signature is not a signature")
		}
		return nil
	}

	return newDecodeError(errors.Errorf("prefix %q", firstByte(raw)), "content section is neither a list nor ciphertext")
}

func decodeTokenAs(raw bencode.RawMessage, what string) (interface{}, error) {
	if !isByteString(raw) {
		return nil, newDecodeError(errors.Errorf("prefix %q", firstByte(raw)), what+" is not a byte string")
	}
	v, err := bfe.Decode(raw)
	if err != nil {
		return nil, newDecodeError(err, what)
	}
	return v, nil
}

// Fields are the raw parts of an envelope, extracted without decoding the content.
// The byte slices must be treated as read-only.
type Fields struct {
	Author    []byte // BFE token
	Sequence  int64
	Previous  []byte // BFE token
	Timestamp int64

	ContentSection bencode.RawMessage

	Signature []byte // BFE token

	// RawPayload holds the payload list exactly as it was received, which is what the signature covers.
	RawPayload bencode.RawMessage
}

// ExtractFields is the cheap partial decode used before validating the content.
func ExtractFields(data []byte) (*Fields, error) {
	top, payload, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}
	return parseFields(top, payload)
}

// splitEnvelope checks the two outer list layers
func splitEnvelope(data []byte) (top, payload []bencode.RawMessage, err error) {
	if err := checkSingleValue(data); err != nil {
		return nil, nil, err
	}

	if !isList(data) {
		return nil, nil, newValidationError(ErrShape, "invalid message: expected a bencode list of length 2")
	}
	if err := bencode.DecodeBytes(data, &top); err != nil {
		return nil, nil, newDecodeError(err, "envelope")
	}
	if n := len(top); n != 2 {
		return nil, nil, newValidationError(ErrShape, "invalid message: object with length %d, expected a bencode list of length 2", n)
	}

	if !isList(top[0]) {
		return nil, nil, newValidationError(ErrShape, "invalid message: expected payload to be a bencode list of length 5")
	}
	if err := bencode.DecodeBytes(top[0], &payload); err != nil {
		return nil, nil, newDecodeError(err, "payload")
	}
	if n := len(payload); n != 5 {
		return nil, nil, newValidationError(ErrShape, "invalid message payload: object with length %d, expected a bencode list of length 5", n)
	}

	return top, payload, nil
}

// envelope, payload and content section lists around the content
const maxEnvelopeDepth = 3 + bfe.MaxDepth + 1

// checkSingleValue makes sure data is exactly one well formed bencode value.
// The bounded scan runs first so the decoder never sees deep nesting or lengths past the end of data.
func checkSingleValue(data []byte) error {
	if len(data) == 0 {
		return newDecodeError(bfe.ErrTooShort, "empty input")
	}
	n, err := bfe.Scan(data, maxEnvelopeDepth)
	if err != nil {
		return newDecodeError(err, "invalid bencode")
	}
	if n != len(data) {
		return newDecodeError(errors.Errorf("%d trailing bytes", len(data)-n), "invalid bencode")
	}

	var whole bencode.RawMessage
	if err := bencode.DecodeBytes(data, &whole); err != nil {
		return newDecodeError(err, "invalid bencode")
	}
	if len(whole) != len(data) {
		return newDecodeError(errors.Errorf("%d trailing bytes", len(data)-len(whole)), "invalid bencode")
	}
	return nil
}

func parseFields(top, payload []bencode.RawMessage) (*Fields, error) {
	var (
		f   Fields
		err error
	)

	f.RawPayload = top[0]

	if f.Author, err = byteString(payload[0]); err != nil {
		return nil, newValidationError(ErrAuthorFormat, "invalid message: expected author to be a buffer")
	}

	if !isInteger(payload[1]) {
		return nil, newValidationError(ErrSequence, "invalid message: expected sequence to be an integer")
	}
	if err := bencode.DecodeBytes(payload[1], &f.Sequence); err != nil {
		return nil, newValidationError(ErrSequence, "invalid message: sequence %s does not fit into 64 bits", string(payload[1]))
	}

	if f.Previous, err = byteString(payload[2]); err != nil {
		return nil, newValidationError(ErrPreviousFormat, "invalid message: expected previous to be a buffer")
	}

	if !isInteger(payload[3]) {
		return nil, newValidationError(ErrTimestamp, "invalid message: expected timestamp to be an integer")
	}
	if err := bencode.DecodeBytes(payload[3], &f.Timestamp); err != nil {
		return nil, newValidationError(ErrTimestamp, "invalid message: timestamp %s does not fit into 64 bits", string(payload[3]))
	}

	f.ContentSection = payload[4]

	if f.Signature, err = byteString(top[1]); err != nil {
		return nil, newValidationError(ErrSignatureFormat, "invalid message: expected signature to be a buffer")
	}

	return &f, nil
}

func byteString(raw bencode.RawMessage) ([]byte, error) {
	if !isByteString(raw) {
		return nil, fmt.Errorf("not a byte string: %q", firstByte(raw))
	}
	var b []byte
	if err := bencode.DecodeBytes(raw, &b); err != nil {
		return nil, err
	}
	return b, nil
}

func firstByte(raw []byte) byte {
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func isList(raw []byte) bool    { return len(raw) > 0 && raw[0] == 'l' }
func isDict(raw []byte) bool    { return len(raw) > 0 && raw[0] == 'd' }
func isInteger(raw []byte) bool { return len(raw) > 0 && raw[0] == 'i' }

func isByteString(raw []byte) bool {
	return len(raw) > 0 && raw[0] >= '0' && raw[0] <= '9'
}
