// SPDX-License-Identifier: MIT

package bendybutt

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zeebo/bencode"
	"golang.org/x/crypto/ed25519"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

// Boxer encrypts the plaintext content section for the recipients.
// author and previous are the BFE tokens of the message being created.
// The returned ciphertext replaces the whole content section.
type Boxer func(author, plaintext, previous []byte, recps []string) (bfe.Box2, error)

// Encoder creates consecutive messages for one feed
type Encoder struct {
	key        ed25519.PrivateKey
	contentKey ed25519.PrivateKey
	hmacKey    []byte
	boxer      Boxer

	setTimestamp bool
	now          func() time.Time
}

// EncoderOption configures an Encoder
type EncoderOption func(*Encoder) error

// WithHMACKey scopes all signatures to a network. The key has to be 32 bytes.
func WithHMACKey(key []byte) EncoderOption {
	return func(e *Encoder) error {
		if _, err := hmacKeyFromBytes(key); err != nil {
			return err
		}
		e.hmacKey = key
		return nil
	}
}

// WithBoxer sets the encryption used for content with recipients
func WithBoxer(b Boxer) EncoderOption {
	return func(e *Encoder) error {
		e.boxer = b
		return nil
	}
}

// WithNowTimestamps controls if messages get the current time or zero as their timestamp. It is enabled by default.
func WithNowTimestamps(yes bool) EncoderOption {
	return func(e *Encoder) error {
		e.setTimestamp = yes
		return nil
	}
}

// WithContentKey signs the content with a different key than the envelope, like a sub-feed announcing itself on its metafeed
func WithContentKey(key ed25519.PrivateKey) EncoderOption {
	return func(e *Encoder) error {
		if n := len(key); n != ed25519.PrivateKeySize {
			return errors.Errorf("bendybutt: content key has %d bytes, expected %d", n, ed25519.PrivateKeySize)
		}
		e.contentKey = key
		return nil
	}
}

// NewEncoder returns an Encoder that signs envelopes with key
func NewEncoder(key ed25519.PrivateKey, opts ...EncoderOption) (*Encoder, error) {
	if n := len(key); n != ed25519.PrivateKeySize {
		return nil, errors.Errorf("bendybutt: signing key has %d bytes, expected %d", n, ed25519.PrivateKeySize)
	}

	e := &Encoder{
		key:          key,
		contentKey:   key,
		setTimestamp: true,
		now:          time.Now,
	}
	for i, opt := range opts {
		if err := opt(e); err != nil {
			return nil, errors.Wrapf(err, "NewEncoder: option %d failed", i)
		}
	}
	return e, nil
}

// Author returns the feed the encoder creates messages for
func (e *Encoder) Author() refs.FeedRef {
	fr, err := refs.NewFeedRefFromBytes(e.key.Public().(ed25519.PublicKey), refs.RefAlgoFeedBendyButt)
	if err != nil {
		panic(err) // the key length is checked in NewEncoder
	}
	return fr
}

// Encode creates the envelope at sequence on top of previous, which has to be nil for the first message.
// It returns the envelope and its id, which is the previous of the next message.
func (e *Encoder) Encode(sequence int64, previous *refs.MessageRef, content interface{}) ([]byte, refs.MessageRef, error) {
	var ts Timestamp
	if e.setTimestamp {
		ts = NewTimestamp(e.now())
	}

	data, err := NewEnvelope(content, e.contentKey, e.key, sequence, previous, ts, e.hmacKey, e.boxer)
	if err != nil {
		return nil, refs.MessageRef{}, err
	}
	return data, MessageID(data), nil
}

// NewEnvelope creates and signs a message.
// contentKey signs the content and may differ from key, which signs the envelope and is the author.
// hmacKey and boxer are optional. Content with a "recps" field is encrypted with boxer.
func NewEnvelope(
	content interface{},
	contentKey, key ed25519.PrivateKey,
	sequence int64,
	previous *refs.MessageRef,
	timestamp Timestamp,
	hmacKey []byte,
	boxer Boxer,
) ([]byte, error) {
	if n := len(key); n != ed25519.PrivateKeySize {
		return nil, errors.Errorf("bendybutt/create: signing key has %d bytes, expected %d", n, ed25519.PrivateKeySize)
	}
	if contentKey == nil {
		contentKey = key
	}

	hmac, err := hmacKeyFromBytes(hmacKey)
	if err != nil {
		return nil, err
	}

	switch {
	case sequence < 1:
		return nil, errors.Wrapf(ErrSequence, "bendybutt/create: sequence %d", sequence)
	case sequence == 1 && previous != nil:
		return nil, errors.Wrap(ErrFirstPrevious, "bendybutt/create: the first message can't have a previous")
	case sequence > 1 && previous == nil:
		return nil, errors.Wrapf(ErrPreviousFormat, "bendybutt/create: sequence %d needs a previous", sequence)
	}
	if timestamp < 0 {
		return nil, errors.Wrapf(ErrTimestamp, "bendybutt/create: negative timestamp %d", timestamp)
	}

	author, err := refs.NewFeedRefFromBytes(key.Public().(ed25519.PublicKey), refs.RefAlgoFeedBendyButt)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: author")
	}
	authorTok, err := bfe.EncodeFeed(author)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: author")
	}
	prevTok, err := bfe.EncodeMessage(previous)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: previous")
	}

	plaintext, err := encodeContentSection(content, contentKey, hmac)
	if err != nil {
		return nil, err
	}

	var section interface{} = bencode.RawMessage(plaintext)

	recps, err := recipients(content)
	if err != nil {
		return nil, err
	}
	if len(recps) > 0 {
		if boxer == nil {
			return nil, ErrNoBoxer
		}
		ctxt, err := boxer(authorTok, plaintext, prevTok, recps)
		if err != nil {
			return nil, errors.Wrap(err, "bendybutt/create: boxing failed")
		}
		section = bfe.EncodeBox2(ctxt)
	}

	payload := []interface{}{authorTok, sequence, prevTok, int64(timestamp), section}
	payloadBen, err := bencode.EncodeBytes(payload)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: payload")
	}

	sigTok, err := bfe.EncodeSignature(sign(key, hmac, payloadBen))
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: signature")
	}

	data, err := bencode.EncodeBytes([]interface{}{bencode.RawMessage(payloadBen), sigTok})
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: envelope")
	}

	if n := len(data); n > MaxMessageSize {
		return nil, errors.Wrapf(ErrSize, "bendybutt/create: message is %d bytes, must not be greater than %d bytes", n, MaxMessageSize)
	}
	return data, nil
}

// EncodeContentSection returns the bencoded [Content, ContentSignature] pair,
// which is what a Boxer receives as plaintext.
func EncodeContentSection(content interface{}, contentKey ed25519.PrivateKey, hmacKey []byte) ([]byte, error) {
	if n := len(contentKey); n != ed25519.PrivateKeySize {
		return nil, errors.Errorf("bendybutt/create: content key has %d bytes, expected %d", n, ed25519.PrivateKeySize)
	}
	hmac, err := hmacKeyFromBytes(hmacKey)
	if err != nil {
		return nil, err
	}
	return encodeContentSection(content, contentKey, hmac)
}

func encodeContentSection(content interface{}, contentKey ed25519.PrivateKey, hmac *[32]byte) ([]byte, error) {
	tree, err := bfe.Encode(content)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: content")
	}
	switch tree.(type) {
	case []interface{}, map[string]interface{}:
	default:
		return nil, errors.Wrapf(ErrContentShape, "bendybutt/create: content has to be a map or a list, not %T", content)
	}

	contentBen, err := bencode.EncodeBytes(tree)
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: content")
	}

	sigTok, err := bfe.EncodeSignature(sign(contentKey, hmac, contentSigInput(contentBen)))
	if err != nil {
		return nil, errors.Wrap(err, "bendybutt/create: content signature")
	}

	return bencode.EncodeBytes([]interface{}{bencode.RawMessage(contentBen), sigTok})
}

// recipients returns the entries of a recps field, if content has one
func recipients(content interface{}) ([]string, error) {
	m, ok := content.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	v, has := m["recps"]
	if !has || v == nil {
		return nil, nil
	}

	var list []interface{}
	switch tv := v.(type) {
	case []interface{}:
		list = tv
	case []string:
		return tv, nil
	default:
		return nil, errors.Wrapf(ErrContentShape, "bendybutt/create: recps has to be a list, not %T", v)
	}

	recps := make([]string, len(list))
	for i, r := range list {
		switch tr := r.(type) {
		case string:
			recps[i] = tr
		case refs.Ref:
			recps[i] = tr.Ref()
		default:
			return nil, errors.Wrapf(ErrContentShape, "bendybutt/create: recipient %d is a %T", i, r)
		}
	}
	return recps, nil
}
