// SPDX-License-Identifier: MIT

package bendybutt

import (
	"bytes"

	"github.com/zeebo/bencode"
	"golang.org/x/crypto/ed25519"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

// Validate checks msg on its own (sequence 1, previous is nil) or as the successor of previous.
// hmacKey is optional and has to be 32 bytes if set.
//
// The returned error is a DecodeError if msg or its content isn't valid bencode and BFE, otherwise a ValidationError.
// Both mean msg will never be accepted.
func Validate(msg, previous, hmacKey []byte) error {
	var v Validator
	return v.Validate(msg, previous, hmacKey)
}

// Validator runs the checks of Validate and can share a FieldCache between calls
type Validator struct {
	Cache *FieldCache
}

// Validate runs the stages in order and stops at the first failure
func (v Validator) Validate(msg, previous, hmacKey []byte) error {
	top, payload, err := splitEnvelope(msg)
	if err != nil {
		return err
	}

	hmac, err := hmacKeyFromBytes(hmacKey)
	if err != nil {
		return err
	}

	if n := len(msg); n > MaxMessageSize {
		return newValidationError(ErrSize, "invalid message size: %d bytes, must not be greater than %d bytes", n, MaxMessageSize)
	}

	var f *Fields
	if v.Cache != nil {
		f, err = v.Cache.Extract(msg)
	} else {
		f, err = parseFields(top, payload)
	}
	if err != nil {
		return err
	}

	if !bfe.IsFeed(f.Author) {
		return authorFormatError(f.Author)
	}

	switch {
	case f.Sequence == 1:
		err = validateFirstPrevious(f.Previous, previous)
	case f.Sequence > 1:
		err = v.validatePrevious(f, previous)
	default:
		err = newValidationError(ErrSequence, "invalid message: sequence is %d, expected a value greater than or equal to 1", f.Sequence)
	}
	if err != nil {
		return err
	}

	if f.Timestamp < 0 {
		return newValidationError(ErrTimestamp, "invalid message: timestamp is %d, expected a non-negative number", f.Timestamp)
	}

	if err := validateSignature(f, hmac); err != nil {
		return err
	}

	return validateContentSection(f.ContentSection)
}

func validateFirstPrevious(prevTok, previous []byte) error {
	if !bfe.TagNil.Is(prevTok) {
		tag, err := bfe.TagOf(prevTok)
		if err != nil {
			return newValidationError(ErrFirstPrevious, "invalid message: previous type-format-data length of %d bytes is incorrect, expected %d bytes", len(prevTok), bfe.NilLength)
		}
		return newValidationError(ErrFirstPrevious, "invalid message: previous type-format %q is incorrect, expected %s (nil type-format) because sequence is 1", tag.String(), bfe.TagNil)
	}
	if !bfe.IsNil(prevTok) {
		return newValidationError(ErrFirstPrevious, "invalid message: previous type-format-data length of %d bytes is incorrect, expected %d bytes", len(prevTok), bfe.NilLength)
	}
	if len(previous) != 0 {
		return newValidationError(ErrFirstPrevious, "invalid message: sequence cannot be 1 if there exists a previous message")
	}
	return nil
}

func (v Validator) validatePrevious(f *Fields, previous []byte) error {
	if !bfe.TagMessage.Is(f.Previous) {
		tag, err := bfe.TagOf(f.Previous)
		if err != nil {
			return newValidationError(ErrPreviousFormat, "invalid message: previous type-format-data length of %d bytes is incorrect, expected %d bytes", len(f.Previous), bfe.MessageLength)
		}
		return newValidationError(ErrPreviousFormat, "invalid message: previous type-format %q is incorrect, expected %s", tag.String(), bfe.TagMessage)
	}
	if !bfe.IsMessage(f.Previous) {
		return newValidationError(ErrPreviousFormat, "invalid message: previous type-format-data length of %d bytes is incorrect, expected %d bytes", len(f.Previous), bfe.MessageLength)
	}

	if len(previous) == 0 {
		return newValidationError(ErrPreviousFormat, "invalid previousMsg: value must not be undefined if sequence > 1")
	}

	prevID := MessageID(previous)
	if !bytes.Equal(f.Previous[2:], prevID.Hash()) {
		claimed, err := refs.NewMessageRefFromBytes(f.Previous[2:], refs.RefAlgoMessageBendyButt)
		if err != nil {
			return newValidationError(ErrPreviousFormat, "invalid message: previous is not a message id: %s", err)
		}
		return newValidationError(ErrPreviousMismatch, "invalid message: previous is %q but the computed hash of the previous message is %q, expected values to be identical", claimed.Ref(), prevID.Ref())
	}

	prevFields, err := v.Cache.Extract(previous)
	if err != nil {
		return newValidationError(ErrPreviousFormat, "invalid previousMsg: %s", err)
	}
	if f.Sequence != prevFields.Sequence+1 {
		return newValidationError(ErrSequence, "invalid message: sequence is %d but prevMsg sequence is %d, expected sequence to be prevMsg.sequence + 1", f.Sequence, prevFields.Sequence)
	}
	return nil
}

func validateSignature(f *Fields, hmac *[32]byte) error {
	if !bfe.IsSignature(f.Signature) {
		if tag, err := bfe.TagOf(f.Signature); err == nil && tag != bfe.TagSignature {
			return newValidationError(ErrSignatureFormat, "invalid message: signature type-format %q is incorrect, expected %s", tag.String(), bfe.TagSignature)
		}
		return newValidationError(ErrSignatureFormat, "invalid message: signature type-format-data length of %d bytes is incorrect, expected %d bytes", len(f.Signature), bfe.SignatureLength)
	}

	pub := ed25519.PublicKey(f.Author[2:])
	if !verify(pub, f.Signature[2:], hmac, f.RawPayload) {
		return newValidationError(ErrSignatureVerification, "invalid message: signature must correctly sign the payload")
	}
	return nil
}

func validateContentSection(section bencode.RawMessage) error {
	if isByteString(section) {
		tok, err := byteString(section)
		if err != nil || !bfe.IsBox2(tok) {
			return newValidationError(ErrContentShape, "invalid message: contentSection should be an array with two items or box2 ciphertext")
		}
		return nil
	}

	if !isList(section) {
		return newValidationError(ErrContentShape, "invalid message: contentSection should be an array with two items")
	}
	var elems []bencode.RawMessage
	if err := bencode.DecodeBytes(section, &elems); err != nil || len(elems) != 2 {
		return newValidationError(ErrContentShape, "invalid message: contentSection should be an array with two items")
	}

	if !isList(elems[0]) && !isDict(elems[0]) {
		return newValidationError(ErrContentShape, "invalid message: content should be an object")
	}
	if _, err := bfe.Decode(elems[0]); err != nil {
		return newDecodeError(err, "content")
	}

	sig, err := byteString(elems[1])
	if err != nil || !bfe.IsSignature(sig) {
		return newValidationError(ErrContentShape, "invalid message: contentSignature expected to be a valid BFE signature buffer")
	}
	return nil
}

// VerifyContentSignature checks the content signature of a decoded message against contentKey,
// which is the author for plain messages or the sub-feed that signed the content.
// Validate leaves this to the caller because boxed content has to be decrypted first.
func VerifyContentSignature(msg *Message, contentKey ed25519.PublicKey, hmacKey []byte) error {
	hmac, err := hmacKeyFromBytes(hmacKey)
	if err != nil {
		return err
	}
	if msg.IsBoxed() {
		return newValidationError(ErrContentShape, "invalid message: content is boxed, decrypt it first")
	}
	if n := len(msg.ContentSignature); n != ed25519.SignatureSize {
		return newValidationError(ErrContentShape, "invalid message: contentSignature expected to be a valid BFE signature buffer")
	}

	contentBen, err := bfe.Marshal(msg.Content)
	if err != nil {
		return newValidationError(ErrContentShape, "invalid message: content could not be encoded: %s", err)
	}
	if !verify(contentKey, msg.ContentSignature, hmac, contentSigInput(contentBen)) {
		return newValidationError(ErrSignatureVerification, "invalid message: contentSignature must correctly sign the content")
	}
	return nil
}
