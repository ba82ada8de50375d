// SPDX-License-Identifier: MIT

package bendybutt

import (
	"bytes"

	"github.com/minio/sha256-simd"

	"go.mindeco.de/ssb-bendybutt/bfe"
	"go.mindeco.de/ssb-bendybutt/refs"
)

// MessageID returns the content address of an envelope: the sha256 of the exact bytes
func MessageID(data []byte) refs.MessageRef {
	sum := sha256.Sum256(data)
	mr, err := refs.NewMessageRefFromBytes(sum[:], refs.RefAlgoMessageBendyButt)
	if err != nil {
		panic(err) // the hash always has the right length
	}
	return mr
}

// envelopes start with two list openers followed by the 34 byte author token
var authorPrefix = []byte("ll34:")

// FeedID returns the author of an envelope.
// It reads the author token straight from the front of data and only falls back to ExtractFields if the layout is unexpected.
func FeedID(data []byte) (refs.FeedRef, error) {
	const end = 5 + bfe.FeedLength
	if len(data) >= end && bytes.HasPrefix(data, authorPrefix) {
		if tok := data[5:end]; bfe.IsFeed(tok) {
			return refs.NewFeedRefFromBytes(tok[2:], refs.RefAlgoFeedBendyButt)
		}
	}

	f, err := ExtractFields(data)
	if err != nil {
		return refs.FeedRef{}, err
	}
	if !bfe.IsFeed(f.Author) {
		return refs.FeedRef{}, authorFormatError(f.Author)
	}
	return refs.NewFeedRefFromBytes(f.Author[2:], refs.RefAlgoFeedBendyButt)
}

// Sequence returns the sequence number of an envelope without decoding its content
func Sequence(data []byte) (int64, error) {
	f, err := ExtractFields(data)
	if err != nil {
		return 0, err
	}
	return f.Sequence, nil
}

// IsNativeMessage is a cheap sniff test: data is a non-empty envelope whose author is a bendybutt-v1 feed.
// It does not validate the message.
func IsNativeMessage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	f, err := ExtractFields(data)
	if err != nil {
		return false
	}
	return bfe.IsFeed(f.Author)
}

// IsAuthor reports whether author is the URI of a bendybutt-v1 feed
func IsAuthor(author string) bool {
	return refs.IsFeedURI(author)
}

func authorFormatError(tok []byte) error {
	tag, err := bfe.TagOf(tok)
	if err != nil {
		return newValidationError(ErrAuthorFormat, "invalid message: author type-format-data length of %d bytes is incorrect, expected %d bytes", len(tok), bfe.FeedLength)
	}
	if tag != bfe.TagFeed {
		return newValidationError(ErrAuthorFormat, "invalid message: author type-format %q is incorrect, expected %s", tag.String(), bfe.TagFeed)
	}
	return newValidationError(ErrAuthorFormat, "invalid message: author type-format-data length of %d bytes is incorrect, expected %d bytes", len(tok), bfe.FeedLength)
}
