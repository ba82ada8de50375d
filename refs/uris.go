// SPDX-FileCopyrightText: 2021 Henry Bubert
//
// SPDX-License-Identifier: MIT

package refs

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Kind is the type segment of an ssb URI
type Kind string

// The URI kinds a bendybutt feed can refer to
const (
	KindFeed    Kind = "feed"
	KindMessage Kind = "message"
)

// URIScheme is the scheme of all ssb URIs
const URIScheme = "ssb"

// composeURI renders ssb:<kind>/<format>/<base64url data>
func composeURI(kind Kind, algo RefAlgo, data []byte) string {
	var u url.URL
	u.Scheme = URIScheme
	u.Opaque = strings.Join([]string{
		string(kind),
		string(algo),
		base64.URLEncoding.EncodeToString(data),
	}, "/")
	return u.String()
}

// decomposeURI is the inverse of composeURI
func decomposeURI(input string) (Kind, RefAlgo, []byte, error) {
	u, err := url.Parse(input)
	if err != nil {
		return "", "", nil, fmt.Errorf("ssb-uri: failed to parse %q (%s): %w", input, err, ErrInvalidRef)
	}

	if u.Scheme != URIScheme {
		return "", "", nil, fmt.Errorf("ssb-uri: unexpected scheme %q: %w", u.Scheme, ErrInvalidRefType)
	}

	parts := strings.Split(u.Opaque, "/")
	if len(parts) != 3 {
		return "", "", nil, fmt.Errorf("ssb-uri: expected type/format/data, got %d segments: %w", len(parts), ErrInvalidRef)
	}

	data, err := base64.URLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", nil, fmt.Errorf("ssb-uri: b64 decode failed (%s): %w", err, ErrInvalidHash)
	}

	return Kind(parts[0]), RefAlgo(parts[1]), data, nil
}

// IsFeedURI reports whether input is the URI of a bendybutt-v1 feed
func IsFeedURI(input string) bool {
	kind, algo, data, err := decomposeURI(input)
	if err != nil {
		return false
	}
	return kind == KindFeed && algo == RefAlgoFeedBendyButt && len(data) == 32
}

// IsMessageURI reports whether input is the URI of a bendybutt-v1 message
func IsMessageURI(input string) bool {
	kind, algo, data, err := decomposeURI(input)
	if err != nil {
		return false
	}
	return kind == KindMessage && algo == RefAlgoMessageBendyButt && len(data) == 32
}
