// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	bendybutt "go.mindeco.de/ssb-bendybutt"
	"go.mindeco.de/ssb-bendybutt/refs"
)

func makeFeed(t *testing.T, seed byte, hmacKey []byte, n int) [][]byte {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))

	var (
		msgs = make([][]byte, n)
		prev *refs.MessageRef
	)
	for i := range msgs {
		data, err := bendybutt.NewEnvelope(map[string]interface{}{"type": "test", "i": i}, nil, key, int64(i+1), prev, 0, hmacKey, nil)
		require.NoError(t, err)
		msgs[i] = data
		id := bendybutt.MessageID(data)
		prev = &id
	}
	return msgs
}

func hexLines(msgs [][]byte) string {
	var sb strings.Builder
	sb.WriteString("# a test feed\n")
	for _, m := range msgs {
		sb.WriteString(hex.EncodeToString(m))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func TestReadHexLines(t *testing.T) {
	r := require.New(t)
	msgs := makeFeed(t, 1, nil, 3)

	got, err := readFeed(strings.NewReader(hexLines(msgs)), formatHex)
	r.NoError(err)
	r.Equal(msgs, got)

	_, err = readFeed(strings.NewReader("zz\n"), formatHex)
	r.Error(err)
	r.Contains(err.Error(), "line 1")

	_, err = readFeed(strings.NewReader(""), "yaml")
	r.Error(err)
}

func TestReadVector(t *testing.T) {
	r := require.New(t)
	msgs := makeFeed(t, 2, nil, 2)

	var vf vectorFile
	vf.Description = "two messages"
	for _, m := range msgs {
		vf.Entries = append(vf.Entries, vectorEntry{EncodedData: hex.EncodeToString(m)})
	}
	js, err := json.Marshal(vf)
	r.NoError(err)

	got, err := readFeed(bytes.NewReader(js), formatVector)
	r.NoError(err)
	r.Equal(msgs, got)

	_, err = readFeed(strings.NewReader(`{"Entries":[{"EncodedData":"nothex"}]}`), formatVector)
	r.Error(err)
}

func TestRun(t *testing.T) {
	r := require.New(t)
	dir := t.TempDir()
	hmacKey := bytes.Repeat([]byte{5}, 32)

	good := filepath.Join(dir, "good.txt")
	r.NoError(os.WriteFile(good, []byte(hexLines(makeFeed(t, 3, hmacKey, 4))), 0o600))

	other := filepath.Join(dir, "other.txt")
	r.NoError(os.WriteFile(other, []byte(hexLines(makeFeed(t, 4, hmacKey, 2))), 0o600))

	hmacFlag := "--hmac=" + base64.StdEncoding.EncodeToString(hmacKey)
	r.NoError(run([]string{"--format", "hex", hmacFlag, "--cache", "8", good, other}, nil))

	err := run([]string{"--format", "hex", good}, nil)
	r.Error(err, "signed with an hmac key")

	msgs := makeFeed(t, 5, nil, 3)
	broken := hexLines([][]byte{msgs[0], msgs[2]})
	err = run([]string{"--format=hex"}, strings.NewReader(broken))
	r.Error(err)
	r.True(bendybutt.IsMessageUnusable(err))

	r.NoError(run([]string{"--format=hex", "--dump", "-v"}, strings.NewReader(hexLines(msgs))))

	reversed := hexLines([][]byte{msgs[2], msgs[1], msgs[0]})
	r.Error(run([]string{"--format=hex"}, strings.NewReader(reversed)))
	r.NoError(run([]string{"--format=hex", "--sort"}, strings.NewReader(reversed)))

	r.Error(run([]string{"--hmac", "nope", good}, nil))
	r.Error(run([]string{"--unknown-flag"}, nil))
}
