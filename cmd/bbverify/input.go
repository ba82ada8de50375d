// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	formatVector = "vector"
	formatHex    = "hex"
)

// vectorFile is the layout of the shared test vector files
type vectorFile struct {
	Description string        `json:"Description"`
	Entries     []vectorEntry `json:"Entries"`
}

type vectorEntry struct {
	EncodedData string `json:"EncodedData"`
}

func readFeed(r io.Reader, format string) ([][]byte, error) {
	switch format {
	case formatVector:
		return readVector(r)
	case formatHex:
		return readHexLines(r)
	}
	return nil, errors.Errorf("unknown input format %q", format)
}

func readVector(r io.Reader) ([][]byte, error) {
	var vf vectorFile
	if err := json.NewDecoder(r).Decode(&vf); err != nil {
		return nil, errors.Wrap(err, "failed to decode test vector")
	}

	msgs := make([][]byte, len(vf.Entries))
	for i, e := range vf.Entries {
		data, err := hex.DecodeString(e.EncodedData)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		msgs[i] = data
	}
	return msgs, nil
}

// readHexLines skips empty lines and lines starting with #
func readHexLines(r io.Reader) ([][]byte, error) {
	var msgs [][]byte

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		data, err := hex.DecodeString(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		msgs = append(msgs, data)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
