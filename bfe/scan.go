// SPDX-FileCopyrightText: 2022 Henry Bubert
//
// SPDX-License-Identifier: CC0-1.0

package bfe

import (
	"errors"
	"fmt"
)

const (
	// most digits a string length prefix may have
	maxLengthDigits = 10

	// most digits an integer may have, one more than int64 needs so overflows are reported by the decoder
	maxIntegerDigits = 20
)

type scanFrame struct {
	dict  bool
	items int
}

// Scan walks the first bencode value in data without building it and returns its length in bytes.
// It does not recurse. Lists and dictionaries nested deeper than maxDepth,
// strings that claim more bytes than data holds and overlong integers are rejected,
// which makes the value safe to hand to a full decoder.
func Scan(data []byte, maxDepth int) (int, error) {
	var (
		pos   int
		stack []scanFrame
	)

	for {
		if pos >= len(data) {
			return pos, fmt.Errorf("%w: value ends after %d bytes", ErrInvalidBencode, pos)
		}

		c := data[pos]
		if c == 'e' && len(stack) > 0 {
			if top := stack[len(stack)-1]; top.dict && top.items%2 == 1 {
				return pos, fmt.Errorf("%w: dictionary key without value at %d", ErrInvalidBencode, pos)
			}
			stack = stack[:len(stack)-1]
			pos++
		} else {
			if n := len(stack); n > 0 && stack[n-1].dict && stack[n-1].items%2 == 0 && !isDigit(c) {
				return pos, fmt.Errorf("%w: dictionary key at %d is not a string", ErrInvalidBencode, pos)
			}

			switch {
			case c == 'l' || c == 'd':
				if len(stack) >= maxDepth {
					return pos, fmt.Errorf("ssb/bfe: more than %d nested lists or dictionaries: %w", maxDepth, ErrTooDeep)
				}
				stack = append(stack, scanFrame{dict: c == 'd'})
				pos++
				continue

			case c == 'i':
				n, err := scanInteger(data[pos:])
				if err != nil {
					return pos, fmt.Errorf("%w: integer at %d: %s", ErrInvalidBencode, pos, err)
				}
				pos += n

			case isDigit(c):
				n, err := scanString(data[pos:])
				if err != nil {
					return pos, fmt.Errorf("%w: string at %d: %s", ErrInvalidBencode, pos, err)
				}
				pos += n

			default:
				return pos, fmt.Errorf("%w: unexpected byte %q at %d", ErrInvalidBencode, c, pos)
			}
		}

		// one value is complete
		if len(stack) == 0 {
			return pos, nil
		}
		stack[len(stack)-1].items++
	}
}

// scanInteger expects b to start with 'i' and returns the length up to and including the 'e'
func scanInteger(b []byte) (int, error) {
	i := 1
	if i < len(b) && b[i] == '-' {
		i++
	}
	start := i
	for i < len(b) && isDigit(b[i]) {
		if i-start >= maxIntegerDigits {
			return 0, fmt.Errorf("more than %d digits", maxIntegerDigits)
		}
		i++
	}
	if i == start {
		return 0, errors.New("no digits")
	}
	if i >= len(b) || b[i] != 'e' {
		return 0, errors.New("missing end")
	}
	return i + 1, nil
}

// scanString returns the length of the length prefix, the colon and the bytes it announces
func scanString(b []byte) (int, error) {
	var (
		i int
		n int64
	)
	for i < len(b) && isDigit(b[i]) {
		if i >= maxLengthDigits {
			return 0, fmt.Errorf("length has more than %d digits", maxLengthDigits)
		}
		n = n*10 + int64(b[i]-'0')
		i++
	}
	if i >= len(b) || b[i] != ':' {
		return 0, errors.New("missing colon")
	}
	i++
	if rest := int64(len(b) - i); n > rest {
		return 0, fmt.Errorf("announces %d bytes but only %d are left", n, rest)
	}
	return i + int(n), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
