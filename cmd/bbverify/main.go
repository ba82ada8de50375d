// SPDX-License-Identifier: MIT

// bbverify checks bendybutt-v1 feeds.
//
// Every file argument is one feed, either a test vector JSON file or a text file
// with one hex encoded envelope per line. Without arguments a single feed is read from stdin.
// The entries of a feed are verified in order, starting with the first message.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cryptix/go/logging"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/shurcooL/go-goon"
	"github.com/spf13/pflag"

	bendybutt "go.mindeco.de/ssb-bendybutt"
)

func main() {
	if err := run(os.Args[1:], os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader) error {
	var (
		hmacText  string
		format    string
		dump      bool
		verbose   bool
		cacheSize int
		sortFirst bool
	)

	flagSet := pflag.NewFlagSet("bbverify", pflag.ContinueOnError)
	flagSet.StringVar(&hmacText, "hmac", "", "base64 encoded hmac key of the network")
	flagSet.StringVar(&format, "format", formatVector, "input format: vector or hex")
	flagSet.BoolVar(&dump, "dump", false, "print every decoded message")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	flagSet.IntVar(&cacheSize, "cache", 0, "size of the field cache, 0 disables it")
	flagSet.BoolVar(&sortFirst, "sort", false, "order the entries of each feed by their previous links before verifying")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logging.SetupLogging(os.Stderr)
	var logger log.Logger = logging.Logger("bbverify")
	if verbose {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	opts := []bendybutt.ChainOption{bendybutt.WithLogger(logger)}

	if hmacText != "" {
		key, err := bendybutt.DecodeHMACKey(hmacText)
		if err != nil {
			return err
		}
		opts = append(opts, bendybutt.WithChainHMACKey(key))
	}

	if cacheSize > 0 {
		fc, err := bendybutt.NewFieldCache(cacheSize)
		if err != nil {
			return err
		}
		opts = append(opts, bendybutt.WithCache(fc))
	}

	cv, err := bendybutt.NewChainVerifier(opts...)
	if err != nil {
		return err
	}

	feeds, err := readFeeds(flagSet.Args(), stdin, format)
	if err != nil {
		return err
	}

	if sortFirst {
		for i, feed := range feeds {
			sorted, err := bendybutt.SortByPrevious(feed)
			if err != nil {
				return errors.Wrapf(err, "feed %d", i)
			}
			feeds[i] = sorted
		}
	}

	if dump {
		for i, feed := range feeds {
			for j, data := range feed {
				msg, err := bendybutt.Decode(data)
				if err != nil {
					return errors.Wrapf(err, "feed %d entry %d", i, j)
				}
				goon.Dump(msg)
			}
		}
	}

	if err := cv.VerifyFeeds(context.Background(), feeds...); err != nil {
		return err
	}

	for i, feed := range feeds {
		level.Info(logger).Log("event", "feed verified", "feed", i, "entries", len(feed))
	}
	return nil
}

func readFeeds(paths []string, stdin io.Reader, format string) ([][][]byte, error) {
	if len(paths) == 0 {
		feed, err := readFeed(stdin, format)
		if err != nil {
			return nil, errors.Wrap(err, "stdin")
		}
		return [][][]byte{feed}, nil
	}

	feeds := make([][][]byte, len(paths))
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		feeds[i], err = readFeed(f, format)
		f.Close()
		if err != nil {
			return nil, errors.Wrap(err, p)
		}
	}
	return feeds, nil
}
