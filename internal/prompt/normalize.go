package prompt

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gemini-session-client/internal/gemini"
)

// Recorder receives one user message per normalized part.
type Recorder interface {
	Append(msgs ...gemini.Message)
}

type Options struct {
	Fetcher *Fetcher
	// Concurrency bounds how many items load at once. Values below 2 load
	// items one after another.
	Concurrency int
	Logger      *slog.Logger
}

type Normalizer struct {
	fetcher     *Fetcher
	concurrency int
	logger      *slog.Logger
}

func NewNormalizer(opts Options) *Normalizer {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(FetcherOptions{})
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// Normalize converts items to parts in input order. Nil items are skipped.
//
// The result does not depend on Concurrency: the error returned is the one
// of the first failing item in input order, and every item before it is
// loaded to completion. Items after a known failure are not started.
//
// rec, when non-nil, gets a user message for every part produced before the
// first failing item; those messages stay recorded when Normalize fails.
func (n *Normalizer) Normalize(ctx context.Context, items []Item, rec Recorder) ([]gemini.Part, error) {
	type result struct {
		part    gemini.Part
		skipped bool
		err     error
	}
	results := make([]result, len(items))

	// Lowest failing index so far; len(items) while nothing failed.
	var failedAt atomic.Int64
	failedAt.Store(int64(len(items)))
	markFailed := func(i int) {
		for {
			cur := failedAt.Load()
			if int64(i) >= cur || failedAt.CompareAndSwap(cur, int64(i)) {
				return
			}
		}
	}

	var eg errgroup.Group
	eg.SetLimit(n.concurrency)
	for i, item := range items {
		eg.Go(func() error {
			if int64(i) > failedAt.Load() {
				return nil
			}
			if err := ctx.Err(); err != nil {
				results[i].err = err
				markFailed(i)
				return nil
			}
			if item == nil {
				n.logger.Debug("prompt item skipped", "index", i)
				results[i].skipped = true
				return nil
			}
			part, err := n.load(ctx, item)
			results[i] = result{part: part, err: err}
			if err != nil {
				markFailed(i)
			}
			return nil
		})
	}
	_ = eg.Wait()

	parts := make([]gemini.Part, 0, len(items))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.skipped {
			continue
		}
		parts = append(parts, r.part)
		if rec != nil {
			rec.Append(gemini.Message{Role: gemini.RoleUser, Part: r.part})
		}
	}
	return parts, nil
}

func (n *Normalizer) load(ctx context.Context, item Item) (gemini.Part, error) {
	switch it := item.(type) {
	case Text:
		return gemini.TextPart(it.Text), nil
	case FileByPath:
		return loadPath(it.Path)
	case FileByBase64:
		mimeType, err := ResolveBase64MIME(it)
		if err != nil {
			return gemini.Part{}, err
		}
		return gemini.InlinePart(mimeType, StripDataURLPrefix(it.Data)), nil
	case FileByURL:
		data, err := n.fetcher.Fetch(ctx, it.URL)
		if err != nil {
			return gemini.Part{}, err
		}
		return inline(data)
	default:
		return gemini.Part{}, fmt.Errorf("prompt: unhandled item type %T", item)
	}
}

func loadPath(path string) (gemini.Part, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return gemini.Part{}, gemini.InvalidInput("file not found")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return gemini.Part{}, fmt.Errorf("read %s: %w", path, err)
	}
	return inline(data)
}

func inline(data []byte) (gemini.Part, error) {
	mimeType, err := resolveContentMIME(data)
	if err != nil {
		return gemini.Part{}, err
	}
	return gemini.InlinePart(mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
