// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RangeProber checks whether an origin honours byte-range requests.
type RangeProber struct {
	client     *http.Client
	maxRetries int
	initial    time.Duration
}

// NewRangeProber retries transient failures up to maxRetries times.
func NewRangeProber(client *http.Client, maxRetries int) *RangeProber {
	if client == nil {
		client = http.DefaultClient
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RangeProber{client: client, maxRetries: maxRetries, initial: 100 * time.Millisecond}
}

// Probe requests the first byte of rawURL. It reports true on 206 and false
// when the origin ignores the range and answers 200. 5xx and transport
// errors are retried; other statuses fail immediately.
func (p *RangeProber) Probe(ctx context.Context, rawURL string) (bool, error) {
	var supported bool
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build probe request: %w", err))
		}
		req.Header.Set("Range", "bytes=0-0")

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		switch {
		case resp.StatusCode == http.StatusPartialContent:
			supported = true
			return nil
		case resp.StatusCode == http.StatusOK:
			supported = false
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("probe: origin returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("probe: origin returned %d", resp.StatusCode))
		}
	}

	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = p.initial
	ebo.Reset()
	b := backoff.WithContext(backoff.WithMaxRetries(ebo, uint64(p.maxRetries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return false, err
	}
	return supported, nil
}
