// Copyright (C) 2025 vultisig
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package relay

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/vultisig/mpc-sdk-go/internal/logger"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
)

// doOnce issues a single HTTP request with no retry, returning the body
// and status code even on a non-2xx response (the caller decides what's
// fatal vs "not yet").
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	return c.doOnceHeader(ctx, method, path, body, "")
}

func (c *Client) doOnceHeader(ctx context.Context, method, path string, body []byte, setupHeader string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, mpcerrors.Wrap(mpcerrors.Protocol, "relay.doOnce", "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if setupHeader != "" {
		req.Header.Set(SetupHeaderName, setupHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, mpcerrors.Wrap(mpcerrors.Transport, "relay.doOnce", method+" "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, mpcerrors.Wrap(mpcerrors.Transport, "relay.doOnce", "read response body", err)
	}
	return respBody, resp.StatusCode, nil
}

// doWithRetry issues a request, retrying on transport errors and 5xx
// responses with exponential-jittered backoff: one first attempt plus up
// to maxRetries retries. Any 4xx, 404 included, is treated as fatal
// immediately; only the doOnce-based pollers read 404 as "not yet"
// (doWithRetryHeader variant below adds the setup-message header).
func (c *Client) doWithRetry(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	return c.doWithRetryHeader(ctx, op, method, path, body, "")
}

func (c *Client) doWithRetryHeader(ctx context.Context, op, method, path string, body []byte, setupHeader string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithJitter(ctx, c.retryBaseDelay, c.retryMaxDelay, attempt); err != nil {
				return nil, mpcerrors.Wrap(mpcerrors.Cancelled, op, "cancelled during retry backoff", err)
			}
		}

		respBody, status, err := c.doOnceHeader(ctx, method, path, body, setupHeader)
		if err != nil {
			lastErr = err
			c.log.Warn("relay request failed, retrying", logger.String("op", op), logger.Int("attempt", attempt), logger.Error(err))
			continue
		}

		if status >= 200 && status < 300 {
			return respBody, nil
		}
		if status >= 500 {
			lastErr = mpcerrors.New(mpcerrors.Transport, op, httpStatusMessage(status, respBody))
			c.log.Warn("relay returned server error, retrying", logger.String("op", op), logger.Int("status", status))
			continue
		}
		// Any other 4xx (404-as-not-yet is only meaningful to doOnce-based pollers) is fatal.
		return nil, mpcerrors.New(mpcerrors.Protocol, op, httpStatusMessage(status, respBody))
	}
	return nil, mpcerrors.Wrap(mpcerrors.Transport, op, "retry budget exhausted", lastErr)
}

// poll repeatedly calls attempt until it reports done, an error, or ctx's
// deadline/cancellation fires.
func (c *Client) poll(ctx context.Context, op string, attempt func() (bool, error)) error {
	for {
		done, err := attempt()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return mpcerrors.Wrap(mpcerrors.Timeout, op, "deadline exceeded while polling", ctx.Err())
		case <-timeAfter(c.pollInterval):
		}
	}
}
