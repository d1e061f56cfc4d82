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

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package relay is the HTTP client for the stateless message relay: party
// registration, session pinning, message delivery, the one-shot setup
// blob, and completion signaling. Every call here is the sole suspension
// point a ceremony actually blocks on.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vultisig/mpc-sdk-go/internal/logger"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// SetupHeaderName namespaces multiple setup-message blobs within one
// session (e.g. the default DKLS slot vs "eddsa_key_import").
const SetupHeaderName = "X-MPC-Setup-Header"

// pingOK is the relay's literal liveness response body.
const pingOK = "Voltix Router is running"

// Client talks to one relay instance over HTTP.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	pollInterval   time.Duration
	log            logger.Logger
	setupSF        singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry overrides the transport-retry budget.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithPollInterval overrides the delay between poll attempts.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithLogger attaches a logger; defaults to the package default logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a relay Client for baseURL (no trailing slash).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		maxRetries:     3,
		retryBaseDelay: 200 * time.Millisecond,
		retryMaxDelay:  5 * time.Second,
		pollInterval:   2 * time.Second,
		log:            logger.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterParty announces localPartyId (and any other ids in partyIDs) as
// present in sessionId. Idempotent.
func (c *Client) RegisterParty(ctx context.Context, sessionID string, partyIDs []types.PartyId) error {
	body, err := json.Marshal(partyIDs)
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "relay.RegisterParty", "marshal party ids", err)
	}
	_, err = c.doWithRetry(ctx, "relay.RegisterParty", http.MethodPost, "/"+sessionID, body)
	return err
}

// ListParties returns every party that has announced itself so far.
func (c *Client) ListParties(ctx context.Context, sessionID string) ([]types.PartyId, error) {
	respBody, err := c.doWithRetry(ctx, "relay.ListParties", http.MethodGet, "/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	var parties []types.PartyId
	if err := json.Unmarshal(respBody, &parties); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "relay.ListParties", "decode party list", err)
	}
	return parties, nil
}

// StartSession pins the authoritative participant set.
func (c *Client) StartSession(ctx context.Context, sessionID string, partyIDs []types.PartyId) error {
	body, err := json.Marshal(partyIDs)
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "relay.StartSession", "marshal party ids", err)
	}
	_, err = c.doWithRetry(ctx, "relay.StartSession", http.MethodPost, "/start/"+sessionID, body)
	return err
}

// AwaitSessionStart block-polls until the initiator has called
// StartSession, honoring ctx's deadline.
func (c *Client) AwaitSessionStart(ctx context.Context, sessionID string) ([]types.PartyId, error) {
	var result []types.PartyId
	err := c.poll(ctx, "relay.AwaitSessionStart", func() (bool, error) {
		respBody, status, err := c.doOnce(ctx, http.MethodGet, "/start/"+sessionID, nil)
		if err != nil {
			return false, err
		}
		if status == http.StatusNotFound {
			return false, nil
		}
		if status != http.StatusOK {
			return false, mpcerrors.New(mpcerrors.Protocol, "relay.AwaitSessionStart", httpStatusMessage(status, respBody))
		}
		var parties []types.PartyId
		if err := json.Unmarshal(respBody, &parties); err != nil {
			return false, mpcerrors.Wrap(mpcerrors.Protocol, "relay.AwaitSessionStart", "decode party list", err)
		}
		if len(parties) == 0 {
			return false, nil
		}
		result = parties
		return true, nil
	})
	return result, err
}

// SendMessage delivers msg to its To recipients.
func (c *Client) SendMessage(ctx context.Context, sessionID string, msg types.RelayMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "relay.SendMessage", "marshal relay message", err)
	}
	_, err = c.doWithRetry(ctx, "relay.SendMessage", http.MethodPost, "/message/"+sessionID, body)
	return err
}

// FetchMessages returns every currently queued message for partyID. The
// relay never removes messages on read; the caller must AckMessage.
func (c *Client) FetchMessages(ctx context.Context, sessionID string, partyID types.PartyId) ([]types.RelayMessage, error) {
	path := fmt.Sprintf("/message/%s/%s", sessionID, partyID)
	respBody, err := c.doWithRetry(ctx, "relay.FetchMessages", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var messages []types.RelayMessage
	if err := json.Unmarshal(respBody, &messages); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "relay.FetchMessages", "decode messages", err)
	}
	return messages, nil
}

// AckMessage removes the message identified by hash from partyID's queue.
func (c *Client) AckMessage(ctx context.Context, sessionID string, partyID types.PartyId, hash string) error {
	path := fmt.Sprintf("/message/%s/%s/%s", sessionID, partyID, hash)
	_, err := c.doWithRetry(ctx, "relay.AckMessage", http.MethodDelete, path, nil)
	return err
}

// UploadSetupMessage publishes the scheme-specific one-shot setup blob.
// header namespaces the blob when a session carries more than one
// (e.g. "eddsa_key_import"); pass "" for the default slot.
func (c *Client) UploadSetupMessage(ctx context.Context, sessionID string, data []byte, header string) error {
	_, err := c.doWithRetryHeader(ctx, "relay.UploadSetupMessage", http.MethodPost, "/setup-message/"+sessionID, data, header)
	return err
}

// FetchSetupMessage block-polls until the setup blob named by header
// exists. Concurrent callers for the same sessionID+header (e.g. the
// driver retrying a stalled run alongside a caller checking readiness)
// share one underlying poll loop via singleflight instead of doubling
// the relay's request rate.
func (c *Client) FetchSetupMessage(ctx context.Context, sessionID, header string) ([]byte, error) {
	key := sessionID + "|" + header
	v, err, _ := c.setupSF.Do(key, func() (interface{}, error) {
		var result []byte
		err := c.poll(ctx, "relay.FetchSetupMessage", func() (bool, error) {
			respBody, status, err := c.doOnceHeader(ctx, http.MethodGet, "/setup-message/"+sessionID, nil, header)
			if err != nil {
				return false, err
			}
			if status == http.StatusNotFound {
				return false, nil
			}
			if status != http.StatusOK {
				return false, mpcerrors.New(mpcerrors.Protocol, "relay.FetchSetupMessage", httpStatusMessage(status, respBody))
			}
			if len(respBody) == 0 {
				return false, nil
			}
			result = respBody
			return true, nil
		})
		return result, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// MarkComplete signals that partyID considers the ceremony done.
func (c *Client) MarkComplete(ctx context.Context, sessionID string, partyID types.PartyId) error {
	body, err := json.Marshal([]types.PartyId{partyID})
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "relay.MarkComplete", "marshal party id", err)
	}
	_, err = c.doWithRetry(ctx, "relay.MarkComplete", http.MethodPost, "/complete/"+sessionID+"/keysign", body)
	return err
}

// AwaitComplete block-polls until every party in peers has marked
// complete.
func (c *Client) AwaitComplete(ctx context.Context, sessionID string, peers []types.PartyId) error {
	return c.poll(ctx, "relay.AwaitComplete", func() (bool, error) {
		respBody, status, err := c.doOnce(ctx, http.MethodGet, "/complete/"+sessionID+"/keysign", nil)
		if err != nil {
			return false, err
		}
		if status == http.StatusNotFound {
			return false, nil
		}
		if status != http.StatusOK {
			return false, mpcerrors.New(mpcerrors.Protocol, "relay.AwaitComplete", httpStatusMessage(status, respBody))
		}
		var done []types.PartyId
		if err := json.Unmarshal(respBody, &done); err != nil {
			return false, mpcerrors.Wrap(mpcerrors.Protocol, "relay.AwaitComplete", "decode complete list", err)
		}
		seen := make(map[types.PartyId]bool, len(done))
		for _, p := range done {
			seen[p] = true
		}
		for _, peer := range peers {
			if !seen[peer] {
				return false, nil
			}
		}
		return true, nil
	})
}

// Ping checks relay liveness.
func (c *Client) Ping(ctx context.Context) error {
	respBody, err := c.doWithRetry(ctx, "relay.Ping", http.MethodGet, "/ping", nil)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(respBody)) != pingOK {
		return mpcerrors.New(mpcerrors.Protocol, "relay.Ping", "unexpected ping response: "+string(respBody))
	}
	return nil
}

func httpStatusMessage(status int, body []byte) string {
	return fmt.Sprintf("unexpected HTTP %d: %s", status, strings.TrimSpace(string(body)))
}
