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

// Package mpcdriver is the MPC driver (C6): it pumps a scheme.State
// through one relay session, handling the one-shot setup blob,
// message framing, at-most-once delivery, and per-sender ordering, so
// pkg/ceremony never touches pkg/relay or pkg/frame directly.
package mpcdriver

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vultisig/mpc-sdk-go/internal/logger"
	"github.com/vultisig/mpc-sdk-go/pkg/frame"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/scheme"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// RunConfig parameterizes one driver run over one relay session.
type RunConfig struct {
	SessionID    string
	LocalPartyID types.PartyId
	Parties      []types.PartyId
	IsInitiator  bool
	// SetupHeader namespaces the setup blob when a session carries more
	// than one (e.g. the EdDSA leg of a key-import ceremony); "" for the
	// default slot.
	SetupHeader string
}

// Driver pumps one scheme.State to completion over one relay session.
type Driver struct {
	relay        *relay.Client
	codec        *frame.Codec
	log          logger.Logger
	pollInterval time.Duration
	dedupeTTL    time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithPollInterval overrides the inbound-message polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(drv *Driver) { drv.pollInterval = d }
}

// WithDedupeTTL overrides how long a processed message hash is
// remembered for at-most-once delivery.
func WithDedupeTTL(d time.Duration) Option {
	return func(drv *Driver) { drv.dedupeTTL = d }
}

// WithLogger attaches a logger; defaults to the package default logger.
func WithLogger(l logger.Logger) Option {
	return func(drv *Driver) { drv.log = l }
}

// New builds a Driver over relayClient, framing every message with
// codec.
func New(relayClient *relay.Client, codec *frame.Codec, opts ...Option) *Driver {
	d := &Driver{
		relay:        relayClient,
		codec:        codec,
		log:          logger.GetDefaultLogger(),
		pollInterval: 500 * time.Millisecond,
		dedupeTTL:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run drives state to completion: minting or fetching the setup blob,
// exchanging step messages until every party agrees the ceremony is
// done, and returning the terminal scheme.Result.
func (d *Driver) Run(ctx context.Context, cfg RunConfig, state scheme.State) (*scheme.Result, error) {
	var seq uint32
	nextSeq := func() uint32 { return atomic.AddUint32(&seq, 1) }

	dedupe := newDedupeDetector(d.dedupeTTL)
	order := newOrderBuffer()

	setup, err := d.obtainSetup(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out, err := state.Start(setup)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "mpcdriver.Run", "start scheme state", err)
	}
	if cfg.IsInitiator && len(out.SetupMessage) > 0 {
		if err := d.relay.UploadSetupMessage(ctx, cfg.SessionID, out.SetupMessage, cfg.SetupHeader); err != nil {
			return nil, err
		}
	}
	if err := d.sendOutbound(ctx, cfg, out.Outbound, nextSeq); err != nil {
		return nil, err
	}
	if out.Done {
		return out.Result, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, mpcerrors.Wrap(mpcerrors.Timeout, "mpcdriver.Run", "ceremony did not complete before deadline", ctx.Err())
		default:
		}

		messages, err := d.relay.FetchMessages(ctx, cfg.SessionID, cfg.LocalPartyID)
		if err != nil {
			return nil, err
		}

		for _, msg := range messages {
			for _, admitted := range order.Admit(msg) {
				done, result, err := d.handleInbound(ctx, cfg, state, admitted, dedupe, nextSeq)
				if err != nil {
					return nil, err
				}
				if done {
					return result, nil
				}
			}
		}

		if len(messages) == 0 {
			select {
			case <-ctx.Done():
				return nil, mpcerrors.Wrap(mpcerrors.Timeout, "mpcdriver.Run", "ceremony did not complete before deadline", ctx.Err())
			case <-time.After(d.pollInterval):
			}
		}
	}
}

// RunWithRetry wraps Run in a bounded retry over the whole round loop:
// on a transport or timeout failure it rebuilds a fresh scheme.State
// via newState and runs again, up to attempts tries total. A
// cryptographic failure is never retried, since re-running the same
// scheme.State machinery against bad input would only reproduce it.
func (d *Driver) RunWithRetry(ctx context.Context, cfg RunConfig, newState func() (scheme.State, error), attempts int) (*scheme.Result, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		state, err := newState()
		if err != nil {
			return nil, err
		}

		result, err := d.Run(ctx, cfg, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if mpcerrors.KindOf(err) != mpcerrors.Transport && mpcerrors.KindOf(err) != mpcerrors.Timeout {
			return nil, err
		}
		d.log.Warn("retrying driver run after transport failure",
			logger.Int("attempt", attempt), logger.Error(err))
	}
	return nil, lastErr
}

func (d *Driver) obtainSetup(ctx context.Context, cfg RunConfig) ([]byte, error) {
	if cfg.IsInitiator {
		return nil, nil
	}
	return d.relay.FetchSetupMessage(ctx, cfg.SessionID, cfg.SetupHeader)
}

// handleInbound decodes, authenticates, dedupes, and steps one
// admitted inbound message, then acks it and sends any outbound
// messages the step produced.
func (d *Driver) handleInbound(ctx context.Context, cfg RunConfig, state scheme.State, msg types.RelayMessage, dedupe *dedupeDetector, nextSeq func() uint32) (bool, *scheme.Result, error) {
	body, err := decodeBase64(msg.Body)
	if err != nil {
		return false, nil, err
	}
	plaintext, err := d.codec.Open(body)
	if err != nil {
		d.log.Warn("dropping unauthenticated frame", logger.String("from", string(msg.From)), logger.Error(err))
		return false, nil, nil
	}

	if !dedupe.SeenAndMark(frame.HashOf(plaintext)) {
		out, err := state.Step(msg.From, plaintext)
		if err != nil {
			return false, nil, mpcerrors.Wrap(mpcerrors.Protocol, "mpcdriver.handleInbound", "step scheme state", err)
		}
		if err := d.sendOutbound(ctx, cfg, out.Outbound, nextSeq); err != nil {
			return false, nil, err
		}
		if out.Done {
			if ackErr := d.relay.AckMessage(ctx, cfg.SessionID, cfg.LocalPartyID, msg.Hash); ackErr != nil {
				d.log.Warn("failed to ack terminal message", logger.Error(ackErr))
			}
			return true, out.Result, nil
		}
	}

	if err := d.relay.AckMessage(ctx, cfg.SessionID, cfg.LocalPartyID, msg.Hash); err != nil {
		return false, nil, err
	}
	return false, nil, nil
}

// sendOutbound seals and sends every outbound message concurrently,
// resolving broadcasts to every other pinned party.
func (d *Driver) sendOutbound(ctx context.Context, cfg RunConfig, outbound []scheme.OutboundMessage, nextSeq func() uint32) error {
	if len(outbound) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ob := range outbound {
		ob := ob
		recipients := ob.ToParties
		if ob.Broadcast {
			recipients = otherParties(cfg.Parties, cfg.LocalPartyID)
		}
		if len(recipients) == 0 {
			continue
		}

		sealed, hash, err := d.codec.Seal(ob.Body)
		if err != nil {
			return err
		}
		relayMsg := types.RelayMessage{
			SessionID:  cfg.SessionID,
			From:       cfg.LocalPartyID,
			To:         recipients,
			Body:       encodeBase64(sealed),
			Hash:       hash,
			SequenceNo: nextSeq(),
		}
		g.Go(func() error {
			return d.relay.SendMessage(ctx, cfg.SessionID, relayMsg)
		})
	}
	return g.Wait()
}

func otherParties(parties []types.PartyId, self types.PartyId) []types.PartyId {
	out := make([]types.PartyId, 0, len(parties))
	for _, p := range parties {
		if p != self {
			out = append(out, p)
		}
	}
	return out
}
