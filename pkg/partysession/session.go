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

// Package partysession is the party session lifecycle (C5): joining a
// relay session, waiting for a quorum of peers, pinning the
// participant set, and signaling/awaiting ceremony completion. It is a
// thin, higher-level wrapper over pkg/relay that the ceremony
// orchestrator drives instead of talking to the relay directly.
package partysession

import (
	"context"
	"time"

	"github.com/vultisig/mpc-sdk-go/internal/logger"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// Session coordinates one party's participation in one relay session.
type Session struct {
	relay        *relay.Client
	pollInterval time.Duration
	log          logger.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithPollInterval overrides the quorum-polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) { s.pollInterval = d }
}

// WithLogger attaches a logger; defaults to the package default logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New wraps relayClient in a Session.
func New(relayClient *relay.Client, opts ...Option) *Session {
	s := &Session{
		relay:        relayClient,
		pollInterval: 2 * time.Second,
		log:          logger.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Join announces localPartyID's presence in sessionID.
func (s *Session) Join(ctx context.Context, sessionID string, localPartyID types.PartyId) error {
	return s.relay.RegisterParty(ctx, sessionID, []types.PartyId{localPartyID})
}

// WaitForQuorum polls ListParties until at least required distinct
// parties (including localPartyID, once Join has been called) have
// announced themselves, or deadline passes. onJoin, if non-nil, is
// called once for every newly observed party in join order.
func (s *Session) WaitForQuorum(ctx context.Context, sessionID string, required int, onJoin func(types.PartyId), deadline time.Time) ([]types.PartyId, error) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	seen := make(map[types.PartyId]bool)
	var ordered []types.PartyId

	for {
		parties, err := s.relay.ListParties(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		for _, p := range parties {
			if seen[p] {
				continue
			}
			seen[p] = true
			ordered = append(ordered, p)
			if onJoin != nil {
				onJoin(p)
			}
		}
		if len(ordered) >= required {
			return ordered, nil
		}

		select {
		case <-ctx.Done():
			return nil, mpcerrors.Wrap(mpcerrors.Timeout, "partysession.WaitForQuorum",
				"quorum not reached before deadline", ctx.Err())
		case <-time.After(s.pollInterval):
		}
	}
}

// Start pins parties as the session's authoritative participant set.
// Only the initiator calls this.
func (s *Session) Start(ctx context.Context, sessionID string, parties []types.PartyId) error {
	return s.relay.StartSession(ctx, sessionID, parties)
}

// AwaitStart block-polls until the initiator has called Start, and
// returns the pinned participant set.
func (s *Session) AwaitStart(ctx context.Context, sessionID string) ([]types.PartyId, error) {
	return s.relay.AwaitSessionStart(ctx, sessionID)
}

// Complete signals that localPartyID considers the ceremony finished.
func (s *Session) Complete(ctx context.Context, sessionID string, localPartyID types.PartyId) error {
	return s.relay.MarkComplete(ctx, sessionID, localPartyID)
}

// AwaitComplete block-polls until every party in peers has called
// Complete.
func (s *Session) AwaitComplete(ctx context.Context, sessionID string, peers []types.PartyId) error {
	return s.relay.AwaitComplete(ctx, sessionID, peers)
}
