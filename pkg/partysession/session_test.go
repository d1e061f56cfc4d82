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

package partysession

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/relay/relaytest"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

func TestJoinWaitForQuorumStartAwaitStart(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()

	sessionID := "session-1"
	parties := []types.PartyId{"sdk-1", "iphone-2", "Server-3"}

	sessions := make(map[types.PartyId]*Session)
	for _, p := range parties {
		sessions[p] = New(relay.NewClient(srv.URL(), relay.WithPollInterval(5*time.Millisecond)),
			WithPollInterval(5*time.Millisecond))
	}

	ctx := context.Background()
	for _, p := range parties {
		require.NoError(t, sessions[p].Join(ctx, sessionID, p))
	}

	var joined []types.PartyId
	got, err := sessions[parties[0]].WaitForQuorum(ctx, sessionID, len(parties), func(p types.PartyId) {
		joined = append(joined, p)
	}, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.ElementsMatch(t, parties, got)
	assert.ElementsMatch(t, parties, joined)

	require.NoError(t, sessions[parties[0]].Start(ctx, sessionID, parties))

	pinned, err := sessions[parties[1]].AwaitStart(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, parties, pinned)
}

func TestWaitForQuorumTimesOutWhenNotEnoughPeersJoin(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()

	sessionID := "session-2"
	s := New(relay.NewClient(srv.URL(), relay.WithPollInterval(5*time.Millisecond)),
		WithPollInterval(5*time.Millisecond))

	ctx := context.Background()
	require.NoError(t, s.Join(ctx, sessionID, "sdk-1"))

	_, err := s.WaitForQuorum(ctx, sessionID, 3, nil, time.Now().Add(50*time.Millisecond))
	require.Error(t, err)
}

func TestCompleteAwaitComplete(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()

	sessionID := "session-3"
	parties := []types.PartyId{"sdk-1", "iphone-2"}

	sessions := make(map[types.PartyId]*Session)
	for _, p := range parties {
		sessions[p] = New(relay.NewClient(srv.URL()))
	}

	ctx := context.Background()
	for _, p := range parties {
		require.NoError(t, sessions[p].Complete(ctx, sessionID, p))
	}

	require.NoError(t, sessions[parties[0]].AwaitComplete(ctx, sessionID, parties))
}
