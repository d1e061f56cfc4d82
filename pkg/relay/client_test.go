// Vultisig MPC SDK
// Copyright (C) 2025 vultisig
//
// This file is part of the Vultisig MPC SDK.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/relay/relaytest"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

func newTestClient(t *testing.T, srv *relaytest.Server) *relay.Client {
	t.Helper()
	return relay.NewClient(srv.URL(), relay.WithPollInterval(10*time.Millisecond))
}

func TestPing(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.Ping(context.Background()))
}

func TestRegisterAndListParties(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.RegisterParty(ctx, "sess-1", []types.PartyId{"a"}))
	require.NoError(t, c.RegisterParty(ctx, "sess-1", []types.PartyId{"b"}))
	require.NoError(t, c.RegisterParty(ctx, "sess-1", []types.PartyId{"a"})) // idempotent

	parties, err := c.ListParties(ctx, "sess-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.PartyId{"a", "b"}, parties)
}

func TestStartAndAwaitSessionStart(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	want := []types.PartyId{"a", "b", "c"}
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = c.StartSession(ctx, "sess-2", want)
	}()

	ctx2, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, err := c.AwaitSessionStart(ctx2, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAwaitSessionStartTimesOut(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.AwaitSessionStart(ctx, "sess-never")
	require.Error(t, err)
	assert.Equal(t, mpcerrors.Timeout, mpcerrors.KindOf(err))
}

func TestSendFetchAckMessage(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	msg := types.RelayMessage{
		SessionID:  "sess-3",
		From:       "a",
		To:         []types.PartyId{"b"},
		Body:       "Ym9keQ==",
		Hash:       "deadbeef",
		SequenceNo: 1,
	}
	require.NoError(t, c.SendMessage(ctx, "sess-3", msg))

	msgs, err := c.FetchMessages(ctx, "sess-3", "b")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.Hash, msgs[0].Hash)

	require.NoError(t, c.AckMessage(ctx, "sess-3", "b", msg.Hash))

	msgs, err = c.FetchMessages(ctx, "sess-3", "b")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSetupMessageHeaders(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	require.NoError(t, c.UploadSetupMessage(ctx, "sess-4", []byte("ecdsa-setup"), ""))
	require.NoError(t, c.UploadSetupMessage(ctx, "sess-4", []byte("eddsa-setup"), "eddsa_key_import"))

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	got, err := c.FetchSetupMessage(ctx2, "sess-4", "")
	require.NoError(t, err)
	assert.Equal(t, "ecdsa-setup", string(got))

	got, err = c.FetchSetupMessage(ctx2, "sess-4", "eddsa_key_import")
	require.NoError(t, err)
	assert.Equal(t, "eddsa-setup", string(got))
}

func TestMarkAndAwaitComplete(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	peers := []types.PartyId{"a", "b"}
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = c.MarkComplete(ctx, "sess-5", "a")
		time.Sleep(10 * time.Millisecond)
		_ = c.MarkComplete(ctx, "sess-5", "b")
	}()

	ctx2, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, c.AwaitComplete(ctx2, "sess-5", peers))
}
