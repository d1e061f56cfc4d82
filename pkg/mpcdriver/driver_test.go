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

package mpcdriver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/mpc-sdk-go/pkg/frame"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/relay/relaytest"
	"github.com/vultisig/mpc-sdk-go/pkg/scheme"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

func randomHexKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, frame.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

// runParty is called from a non-test goroutine, so it must report
// failures through its return value rather than require/assert.
func runParty(relayURL, hexKey string, cfg RunConfig) (*scheme.Result, error) {
	codec, err := frame.NewCodec(hexKey)
	if err != nil {
		return nil, err
	}

	st, err := scheme.NewMock(types.SchemeDKLS).Init(scheme.Params{
		Mode:         scheme.ModeKeygen,
		Scheme:       types.SchemeDKLS,
		IsInitiator:  cfg.IsInitiator,
		LocalPartyID: cfg.LocalPartyID,
		Parties:      cfg.Parties,
	})
	if err != nil {
		return nil, err
	}

	drv := New(relay.NewClient(relayURL), codec, WithPollInterval(5*time.Millisecond))
	return drv.Run(context.Background(), cfg, st)
}

func TestDriverRunsTwoPartyKeygenToAgreement(t *testing.T) {
	srv := relaytest.New()
	defer srv.Close()

	parties := []types.PartyId{"sdk-1", "iphone-2"}
	hexKey := randomHexKey(t)

	type outcome struct {
		result *scheme.Result
		err    error
	}
	results := make(chan outcome, 2)

	for i, p := range parties {
		go func(isInitiator bool, local types.PartyId) {
			r, err := runParty(srv.URL(), hexKey, RunConfig{
				SessionID:    "driver-session-1",
				LocalPartyID: local,
				Parties:      parties,
				IsInitiator:  isInitiator,
			})
			results <- outcome{r, err}
		}(i == 0, p)
	}

	var got []*scheme.Result
	for range parties {
		select {
		case o := <-results:
			require.NoError(t, o.err)
			got = append(got, o.result)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for driver run")
		}
	}

	require.Len(t, got, 2)
	assert.Equal(t, got[0].PublicKey, got[1].PublicKey)
	assert.NotEqual(t, got[0].KeyShare, got[1].KeyShare)
}

func TestOrderBufferWithholdsOutOfOrderMessages(t *testing.T) {
	b := newOrderBuffer()

	msg2 := types.RelayMessage{From: "a", SequenceNo: 2, Hash: "h2"}
	msg1 := types.RelayMessage{From: "a", SequenceNo: 1, Hash: "h1"}

	ready := b.Admit(msg2)
	assert.Empty(t, ready, "sequence 2 must wait for sequence 1")

	ready = b.Admit(msg1)
	require.Len(t, ready, 2)
	assert.Equal(t, "h1", ready[0].Hash)
	assert.Equal(t, "h2", ready[1].Hash)
}

func TestOrderBufferDropsDuplicateRedelivery(t *testing.T) {
	b := newOrderBuffer()

	msg1 := types.RelayMessage{From: "a", SequenceNo: 1, Hash: "h1"}
	require.Len(t, b.Admit(msg1), 1)

	// Same message redelivered (e.g. an ack that never reached the relay).
	assert.Empty(t, b.Admit(msg1))
}

func TestDedupeDetectorRejectsRepeatedHash(t *testing.T) {
	d := newDedupeDetector(time.Minute)

	assert.False(t, d.SeenAndMark("h1"))
	assert.True(t, d.SeenAndMark("h1"))
}

// stubOutboundState always produces the same outbound message on Start,
// so its only job is to exercise the relay send path that RunWithRetry
// is meant to retry.
type stubOutboundState struct {
	starts *int
}

func (s *stubOutboundState) Start(setup []byte) (scheme.StepOutput, error) {
	*s.starts++
	return scheme.StepOutput{
		Outbound: []scheme.OutboundMessage{{Body: []byte("x"), ToParties: []types.PartyId{"peer"}}},
	}, nil
}

func (s *stubOutboundState) Step(types.PartyId, []byte) (scheme.StepOutput, error) {
	return scheme.StepOutput{Done: true, Result: &scheme.Result{}}, nil
}

func TestRunWithRetryRetriesTransportFailureUpToAttempts(t *testing.T) {
	// Port 1 refuses connections immediately, so every send fails with a
	// Transport error without any real network delay.
	relayClient := relay.NewClient("http://127.0.0.1:1", relay.WithRetry(0, time.Millisecond, time.Millisecond))
	codec, err := frame.NewCodec(randomHexKey(t))
	require.NoError(t, err)

	drv := New(relayClient, codec, WithPollInterval(time.Millisecond))

	var starts int
	newState := func() (scheme.State, error) {
		return &stubOutboundState{starts: &starts}, nil
	}

	cfg := RunConfig{
		SessionID:    "retry-session",
		LocalPartyID: "me",
		Parties:      []types.PartyId{"me", "peer"},
		IsInitiator:  true,
	}

	_, err = drv.RunWithRetry(context.Background(), cfg, newState, 3)
	require.Error(t, err)
	assert.True(t, mpcerrors.IsKind(err, mpcerrors.Transport))
	assert.Equal(t, 3, starts, "a fresh State must be built for every attempt")
}

// stubFailStartState rejects the ceremony outright (a cryptographic or
// protocol failure), which RunWithRetry must never retry.
type stubFailStartState struct {
	starts *int
}

func (s *stubFailStartState) Start(setup []byte) (scheme.StepOutput, error) {
	*s.starts++
	return scheme.StepOutput{}, errors.New("rejected by scheme")
}

func (s *stubFailStartState) Step(types.PartyId, []byte) (scheme.StepOutput, error) {
	return scheme.StepOutput{}, nil
}

func TestRunWithRetryDoesNotRetryNonTransportFailure(t *testing.T) {
	relayClient := relay.NewClient("http://127.0.0.1:1")
	codec, err := frame.NewCodec(randomHexKey(t))
	require.NoError(t, err)

	drv := New(relayClient, codec)

	var starts int
	newState := func() (scheme.State, error) {
		return &stubFailStartState{starts: &starts}, nil
	}

	cfg := RunConfig{SessionID: "s", LocalPartyID: "me", IsInitiator: true}

	_, err = drv.RunWithRetry(context.Background(), cfg, newState, 3)
	require.Error(t, err)
	assert.False(t, mpcerrors.IsKind(err, mpcerrors.Transport))
	assert.Equal(t, 1, starts, "a non-transport failure must not be retried")
}
