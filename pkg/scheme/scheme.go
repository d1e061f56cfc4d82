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

// Package scheme is the opaque state-machine contract every DKLS or
// Schnorr primitive implementation exposes to the MPC driver (C6). The
// driver never reaches into a scheme's internals; it only ever calls
// Start once and Step repeatedly, following exactly the shape spec.md
// §4.6 describes: stateInit(params) -> State, step(State, inbound) ->
// outbound | needSetup | done.
package scheme

import "github.com/vultisig/mpc-sdk-go/pkg/types"

// Mode identifies which ceremony a driver run belongs to.
type Mode string

const (
	ModeKeygen    Mode = "keygen"
	ModeKeyImport Mode = "keyImport"
	ModeKeysign   Mode = "keysign"
)

// Params identifies one driver run. ExtraSecret carries the master
// private key for keyImport and the message hash + derivation path for
// keysign (spec.md §4.6); KeyShare carries the local party's existing
// vault key share, consumed only by keysign. HexChainCode, when
// non-empty, is injected rather than freshly derived — this is how the
// EdDSA leg of a keygen run receives the chain code the ECDSA leg
// produced, and how key-import supplies the BIP-32 chain code to both
// legs (spec.md §4.6 "Chain-code binding").
type Params struct {
	Mode         Mode
	Scheme       types.Scheme
	IsInitiator  bool
	LocalPartyID types.PartyId
	Parties      []types.PartyId
	OldCommittee []types.PartyId
	ExtraSecret  []byte
	KeyShare     []byte
	HexChainCode string
}

// OutboundMessage is one message the driver must deliver on behalf of
// the state machine. When Broadcast is true it goes to every other
// party in Params.Parties; otherwise it goes to exactly ToParties.
type OutboundMessage struct {
	Body      []byte
	Broadcast bool
	ToParties []types.PartyId
}

// Result is what a Step/Start call yields once the ceremony's local
// participation is done.
type Result struct {
	KeyShare  []byte
	PublicKey string
	ChainCode string
	Signature *types.Signature // keysign only
}

// StepOutput is the tagged union a Start/Step call returns: zero or
// more outbound messages to deliver this round, optionally a one-shot
// setup blob to publish (Start, initiator only), and optionally a
// terminal Result.
type StepOutput struct {
	SetupMessage []byte
	Outbound     []OutboundMessage
	Done         bool
	Result       *Result
}

// State is one running ceremony's local state machine. Start and Step
// are never called concurrently on the same State (spec.md §5: "step is
// never re-entered while an earlier step call is outstanding").
type State interface {
	// Start is the first call into the state machine, before any relay
	// round-trip has happened. The initiator's Start produces the
	// one-shot setup blob (StepOutput.SetupMessage) the driver must
	// publish; a follower's Start instead receives that blob, already
	// fetched by the driver, as the setup argument.
	Start(setup []byte) (StepOutput, error)
	// Step advances the state machine with one already-decrypted
	// inbound message and the PartyId that sent it.
	Step(from types.PartyId, body []byte) (StepOutput, error)
}

// Scheme constructs fresh State values for a given set of Params. A
// Scheme implementation is stateless and safe to reuse across runs;
// mpcdriver.Driver.RunWithRetry relies on this to build a clean State
// per attempt.
type Scheme interface {
	Name() types.Scheme
	Init(params Params) (State, error)
}
