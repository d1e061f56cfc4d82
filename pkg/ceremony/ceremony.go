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

// Package ceremony is the ceremony orchestrator (C7): it sequences
// party-session join/quorum/start, runs the ECDSA and EdDSA driver legs
// with the chain-code binding spec.md §4.6 requires, and materializes
// the resulting Vault. Keysign ceremonies skip the EdDSA leg entirely
// and run only the scheme the caller names.
package ceremony

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vultisig/mpc-sdk-go/internal/logger"
	"github.com/vultisig/mpc-sdk-go/pkg/frame"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcdriver"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/partysession"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/scheme"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// ProgressStage tags one point in a ceremony's lifecycle, for UIs that
// want to show "waiting for 2 of 3 devices" style progress.
type ProgressStage string

const (
	StageJoining    ProgressStage = "joining"
	StageWaiting    ProgressStage = "waiting_for_quorum"
	StageECDSA      ProgressStage = "running_ecdsa"
	StageEdDSA      ProgressStage = "running_eddsa"
	StageFinalizing ProgressStage = "finalizing"
	StageDone       ProgressStage = "done"
)

// ProgressEvent is delivered to a caller-supplied callback as a
// ceremony advances. Peer is only set for StageWaiting events.
type ProgressEvent struct {
	Stage ProgressStage
	Peer  types.PartyId
}

// ProgressFunc receives ProgressEvents; nil is a valid no-op callback.
type ProgressFunc func(ProgressEvent)

func notify(fn ProgressFunc, ev ProgressEvent) {
	if fn != nil {
		fn(ev)
	}
}

// Threshold computes the signing threshold for a vault with devices
// participants: the smallest t such that at least t-of-devices
// signatures are required, floored at 2 (spec.md §3: "a 1-of-N vault
// offers no security benefit over a single key").
func Threshold(devices int) (int, error) {
	if devices < 2 {
		return 0, mpcerrors.New(mpcerrors.InvalidInput, "ceremony.Threshold", "a vault needs at least two devices")
	}
	t := (devices + 1 + 1) / 2 // ceil((devices+1)/2)
	if t < 2 {
		t = 2
	}
	return t, nil
}

// KeygenRequest describes a new-vault ceremony.
type KeygenRequest struct {
	SessionID    string
	VaultName    string
	LocalPartyID types.PartyId
	IsInitiator  bool
	Parties      []types.PartyId // not read by Keygen/KeyImport: the initiator takes the party list from the quorum wait, followers from AwaitStart
	QuorumSize   int
	QuorumWait   time.Duration
	HexKey       string // session AEAD key, 32 bytes hex-encoded; required, the orchestrator does not generate one
}

// KeyImportRequest describes importing an existing BIP-39 mnemonic as
// a new vault.
type KeyImportRequest struct {
	KeygenRequest
	MasterKey       []byte // BIP-32 master private key
	HexChainCode    string
}

// KeysignRequest describes a signing ceremony over an existing vault.
// MessageHashes carries one hash per UTXO-style input (spec.md §4.7.3
// step 5); a single-input sign still passes a one-element slice.
type KeysignRequest struct {
	SessionID     string
	Vault         *types.Vault
	LocalPartyID  types.PartyId
	IsInitiator   bool
	Parties       []types.PartyId
	QuorumWait    time.Duration
	HexKey        string
	UseEdDSA      bool // selects KeyShares.EdDSA / SchemeSchnorr over ECDSA
	MessageHashes [][]byte
}

// Orchestrator drives ceremonies over one relay endpoint.
type Orchestrator struct {
	relay         *relay.Client
	log           logger.Logger
	schemeFactory func(types.Scheme) scheme.Scheme
}

// New builds an Orchestrator over relayClient.
func New(relayClient *relay.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		relay:         relayClient,
		log:           logger.GetDefaultLogger(),
		schemeFactory: func(s types.Scheme) scheme.Scheme { return scheme.NewMock(s) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger; defaults to the package default logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithSchemeFactory overrides how the orchestrator builds a
// scheme.Scheme for a given family, e.g. to substitute a real DKLS/
// Schnorr backend for the default Mock.
func WithSchemeFactory(f func(types.Scheme) scheme.Scheme) Option {
	return func(o *Orchestrator) { o.schemeFactory = f }
}

// Keygen runs a fresh DKLS keygen, then a Schnorr keygen seeded with
// the chain code the DKLS leg produced, and returns the resulting
// Vault (spec.md §4.6 "Chain-code binding": the authoritative chain
// code always comes from the ECDSA leg).
func (o *Orchestrator) Keygen(ctx context.Context, req KeygenRequest, progress ProgressFunc) (*types.Vault, error) {
	sess, parties, err := o.joinAndQuorum(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	codec, err := frame.NewCodec(req.HexKey)
	if err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageECDSA})
	ecdsaResult, err := o.runLeg(ctx, sess, codec, scheme.Params{
		Mode:         scheme.ModeKeygen,
		Scheme:       types.SchemeDKLS,
		IsInitiator:  req.IsInitiator,
		LocalPartyID: req.LocalPartyID,
		Parties:      parties,
	}, mpcdriver.RunConfig{SetupHeader: ""})
	if err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageEdDSA})
	eddsaResult, err := o.runLeg(ctx, sess, codec, scheme.Params{
		Mode:         scheme.ModeKeygen,
		Scheme:       types.SchemeSchnorr,
		IsInitiator:  req.IsInitiator,
		LocalPartyID: req.LocalPartyID,
		Parties:      parties,
		HexChainCode: ecdsaResult.ChainCode,
	}, mpcdriver.RunConfig{SetupHeader: "eddsa_keygen"})
	if err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageFinalizing})
	if err := o.markAndAwaitComplete(ctx, sess, parties, req.LocalPartyID); err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageDone})
	return &types.Vault{
		Name:         req.VaultName,
		PublicKeys:   types.PublicKeys{ECDSA: ecdsaResult.PublicKey, EdDSA: eddsaResult.PublicKey},
		LocalPartyID: req.LocalPartyID,
		Signers:      parties,
		HexChainCode: ecdsaResult.ChainCode,
		KeyShares:    types.KeyShares{ECDSA: ecdsaResult.KeyShare, EdDSA: eddsaResult.KeyShare},
		LibType:      types.LibTypeDKLS,
		CreatedAt:    time.Now(),
		Order:        types.SignerIndex(parties, req.LocalPartyID) - 1,
	}, nil
}

// KeyImport runs the same two-leg ceremony as Keygen, but both legs
// consume req.MasterKey/HexChainCode instead of generating fresh
// randomness (spec.md §4.7: "key import reconstructs a vault around an
// existing secret instead of minting a new one").
func (o *Orchestrator) KeyImport(ctx context.Context, req KeyImportRequest, progress ProgressFunc) (*types.Vault, error) {
	sess, parties, err := o.joinAndQuorum(ctx, req.KeygenRequest, progress)
	if err != nil {
		return nil, err
	}

	codec, err := frame.NewCodec(req.HexKey)
	if err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageECDSA})
	ecdsaResult, err := o.runLeg(ctx, sess, codec, scheme.Params{
		Mode:         scheme.ModeKeyImport,
		Scheme:       types.SchemeDKLS,
		IsInitiator:  req.IsInitiator,
		LocalPartyID: req.LocalPartyID,
		Parties:      parties,
		ExtraSecret:  req.MasterKey,
		HexChainCode: req.HexChainCode,
	}, mpcdriver.RunConfig{SetupHeader: ""})
	if err != nil {
		return nil, err
	}

	// spec.md §4.7.2: unlike Keygen, the EdDSA leg of a key import runs
	// over a brand-new sessionId (suffixed "-eddsa") so its message lanes
	// never share a (sessionId, sender, sequence_no) space with the ECDSA
	// leg; every party joins/starts that second session independently.
	eddsaSess, err := o.joinExistingParties(ctx, req.SessionID+"-eddsa", req.LocalPartyID, req.IsInitiator, parties)
	if err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageEdDSA})
	eddsaResult, err := o.runLeg(ctx, eddsaSess, codec, scheme.Params{
		Mode:         scheme.ModeKeyImport,
		Scheme:       types.SchemeSchnorr,
		IsInitiator:  req.IsInitiator,
		LocalPartyID: req.LocalPartyID,
		Parties:      parties,
		ExtraSecret:  req.MasterKey,
		HexChainCode: req.HexChainCode,
	}, mpcdriver.RunConfig{SetupHeader: "eddsa_key_import"})
	if err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageFinalizing})
	if err := o.markAndAwaitComplete(ctx, eddsaSess, parties, req.LocalPartyID); err != nil {
		return nil, err
	}
	if err := o.markAndAwaitComplete(ctx, sess, parties, req.LocalPartyID); err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageDone})
	return &types.Vault{
		Name:         req.VaultName,
		PublicKeys:   types.PublicKeys{ECDSA: ecdsaResult.PublicKey, EdDSA: eddsaResult.PublicKey},
		LocalPartyID: req.LocalPartyID,
		Signers:      parties,
		HexChainCode: req.HexChainCode,
		KeyShares:    types.KeyShares{ECDSA: ecdsaResult.KeyShare, EdDSA: eddsaResult.KeyShare},
		LibType:      types.LibTypeDKLS,
		CreatedAt:    time.Now(),
		Order:        types.SignerIndex(parties, req.LocalPartyID) - 1,
	}, nil
}

// Keysign runs one driver leg (ECDSA or EdDSA, per req.UseEdDSA) per
// entry in req.MessageHashes and returns the resulting Signatures in
// the same order. A UTXO-style transaction with one hash per input
// (spec.md §4.7.3 step 5) gets a distinct per-hash sessionId
// (sessionId + "-" + i) so the inputs' driver runs never share a
// (sessionId, sender, sequence_no) space; every party joins/starts
// each per-hash session independently.
func (o *Orchestrator) Keysign(ctx context.Context, req KeysignRequest, progress ProgressFunc) ([]types.Signature, error) {
	if len(req.MessageHashes) == 0 {
		return nil, mpcerrors.New(mpcerrors.InvalidInput, "ceremony.Keysign", "at least one message hash is required")
	}

	notify(progress, ProgressEvent{Stage: StageJoining})
	sess := partysession.New(o.relay)
	if err := sess.Join(ctx, req.SessionID, req.LocalPartyID); err != nil {
		return nil, err
	}

	var parties []types.PartyId
	var err error
	if req.IsInitiator {
		parties = req.Parties
		if err := sess.Start(ctx, req.SessionID, parties); err != nil {
			return nil, err
		}
	} else {
		notify(progress, ProgressEvent{Stage: StageWaiting})
		parties, err = sess.AwaitStart(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
	}

	codec, err := frame.NewCodec(req.HexKey)
	if err != nil {
		return nil, err
	}

	s := types.SchemeDKLS
	keyShare := req.Vault.KeyShares.ECDSA
	header := ""
	if req.UseEdDSA {
		s = types.SchemeSchnorr
		keyShare = req.Vault.KeyShares.EdDSA
		header = "eddsa_keysign"
	}

	notify(progress, ProgressEvent{Stage: StageECDSA})
	signatures := make([]types.Signature, len(req.MessageHashes))
	for i, hash := range req.MessageHashes {
		legSessionID := fmt.Sprintf("%s-%d", req.SessionID, i)
		legSess, err := o.joinExistingParties(ctx, legSessionID, req.LocalPartyID, req.IsInitiator, parties)
		if err != nil {
			return nil, err
		}

		result, err := o.runLeg(ctx, legSess, codec, scheme.Params{
			Mode:         scheme.ModeKeysign,
			Scheme:       s,
			IsInitiator:  req.IsInitiator,
			LocalPartyID: req.LocalPartyID,
			Parties:      parties,
			KeyShare:     keyShare,
			ExtraSecret:  hash,
		}, mpcdriver.RunConfig{SetupHeader: header})
		if err != nil {
			return nil, err
		}
		if result.Signature == nil {
			return nil, mpcerrors.New(mpcerrors.Protocol, "ceremony.Keysign", fmt.Sprintf("driver run for input %d produced no signature", i))
		}

		if err := o.markAndAwaitComplete(ctx, legSess, parties, req.LocalPartyID); err != nil {
			return nil, err
		}
		signatures[i] = *result.Signature
	}

	notify(progress, ProgressEvent{Stage: StageFinalizing})
	if err := o.markAndAwaitComplete(ctx, session{id: req.SessionID}, parties, req.LocalPartyID); err != nil {
		return nil, err
	}

	notify(progress, ProgressEvent{Stage: StageDone})
	return signatures, nil
}

// session is the minimal state the orchestrator threads between its
// join/quorum phase and its driver-leg phase.
type session struct {
	id string
}

func (o *Orchestrator) joinAndQuorum(ctx context.Context, req KeygenRequest, progress ProgressFunc) (session, []types.PartyId, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	notify(progress, ProgressEvent{Stage: StageJoining})
	ps := partysession.New(o.relay)
	if err := ps.Join(ctx, req.SessionID, req.LocalPartyID); err != nil {
		return session{}, nil, err
	}

	var parties []types.PartyId
	if req.IsInitiator {
		notify(progress, ProgressEvent{Stage: StageWaiting})
		deadline := time.Now().Add(req.QuorumWait)
		got, err := ps.WaitForQuorum(ctx, req.SessionID, req.QuorumSize, func(p types.PartyId) {
			notify(progress, ProgressEvent{Stage: StageWaiting, Peer: p})
		}, deadline)
		if err != nil {
			return session{}, nil, err
		}
		parties = got
		if err := ps.Start(ctx, req.SessionID, parties); err != nil {
			return session{}, nil, err
		}
	} else {
		notify(progress, ProgressEvent{Stage: StageWaiting})
		got, err := ps.AwaitStart(ctx, req.SessionID)
		if err != nil {
			return session{}, nil, err
		}
		parties = got
	}

	return session{id: req.SessionID}, parties, nil
}

// runLegRetryAttempts bounds the whole-round-loop retry spec.md §4.6
// "Retries" mandates: a transport or timeout failure anywhere in a
// driver run gets the whole leg retried from a fresh scheme.State, up
// to this many attempts total; a cryptographic failure is never
// retried.
const runLegRetryAttempts = 3

// joinExistingParties establishes a second, independent relay session
// for a participant set that is already known (no quorum wait): every
// party joins sessionID, the initiator pins parties via Start, and
// followers block on AwaitStart. Used whenever a ceremony needs a fresh
// sessionId disjoint from its primary one (the EdDSA leg of key import,
// per-hash keysign legs).
func (o *Orchestrator) joinExistingParties(ctx context.Context, sessionID string, localPartyID types.PartyId, isInitiator bool, parties []types.PartyId) (session, error) {
	ps := partysession.New(o.relay)
	if err := ps.Join(ctx, sessionID, localPartyID); err != nil {
		return session{}, err
	}
	if isInitiator {
		if err := ps.Start(ctx, sessionID, parties); err != nil {
			return session{}, err
		}
	} else {
		if _, err := ps.AwaitStart(ctx, sessionID); err != nil {
			return session{}, err
		}
	}
	return session{id: sessionID}, nil
}

func (o *Orchestrator) runLeg(ctx context.Context, sess session, codec *frame.Codec, params scheme.Params, cfg mpcdriver.RunConfig) (*scheme.Result, error) {
	cfg.SessionID = sess.id
	cfg.LocalPartyID = params.LocalPartyID
	cfg.Parties = params.Parties
	cfg.IsInitiator = params.IsInitiator

	drv := mpcdriver.New(o.relay, codec, mpcdriver.WithLogger(o.log))
	result, err := drv.RunWithRetry(ctx, cfg, func() (scheme.State, error) {
		st, err := o.schemeFactory(params.Scheme).Init(params)
		if err != nil {
			return nil, mpcerrors.Wrap(mpcerrors.Protocol, "ceremony.runLeg", "initialize scheme state", err)
		}
		return st, nil
	}, runLegRetryAttempts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, mpcerrors.New(mpcerrors.Protocol, "ceremony.runLeg", fmt.Sprintf("driver run for %s produced no result", params.Scheme))
	}
	return result, nil
}

func (o *Orchestrator) markAndAwaitComplete(ctx context.Context, sess session, parties []types.PartyId, localPartyID types.PartyId) error {
	ps := partysession.New(o.relay)
	if err := ps.Complete(ctx, sess.id, localPartyID); err != nil {
		return err
	}
	return ps.AwaitComplete(ctx, sess.id, parties)
}
