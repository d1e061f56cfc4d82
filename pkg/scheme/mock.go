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

package scheme

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// Mock is a minimal, deterministic, INSECURE stand-in for the real DKLS
// and Schnorr primitives: the actual cryptography is out of scope
// (spec.md §1), but the driver, the ceremony orchestrator, and
// cmd/mpcsdk's examples need something that honors the Scheme contract
// end to end. It combines per-party HMAC-SHA256 "contributions" with
// XOR, which gives public-key agreement across parties and pairwise
// share distinctness without implementing threshold ECDSA/EdDSA. Never
// use this for a real vault.
type Mock struct {
	scheme types.Scheme
}

// NewMock builds a Mock scheme for the named family ("dkls" or
// "schnorr").
func NewMock(s types.Scheme) *Mock { return &Mock{scheme: s} }

func (m *Mock) Name() types.Scheme { return m.scheme }

func (m *Mock) Init(params Params) (State, error) {
	if len(params.Parties) < 2 {
		return nil, mpcerrors.New(mpcerrors.InvalidInput, "scheme.Mock.Init", "need at least two parties")
	}
	return &mockState{scheme: m.scheme, params: params, contributions: make(map[types.PartyId][]byte)}, nil
}

type mockState struct {
	scheme        types.Scheme
	params        Params
	groupSeed     []byte
	contributions map[types.PartyId][]byte
	done          bool
}

func (s *mockState) myContribution() []byte {
	mac := hmac.New(sha256.New, s.groupSeed)
	mac.Write([]byte(s.params.LocalPartyID))
	return mac.Sum(nil)
}

// Start either mints the setup blob (initiator) or adopts the one the
// driver already fetched (follower), then broadcasts this party's
// contribution.
func (s *mockState) Start(setup []byte) (StepOutput, error) {
	switch s.params.Mode {
	case ModeKeygen:
		if s.params.IsInitiator {
			seed := make([]byte, 32)
			mac := hmac.New(sha256.New, []byte(s.params.LocalPartyID))
			mac.Write([]byte(fmt.Sprintf("%v", s.params.Parties)))
			copy(seed, mac.Sum(nil))
			s.groupSeed = seed
			out, err := s.broadcastContribution()
			if err != nil {
				return StepOutput{}, err
			}
			out.SetupMessage = seed
			return out, nil
		}
		if len(setup) == 0 {
			return StepOutput{}, mpcerrors.New(mpcerrors.Protocol, "scheme.Mock.Start", "follower received empty setup blob")
		}
		s.groupSeed = setup
		return s.broadcastContribution()

	case ModeKeyImport:
		if len(s.params.ExtraSecret) == 0 {
			return StepOutput{}, mpcerrors.New(mpcerrors.InvalidInput, "scheme.Mock.Start", "key import requires ExtraSecret (master key)")
		}
		s.groupSeed = s.params.ExtraSecret
		out, err := s.broadcastContribution()
		if err != nil {
			return StepOutput{}, err
		}
		if s.params.IsInitiator {
			out.SetupMessage = []byte("key-import-ready")
		}
		return out, nil

	case ModeKeysign:
		if len(s.params.KeyShare) == 0 {
			return StepOutput{}, mpcerrors.New(mpcerrors.InvalidInput, "scheme.Mock.Start", "keysign requires the local key share")
		}
		mac := hmac.New(sha256.New, s.params.KeyShare)
		mac.Write(s.params.ExtraSecret)
		sigShare := mac.Sum(nil)
		s.contributions[s.params.LocalPartyID] = sigShare
		out := StepOutput{Outbound: []OutboundMessage{{Broadcast: true, Body: sigShare}}}
		if s.params.IsInitiator {
			out.SetupMessage = []byte("keysign-ready")
		}
		return s.maybeFinish(out)

	default:
		return StepOutput{}, mpcerrors.New(mpcerrors.InvalidInput, "scheme.Mock.Start", "unknown mode "+string(s.params.Mode))
	}
}

func (s *mockState) broadcastContribution() (StepOutput, error) {
	mine := s.myContribution()
	s.contributions[s.params.LocalPartyID] = mine
	return s.maybeFinish(StepOutput{Outbound: []OutboundMessage{{Broadcast: true, Body: mine}}})
}

func (s *mockState) Step(from types.PartyId, body []byte) (StepOutput, error) {
	if s.done {
		return StepOutput{Done: true}, nil
	}
	s.contributions[from] = append([]byte(nil), body...)
	return s.maybeFinish(StepOutput{})
}

func (s *mockState) maybeFinish(out StepOutput) (StepOutput, error) {
	for _, p := range s.params.Parties {
		if _, ok := s.contributions[p]; !ok {
			return out, nil
		}
	}

	groupSecret := make([]byte, 32)
	for _, p := range s.params.Parties {
		c := s.contributions[p]
		for i := 0; i < len(groupSecret) && i < len(c); i++ {
			groupSecret[i] ^= c[i]
		}
	}

	result := &Result{}
	switch s.params.Mode {
	case ModeKeysign:
		sig, err := s.mockSignature(groupSecret)
		if err != nil {
			return StepOutput{}, err
		}
		result.Signature = sig
	default:
		pubHex, err := s.mockPublicKey(groupSecret)
		if err != nil {
			return StepOutput{}, err
		}
		result.KeyShare = s.contributions[s.params.LocalPartyID]
		result.PublicKey = pubHex
		if s.params.HexChainCode != "" {
			result.ChainCode = s.params.HexChainCode
		} else {
			sum := sha256.Sum256(append(append([]byte(nil), groupSecret...), "chaincode"...))
			result.ChainCode = hex.EncodeToString(sum[:])
		}
	}

	out.Done = true
	out.Result = result
	s.done = true
	return out, nil
}

func (s *mockState) mockPublicKey(groupSecret []byte) (string, error) {
	switch s.scheme {
	case types.SchemeDKLS:
		priv := secp256k1.PrivKeyFromBytes(groupSecret)
		return hex.EncodeToString(priv.PubKey().SerializeCompressed()), nil
	case types.SchemeSchnorr:
		priv := ed25519.NewKeyFromSeed(groupSecret)
		pub := priv.Public().(ed25519.PublicKey)
		if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
			return "", mpcerrors.Wrap(mpcerrors.Cryptographic, "scheme.Mock.mockPublicKey", "derived point is not on the curve", err)
		}
		return hex.EncodeToString(pub), nil
	default:
		return "", mpcerrors.New(mpcerrors.InvalidInput, "scheme.Mock.mockPublicKey", "unknown scheme "+string(s.scheme))
	}
}

func (s *mockState) mockSignature(groupSecret []byte) (*types.Signature, error) {
	signed := append(append([]byte(nil), groupSecret...), s.params.ExtraSecret...)
	r := sha256.Sum256(append(append([]byte(nil), signed...), "r"...))
	sBytes := sha256.Sum256(append(append([]byte(nil), signed...), "s"...))

	switch s.scheme {
	case types.SchemeDKLS:
		recovery := int(groupSecret[0] % 2)
		return &types.Signature{
			R:          r[:],
			S:          sBytes[:],
			DER:        append(append([]byte(nil), r[:]...), sBytes[:]...),
			RecoveryID: &recovery,
		}, nil
	case types.SchemeSchnorr:
		return &types.Signature{R: r[:], S: sBytes[:]}, nil
	default:
		return nil, mpcerrors.New(mpcerrors.InvalidInput, "scheme.Mock.mockSignature", "unknown scheme "+string(s.scheme))
	}
}
