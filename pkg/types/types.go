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

// Package types holds the wire- and storage-level data model shared by
// every component of the coordinator: party identities, session
// descriptors, relay messages, the pairing-payload message bodies, and
// the vault itself.
package types

import (
	"strings"
	"time"
)

// PartyId is a short, human-readable token unique within a session, e.g.
// "sdk-1234", "iphone-0421", "Server-1172".
type PartyId string

// ServerPrefix marks a PartyId as the remote fast-vault signer.
const ServerPrefix = "Server-"

// IsServer reports whether this party is the remote fast-vault signer.
func (p PartyId) IsServer() bool {
	return strings.HasPrefix(string(p), ServerPrefix)
}

// LibType tags the cryptographic primitive family a vault was created
// with. Fixed for the vault's lifetime.
type LibType string

const (
	LibTypeDKLS LibType = "DKLS"
)

// Scheme identifies which signature scheme a driver run or keysign
// targets.
type Scheme string

const (
	SchemeDKLS    Scheme = "dkls"    // threshold ECDSA
	SchemeSchnorr Scheme = "schnorr" // threshold EdDSA
)

// SessionDescriptor is created by the initiating party, handed to peers
// through the pairing payload, and consumed by every component that
// talks to the relay.
type SessionDescriptor struct {
	SessionID        string // opaque UUID
	HexEncryptionKey string // 32-byte key, hex-encoded; shared AEAD secret
	RelayURL         string
}

// RelayMessage is one frame of ciphertext routed through the relay.
// Hash is the SHA-256 of the plaintext body, so re-encryption of the
// same plaintext produces the same dedup/ack key. SequenceNo is a
// monotonically increasing per-sender counter used for in-order
// delivery.
type RelayMessage struct {
	SessionID  string   `json:"session_id"`
	From       PartyId  `json:"from"`
	To         []PartyId `json:"to"`
	Body       string   `json:"body"` // base64 ciphertext
	Hash       string   `json:"hash"` // hex SHA-256 of plaintext
	SequenceNo uint32   `json:"sequence_no"`
}

// PublicKeys is the vault's canonical identity: the same across every
// signer's vault of the same ceremony.
type PublicKeys struct {
	ECDSA string // hex-encoded compressed secp256k1 public key
	EdDSA string // hex-encoded ed25519 public key
}

// Vault is a party's local record of a completed ceremony. keyShares are
// unique per signer and must never leave memory unencrypted except
// through the vault container codec.
type Vault struct {
	Name         string
	PublicKeys   PublicKeys
	LocalPartyID PartyId
	Signers      []PartyId // identical order across every party
	HexChainCode string
	KeyShares    KeyShares
	LibType      LibType
	CreatedAt    time.Time
	Order        int
	IsBackedUp   bool
}

// KeyShares holds this party's unique secret shares. Never serialized
// except by the vault container codec's inner binary encoding, which is
// itself optionally AES-GCM encrypted at rest.
type KeyShares struct {
	ECDSA []byte
	EdDSA []byte
}

// SignerIndex returns the 1-based position of partyID within signers,
// or 0 if absent. Used by the vault container codec's filename contract
// (spec.md §4.4: "<Name>-<LocalPartyId>-share<Index>of<N>.vult").
func SignerIndex(signers []PartyId, partyID PartyId) int {
	for i, s := range signers {
		if s == partyID {
			return i + 1
		}
	}
	return 0
}

// KeygenMessage is the structured descriptor embedded in a pairing
// payload of kind NewVault.
type KeygenMessage struct {
	SessionID        string
	ServiceName      string // = initiator PartyId
	EncryptionKeyHex string
	HexChainCode     string
	LibType          LibType
	VaultName        string
}

// KeysignMessage is the structured descriptor embedded in a pairing
// payload of kind SignTransaction.
type KeysignMessage struct {
	SessionID        string
	ServiceName      string
	EncryptionKeyHex string
	PayloadID        string
	KeysignPayload   []byte // opaque per-chain blob
}

// Signature is the scheme-specific signature bundle produced by a
// keysign driver run. RecoveryID is always the integer value after
// hex-decoding (spec.md §9 Open Questions normalizes the two disagreeing
// callsites to this representation); it is nil for EdDSA signatures.
type Signature struct {
	R          []byte
	S          []byte
	DER        []byte
	RecoveryID *int
}
