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

// Package masterkey is the master key deriver (C10): it turns a BIP-39
// mnemonic into the master secret and chain code that a key-import
// ceremony seeds its scheme.State with (scheme.Params.ExtraSecret /
// HexChainCode).
//
// Derivation follows BIP-32 §"Master key generation" directly: the
// seed is HMAC-SHA512'd with the fixed key "Bitcoin seed"; the left 32
// bytes are the master private key (rejected if zero or not below the
// secp256k1 group order), the right 32 bytes are the master chain code. This package
// does not implement full BIP-32 child-key derivation — import ceremonies
// consume the master key and chain code directly (spec.md §4.7), so
// per-path derivation is out of scope.
package masterkey

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip39"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
)

// bitcoinSeedKey is the fixed HMAC key BIP-32 mandates for master key
// generation.
var bitcoinSeedKey = []byte("Bitcoin seed")

// MasterKey is the master private key (a valid secp256k1 scalar) and
// chain code derived from a mnemonic seed.
type MasterKey struct {
	Key       []byte // 32-byte master private scalar
	ChainCode []byte // 32-byte master chain code
}

// HexKey hex-encodes Key.
func (m MasterKey) HexKey() string { return hex.EncodeToString(m.Key) }

// HexChainCode hex-encodes ChainCode.
func (m MasterKey) HexChainCode() string { return hex.EncodeToString(m.ChainCode) }

// ValidateMnemonic reports whether phrase is a well-formed BIP-39
// mnemonic (checksum included).
func ValidateMnemonic(phrase string) error {
	if !bip39.IsMnemonicValid(phrase) {
		return mpcerrors.New(mpcerrors.InvalidInput, "masterkey.ValidateMnemonic", "not a valid BIP-39 mnemonic")
	}
	return nil
}

// NewMnemonic generates a fresh BIP-39 mnemonic at the given entropy
// bit size (128 for 12 words, 256 for 24).
func NewMnemonic(entropyBits int) (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", mpcerrors.Wrap(mpcerrors.Cryptographic, "masterkey.NewMnemonic", "generate entropy", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", mpcerrors.Wrap(mpcerrors.Cryptographic, "masterkey.NewMnemonic", "derive mnemonic", err)
	}
	return phrase, nil
}

// Derive turns a BIP-39 mnemonic (and optional passphrase) into the
// BIP-32 master key and chain code (P: re-deriving from the same
// mnemonic+passphrase must be deterministic and reproduce the same
// key/chain-code pair).
func Derive(mnemonic, passphrase string) (*MasterKey, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(mnemonic, passphrase)

	mac := hmac.New(sha512.New, bitcoinSeedKey)
	mac.Write(seed)
	sum := mac.Sum(nil)

	key := sum[:32]
	chainCode := sum[32:]

	scalar := new(secp256k1.ModNScalar)
	overflow := scalar.SetByteSlice(key)
	if overflow || scalar.IsZero() {
		return nil, mpcerrors.New(mpcerrors.Cryptographic, "masterkey.Derive", "derived master key is invalid, retry with a different passphrase")
	}

	reduced := scalar.Bytes()
	return &MasterKey{Key: reduced[:], ChainCode: append([]byte(nil), chainCode...)}, nil
}
