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

// Package vaultcodec encodes and decodes the on-disk vault backup
// format: an outer container (version, isEncrypted, base64 inner bytes)
// wrapping the binary-encoded Vault, optionally AES-GCM-encrypted with a
// key derived from a single round of SHA-256 over the UTF-8 password.
// That key derivation is a compatibility requirement, not a design
// choice — it must not be "improved" to PBKDF2 or similar.
package vaultcodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"io"
	"strings"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// ContainerVersion is the current outer-container format version.
const ContainerVersion = 1

// container is the outer wrapper's binary-encoded shape. Field names are
// exported only so encoding/gob can see them; the wire contract is the
// gob stream itself, not these names.
type container struct {
	Version     uint32
	IsEncrypted bool
	Vault       string // base64 of the inner bytes (plaintext or AES-GCM ciphertext)
}

// Encode produces the UTF-8 vultText for vault. If password is non-empty
// the inner bytes are AES-GCM-encrypted with key = SHA-256(password).
func Encode(vault *types.Vault, password string) (string, error) {
	inner, err := encodeInner(vault)
	if err != nil {
		return "", err
	}

	c := container{Version: ContainerVersion}
	if password != "" {
		sealed, err := sealInner(inner, password)
		if err != nil {
			return "", err
		}
		c.IsEncrypted = true
		c.Vault = base64.StdEncoding.EncodeToString(sealed)
	} else {
		c.IsEncrypted = false
		c.Vault = base64.StdEncoding.EncodeToString(inner)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return "", mpcerrors.Wrap(mpcerrors.Protocol, "vaultcodec.Encode", "encode container", err)
	}

	return strings.TrimSpace(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Decode parses vultText back into a Vault, decrypting with password
// when the container is encrypted.
func Decode(vultText string, password string) (*types.Vault, error) {
	containerBytes, err := base64.StdEncoding.DecodeString(strings.TrimSpace(vultText))
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "vaultcodec.Decode", "base64-decode container", err)
	}

	var c container
	if err := gob.NewDecoder(bytes.NewReader(containerBytes)).Decode(&c); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "vaultcodec.Decode", "decode container", err)
	}

	innerRaw, err := base64.StdEncoding.DecodeString(c.Vault)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "vaultcodec.Decode", "base64-decode inner vault", err)
	}

	var inner []byte
	if c.IsEncrypted {
		if password == "" {
			return nil, mpcerrors.New(mpcerrors.InvalidPassword, "vaultcodec.Decode", "password required for encrypted vault")
		}
		inner, err = openInner(innerRaw, password)
		if err != nil {
			return nil, err
		}
	} else {
		inner = innerRaw
	}

	vault, err := decodeInner(inner)
	if err != nil {
		return nil, err
	}

	if len(vault.KeyShares.ECDSA) == 0 || len(vault.KeyShares.EdDSA) == 0 {
		return nil, mpcerrors.New(mpcerrors.Protocol, "vaultcodec.Decode", "vault is missing a key share")
	}

	return vault, nil
}

func encodeInner(vault *types.Vault) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(vault); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "vaultcodec.encodeInner", "encode vault", err)
	}
	return buf.Bytes(), nil
}

func decodeInner(data []byte) (*types.Vault, error) {
	var vault types.Vault
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&vault); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "vaultcodec.decodeInner", "decode vault", err)
	}
	return &vault, nil
}

// passwordKey derives the AES-256 key as a single round of SHA-256 over
// the UTF-8 password bytes. This is fixed by the on-disk format's
// compatibility requirement (spec §4.4) — it is deliberately not PBKDF2.
func passwordKey(password string) [32]byte {
	return sha256.Sum256([]byte(password))
}

func sealInner(inner []byte, password string) ([]byte, error) {
	key := passwordKey(password)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "vaultcodec.sealInner", "create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "vaultcodec.sealInner", "create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "vaultcodec.sealInner", "generate nonce", err)
	}

	return gcm.Seal(nonce, nonce, inner, nil), nil
}

func openInner(sealed []byte, password string) ([]byte, error) {
	key := passwordKey(password)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "vaultcodec.openInner", "create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "vaultcodec.openInner", "create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, mpcerrors.New(mpcerrors.InvalidPassword, "vaultcodec.openInner", "ciphertext shorter than nonce")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.InvalidPassword, "vaultcodec.openInner", "authentication failed", err)
	}
	return plaintext, nil
}

// ExportFilename returns the contractually-named export filename:
// <VaultName>-<LocalPartyId>-share<Index>of<N>.vult, with path
// separators stripped from vaultName.
func ExportFilename(vault *types.Vault) string {
	safeName := strings.NewReplacer("/", "", "\\", "").Replace(vault.Name)
	index := types.SignerIndex(vault.Signers, vault.LocalPartyID)
	return fmt.Sprintf("%s-%s-share%dof%d.vult", safeName, vault.LocalPartyID, index, len(vault.Signers))
}
