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

// Package frame is the encrypted-frame codec every MPC driver message
// body passes through: AES-256-GCM with a fresh random nonce, and a
// SHA-256-of-plaintext hash used as the relay dedup/ack key.
package frame

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
)

// KeySize is the required length, in bytes, of the session's shared
// AEAD key.
const KeySize = 32

// Codec seals and opens message bodies for one session's 32-byte key.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a Codec from a hex-encoded 32-byte key, the form
// carried in SessionDescriptor.HexEncryptionKey / KeygenMessage /
// KeysignMessage.
func NewCodec(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.InvalidInput, "frame.NewCodec", "decode hex key", err)
	}
	if len(key) != KeySize {
		return nil, mpcerrors.New(mpcerrors.InvalidInput, "frame.NewCodec", fmt.Sprintf("key must be %d bytes, got %d", KeySize, len(key)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "frame.NewCodec", "create AES cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Cryptographic, "frame.NewCodec", "create GCM", err)
	}

	return &Codec{aead: aead}, nil
}

// Seal encrypts plaintext with a fresh random nonce prepended to the
// ciphertext, and returns both the wire body and the hex SHA-256 of the
// plaintext (the relay dedup/ack key — stable across re-encryptions of
// the same plaintext).
func (c *Codec) Seal(plaintext []byte) (body []byte, hash string, err error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, "", mpcerrors.Wrap(mpcerrors.Cryptographic, "frame.Seal", "generate nonce", err)
	}

	sum := sha256.Sum256(plaintext)
	body = c.aead.Seal(nonce, nonce, plaintext, nil)
	return body, hex.EncodeToString(sum[:]), nil
}

// Open decrypts body (nonce ‖ ciphertext ‖ tag) back to plaintext.
// Per spec.md §4.2, decryption failure is a protocol fault rather than a
// transport fault: the caller is expected to log and drop the frame,
// not abort the ceremony.
func (c *Codec) Open(body []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(body) < nonceSize {
		return nil, mpcerrors.New(mpcerrors.Protocol, "frame.Open", "frame shorter than nonce")
	}

	nonce, ciphertext := body[:nonceSize], body[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "frame.Open", "authentication failed", err)
	}
	return plaintext, nil
}

// HashOf is the SHA-256 of plaintext, hex-encoded — exposed so the MPC
// driver can compute an expected ack hash without re-sealing.
func HashOf(plaintext []byte) string {
	sum := sha256.Sum256(plaintext)
	return hex.EncodeToString(sum[:])
}
