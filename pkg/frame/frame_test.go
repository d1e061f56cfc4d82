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

package frame

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
)

func randomHexKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return hex.EncodeToString(key)
}

func TestSealOpenRoundTrip(t *testing.T) {
	codec, err := NewCodec(randomHexKey(t))
	require.NoError(t, err)

	plaintext := []byte("round-trip payload")
	body, hash, err := codec.Seal(plaintext)
	require.NoError(t, err)
	assert.Equal(t, HashOf(plaintext), hash)

	got, err := codec.Open(body)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestHashStableAcrossReencryption(t *testing.T) {
	codec, err := NewCodec(randomHexKey(t))
	require.NoError(t, err)

	plaintext := []byte("same plaintext every time")
	_, hash1, err := codec.Seal(plaintext)
	require.NoError(t, err)
	_, hash2, err := codec.Seal(plaintext)
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2, "hash is of plaintext, not ciphertext, so it must match across re-encryptions")
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	codec1, err := NewCodec(randomHexKey(t))
	require.NoError(t, err)
	codec2, err := NewCodec(randomHexKey(t))
	require.NoError(t, err)

	body, _, err := codec1.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = codec2.Open(body)
	require.Error(t, err)
	assert.Equal(t, mpcerrors.Protocol, mpcerrors.KindOf(err))
}

func TestOpenTruncatedFrameFails(t *testing.T) {
	codec, err := NewCodec(randomHexKey(t))
	require.NoError(t, err)

	_, err = codec.Open([]byte("short"))
	require.Error(t, err)
	assert.Equal(t, mpcerrors.Protocol, mpcerrors.KindOf(err))
}

func TestNewCodecRejectsBadKey(t *testing.T) {
	_, err := NewCodec("not-hex")
	require.Error(t, err)
	assert.Equal(t, mpcerrors.InvalidInput, mpcerrors.KindOf(err))

	_, err = NewCodec("ab")
	require.Error(t, err)
	assert.Equal(t, mpcerrors.InvalidInput, mpcerrors.KindOf(err))
}
