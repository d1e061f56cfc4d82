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

package pairing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

func TestEncodeDecodeKeygenRoundTrip(t *testing.T) {
	msg := types.KeygenMessage{
		SessionID:        "session-1",
		ServiceName:      "sdk-1",
		EncryptionKeyHex: "0011223344556677001122334455667700112233445566770011223344556",
		HexChainCode:     "deadbeef",
		LibType:          types.LibTypeDKLS,
		VaultName:        "My Vault",
	}

	uri, err := EncodeKeygen(msg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "vultisig://?"))
	assert.Contains(t, uri, "type=NewVault")
	assert.Contains(t, uri, "tssType=Keygen")

	got, err := DecodeKeygen(uri)
	require.NoError(t, err)
	assert.Equal(t, msg, *got)
}

func TestEncodeDecodeKeysignRoundTrip(t *testing.T) {
	msg := types.KeysignMessage{
		SessionID:        "session-2",
		ServiceName:      "sdk-1",
		EncryptionKeyHex: "0011223344556677001122334455667700112233445566770011223344556",
		PayloadID:        "payload-7",
		KeysignPayload:   []byte{0xde, 0xad, 0xbe, 0xef},
	}

	uri, err := EncodeKeysign(msg)
	require.NoError(t, err)
	assert.Contains(t, uri, "type=SignTransaction")
	assert.Contains(t, uri, "tssType=Keysign")

	got, err := DecodeKeysign(uri)
	require.NoError(t, err)
	assert.Equal(t, msg, *got)
}

func TestDecodeKeygenRejectsMismatchedType(t *testing.T) {
	msg := types.KeysignMessage{SessionID: "x"}
	uri, err := EncodeKeysign(msg)
	require.NoError(t, err)

	_, err = DecodeKeygen(uri)
	require.Error(t, err)
}

func TestDecodeRejectsForeignScheme(t *testing.T) {
	_, err := DecodeKeygen("https://example.com/?type=NewVault")
	require.Error(t, err)
}

func TestDecodeRejectsMissingJSONData(t *testing.T) {
	_, err := DecodeKeygen("vultisig://?type=NewVault&tssType=Keygen")
	require.Error(t, err)
}
