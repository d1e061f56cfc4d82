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

package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	original := []byte(`{"sessionId":"abc","serviceName":"sdk-1","vaultName":"Vault"}`)

	compressed, err := Compress(original)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	got, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFF, 0x7E, 'h', 'i'}
	encoded := EncodeBase64(data)

	decoded, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeBase64RejectsGarbage(t *testing.T) {
	_, err := DecodeBase64("not valid base64!!")
	require.Error(t, err)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress([]byte("not an lzma stream"))
	require.Error(t, err)
}
