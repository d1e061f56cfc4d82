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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartyIdIsServer(t *testing.T) {
	assert.True(t, PartyId("Server-1172").IsServer())
	assert.False(t, PartyId("iphone-0421").IsServer())
}

func TestSignerIndex(t *testing.T) {
	signers := []PartyId{"sdk-1234", "iphone-0421", "Server-1172"}

	assert.Equal(t, 1, SignerIndex(signers, "sdk-1234"))
	assert.Equal(t, 3, SignerIndex(signers, "Server-1172"))
	assert.Equal(t, 0, SignerIndex(signers, "unknown"))
}
