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

package mpcerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(Transport, "relay.Ping", "ping failed", cause)

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause) || errors.Unwrap(err) == cause)
	assert.Contains(t, err.Error(), "Transport")
	assert.Contains(t, err.Error(), "relay.Ping")
}

func TestKindOf(t *testing.T) {
	err := New(Timeout, "partysession.WaitForQuorum", "deadline exceeded")
	assert.Equal(t, Timeout, KindOf(err))
	assert.True(t, IsKind(err, Timeout))
	assert.False(t, IsKind(err, Cryptographic))

	plain := fmt.Errorf("unstructured failure")
	assert.Equal(t, Protocol, KindOf(plain))
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Transport:            "Transport",
		Timeout:               "Timeout",
		Cryptographic:         "Cryptographic",
		Protocol:              "Protocol",
		InvalidInput:          "InvalidInput",
		InvalidPassword:       "InvalidPassword",
		Cancelled:             "Cancelled",
		VerificationPending:   "VerificationPending",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
