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

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("MPCSDK_TEST_VAR", "resolved")

	assert.Equal(t, "resolved", SubstituteEnvVars("${MPCSDK_TEST_VAR}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${MPCSDK_UNSET_VAR:fallback}"))
	assert.Equal(t, "", SubstituteEnvVars("${MPCSDK_UNSET_VAR}"))
	assert.Equal(t, "plain", SubstituteEnvVars("plain"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("MPCSDK_TEST_URL", "https://relay.from.env")

	cfg := &Config{}
	cfg.Relay.BaseURL = "${MPCSDK_TEST_URL}"
	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, "https://relay.from.env", cfg.Relay.BaseURL)
}

func TestSubstituteEnvVarsInConfigNil(t *testing.T) {
	assert.NotPanics(t, func() { SubstituteEnvVarsInConfig(nil) })
}

func TestGetEnvironment(t *testing.T) {
	os.Unsetenv("MPCSDK_ENV")
	os.Unsetenv("ENVIRONMENT")
	assert.Equal(t, "development", GetEnvironment())

	t.Setenv("ENVIRONMENT", "Production")
	assert.Equal(t, "production", GetEnvironment())

	t.Setenv("MPCSDK_ENV", "Staging")
	assert.Equal(t, "staging", GetEnvironment())
}

func TestIsProductionIsDevelopment(t *testing.T) {
	t.Setenv("MPCSDK_ENV", "production")
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())

	t.Setenv("MPCSDK_ENV", "local")
	assert.False(t, IsProduction())
	assert.True(t, IsDevelopment())
}
