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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "test"})
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Environment)
	assert.NotEmpty(t, cfg.Relay.BaseURL)
}

func TestLoadPicksEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "staging.yaml"), []byte(`
relay:
  base_url: https://staging.relay.example.com
`), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "staging"})
	require.NoError(t, err)
	assert.Equal(t, "https://staging.relay.example.com", cfg.Relay.BaseURL)
}

func TestLoadEnvironmentOverrideWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
relay:
  base_url: https://file.example.com
`), 0o644))

	t.Setenv("MPCSDK_RELAY_URL", "https://override.example.com")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "unused"})
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.Relay.BaseURL)
}

func TestMustLoadPanicsNever(t *testing.T) {
	dir := t.TempDir()
	assert.NotPanics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: dir})
	})
}
