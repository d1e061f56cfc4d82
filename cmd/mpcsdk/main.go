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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vultisig/mpc-sdk-go/config"
)

var (
	configDir    string
	relayURLFlag string
	cfg          *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mpcsdk",
	Short: "Vultisig MPC SDK CLI - threshold vault ceremonies over a relay",
	Long: `mpcsdk drives threshold-signature vault ceremonies (keygen, key import,
keysign) against a relay endpoint, and inspects .vult vault containers.

This tool supports:
- Creating a new multi-device vault (keygen)
- Importing an existing BIP-39 mnemonic as a vault (keyimport)
- Signing a message hash with a vault's key shares (keysign)
- Inspecting a .vult container's metadata (vault inspect)`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.LoaderOptions{ConfigDir: configDir})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if relayURLFlag != "" {
			loaded.Relay.BaseURL = relayURLFlag
		}
		cfg = loaded
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory to load environment config files from")
	rootCmd.PersistentFlags().StringVar(&relayURLFlag, "relay-url", "", "override the relay base URL from config")
}
