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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vultisig/mpc-sdk-go/pkg/types"
	"github.com/vultisig/mpc-sdk-go/pkg/vaultcodec"
)

var (
	vaultInspectPassword string
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Inspect .vult vault containers",
}

var vaultInspectCmd = &cobra.Command{
	Use:   "inspect [path]",
	Short: "Print a vault container's metadata",
	Long: `Decode a .vult container and print its name, public keys, chain code,
signer list, and export filename, without revealing the key shares
themselves.`,
	Args: cobra.ExactArgs(1),
	RunE: runVaultInspect,
}

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultInspectCmd)

	vaultInspectCmd.Flags().StringVar(&vaultInspectPassword, "password", "", "vault decryption password")
}

func runVaultInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read vault file: %w", err)
	}

	vault, err := vaultcodec.Decode(string(data), vaultInspectPassword)
	if err != nil {
		return fmt.Errorf("decode vault: %w", err)
	}

	summary := struct {
		Name         string          `json:"name"`
		PublicKeys   types.PublicKeys `json:"public_keys"`
		LocalPartyID types.PartyId   `json:"local_party_id"`
		Signers      []types.PartyId `json:"signers"`
		HexChainCode string          `json:"hex_chain_code"`
		LibType      types.LibType   `json:"lib_type"`
		CreatedAt    string          `json:"created_at"`
		ExportName   string          `json:"export_filename"`
	}{
		Name:         vault.Name,
		PublicKeys:   vault.PublicKeys,
		LocalPartyID: vault.LocalPartyID,
		Signers:      vault.Signers,
		HexChainCode: vault.HexChainCode,
		LibType:      vault.LibType,
		CreatedAt:    vault.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ExportName:   vaultcodec.ExportFilename(vault),
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	fmt.Println(string(encoded))
	return nil
}
