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
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vultisig/mpc-sdk-go/pkg/ceremony"
	"github.com/vultisig/mpc-sdk-go/pkg/frame"
	"github.com/vultisig/mpc-sdk-go/pkg/masterkey"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
	"github.com/vultisig/mpc-sdk-go/pkg/vaultcodec"
)

var (
	importMnemonic   string
	importPassphrase string
	importSessionID  string
	importVaultName  string
	importLocalParty string
	importPeers      string
	importInitiator  bool
	importQuorum     int
	importQuorumWait time.Duration
	importHexKey     string
	importOutPath    string
	importOutPass    string
)

var keyimportCmd = &cobra.Command{
	Use:   "keyimport",
	Short: "Import a BIP-39 mnemonic as a new vault",
	Long: `Derive a BIP-32 master key from an existing BIP-39 mnemonic, then run the
same two-leg keygen ceremony as "keygen" seeded with that secret instead
of fresh randomness, producing a vault around the imported key.`,
	RunE: runKeyImport,
}

func init() {
	rootCmd.AddCommand(keyimportCmd)

	keyimportCmd.Flags().StringVar(&importMnemonic, "mnemonic", "", "BIP-39 mnemonic phrase to import (required)")
	keyimportCmd.Flags().StringVar(&importPassphrase, "passphrase", "", "BIP-39 passphrase (the 25th word)")
	keyimportCmd.Flags().StringVar(&importSessionID, "session", "", "session id (generated if empty and --initiator is set)")
	keyimportCmd.Flags().StringVar(&importVaultName, "name", "Imported Vault", "vault display name")
	keyimportCmd.Flags().StringVar(&importLocalParty, "party", "", "this device's party id (required)")
	keyimportCmd.Flags().StringVar(&importPeers, "peers", "", "comma-separated party list (not read by keyimport: the initiator takes the party list from the quorum wait)")
	keyimportCmd.Flags().BoolVar(&importInitiator, "initiator", false, "act as the session initiator")
	keyimportCmd.Flags().IntVar(&importQuorum, "quorum", 2, "number of devices the initiator waits for")
	keyimportCmd.Flags().DurationVar(&importQuorumWait, "wait", 60*time.Second, "how long the initiator waits for quorum")
	keyimportCmd.Flags().StringVar(&importHexKey, "key", "", "hex session AEAD key (generated by the initiator if empty)")
	keyimportCmd.Flags().StringVar(&importOutPath, "out", "", "output .vult path (required)")
	keyimportCmd.Flags().StringVar(&importOutPass, "password", "", "password to encrypt the output vault with (plaintext if empty)")

	_ = keyimportCmd.MarkFlagRequired("mnemonic")
	_ = keyimportCmd.MarkFlagRequired("party")
	_ = keyimportCmd.MarkFlagRequired("out")
}

func runKeyImport(cmd *cobra.Command, args []string) error {
	mk, err := masterkey.Derive(importMnemonic, importPassphrase)
	if err != nil {
		return fmt.Errorf("derive master key: %w", err)
	}

	if importInitiator && importSessionID == "" {
		importSessionID = uuid.NewString()
	}
	if importSessionID == "" {
		return fmt.Errorf("--session is required for a follower")
	}

	if importInitiator && importHexKey == "" {
		keyBytes := make([]byte, frame.KeySize)
		if _, err := rand.Read(keyBytes); err != nil {
			return fmt.Errorf("generate session key: %w", err)
		}
		importHexKey = hex.EncodeToString(keyBytes)
	}
	if importHexKey == "" {
		return fmt.Errorf("--key is required for a follower")
	}

	var peers []types.PartyId
	if importPeers != "" {
		for _, p := range strings.Split(importPeers, ",") {
			peers = append(peers, types.PartyId(strings.TrimSpace(p)))
		}
	}

	o := ceremony.New(relay.NewClient(cfg.Relay.BaseURL))

	req := ceremony.KeyImportRequest{
		KeygenRequest: ceremony.KeygenRequest{
			SessionID:    importSessionID,
			VaultName:    importVaultName,
			LocalPartyID: types.PartyId(importLocalParty),
			IsInitiator:  importInitiator,
			Parties:      peers,
			QuorumSize:   importQuorum,
			QuorumWait:   importQuorumWait,
			HexKey:       importHexKey,
		},
		MasterKey:    mk.Key,
		HexChainCode: mk.HexChainCode(),
	}

	fmt.Printf("session: %s\n", importSessionID)
	if importInitiator {
		fmt.Printf("key: %s\n", importHexKey)
	}

	vault, err := o.KeyImport(context.Background(), req, func(ev ceremony.ProgressEvent) {
		fmt.Printf("[%s]\n", ev.Stage)
	})
	if err != nil {
		return fmt.Errorf("keyimport: %w", err)
	}

	encoded, err := vaultcodec.Encode(vault, importOutPass)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	if err := writeFile(importOutPath, encoded); err != nil {
		return err
	}

	fmt.Printf("vault written to %s (public key: %s)\n", importOutPath, vault.PublicKeys.ECDSA)
	return nil
}
