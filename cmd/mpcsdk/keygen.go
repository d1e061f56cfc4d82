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
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
	"github.com/vultisig/mpc-sdk-go/pkg/vaultcodec"
)

var (
	keygenSessionID   string
	keygenVaultName   string
	keygenLocalParty  string
	keygenPeers       string
	keygenInitiator   bool
	keygenQuorum      int
	keygenQuorumWait  time.Duration
	keygenHexKey      string
	keygenOutPath     string
	keygenOutPassword string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Run a new-vault keygen ceremony",
	Long: `Join (or start) a relay session and run the two-leg ECDSA+EdDSA keygen
ceremony, writing the resulting vault container to disk.`,
	Example: `  # Initiator, 3-device vault
  mpcsdk keygen --session abc123 --party sdk-1 --initiator --quorum 3 --name "My Vault" --out my-vault.vult

  # Follower, given the session id and key the initiator printed
  mpcsdk keygen --session abc123 --key <initiator's hex key> --party iphone-2 --out my-vault.vult`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenSessionID, "session", "", "session id (generated if empty and --initiator is set)")
	keygenCmd.Flags().StringVar(&keygenVaultName, "name", "My Vault", "vault display name")
	keygenCmd.Flags().StringVar(&keygenLocalParty, "party", "", "this device's party id (required)")
	keygenCmd.Flags().StringVar(&keygenPeers, "peers", "", "comma-separated party list (not read by keygen: the initiator takes the party list from the quorum wait)")
	keygenCmd.Flags().BoolVar(&keygenInitiator, "initiator", false, "act as the session initiator")
	keygenCmd.Flags().IntVar(&keygenQuorum, "quorum", 2, "number of devices the initiator waits for")
	keygenCmd.Flags().DurationVar(&keygenQuorumWait, "wait", 60*time.Second, "how long the initiator waits for quorum")
	keygenCmd.Flags().StringVar(&keygenHexKey, "key", "", "hex session AEAD key (generated by the initiator if empty)")
	keygenCmd.Flags().StringVar(&keygenOutPath, "out", "", "output .vult path (required)")
	keygenCmd.Flags().StringVar(&keygenOutPassword, "password", "", "password to encrypt the output vault with (plaintext if empty)")

	_ = keygenCmd.MarkFlagRequired("party")
	_ = keygenCmd.MarkFlagRequired("out")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if keygenInitiator && keygenSessionID == "" {
		keygenSessionID = uuid.NewString()
	}
	if keygenSessionID == "" {
		return fmt.Errorf("--session is required for a follower")
	}

	if keygenInitiator && keygenHexKey == "" {
		keyBytes := make([]byte, frame.KeySize)
		if _, err := rand.Read(keyBytes); err != nil {
			return fmt.Errorf("generate session key: %w", err)
		}
		keygenHexKey = hex.EncodeToString(keyBytes)
	}
	if keygenHexKey == "" {
		return fmt.Errorf("--key is required for a follower")
	}

	var peers []types.PartyId
	if keygenPeers != "" {
		for _, p := range strings.Split(keygenPeers, ",") {
			peers = append(peers, types.PartyId(strings.TrimSpace(p)))
		}
	}

	o := ceremony.New(relay.NewClient(cfg.Relay.BaseURL))

	req := ceremony.KeygenRequest{
		SessionID:    keygenSessionID,
		VaultName:    keygenVaultName,
		LocalPartyID: types.PartyId(keygenLocalParty),
		IsInitiator:  keygenInitiator,
		Parties:      peers,
		QuorumSize:   keygenQuorum,
		QuorumWait:   keygenQuorumWait,
		HexKey:       keygenHexKey,
	}

	fmt.Printf("session: %s\n", keygenSessionID)
	if keygenInitiator {
		fmt.Printf("key: %s\n", keygenHexKey)
	}

	vault, err := o.Keygen(context.Background(), req, func(ev ceremony.ProgressEvent) {
		if ev.Peer != "" {
			fmt.Printf("[%s] peer joined: %s\n", ev.Stage, ev.Peer)
			return
		}
		fmt.Printf("[%s]\n", ev.Stage)
	})
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}

	encoded, err := vaultcodec.Encode(vault, keygenOutPassword)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	if err := writeFile(keygenOutPath, encoded); err != nil {
		return err
	}

	fmt.Printf("vault written to %s (public key: %s)\n", keygenOutPath, vault.PublicKeys.ECDSA)
	return nil
}
