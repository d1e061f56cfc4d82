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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vultisig/mpc-sdk-go/pkg/ceremony"
	"github.com/vultisig/mpc-sdk-go/pkg/relay"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
	"github.com/vultisig/mpc-sdk-go/pkg/vaultcodec"
)

var (
	keysignVaultPath  string
	keysignPassword   string
	keysignSessionID  string
	keysignLocalPty   string
	keysignPeers      string
	keysignInitiator  bool
	keysignQuorumWait time.Duration
	keysignHexKey     string
	keysignHexHash    string
	keysignUseEdDSA   bool
	keysignOutPath    string
)

var keysignCmd = &cobra.Command{
	Use:   "keysign",
	Short: "Sign a message hash with an existing vault",
	Long: `Join a signing session over a vault's existing key shares and produce its
signatures, writing them as a JSON array to stdout or --out.`,
	RunE: runKeysign,
}

func init() {
	rootCmd.AddCommand(keysignCmd)

	keysignCmd.Flags().StringVar(&keysignVaultPath, "vault", "", "path to the .vult container (required)")
	keysignCmd.Flags().StringVar(&keysignPassword, "password", "", "vault decryption password")
	keysignCmd.Flags().StringVar(&keysignSessionID, "session", "", "session id (required)")
	keysignCmd.Flags().StringVar(&keysignLocalPty, "party", "", "this device's party id (required)")
	keysignCmd.Flags().StringVar(&keysignPeers, "peers", "", "comma-separated full party list (initiator only)")
	keysignCmd.Flags().BoolVar(&keysignInitiator, "initiator", false, "act as the session initiator")
	keysignCmd.Flags().DurationVar(&keysignQuorumWait, "wait", 60*time.Second, "not used by keysign: the initiator pins --peers without waiting for a quorum")
	keysignCmd.Flags().StringVar(&keysignHexKey, "key", "", "hex session AEAD key (required)")
	keysignCmd.Flags().StringVar(&keysignHexHash, "hash", "", "hex-encoded message hash to sign (required)")
	keysignCmd.Flags().BoolVar(&keysignUseEdDSA, "eddsa", false, "sign with the EdDSA (Schnorr) key share instead of ECDSA")
	keysignCmd.Flags().StringVar(&keysignOutPath, "out", "", "output path for the signature JSON (stdout if empty)")

	_ = keysignCmd.MarkFlagRequired("vault")
	_ = keysignCmd.MarkFlagRequired("session")
	_ = keysignCmd.MarkFlagRequired("party")
	_ = keysignCmd.MarkFlagRequired("key")
	_ = keysignCmd.MarkFlagRequired("hash")
}

func runKeysign(cmd *cobra.Command, args []string) error {
	vaultText, err := os.ReadFile(keysignVaultPath)
	if err != nil {
		return fmt.Errorf("read vault file: %w", err)
	}
	vault, err := vaultcodec.Decode(string(vaultText), keysignPassword)
	if err != nil {
		return fmt.Errorf("decode vault: %w", err)
	}

	messageHash, err := hex.DecodeString(keysignHexHash)
	if err != nil {
		return fmt.Errorf("decode --hash: %w", err)
	}

	var peers []types.PartyId
	if keysignPeers != "" {
		for _, p := range strings.Split(keysignPeers, ",") {
			peers = append(peers, types.PartyId(strings.TrimSpace(p)))
		}
	}

	o := ceremony.New(relay.NewClient(cfg.Relay.BaseURL))

	req := ceremony.KeysignRequest{
		SessionID:     keysignSessionID,
		Vault:         vault,
		LocalPartyID:  types.PartyId(keysignLocalPty),
		IsInitiator:   keysignInitiator,
		Parties:       peers,
		QuorumWait:    keysignQuorumWait,
		HexKey:        keysignHexKey,
		UseEdDSA:      keysignUseEdDSA,
		MessageHashes: [][]byte{messageHash},
	}

	sigs, err := o.Keysign(context.Background(), req, func(ev ceremony.ProgressEvent) {
		fmt.Fprintf(os.Stderr, "[%s]\n", ev.Stage)
	})
	if err != nil {
		return fmt.Errorf("keysign: %w", err)
	}

	type signatureJSON struct {
		R          string `json:"r"`
		S          string `json:"s"`
		DER        string `json:"der"`
		RecoveryID *int   `json:"recovery_id,omitempty"`
	}
	out := make([]signatureJSON, len(sigs))
	for i, sig := range sigs {
		out[i] = signatureJSON{
			R:          hex.EncodeToString(sig.R),
			S:          hex.EncodeToString(sig.S),
			DER:        hex.EncodeToString(sig.DER),
			RecoveryID: sig.RecoveryID,
		}
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}

	if keysignOutPath == "" {
		fmt.Println(string(encoded))
		return nil
	}
	return writeFile(keysignOutPath, string(encoded))
}
