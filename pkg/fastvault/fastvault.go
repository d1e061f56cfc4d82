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

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package fastvault is the fast-vault client (C8): the two-of-two
// specialization where the second signer is a remote server party
// whose PartyId starts with "Server-". It only ever kicks the server's
// signer over HTTP and calls the vault/verification endpoints, one
// request per call with no polling or retry; the actual
// MPC traffic flows through pkg/relay exactly as with any other signer
// (spec.md §4.8 invariant: "fast-vault signing always uses peers =
// [Server-*]; the orchestrator is otherwise unchanged").
package fastvault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vultisig/mpc-sdk-go/internal/logger"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
	"github.com/vultisig/mpc-sdk-go/pkg/vaultcodec"
)

// passwordHeader carries the vault password the server needs to locate
// and, indirectly, decrypt the requested vault blob.
const passwordHeader = "X-Vault-Password"

// Client talks to one fast-vault server instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger; defaults to the package default logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient builds a fast-vault Client for baseURL (no trailing slash).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignRequest is the envelope signWithServer posts (spec.md §4.8 /
// §"Fast-Vault HTTP"). A 200 empty response means the server's signer
// has joined the session; the caller still drives the keysign
// ceremony's orchestrator/driver to completion exactly as for any
// other signer.
type SignRequest struct {
	PublicKey        string   `json:"publicKey"`
	Messages         []string `json:"messages"`
	Session          string   `json:"session"`
	HexEncryptionKey string   `json:"hexEncryptionKey"`
	DerivePath       string   `json:"derivePath"`
	IsECDSA          bool     `json:"isEcdsa"`
	VaultPassword    string   `json:"vaultPassword"`
}

// SignWithServer triggers the remote server's signer; the actual MPC
// messages flow through the relay exactly as with any other signer.
func (c *Client) SignWithServer(ctx context.Context, req SignRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "fastvault.SignWithServer", "marshal sign request", err)
	}
	_, err = c.post(ctx, "fastvault.SignWithServer", "/vault/sign", body)
	return err
}

// GetVault fetches the encrypted vault blob the server holds on behalf
// of publicKeyECDSA, authenticating with password, and decodes it.
func (c *Client) GetVault(ctx context.Context, publicKeyECDSA, password string) (*types.Vault, error) {
	path := "/get/" + publicKeyECDSA

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "fastvault.GetVault", "build request", err)
	}
	httpReq.Header.Set(passwordHeader, password)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Transport, "fastvault.GetVault", "GET "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Transport, "fastvault.GetVault", "read response body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mpcerrors.New(mpcerrors.Protocol, "fastvault.GetVault", httpStatusMessage(resp.StatusCode, respBody))
	}

	vault, err := vaultcodec.Decode(string(respBody), password)
	if err != nil {
		return nil, err
	}
	return vault, nil
}

// verifyRequest is the body /vault/verify expects.
type verifyRequest struct {
	VaultID string `json:"vaultId"`
	Code    string `json:"code"`
}

// VerifyVault completes the email-verification loop used only at
// fast-vault creation time.
func (c *Client) VerifyVault(ctx context.Context, vaultID, code string) error {
	body, err := json.Marshal(verifyRequest{VaultID: vaultID, Code: code})
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "fastvault.VerifyVault", "marshal verify request", err)
	}

	respBody, status, err := c.doOnce(ctx, http.MethodPost, "/vault/verify", body)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	if status >= 400 && status < 500 {
		return mpcerrors.New(mpcerrors.VerificationPending, "fastvault.VerifyVault", httpStatusMessage(status, respBody))
	}
	return mpcerrors.New(mpcerrors.Protocol, "fastvault.VerifyVault", httpStatusMessage(status, respBody))
}

// resendRequest is the body /vault/resend expects.
type resendRequest struct {
	VaultID  string `json:"vaultId"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResendVaultVerification asks the server to resend the
// email-verification code for vaultID.
func (c *Client) ResendVaultVerification(ctx context.Context, vaultID, email, password string) error {
	body, err := json.Marshal(resendRequest{VaultID: vaultID, Email: email, Password: password})
	if err != nil {
		return mpcerrors.Wrap(mpcerrors.Protocol, "fastvault.ResendVaultVerification", "marshal resend request", err)
	}
	_, err = c.post(ctx, "fastvault.ResendVaultVerification", "/vault/resend", body)
	return err
}

func (c *Client) post(ctx context.Context, op, path string, body []byte) ([]byte, error) {
	respBody, status, err := c.doOnce(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, mpcerrors.New(mpcerrors.Protocol, op, httpStatusMessage(status, respBody))
	}
	return respBody, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, mpcerrors.Wrap(mpcerrors.Protocol, "fastvault.doOnce", "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, mpcerrors.Wrap(mpcerrors.Transport, "fastvault.doOnce", method+" "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, mpcerrors.Wrap(mpcerrors.Transport, "fastvault.doOnce", "read response body", err)
	}
	return respBody, resp.StatusCode, nil
}

func httpStatusMessage(status int, body []byte) string {
	return fmt.Sprintf("unexpected HTTP %d: %s", status, strings.TrimSpace(string(body)))
}

// ServerPeers is the fixed peer set every fast-vault keysign/keygen
// ceremony uses: the local party and the remote server signer.
func ServerPeers(local types.PartyId, serverPartyID types.PartyId) []types.PartyId {
	return []types.PartyId{local, serverPartyID}
}
