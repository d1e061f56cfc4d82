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

// Package pairing encodes and decodes the vultisig:// URIs (C9) a QR
// code carries: vultisig://?type=<NewVault|SignTransaction>&tssType=
// <Keygen|Keysign>&jsonData=<url-encoded-base64-of-lzma-of-binary-
// encoded-message>.
package pairing

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/url"
	"strings"

	"github.com/vultisig/mpc-sdk-go/pkg/archive"
	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// Scheme is the URI scheme every pairing payload uses.
const Scheme = "vultisig"

// PayloadType is the URI's "type" query parameter.
type PayloadType string

const (
	TypeNewVault        PayloadType = "NewVault"
	TypeSignTransaction PayloadType = "SignTransaction"
)

// TSSType is the URI's "tssType" query parameter.
type TSSType string

const (
	TSSKeygen  TSSType = "Keygen"
	TSSKeysign TSSType = "Keysign"
)

// EncodeKeygen builds a vultisig:// pairing URI of kind NewVault/Keygen
// around msg.
func EncodeKeygen(msg types.KeygenMessage) (string, error) {
	jsonData, err := archiveEncode(msg)
	if err != nil {
		return "", err
	}
	return buildURI(TypeNewVault, TSSKeygen, jsonData), nil
}

// EncodeKeysign builds a vultisig:// pairing URI of kind
// SignTransaction/Keysign around msg.
func EncodeKeysign(msg types.KeysignMessage) (string, error) {
	jsonData, err := archiveEncode(msg)
	if err != nil {
		return "", err
	}
	return buildURI(TypeSignTransaction, TSSKeysign, jsonData), nil
}

// DecodeKeygen parses a pairing URI previously built by EncodeKeygen.
func DecodeKeygen(uri string) (*types.KeygenMessage, error) {
	payloadType, tssType, jsonData, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	if payloadType != TypeNewVault || tssType != TSSKeygen {
		return nil, mpcerrors.New(mpcerrors.Protocol, "pairing.DecodeKeygen",
			fmt.Sprintf("unexpected type=%s tssType=%s for a keygen payload", payloadType, tssType))
	}

	raw, err := decodeArchive(jsonData)
	if err != nil {
		return nil, err
	}
	var msg types.KeygenMessage
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&msg); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "pairing.DecodeKeygen", "decode keygen message", err)
	}
	return &msg, nil
}

// DecodeKeysign parses a pairing URI previously built by EncodeKeysign.
func DecodeKeysign(uri string) (*types.KeysignMessage, error) {
	payloadType, tssType, jsonData, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	if payloadType != TypeSignTransaction || tssType != TSSKeysign {
		return nil, mpcerrors.New(mpcerrors.Protocol, "pairing.DecodeKeysign",
			fmt.Sprintf("unexpected type=%s tssType=%s for a keysign payload", payloadType, tssType))
	}

	raw, err := decodeArchive(jsonData)
	if err != nil {
		return nil, err
	}
	var msg types.KeysignMessage
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&msg); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "pairing.DecodeKeysign", "decode keysign message", err)
	}
	return &msg, nil
}

func archiveEncode(msg interface{}) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return "", mpcerrors.Wrap(mpcerrors.Protocol, "pairing.archiveEncode", "encode message", err)
	}
	compressed, err := archive.Compress(buf.Bytes())
	if err != nil {
		return "", err
	}
	return archive.EncodeBase64(compressed), nil
}

func decodeArchive(jsonData string) ([]byte, error) {
	compressed, err := archive.DecodeBase64(jsonData)
	if err != nil {
		return nil, err
	}
	return archive.Decompress(compressed)
}

func buildURI(payloadType PayloadType, tssType TSSType, jsonData string) string {
	v := url.Values{}
	v.Set("type", string(payloadType))
	v.Set("tssType", string(tssType))
	v.Set("jsonData", jsonData)
	return fmt.Sprintf("%s://?%s", Scheme, v.Encode())
}

func parseURI(uri string) (PayloadType, TSSType, string, error) {
	if !strings.HasPrefix(uri, Scheme+"://") {
		return "", "", "", mpcerrors.New(mpcerrors.Protocol, "pairing.parseURI", "not a "+Scheme+":// URI")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", "", mpcerrors.Wrap(mpcerrors.Protocol, "pairing.parseURI", "parse URI", err)
	}

	q := parsed.Query()
	jsonData := q.Get("jsonData")
	if jsonData == "" {
		return "", "", "", mpcerrors.New(mpcerrors.Protocol, "pairing.parseURI", "missing jsonData")
	}

	return PayloadType(q.Get("type")), TSSType(q.Get("tssType")), jsonData, nil
}
