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

// Package archive is the LZMA archive codec (C3): it compresses the
// binary-encoded KeygenMessage/KeysignMessage that a pairing payload
// carries, and base64-encodes the result for embedding in a URI. Per
// spec.md §9 Open Questions, the base64 alphabet here is the standard
// one; URL-safety is the pairing package's job (encodeURIComponent-style
// percent-escaping), not a URL-safe base64 variant.
package archive

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/vultisig/mpc-sdk-go/pkg/mpcerrors"
)

// Compress LZMA-compresses data using the classic .lzma container
// format (properties byte + dictionary size + uncompressed-size header),
// the "7-zip preset" spec.md §4.3 names.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "archive.Compress", "create lzma writer", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "archive.Compress", "write lzma stream", err)
	}
	if err := w.Close(); err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "archive.Compress", "close lzma stream", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress. Must round-trip bit-exact (spec.md
// §4.3).
func Decompress(data []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "archive.Decompress", "create lzma reader", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "archive.Decompress", "read lzma stream", err)
	}
	return out, nil
}

// EncodeBase64 is the standard (non-URL-safe) base64 alphabet, per
// spec.md §9's resolution of the "URI-safe alphabet" open question.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 reverses EncodeBase64.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, mpcerrors.Wrap(mpcerrors.Protocol, "archive.DecodeBase64", "base64-decode", err)
	}
	return data, nil
}
