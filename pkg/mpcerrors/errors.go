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

// Package mpcerrors defines the error taxonomy every SDK component
// surfaces to its caller: Transport, Timeout, Cryptographic, Protocol,
// InvalidInput, InvalidPassword, Cancelled, VerificationPending.
package mpcerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a SDK error so callers can branch on recoverability
// without string-matching messages.
type Kind int

const (
	// Transport covers network or relay HTTP failures. Retried inside
	// the relay client and driver up to their retry budgets; surfaced
	// as Transport only after the budget is exhausted.
	Transport Kind = iota
	// Timeout covers a deadline exceeded while waiting for peers, the
	// setup message, inbound messages, or ceremony completion.
	Timeout
	// Cryptographic covers a rejection or invalid final state from the
	// underlying DKLS/Schnorr primitive. Never retried.
	Cryptographic
	// Protocol covers a malformed relay payload, an ack of an unknown
	// hash, or an inconsistent participant set.
	Protocol
	// InvalidInput covers caller mistakes: bad threshold, empty
	// mnemonic, devices < 2, threshold > devices, unknown chain.
	InvalidInput
	// InvalidPassword covers vault decryption AEAD authentication
	// failure.
	InvalidPassword
	// Cancelled covers cooperative cancellation via context.Context.
	Cancelled
	// VerificationPending covers a fast-vault created but not yet
	// confirmed via the email verification loop.
	VerificationPending
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "Transport"
	case Timeout:
		return "Timeout"
	case Cryptographic:
		return "Cryptographic"
	case Protocol:
		return "Protocol"
	case InvalidInput:
		return "InvalidInput"
	case InvalidPassword:
		return "InvalidPassword"
	case Cancelled:
		return "Cancelled"
	case VerificationPending:
		return "VerificationPending"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind, a stable taxonomy callers
// can switch on via As/Is, following the wrap-don't-throw style used
// idiomatically throughout Go codebases (fmt.Errorf("...: %w", err)).
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "relay.FetchMessages"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error does not implement Is against a bare Kind, since Kind is not an
// error; use KindOf(err) == Timeout or IsKind(err, Timeout) instead.

// New constructs an *Error.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap constructs an *Error around an existing cause.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// defaulting to Protocol for unrecognized errors since an un-taxonomized
// failure from a relay or primitive is, by definition, not something the
// caller should treat as retryable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Protocol
}

// IsKind reports whether err is (or wraps) an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
