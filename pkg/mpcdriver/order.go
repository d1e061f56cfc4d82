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

package mpcdriver

import (
	"sort"
	"sync"

	"github.com/vultisig/mpc-sdk-go/pkg/types"
)

// orderBuffer admits messages per sender only in strictly-increasing
// SequenceNo order, buffering out-of-order arrivals until the gap
// fills. A relay has no ordering guarantee across HTTP round trips, so
// a follower's scheme.State must never see sender A's message 3 before
// its message 2.
type orderBuffer struct {
	mu       sync.Mutex
	lastSeq  map[types.PartyId]uint32
	pending  map[types.PartyId][]types.RelayMessage
}

func newOrderBuffer() *orderBuffer {
	return &orderBuffer{
		lastSeq: make(map[types.PartyId]uint32),
		pending: make(map[types.PartyId][]types.RelayMessage),
	}
}

// Admit returns, in order, every message from msg.From that is now
// ready to be delivered to the scheme (msg itself, plus any previously
// buffered messages the gap it closes unblocks).
func (b *orderBuffer) Admit(msg types.RelayMessage) []types.RelayMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := append(b.pending[msg.From], msg)
	sort.Slice(queue, func(i, j int) bool { return queue[i].SequenceNo < queue[j].SequenceNo })

	var ready []types.RelayMessage
	last := b.lastSeq[msg.From]
	for len(queue) > 0 {
		next := queue[0]
		if next.SequenceNo <= last {
			// Duplicate or stale redelivery of something already admitted.
			queue = queue[1:]
			continue
		}
		if next.SequenceNo != last+1 {
			break
		}
		ready = append(ready, next)
		last = next.SequenceNo
		queue = queue[1:]
	}

	b.lastSeq[msg.From] = last
	b.pending[msg.From] = queue
	return ready
}
