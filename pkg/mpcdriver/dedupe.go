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
	"sync"
	"time"
)

// dedupeDetector tracks plaintext hashes already handed to a scheme's
// Step, so a relay message redelivered after an ack is lost is acked
// again but never processed twice (at-most-once delivery). TTL bounds
// memory for long-running ceremonies; a keysign round trip never
// approaches it.
type dedupeDetector struct {
	ttl  time.Duration
	mu   sync.Mutex
	seen map[string]time.Time
}

func newDedupeDetector(ttl time.Duration) *dedupeDetector {
	return &dedupeDetector{ttl: ttl, seen: make(map[string]time.Time)}
}

// SeenAndMark reports whether hash was already marked seen within the
// TTL window, and marks it seen regardless.
func (d *dedupeDetector) SeenAndMark(hash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ts, ok := d.seen[hash]; ok && time.Since(ts) <= d.ttl {
		return true
	}
	d.seen[hash] = time.Now()
	return false
}
