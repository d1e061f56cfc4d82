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

package relay

import (
	"context"
	"math/rand"
	"time"
)

// timeAfter is a var so tests can shrink it without waiting for real
// wall-clock time.
var timeAfter = time.After

// sleepWithJitter waits base*2^(attempt-1) capped at max, plus up to 25%
// jitter, or returns ctx.Err() if ctx is cancelled first.
func sleepWithJitter(ctx context.Context, base, max time.Duration, attempt int) error {
	delay := base << uint(attempt-1)
	if delay <= 0 || delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	delay += jitter

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeAfter(delay):
		return nil
	}
}
