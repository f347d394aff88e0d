package testutil

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Epoch is the start time of every fake clock created by NewFakeClock.
var Epoch = time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC)

// NewFakeClock returns a clockwork fake clock set to Epoch.
//
// Tests advance it explicitly, so cursors written by the engine are
// predictable and golden snapshots stay stable.
func NewFakeClock() clockwork.FakeClock {
	return clockwork.NewFakeClockAt(Epoch)
}
