package exchange

// BurstWindowTicks is how long after a reconnect-class session transition
// offer snapshots are treated as replays of pre-existing offers. The
// client delivers a burst of "current offer" snapshots right after
// reconnect; without suppression every pre-existing fill would be
// misrecorded as a brand-new transaction.
const BurstWindowTicks = 3

// BurstGuard tracks the tick of the last session reset and classifies
// incoming snapshots as replay vs live. Owned by the engine; only ever
// touched from the snapshot-processing goroutine. The zero value treats
// the first few ticks after process start as a burst, which also covers
// the initial snapshot replay when the bridge first connects.
type BurstGuard struct {
	lastResetTick int
}

// OnSessionReset records a reconnect-class transition at the given tick.
func (g *BurstGuard) OnSessionReset(tick int) {
	g.lastResetTick = tick
}

// IsBurst reports whether a snapshot at currentTick falls inside the
// replay window.
func (g *BurstGuard) IsBurst(currentTick int) bool {
	return currentTick-g.lastResetTick <= BurstWindowTicks
}
