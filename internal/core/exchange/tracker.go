package exchange

// Transition is the outcome of applying one snapshot to a slot.
// Offer is the new tracked state (nil means the slot is untracked),
// Transactions holds derived fill deltas (len 0 or 1), and the flags
// describe side observations the engine turns into notifications.
// Cleared means the previous occupancy ended, either because the slot
// emptied or because a new offer replaced it in place.
type Transition struct {
	Offer        *TrackedOffer
	Transactions []Transaction
	Cancellation *Cancellation
	NewPendingBuy bool
	Cleared       bool
}

// Apply is the pure per-slot transition function. Given the previous
// tracked state (nil when untracked) and a new raw snapshot, it returns
// the next state and the events derived from the difference. It is total:
// every input, including inconsistent cumulative counters, produces a
// defined result.
//
// burst marks snapshots replayed during a session-reestablishment window;
// they seed tracking without being treated as new activity.
func Apply(prev *TrackedOffer, snap OfferSnapshot, burst bool) Transition {
	if burst && snap.State != StateEmpty {
		// Replay of a pre-existing offer: mirror it so the next live
		// snapshot diffs against the seeded count, and emit nothing.
		return Transition{Offer: seed(snap)}
	}

	if snap.State.IsCancelled() {
		return applyCancellation(prev, snap)
	}

	if snap.State == StateEmpty {
		// Offer collected or slot already clear. Idempotent.
		return Transition{Cleared: prev != nil}
	}

	if snap.QuantitySold > 0 {
		return applyFillProgress(prev, snap)
	}

	// Active offer with no fills yet.
	t := Transition{Offer: seed(snap)}
	t.NewPendingBuy = prev == nil && snap.State.IsBuy()
	return t
}

func applyCancellation(prev *TrackedOffer, snap OfferSnapshot) Transition {
	t := Transition{
		Cancellation: &Cancellation{
			ItemID:       snap.ItemID,
			ItemName:     offerName(prev, snap),
			IsBuy:        snap.State.IsBuy(),
			QuantityDone: snap.QuantitySold,
			TotalWanted:  snap.TotalQuantity,
			Slot:         snap.Slot,
		},
	}

	delta := snap.QuantitySold
	if prev != nil {
		delta = snap.QuantitySold - prev.CumulativeFilled
	}
	if delta > 0 {
		// quantitySold > 0 is implied by delta > 0, so the division is safe.
		t.Transactions = append(t.Transactions, Transaction{
			ItemID:       snap.ItemID,
			ItemName:     offerName(prev, snap),
			IsBuy:        snap.State.IsBuy(),
			Quantity:     delta,
			PricePerUnit: snap.Spent / snap.QuantitySold,
			Slot:         snap.Slot,
			Cumulative:   snap.QuantitySold,
		})
	}

	return t
}

func applyFillProgress(prev *TrackedOffer, snap OfferSnapshot) Transition {
	if prev != nil && snap.QuantitySold < prev.CumulativeFilled {
		// Counter rollback without an intervening empty: a new offer
		// occupies the slot. Reseed, never emit a negative delta.
		// Cleared tells subscribers the old occupancy ended, so per-slot
		// bookkeeping (submit dedup keys) resets with it.
		return Transition{Offer: seed(snap), Cleared: true}
	}

	delta := snap.QuantitySold
	if prev != nil {
		delta = snap.QuantitySold - prev.CumulativeFilled
	}

	t := Transition{Offer: seed(snap)}
	if delta > 0 {
		// Price is always cumulative spent over cumulative count, never
		// per-delta, so truncation stays consistent across fills.
		t.Transactions = append(t.Transactions, Transaction{
			ItemID:       snap.ItemID,
			ItemName:     snap.ItemName,
			IsBuy:        snap.State.IsBuy(),
			Quantity:     delta,
			PricePerUnit: snap.Spent / snap.QuantitySold,
			Slot:         snap.Slot,
			Cumulative:   snap.QuantitySold,
		})
	}
	return t
}

// seed builds a TrackedOffer mirroring the snapshot exactly.
func seed(snap OfferSnapshot) *TrackedOffer {
	return &TrackedOffer{
		ItemID:           snap.ItemID,
		ItemName:         snap.ItemName,
		IsBuy:            snap.State.IsBuy(),
		TotalQuantity:    snap.TotalQuantity,
		Price:            snap.Price,
		CumulativeFilled: snap.QuantitySold,
	}
}

// offerName prefers the name cached at offer creation over the one in the
// terminal snapshot.
func offerName(prev *TrackedOffer, snap OfferSnapshot) string {
	if prev != nil && prev.ItemName != "" {
		return prev.ItemName
	}
	return snap.ItemName
}
