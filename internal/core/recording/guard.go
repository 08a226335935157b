package recording

import (
	"fmt"
	"strings"
	"sync"
)

// SubmitGuard prevents the same derived fill from reaching the API twice.
// A fill is identified by (slot, item, cumulative count, side): within
// one slot occupancy the engine can only derive each cumulative value
// once, so a repeated key means a replayed event, not a new fill.
type SubmitGuard struct {
	mu   sync.RWMutex
	seen map[string]bool
}

func NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{
		seen: make(map[string]bool),
	}
}

// Key builds a dedup key from the fill's identity. The slot prefix lets
// ClearSlot retire keys when the occupancy ends.
func (g *SubmitGuard) Key(slot, itemID, cumulative int, isBuy bool) string {
	return fmt.Sprintf("%d:%d:%d:%t", slot, itemID, cumulative, isBuy)
}

func (g *SubmitGuard) HasSeen(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.seen[key]
}

func (g *SubmitGuard) Record(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen[key] = true
}

// ClearSlot drops all keys for a slot once its occupancy ends, so a later
// offer in the same slot can legitimately repeat the same counts.
func (g *SubmitGuard) ClearSlot(slot int) {
	prefix := fmt.Sprintf("%d:", slot)
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.seen {
		if strings.HasPrefix(key, prefix) {
			delete(g.seen, key)
		}
	}
}
