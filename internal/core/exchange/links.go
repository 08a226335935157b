package exchange

import "sync"

// LinkStore maps item IDs to the most recently surfaced recommended sell
// price. Links are set from background HTTP completions and consumed on
// the snapshot-processing goroutine, so the map is guarded by one mutex;
// volumes are far too low for anything finer.
//
// A single last-set value is shared by all outstanding buys for the same
// item: if two buy orders for one item carry different recommendations,
// whichever fills first takes the most recent price. Accepted limitation.
type LinkStore struct {
	mu    sync.Mutex
	links map[int]int
}

func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[int]int)}
}

// Set records a recommendation for an item, overwriting any previous one.
func (s *LinkStore) Set(itemID, recommendedSellPrice int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[itemID] = recommendedSellPrice
}

// Consume atomically reads and clears the link for an item. The second
// return is false when no link was outstanding.
func (s *LinkStore) Consume(itemID int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.links[itemID]
	if ok {
		delete(s.links, itemID)
	}
	return price, ok
}

// Peek reads the link without clearing it. Used for the pending-order
// view, which must not retire the link before the buy records.
func (s *LinkStore) Peek(itemID int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.links[itemID]
	return price, ok
}

// Len reports the number of outstanding links.
func (s *LinkStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}
