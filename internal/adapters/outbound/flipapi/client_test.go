package flipapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeAPI struct {
	mu           sync.Mutex
	logins       atomic.Int64
	transactions []TransactionRequest
	rejectToken  string // token that gets a 401
	nextToken    string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": f.nextToken})
	})
	mux.HandleFunc("POST /transactions", func(w http.ResponseWriter, r *http.Request) {
		if f.unauthorized(w, r) {
			return
		}
		var req TransactionRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.transactions = append(f.transactions, req)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /flip-finder", func(w http.ResponseWriter, r *http.Request) {
		if f.unauthorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(RecommendationList{
			Recommendations: []Recommendation{
				{ItemID: 100, ItemName: "Yew logs", RecommendedSellPrice: 320},
			},
		})
	})
	mux.HandleFunc("GET /analysis/4151", func(w http.ResponseWriter, r *http.Request) {
		if f.unauthorized(w, r) {
			return
		}
		margin := 40_000
		json.NewEncoder(w).Encode(ItemAnalysis{
			ItemID:        4151,
			ItemName:      "Abyssal whip",
			CurrentPrices: &CurrentPrices{NetMargin: &margin},
		})
	})
	return mux
}

func (f *fakeAPI) unauthorized(w http.ResponseWriter, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if auth == "" || auth == "Bearer "+f.rejectToken {
		w.WriteHeader(http.StatusUnauthorized)
		return true
	}
	return false
}

func newTestClient(t *testing.T, f *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	auth := NewTokenManager(srv.URL, "user@example.com", "hunter2")
	return NewClient(srv.URL, auth, rate.NewLimiter(rate.Inf, 1), rate.NewLimiter(rate.Inf, 1))
}

func TestClient_RecordTransaction(t *testing.T) {
	f := &fakeAPI{nextToken: "tok-1"}
	c := newTestClient(t, f)

	price := 520
	err := c.RecordTransaction(context.Background(), TransactionRequest{
		ItemID: 100, ItemName: "Yew logs", IsBuy: true,
		Quantity: 10, PricePerItem: 280, Slot: 3,
		RecommendedSellPrice: &price,
	})
	require.NoError(t, err)

	require.Len(t, f.transactions, 1)
	got := f.transactions[0]
	assert.Equal(t, 100, got.ItemID)
	assert.Equal(t, 10, got.Quantity)
	require.NotNil(t, got.RecommendedSellPrice)
	assert.Equal(t, 520, *got.RecommendedSellPrice)
}

func TestClient_ConcurrentCallsShareOneLogin(t *testing.T) {
	f := &fakeAPI{nextToken: "tok-1"}
	c := newTestClient(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchRecommendations(context.Background(), nil, "balanced", 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.logins.Load())
}

func TestClient_ReplaysOnceAfter401(t *testing.T) {
	// The first token is rejected; the client must invalidate, refresh,
	// and replay the request exactly once.
	f := &fakeAPI{nextToken: "stale"}
	c := newTestClient(t, f)

	// Prime the manager with the soon-to-be-stale token.
	_, err := c.FetchRecommendations(context.Background(), nil, "balanced", 10)
	require.NoError(t, err)

	f.rejectToken = "stale"
	f.nextToken = "fresh"

	list, err := c.FetchRecommendations(context.Background(), nil, "balanced", 10)
	require.NoError(t, err)
	require.Len(t, list.Recommendations, 1)
	assert.Equal(t, "Yew logs", list.Recommendations[0].ItemName)
	assert.Equal(t, int64(2), f.logins.Load())
}

func TestClient_MissingCredentialsSurfaced(t *testing.T) {
	srv := httptest.NewServer((&fakeAPI{}).handler())
	t.Cleanup(srv.Close)

	auth := NewTokenManager(srv.URL, "", "")
	c := NewClient(srv.URL, auth, nil, nil)

	err := c.RecordTransaction(context.Background(), TransactionRequest{ItemID: 1})
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestClient_FetchAnalysis(t *testing.T) {
	f := &fakeAPI{nextToken: "tok-1"}
	c := newTestClient(t, f)

	analysis, err := c.FetchAnalysis(context.Background(), 4151)
	require.NoError(t, err)
	assert.Equal(t, "Abyssal whip", analysis.ItemName)
	assert.True(t, analysis.HasPositiveMargin())
}
