package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flipwatch/flipwatch/internal/core/exchange"
	"github.com/flipwatch/flipwatch/internal/telemetry"

	_ "modernc.org/sqlite"
)

const (
	evictPct       float64 = 0.10 // evict oldest 10% of rows
	vacuumInterval         = 10   // incremental vacuum every N evictions
)

const schema = `CREATE TABLE IF NOT EXISTS transactions (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id                INTEGER NOT NULL,
	item_name              TEXT    NOT NULL,
	is_buy                 INTEGER NOT NULL,
	quantity               INTEGER NOT NULL,
	price_per_item         INTEGER NOT NULL,
	slot                   INTEGER NOT NULL,
	recommended_sell_price INTEGER,
	recorded_at            TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id);`

// Store is a local FIFO journal of recorded transactions, capped at
// maxBytes. It exists so flip history survives API outages; the remote
// recorder remains the source of truth.
type Store struct {
	db       *sql.DB
	maxBytes int64

	mu           sync.Mutex
	cachedSize   int64
	rowCount     int64
	evictCounter int
}

func Open(path string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	var avMode int
	if err := db.QueryRow(`PRAGMA auto_vacuum`).Scan(&avMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("read auto_vacuum: %w", err)
	}
	if avMode != 2 {
		if _, err := db.Exec(`PRAGMA auto_vacuum = INCREMENTAL`); err != nil {
			db.Close()
			return nil, fmt.Errorf("set auto_vacuum: %w", err)
		}
		if _, err := db.Exec(`VACUUM`); err != nil {
			telemetry.Warnf("journal: VACUUM to enable auto_vacuum failed: %v", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}

	s := &Store{db: db, maxBytes: maxBytes}
	db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`).Scan(&s.cachedSize)
	db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&s.rowCount)

	telemetry.Infof("journal: opened %s  size=%d  rows=%d", path, s.cachedSize, s.rowCount)
	return s, nil
}

// Insert appends one transaction to the journal, evicting the oldest
// rows when the size cap is exceeded.
func (s *Store) Insert(tx exchange.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec sql.NullInt64
	if tx.RecommendedSellPrice != nil {
		rec = sql.NullInt64{Int64: int64(*tx.RecommendedSellPrice), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO transactions
			(item_id, item_name, is_buy, quantity, price_per_item, slot, recommended_sell_price, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ItemID, tx.ItemName, tx.IsBuy, tx.Quantity, tx.PricePerUnit, tx.Slot, rec,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	s.rowCount++

	s.maybeEvict()
	return nil
}

// maybeEvict drops the oldest rows when the database file exceeds the
// cap. Called with mu held.
func (s *Store) maybeEvict() {
	s.db.QueryRow(`SELECT COALESCE(page_count * page_size, 0) FROM pragma_page_count(), pragma_page_size()`).Scan(&s.cachedSize)
	if s.maxBytes <= 0 || s.cachedSize <= s.maxBytes || s.rowCount == 0 {
		return
	}

	evict := int64(float64(s.rowCount) * evictPct)
	if evict < 1 {
		evict = 1
	}

	res, err := s.db.Exec(
		`DELETE FROM transactions WHERE id IN
			(SELECT id FROM transactions ORDER BY id ASC LIMIT ?)`, evict)
	if err != nil {
		telemetry.Warnf("journal: evict failed: %v", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil {
		s.rowCount -= n
	}

	s.evictCounter++
	if s.evictCounter%vacuumInterval == 0 {
		if _, err := s.db.Exec(`PRAGMA incremental_vacuum`); err != nil {
			telemetry.Warnf("journal: incremental vacuum failed: %v", err)
		}
	}
}

// Row is one journaled transaction.
type Row struct {
	ID                   int64
	ItemID               int
	ItemName             string
	IsBuy                bool
	Quantity             int
	PricePerItem         int
	Slot                 int
	RecommendedSellPrice *int
	RecordedAt           time.Time
}

// Recent returns the newest transactions, most recent first.
func (s *Store) Recent(limit int) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, item_id, item_name, is_buy, quantity, price_per_item, slot, recommended_sell_price, recorded_at
		 FROM transactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var rec sql.NullInt64
		var recordedAt string
		if err := rows.Scan(&r.ID, &r.ItemID, &r.ItemName, &r.IsBuy, &r.Quantity, &r.PricePerItem, &r.Slot, &rec, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if rec.Valid {
			v := int(rec.Int64)
			r.RecommendedSellPrice = &v
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count reports the number of journaled transactions.
func (s *Store) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rowCount
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
