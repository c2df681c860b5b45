// Package trades persists the canonical trade ledger in an append-only WAL
// journal and owns the in-memory, time-ordered, deduplicated view of it.
package trades

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/anson-vandoren/binance-monitor/internal/domain"
)

const (
	segmentLimit = 1000
	maxSegments  = 100

	tradeKeyPrefix = "trade_"
)

// WALStore is the ledger: a deduplicated, time-ordered collection of tax
// trades backed by a write-ahead log. All mutation goes through Update and
// AddOne under a single writer lock, so a live stream consumer and a
// historical sync can write concurrently without corrupting the journal.
type WALStore struct {
	mu     sync.Mutex
	wal    *gowal.Wal
	logger *zap.Logger

	records []domain.TaxTrade
	byKey   map[string]domain.TaxTrade
	// pending holds merged-but-unpersisted records; the batch sync path is
	// write-back and calls Flush once per session, the live path is
	// write-through via AddOne.
	pending []domain.TaxTrade
}

// NewWALStore opens the ledger journal for an account and replays it into
// memory. Journal entries that fail to decode are skipped with a warning:
// a damaged journal degrades to a smaller ledger, never to a startup error.
func NewWALStore(dir string, logger *zap.Logger) (*WALStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "trades_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init trade ledger WAL")
	}

	s := &WALStore{
		wal:    wal,
		logger: logger,
		byKey:  make(map[string]domain.TaxTrade),
	}
	s.replay()

	return s, nil
}

// replay loads every journal entry into the in-memory ledger.
func (s *WALStore) replay() {
	count := 0
	for m := range s.wal.Iterator() {
		if !strings.HasPrefix(m.Key, tradeKeyPrefix) {
			continue
		}

		var trade domain.TaxTrade
		if err := json.Unmarshal(m.Value, &trade); err != nil {
			s.logger.Warn("skipping undecodable ledger entry", zap.String("key", m.Key), zap.Error(err))
			continue
		}

		key := dedupKey(trade)
		if _, ok := s.byKey[key]; ok {
			continue
		}
		s.byKey[key] = trade
		s.records = append(s.records, trade)
		count++
	}

	s.sortLocked()
	if count > 0 {
		s.logger.Info("loaded trade ledger", zap.Int("trades", count))
	}
}

// Update merges new records into the ledger: concatenate, drop exact
// duplicates, sort ascending by time. A record whose trade id is already
// present with different field values means the re-fetch disagrees with the
// stored history, and the whole merge fails with ErrDuplicateMark.
//
// Merged records are not persisted until Flush is called.
func (s *WALStore) Update(newRecords []domain.TaxTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mergeLocked(newRecords)
}

// AddOne merges a single record and persists immediately. This is the
// real-time path: a live fill must survive a crash that follows it.
func (s *WALStore) AddOne(record domain.TaxTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mergeLocked([]domain.TaxTrade{record}); err != nil {
		return err
	}
	return s.flushLocked()
}

// Flush appends all merged-but-unpersisted records to the journal. Callers
// of Update invoke it once after a sync session.
func (s *WALStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked()
}

func (s *WALStore) mergeLocked(newRecords []domain.TaxTrade) error {
	// Validate the whole batch before mutating anything, so a conflict
	// leaves the ledger untouched.
	incoming := make(map[string]domain.TaxTrade, len(newRecords))
	for _, rec := range newRecords {
		key := dedupKey(rec)

		if existing, ok := s.byKey[key]; ok {
			if !existing.Equal(rec) {
				return errors.Wrapf(domain.ErrDuplicateMark,
					"trade id %s on %s/%s", rec.Mark, rec.BuyCurrency, rec.SellCurrency)
			}
			continue // harmless re-fetch
		}
		if prev, ok := incoming[key]; ok {
			if !prev.Equal(rec) {
				return errors.Wrapf(domain.ErrDuplicateMark,
					"trade id %s repeated within batch", rec.Mark)
			}
			continue
		}
		incoming[key] = rec
	}

	if len(incoming) == 0 {
		return nil
	}

	for key, rec := range incoming {
		s.byKey[key] = rec
		s.records = append(s.records, rec)
		s.pending = append(s.pending, rec)
	}
	s.sortLocked()

	return nil
}

func (s *WALStore) flushLocked() error {
	for len(s.pending) > 0 {
		rec := s.pending[0]

		payload, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "encode ledger entry")
		}

		if err := s.wal.Write(s.wal.CurrentIndex()+1, tradeKeyPrefix+dedupKey(rec), payload); err != nil {
			return errors.Wrap(err, "append ledger entry")
		}
		s.pending = s.pending[1:]
	}

	return nil
}

func (s *WALStore) sortLocked() {
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].Time.Before(s.records[j].Time)
	})
}

// Trades returns a copy of the ledger in chronological order.
func (s *WALStore) Trades() []domain.TaxTrade {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TaxTrade, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of ledger records.
func (s *WALStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// LatestTimestamp returns the newest trade time in the ledger, and false
// when the ledger is empty. Useful for bounding an incremental sync.
func (s *WALStore) LatestTimestamp() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return time.Time{}, false
	}
	return s.records[len(s.records)-1].Time, true
}

// ExportCSV writes the ledger to path: one header row in the canonical
// column order, amounts formatted with eight decimal places.
func (s *WALStore) ExportCSV(path string) error {
	s.mu.Lock()
	rows := make([][]string, 0, len(s.records))
	for _, rec := range s.records {
		rows = append(rows, rec.CSVRow())
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create export dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(domain.CSVColumns); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()

	return errors.Wrap(w.Error(), "flush csv")
}

// Close closes the underlying journal.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

// dedupKey identifies a fill by its exchange-assigned trade id within its
// market and exchange. Trade ids are only unique per market, so the market
// context (the unordered currency pair) is part of the key.
func dedupKey(t domain.TaxTrade) string {
	a, b := t.BuyCurrency, t.SellCurrency
	if a > b {
		a, b = b, a
	}
	return t.Exchange + "|" + a + "|" + b + "|" + t.Mark
}
