// Package prefs persists user preferences, most importantly the market
// blacklist that governs which symbols the history sync walks.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Confirmer asks the user a yes/no question before a preference change
// that was not explicitly requested.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

type document struct {
	Title     string   `yaml:"title"`
	Blacklist []string `yaml:"blacklist"`
}

// Store is the preferences document with a lock around every
// read-modify-write cycle. Writes go straight to disk: last writer wins.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    document
	logger *zap.Logger
}

// Open loads the preferences file, falling back to an empty default
// document when the file is absent or cannot be decoded.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		path:   path,
		logger: logger,
		doc:    document{Title: "binance-monitor preferences"},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read preferences, using defaults", zap.String("path", path), zap.Error(err))
		}
		return s, nil
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		logger.Warn("could not decode preferences, using defaults", zap.String("path", path), zap.Error(err))
		return s, nil
	}

	if doc.Title == "" {
		doc.Title = s.doc.Title
	}
	s.doc = doc

	return s, nil
}

// Blacklist returns the excluded markets, sorted.
func (s *Store) Blacklist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.doc.Blacklist))
	copy(out, s.doc.Blacklist)
	sort.Strings(out)
	return out
}

// IsIncluded reports whether a market should be synced.
func (s *Store) IsIncluded(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.doc.Blacklist {
		if b == symbol {
			return false
		}
	}
	return true
}

// Exclude adds markets to the blacklist and persists.
func (s *Store) Exclude(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(s.doc.Blacklist))
	for _, b := range s.doc.Blacklist {
		present[b] = struct{}{}
	}
	for _, sym := range symbols {
		if _, ok := present[sym]; !ok {
			s.doc.Blacklist = append(s.doc.Blacklist, sym)
			present[sym] = struct{}{}
		}
	}

	return s.persistLocked()
}

// Include removes markets from the blacklist and persists.
func (s *Store) Include(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(symbols)
	return s.persistLocked()
}

// SetBlacklist replaces the blacklist wholesale and persists.
func (s *Store) SetBlacklist(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.Blacklist = append([]string(nil), symbols...)
	return s.persistLocked()
}

// Clear empties the blacklist and persists.
func (s *Store) Clear() error {
	return s.SetBlacklist(nil)
}

// Reconcile resolves stale exclusions: any observed market that is still
// blacklisted is evidence the exclusion is wrong, so the user is asked
// whether to lift it. Returns the markets removed from the blacklist.
func (s *Store) Reconcile(observed []string, confirmer Confirmer) ([]string, error) {
	s.mu.Lock()
	blacklisted := make(map[string]struct{}, len(s.doc.Blacklist))
	for _, b := range s.doc.Blacklist {
		blacklisted[b] = struct{}{}
	}
	s.mu.Unlock()

	var stale []string
	for _, sym := range observed {
		if _, ok := blacklisted[sym]; ok {
			stale = append(stale, sym)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ok, err := confirmer.Confirm(fmt.Sprintf("Trades were found for blacklisted symbols %v. Remove them from the blacklist?", stale))
	if err != nil {
		return nil, errors.Wrap(err, "confirm blacklist reconciliation")
	}
	if !ok {
		return nil, nil
	}

	if err := s.Include(stale); err != nil {
		return nil, err
	}

	s.logger.Info("removed stale blacklist entries", zap.Strings("symbols", stale))
	return stale, nil
}

// removeLocked drops symbols from the blacklist. Caller holds the lock.
func (s *Store) removeLocked(symbols []string) {
	drop := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		drop[sym] = struct{}{}
	}

	kept := s.doc.Blacklist[:0]
	for _, b := range s.doc.Blacklist {
		if _, ok := drop[b]; !ok {
			kept = append(kept, b)
		}
	}
	s.doc.Blacklist = kept
}

func (s *Store) persistLocked() error {
	raw, err := yaml.Marshal(s.doc)
	if err != nil {
		return errors.Wrap(err, "encode preferences")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create preferences dir")
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return errors.Wrap(err, "write preferences")
	}

	return nil
}
