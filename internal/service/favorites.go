package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

// FavoritesKey is the storage key holding the JSON array of favourite coin ids.
const FavoritesKey = "cryptodash-favorites"

// favoriteSet is an immutable, ordered-unique set of coin ids.
type favoriteSet struct {
	ids     []string
	index   map[string]struct{}
	version uint64
}

func newFavoriteSet(ids []string, version uint64) *favoriteSet {
	s := &favoriteSet{
		ids:     make([]string, 0, len(ids)),
		index:   make(map[string]struct{}, len(ids)),
		version: version,
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

// FavoritesStore owns the persisted favourites. Toggle is the only mutator and
// writes are serialized; readers use a lock-free snapshot.
type FavoritesStore struct {
	store     domain.KeyValueStore
	key       string
	mu        sync.Mutex // single writer
	current   atomic.Pointer[favoriteSet]
	listeners Listeners[[]string]
	logger    *slog.Logger
}

// NewFavoritesStore creates an empty store backed by kv under key (FavoritesKey when empty).
func NewFavoritesStore(kv domain.KeyValueStore, key string) *FavoritesStore {
	if key == "" {
		key = FavoritesKey
	}
	s := &FavoritesStore{
		store:  kv,
		key:    key,
		logger: slog.Default().With(slog.String("module", "favorites")),
	}
	s.current.Store(newFavoriteSet(nil, 0))
	return s
}

// Load reads the persisted set. Absent or unreadable data yields an empty set;
// the failure is logged, never returned.
func (s *FavoritesStore) Load() {
	ids, err := s.read()
	if err != nil {
		s.logger.Warn("Favorites unreadable, starting empty", slog.Any("error", err))
		ids = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := newFavoriteSet(ids, s.current.Load().version+1)
	s.current.Store(next)
	s.logger.Info("Favorites loaded", slog.Int("count", len(next.ids)))
	s.listeners.Notify(next.ids)
}

func (s *FavoritesStore) read() ([]string, error) {
	raw, found, err := s.store.Get(s.key)
	if err != nil {
		return nil, &domain.PersistenceReadError{Key: s.key, Err: err}
	}
	if !found || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, &domain.PersistenceReadError{Key: s.key, Err: err}
	}
	return ids, nil
}

// Toggle adds id when absent and removes it when present, then persists the
// full set. If the write fails the set is left unchanged and the error returned.
func (s *FavoritesStore) Toggle(id string) (added bool, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("toggle favorite: %w: empty id", domain.ErrInvalidCoin)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	ids := make([]string, 0, len(cur.ids)+1)
	if _, ok := cur.index[id]; ok {
		for _, existing := range cur.ids {
			if existing != id {
				ids = append(ids, existing)
			}
		}
	} else {
		ids = append(ids, cur.ids...)
		ids = append(ids, id)
		added = true
	}
	next := newFavoriteSet(ids, cur.version+1)

	payload, err := json.Marshal(next.ids)
	if err != nil {
		return false, err
	}
	err = s.store.Set(s.key, string(payload))
	infra.GlobalMetrics.RecordPersist(err)
	if err != nil {
		s.logger.Error("Failed to persist favorites", slog.String("id", id), slog.Any("error", err))
		return false, fmt.Errorf("persist favorites: %w", err)
	}

	s.current.Store(next)
	s.listeners.Notify(next.ids)
	return added, nil
}

// Has reports whether id is a favourite.
func (s *FavoritesStore) Has(id string) bool {
	_, ok := s.current.Load().index[id]
	return ok
}

// Snapshot returns the favourites in insertion order.
func (s *FavoritesStore) Snapshot() []string {
	cur := s.current.Load()
	out := make([]string, len(cur.ids))
	copy(out, cur.ids)
	return out
}

// Version increases on every change; derived views use it to detect staleness.
func (s *FavoritesStore) Version() uint64 {
	return s.current.Load().version
}

// Len returns the number of favourites.
func (s *FavoritesStore) Len() int {
	return len(s.current.Load().ids)
}

// Subscribe registers fn for every change. fn receives the new ids (read-only)
// while the writer lock is held, so it must not call Toggle.
func (s *FavoritesStore) Subscribe(fn func(ids []string)) (unsubscribe func()) {
	return s.listeners.Add(fn)
}
