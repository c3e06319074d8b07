package diary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"diarygraph/backend/pkg/logger"
)

// Source loads every entry a user has written. One-shot, no pagination.
type Source interface {
	Entries(ctx context.Context, userID string) ([]Entry, error)
}

// FileSource serves entries from a JSON array on disk. Entries without a
// user id are visible to every user.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path on every call
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Entries implements Source
func (s *FileSource) Entries(ctx context.Context, userID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := ReadEntriesFile(s.path)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.UserID == "" || userID == "" || e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ReadEntriesFile decodes a JSON array of entries sorted by timestamp
func ReadEntriesFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entries file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode entries file %s: %w", path, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// WriteEntriesFile encodes entries as an indented JSON array
func WriteEntriesFile(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

type cachedEntries struct {
	entries []Entry
	fetched time.Time
}

// CachedSource keeps recent results per user and coalesces concurrent
// fetches for the same user into one upstream call.
type CachedSource struct {
	next   Source
	ttl    time.Duration
	group  singleflight.Group
	mu     sync.RWMutex
	cache  map[string]cachedEntries
	now    func() time.Time
	logger *zap.Logger
}

// NewCachedSource wraps next. A non-positive ttl disables caching but keeps coalescing.
func NewCachedSource(next Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		next:   next,
		ttl:    ttl,
		cache:  make(map[string]cachedEntries),
		now:    time.Now,
		logger: logger.Named("entries"),
	}
}

// Entries implements Source
func (s *CachedSource) Entries(ctx context.Context, userID string) ([]Entry, error) {
	if s.ttl > 0 {
		s.mu.RLock()
		hit, ok := s.cache[userID]
		s.mu.RUnlock()
		if ok && s.now().Sub(hit.fetched) < s.ttl {
			return hit.entries, nil
		}
	}

	v, err, shared := s.group.Do(userID, func() (interface{}, error) {
		entries, err := s.next.Entries(ctx, userID)
		if err != nil {
			return nil, err
		}
		if s.ttl > 0 {
			s.mu.Lock()
			s.cache[userID] = cachedEntries{entries: entries, fetched: s.now()}
			s.mu.Unlock()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Debug("Coalesced entry fetch", zap.String("user_id", userID))
	}
	return v.([]Entry), nil
}

// Invalidate drops the cached entries of one user
func (s *CachedSource) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}
