package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

// Default memory store configuration constants.
const (
	defaultSnapshotInterval = 1 * time.Second
	defaultTopCacheSize     = 500
)

// TopEntry is one row of the snapshot's all-time top cache.
type TopEntry struct {
	UserID      string
	TotalPoints int
}

// Snapshot is an immutable view of all-time global totals, published
// periodically for cheap stats reads without the store lock.
type Snapshot struct {
	TotalsByUser map[string]int
	TopCache     []TopEntry // ordered by points desc, user id asc
	TakenAt      time.Time
}

// MemoryStore implements Store entirely in memory. Score records are an
// append-only log with a per-user index; XP totals and review states are
// plain maps guarded by the same lock.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.ScoreRecord
	byUser  map[string][]int // record indexes per user
	xp      map[string]int
	cards   map[string]model.ReviewState
	reviews map[string]int

	snapshotInterval time.Duration
	topCacheSize     int
	snapshot         atomic.Pointer[Snapshot]

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// NewMemoryStore constructs a memory store and starts its periodic
// snapshot goroutine, which stops when ctx is cancelled or Close is
// called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byUser:           make(map[string][]int),
		xp:               make(map[string]int),
		cards:            make(map[string]model.ReviewState),
		reviews:          make(map[string]int),
		snapshotInterval: defaultSnapshotInterval,
		topCacheSize:     defaultTopCacheSize,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishSnapshot()
	s.startPeriodicSnapshots(ctx)
	return s
}

func (s *MemoryStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

// Close stops the snapshot goroutine.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()
	return nil
}

// Append implements ScoreStore.
func (s *MemoryStore) Append(ctx context.Context, record model.ScoreRecord) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if record.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	}
	if record.Points < 0 {
		return fmt.Errorf("%w: negative points %d", ErrInvalidRecord, record.Points)
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.byUser[record.UserID] = append(s.byUser[record.UserID], len(s.records)-1)
	recordCount := len(s.records)
	learnerCount := len(s.byUser)
	s.mu.Unlock()

	metrics.UpdateStoreRecordsTotal(recordCount)
	metrics.UpdateTotalLearners(learnerCount)
	return nil
}

// Query implements ScoreStore.
func (s *MemoryStore) Query(ctx context.Context, scope model.Scope, since time.Time) ([]model.ScoreRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ScoreRecord, 0, len(s.records))
	for _, r := range s.records {
		if !scope.Matches(r) {
			continue
		}
		if !since.IsZero() && r.Timestamp.Before(since) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// QueryUser implements ScoreStore.
func (s *MemoryStore) QueryUser(ctx context.Context, userID string) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idxs := s.byUser[userID]
	out := make([]model.ScoreRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.records[i])
	}
	return out, nil
}

// CountRecords implements ScoreStore.
func (s *MemoryStore) CountRecords(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CountLearners implements ScoreStore.
func (s *MemoryStore) CountLearners(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}

// Increment implements XPStore. The mutex makes the read-modify-write
// atomic, so concurrent grants are never lost.
func (s *MemoryStore) Increment(ctx context.Context, userID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xp[userID] += amount
	return s.xp[userID], nil
}

// Total implements XPStore.
func (s *MemoryStore) Total(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xp[userID], nil
}

// Get implements FlashcardStore.
func (s *MemoryStore) Get(ctx context.Context, userID, cardID string) (model.ReviewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.cards[cardKey(userID, cardID)]; ok {
		return state, nil
	}
	return model.NewReviewState(userID, cardID), nil
}

// Put implements FlashcardStore.
func (s *MemoryStore) Put(ctx context.Context, state model.ReviewState) error {
	if state.UserID == "" || state.CardID == "" {
		return fmt.Errorf("%w: review state missing user or card id", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[cardKey(state.UserID, state.CardID)] = state
	s.reviews[state.UserID]++
	return nil
}

// ReviewCount implements FlashcardStore.
func (s *MemoryStore) ReviewCount(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reviews[userID], nil
}

// LatestSnapshot returns the most recently published totals snapshot.
func (s *MemoryStore) LatestSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// publishSnapshot rebuilds the all-time global totals view.
func (s *MemoryStore) publishSnapshot() {
	s.mu.RLock()
	totals := make(map[string]int, len(s.byUser))
	for _, r := range s.records {
		totals[r.UserID] += r.Points
	}
	s.mu.RUnlock()

	top := make([]TopEntry, 0, len(totals))
	for userID, points := range totals {
		top = append(top, TopEntry{UserID: userID, TotalPoints: points})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].TotalPoints != top[j].TotalPoints {
			return top[i].TotalPoints > top[j].TotalPoints
		}
		return top[i].UserID < top[j].UserID
	})
	if len(top) > s.topCacheSize {
		top = top[:s.topCacheSize]
	}

	s.snapshot.Store(&Snapshot{
		TotalsByUser: totals,
		TopCache:     top,
		TakenAt:      time.Now(),
	})
}

func cardKey(userID, cardID string) string {
	return userID + "\x00" + cardID
}
