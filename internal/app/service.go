// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	activityqueue "github.com/studyhall-app/studyhall/internal/adapters/mq/queue"
	workerpool "github.com/studyhall-app/studyhall/internal/adapters/mq/worker"
	"github.com/studyhall-app/studyhall/internal/adapters/repository"
	"github.com/studyhall-app/studyhall/internal/domain/badges"
	"github.com/studyhall-app/studyhall/internal/domain/dedupe"
	"github.com/studyhall-app/studyhall/internal/domain/leveling"
	"github.com/studyhall-app/studyhall/internal/domain/model"
	"github.com/studyhall-app/studyhall/internal/domain/points"
	"github.com/studyhall-app/studyhall/internal/domain/ranking"
	"github.com/studyhall-app/studyhall/internal/domain/srs"
	"github.com/studyhall-app/studyhall/internal/domain/streak"
	"github.com/studyhall-app/studyhall/internal/domain/types"
	"github.com/studyhall-app/studyhall/pkg/logger"
	"github.com/studyhall-app/studyhall/pkg/metrics"
)

// Service implements the API dependencies for the progression system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      activityqueue.Queue
	pool       *workerpool.Pool
	ranker     *ranking.Engine
	leveler    *leveling.Engine
	policy     *points.Policy
	badgeSet   *badges.Set
	maintainer *maintainer

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	maxLimit     int
	location     *time.Location
	awards       map[string]int
	defaultAward int
	curve        *leveling.Curve
	storeFactory StoreFactory

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// StoreFactory builds the persistence layer when the service starts.
type StoreFactory func(ctx context.Context) (repository.Store, error)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of activity workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the activity queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxLeaderboardLimit caps the page size on leaderboard reads.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLocation sets the timezone used for window and streak boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithPointAwards sets the activity kind to points mapping.
func WithPointAwards(awards map[string]int, defaultAward int) Option {
	return func(s *Service) {
		s.awards = awards
		if defaultAward > 0 {
			s.defaultAward = defaultAward
		}
	}
}

// WithLevelCurve overrides the built-in level curve.
func WithLevelCurve(curve *leveling.Curve) Option {
	return func(s *Service) {
		if curve != nil {
			s.curve = curve
		}
	}
}

// WithBadgeSet overrides the built-in badge set.
func WithBadgeSet(set *badges.Set) Option {
	return func(s *Service) {
		if set != nil {
			s.badgeSet = set
		}
	}
}

// WithStoreFactory overrides how the persistence layer is built,
// e.g. to back the service with SQLite instead of memory.
func WithStoreFactory(f StoreFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.storeFactory = f
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    100000,
		dedupeSize:   50000,
		maxLimit:     100,
		location:     time.UTC,
		defaultAward: 5,
		curve:        leveling.DefaultCurve(),
		badgeSet:     badges.DefaultSet(),
		stopCh:       make(chan struct{}),
	}
	s.storeFactory = func(ctx context.Context) (repository.Store, error) {
		return repository.NewMemoryStore(ctx), nil
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting progression service...")

	store, err := s.storeFactory(ctx)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	s.store = store

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = activityqueue.NewInMemoryQueue(
		activityqueue.WithCapacity(s.queueSize),
	)
	s.ranker = ranking.New(
		ranking.WithLocation(s.location),
		ranking.WithMaxLimit(s.maxLimit),
	)
	s.leveler = leveling.NewEngine(s.curve, s.store)
	s.policy = points.New(
		points.WithAwardsFromConfig(s.awards, s.defaultAward),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.policy, s.store, s.leveler)
	s.pool.Start(ctx)

	s.maintainer = newMaintainer(s)
	if err := s.maintainer.start(ctx); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "progression service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("timezone", s.location.String()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping progression service...")

	if s.maintainer != nil {
		s.maintainer.stop()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "progression service stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it
// if not. Returns true if the event was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordActivityDuplicate()
	}
	return seen
}

// Unrecord removes an event id from the seen list so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// SubmitActivity validates, deduplicates, and enqueues an activity for
// asynchronous processing. The returned duplicate flag reports whether
// the event id had already been accepted.
func (s *Service) SubmitActivity(ctx context.Context, a model.Activity) (accepted bool, duplicate bool) {
	if a.EventID == "" {
		a.EventID = uuid.NewString()
	}
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}

	if s.SeenAndRecord(ctx, a.EventID) {
		s.logger.Debug(ctx, "duplicate activity, skipping",
			logger.String("eventID", a.EventID),
			logger.String("userID", a.UserID),
		)
		return true, true
	}

	if !s.queue.Enqueue(ctx, a) {
		// Give the producer a chance to retry the same event id.
		s.Unrecord(ctx, a.EventID)
		return false, false
	}
	metrics.UpdateQueueSize(s.queue.Len(ctx))
	return true, false
}

// Leaderboard returns one page of the ranking for the given scope and
// window.
func (s *Service) Leaderboard(ctx context.Context, scope model.Scope, window model.Window, page ranking.Pagination) (types.Page, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingLatency(float64(time.Since(start).Milliseconds()))
	}()

	now := time.Now()
	records, err := s.store.Query(ctx, scope, s.ranker.Horizon(window, now))
	if err != nil {
		return types.Page{}, fmt.Errorf("query score records: %w", err)
	}
	result, err := s.ranker.Rank(records, scope, window, page, now)
	if err != nil {
		return types.Page{}, err
	}
	metrics.RecordLeaderboardQuery()
	return result, nil
}

// RankFor returns one user's entry in the given scope and window.
func (s *Service) RankFor(ctx context.Context, userID string, scope model.Scope, window model.Window) (types.Entry, error) {
	now := time.Now()
	records, err := s.store.Query(ctx, scope, s.ranker.Horizon(window, now))
	if err != nil {
		return types.Entry{}, fmt.Errorf("query score records: %w", err)
	}
	return s.ranker.RankFor(records, scope, window, userID, now)
}

// GrantXP credits XP directly, outside the activity pipeline. Used for
// manual adjustments; regular grants flow through the workers.
func (s *Service) GrantXP(ctx context.Context, userID string, amount int) (types.GrantResult, error) {
	grant, err := s.leveler.GrantXP(ctx, userID, amount)
	if err != nil {
		return types.GrantResult{}, err
	}
	metrics.RecordXPGranted(amount)
	if grant.LeveledUp {
		metrics.RecordLevelUp()
	}
	return grant, nil
}

// Profile assembles the learner's XP, level, streaks, and badges.
func (s *Service) Profile(ctx context.Context, userID string) (types.Profile, error) {
	totalXP, err := s.store.Total(ctx, userID)
	if err != nil {
		return types.Profile{}, fmt.Errorf("total xp: %w", err)
	}
	level, err := s.leveler.Curve().LevelFor(totalXP)
	if err != nil {
		return types.Profile{}, err
	}

	records, err := s.store.QueryUser(ctx, userID)
	if err != nil {
		return types.Profile{}, fmt.Errorf("query user records: %w", err)
	}
	timestamps := make([]time.Time, len(records))
	for i, r := range records {
		timestamps[i] = r.Timestamp
	}
	streaks := streak.Compute(timestamps, time.Now(), s.location)

	reviews, err := s.store.ReviewCount(ctx, userID)
	if err != nil {
		return types.Profile{}, fmt.Errorf("review count: %w", err)
	}

	badgeStatuses := s.badgeSet.Evaluate(badges.Snapshot{
		TotalXP:    totalXP,
		Level:      level.Level,
		Activities: len(records),
		StreakDays: streaks.CurrentDays,
		Reviews:    reviews,
	})

	return types.Profile{
		UserID:        userID,
		TotalXP:       totalXP,
		Level:         level,
		CurrentStreak: streaks.CurrentDays,
		LongestStreak: streaks.LongestDays,
		Badges:        badgeStatuses,
	}, nil
}

// ReviewFlashcard applies one review rating to the card's schedule and
// returns the updated state. A flashcard_review activity is enqueued so
// the review also earns points and XP.
func (s *Service) ReviewFlashcard(ctx context.Context, userID, cardID string, rating model.Rating) (model.ReviewState, error) {
	state, err := s.store.Get(ctx, userID, cardID)
	if err != nil {
		return model.ReviewState{}, fmt.Errorf("load review state: %w", err)
	}

	now := time.Now()
	next, err := srs.Schedule(state, rating, now)
	if err != nil {
		return model.ReviewState{}, err
	}
	if err := s.store.Put(ctx, next); err != nil {
		return model.ReviewState{}, fmt.Errorf("save review state: %w", err)
	}
	metrics.RecordReviewProcessed()

	s.SubmitActivity(ctx, model.Activity{
		UserID:     userID,
		Kind:       model.KindFlashcardReview,
		OccurredAt: now,
	})

	return next, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"timezone":    s.location.String(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		learners := s.store.CountLearners(ctx)
		records := s.store.CountRecords(ctx)

		stats["queueLength"] = queueLen
		stats["totalLearners"] = learners
		stats["totalRecords"] = records

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalLearners(learners)
		metrics.UpdateStoreRecordsTotal(records)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
