// Package stats serves the per-stage workflow projection. Counts come from a
// GROUP BY scan and may be cached in Redis for a short TTL.
//
// Cached snapshots are keyed by a generation counter that every invalidation
// bumps, so a scan that raced a write stores under a generation nobody reads.
// Invalidation runs from async bus handlers: a read issued immediately after a
// write may still see the previous snapshot until the handler has run.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"leadflow_backend/internal/events"
	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"
)

const (
	cacheKey      = "leadflow:stats:workflow"
	generationKey = cacheKey + ":gen"
)

func snapshotKey(gen string) string {
	return cacheKey + ":" + gen
}

// Snapshot is the workflow stats projection.
type Snapshot struct {
	PerStage   map[domain.Stage]int `json:"perStage"`
	Total      int                  `json:"total"`
	ComputedAt time.Time            `json:"computedAt"`
}

// Repository defines the data access interface needed by the stats service.
type Repository interface {
	repository.StatsReader
}

type Service struct {
	repo  Repository
	cache redis.UniversalClient
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCache enables the Redis projection cache. A zero ttl disables it.
func WithCache(client redis.UniversalClient, ttl time.Duration) Option {
	return func(s *Service) {
		if client != nil && ttl > 0 {
			s.cache = client
			s.ttl = ttl
		}
	}
}

func New(repo Repository, log *logger.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHandlers drops the cached projection whenever stage counts change.
func (s *Service) RegisterHandlers(bus events.Bus) {
	invalidate := events.HandlerFunc(func(ctx context.Context, _ events.Event) error {
		return s.Invalidate(ctx)
	})
	bus.Subscribe(events.LeadCreated{}.EventName(), invalidate)
	bus.Subscribe(events.LeadStageChanged{}.EventName(), invalidate)
}

// Stats returns the per-stage counts. Every stage is present, zero included.
// Concurrent recomputations are collapsed into one store scan.
func (s *Service) Stats(ctx context.Context) (Snapshot, error) {
	gen, cacheable := s.generation(ctx)
	if cacheable {
		if snap, ok := s.cached(ctx, gen); ok {
			return snap, nil
		}
	}

	v, err, _ := s.group.Do(snapshotKey(gen), func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), gen, cacheable)
	})
	if err != nil {
		return Snapshot{}, repository.MapError("stats.Stats", err)
	}
	return v.(Snapshot), nil
}

// Invalidate retires the cached projection by moving to a new generation.
// Older snapshots expire on their TTL.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Incr(ctx, generationKey).Err()
}

// generation returns the current cache generation, or false when the cache
// is disabled or unreachable.
func (s *Service) generation(ctx context.Context) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Get(ctx, generationKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		s.log.Warn("stats cache read failed", "error", err)
		return "", false
	}
	return gen, true
}

func (s *Service) compute(ctx context.Context, gen string, cacheable bool) (Snapshot, error) {
	counts, err := s.repo.CountByStage(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		PerStage:   make(map[domain.Stage]int, len(domain.Stages)),
		ComputedAt: s.now().UTC(),
	}
	for _, stage := range domain.Stages {
		snap.PerStage[stage] = counts[stage]
		snap.Total += counts[stage]
	}

	if cacheable {
		payload, err := json.Marshal(snap)
		if err == nil {
			err = s.cache.Set(ctx, snapshotKey(gen), payload, s.ttl).Err()
		}
		if err != nil {
			s.log.Warn("stats cache write failed", "error", err)
		}
	}
	return snap, nil
}

func (s *Service) cached(ctx context.Context, gen string) (Snapshot, bool) {
	payload, err := s.cache.Get(ctx, snapshotKey(gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("stats cache read failed", "error", err)
		}
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}
