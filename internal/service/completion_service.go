package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

type strategyResolver interface {
	EffectiveStrategy(ctx context.Context, eventID string) (models.Strategy, error)
}

type markLister interface {
	GetMarks(ctx context.Context, participantID, eventID string) ([]models.ParticipationMark, error)
}

type participantLister interface {
	ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error)
}

type completionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CompletionConfig carries calculator tuning from the config layer.
type CompletionConfig struct {
	DefaultPresencePolicy models.PresencePolicy
	CacheTTL              time.Duration
	CacheEnabled          bool
}

func (c CompletionConfig) withDefaults() CompletionConfig {
	if !c.DefaultPresencePolicy.Valid() {
		c.DefaultPresencePolicy = models.PresenceEither
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	return c
}

// CompletionService evaluates participant completion against the event's
// effective strategy. Results are deterministic for a given mark set, so
// they cache well; mark writes invalidate through Invalidate.
type CompletionService struct {
	strategies   strategyResolver
	events       eventMetaReader
	checkpoints  scheduleWriter
	marks        markLister
	participants participantLister
	cache        completionCache
	metrics      *MetricsService
	cfg          CompletionConfig
	logger       *zap.Logger
}

// NewCompletionService constructs the service. cache may be nil.
func NewCompletionService(strategies strategyResolver, events eventMetaReader, checkpoints scheduleWriter, marks markLister, participants participantLister, cache completionCache, metrics *MetricsService, cfg CompletionConfig, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{
		strategies:   strategies,
		events:       events,
		checkpoints:  checkpoints,
		marks:        marks,
		participants: participants,
		cache:        cache,
		metrics:      metrics,
		cfg:          cfg.withDefaults(),
		logger:       logger,
	}
}

func completionCacheKey(eventID, participantID string) string {
	return fmt.Sprintf("attendance:completion:%s:%s", eventID, participantID)
}

// Compute evaluates one participant's completion for an event.
func (s *CompletionService) Compute(ctx context.Context, eventID, participantID string) (*models.CompletionResult, error) {
	key := completionCacheKey(eventID, participantID)
	if s.cacheEnabled() {
		var cached models.CompletionResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	result, err := s.compute(ctx, eventID, participantID)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("completion cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

func (s *CompletionService) compute(ctx context.Context, eventID, participantID string) (*models.CompletionResult, error) {
	strategy, err := s.strategies.EffectiveStrategy(ctx, eventID)
	if err != nil {
		return nil, err
	}
	meta, err := s.events.GetMeta(ctx, eventID)
	if err != nil {
		return nil, err
	}
	policy := meta.PresencePolicy
	if !policy.Valid() {
		policy = s.cfg.DefaultPresencePolicy
	}
	checkpoints, err := s.checkpoints.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checkpoints")
	}
	marks, err := s.marks.GetMarks(ctx, participantID, eventID)
	if err != nil {
		return nil, err
	}

	result := ComputeCompletion(strategy, policy, checkpoints, marks)
	result.EventID = eventID
	result.ParticipantID = participantID
	return &result, nil
}

// EventStats summarises completion across an event's registrants.
type EventStats struct {
	EventID      string                    `json:"event_id"`
	Strategy     models.Strategy           `json:"strategy"`
	Participants int                       `json:"participants"`
	ByStatus     map[string]int            `json:"by_status"`
	Results      []models.CompletionResult `json:"results"`
}

// ComputeEvent evaluates every registered participant. Per-participant
// failures abort; stats over a partial roster would be misleading.
func (s *CompletionService) ComputeEvent(ctx context.Context, eventID string) (*EventStats, error) {
	strategy, err := s.strategies.EffectiveStrategy(ctx, eventID)
	if err != nil {
		return nil, err
	}
	roster, err := s.participants.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participants")
	}

	stats := &EventStats{
		EventID:      eventID,
		Strategy:     strategy,
		Participants: len(roster),
		ByStatus:     make(map[string]int),
		Results:      make([]models.CompletionResult, 0, len(roster)),
	}
	for _, p := range roster {
		result, err := s.Compute(ctx, eventID, p.ID)
		if err != nil {
			return nil, err
		}
		stats.ByStatus[string(result.OverallStatus)]++
		stats.Results = append(stats.Results, *result)
	}
	return stats, nil
}

// Invalidate drops cached results after a mark write. An empty
// participantID clears the whole event.
func (s *CompletionService) Invalidate(ctx context.Context, eventID, participantID string) error {
	if !s.cacheEnabled() {
		return nil
	}
	pattern := completionCacheKey(eventID, "*")
	if participantID != "" {
		pattern = completionCacheKey(eventID, participantID)
	}
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("completion cache invalidation failed",
			zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}

func (s *CompletionService) cacheEnabled() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}
