package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/events"
)

type eventMetaReader interface {
	GetMeta(ctx context.Context, eventID string) (*models.EventMeta, error)
}

type strategyDecisionRepository interface {
	Upsert(ctx context.Context, decision *models.StrategyDecision) (*models.StrategyDecision, error)
	Get(ctx context.Context, eventID string) (*models.StrategyDecision, error)
	SetOverride(ctx context.Context, eventID string, strategy models.Strategy, actorID string) (*models.StrategyDecision, error)
}

type scheduleWriter interface {
	ReplaceForEvent(ctx context.Context, eventID string, checkpoints []models.CheckpointDefinition) ([]models.CheckpointDefinition, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.CheckpointDefinition, error)
}

// StrategyService runs the classification pipeline: metadata to signals to
// decision to synthesized schedule.
type StrategyService struct {
	events      eventMetaReader
	decisions   strategyDecisionRepository
	checkpoints scheduleWriter
	dispatcher  *events.Dispatcher
	metrics     *MetricsService
	synthOpts   SynthesizerOptions
	logger      *zap.Logger
}

// NewStrategyService constructs the service.
func NewStrategyService(eventsRepo eventMetaReader, decisions strategyDecisionRepository, checkpoints scheduleWriter, dispatcher *events.Dispatcher, metrics *MetricsService, synthOpts SynthesizerOptions, logger *zap.Logger) *StrategyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyService{
		events:      eventsRepo,
		decisions:   decisions,
		checkpoints: checkpoints,
		dispatcher:  dispatcher,
		metrics:     metrics,
		synthOpts:   synthOpts,
		logger:      logger,
	}
}

// DecideResult bundles the decision with the synthesized schedule preview.
type DecideResult struct {
	Decision    *models.StrategyDecision      `json:"decision"`
	Signals     models.EventSignals           `json:"signals"`
	Checkpoints []models.CheckpointDefinition `json:"checkpoints"`
}

// Decide classifies the event, persists the decision and stores the
// synthesized starting schedule. Safe to re-run on event edits: the
// decision is replaced and the schedule regenerated.
func (s *StrategyService) Decide(ctx context.Context, eventID string) (*DecideResult, error) {
	meta, err := s.events.GetMeta(ctx, eventID)
	if err != nil {
		return nil, err
	}

	signals := ExtractSignals(*meta)
	decision := Classify(signals)
	decision.EventID = eventID

	stored, err := s.decisions.Upsert(ctx, &decision)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store strategy decision")
	}

	checkpoints, err := Synthesize(stored.Strategy, signals, *meta, s.synthOpts)
	if err != nil {
		return nil, err
	}
	checkpoints, err = s.checkpoints.ReplaceForEvent(ctx, eventID, checkpoints)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store synthesized schedule")
	}

	s.metrics.RecordStrategyDecision(string(stored.Strategy))
	if s.dispatcher != nil {
		s.dispatcher.Publish(events.Event{
			Type:     events.TypeStrategyDecided,
			EventID:  eventID,
			Strategy: string(stored.Strategy),
		})
	}
	s.logger.Info("strategy decided",
		zap.String("event_id", eventID),
		zap.String("strategy", string(stored.Strategy)),
		zap.Float64("confidence", stored.Confidence))

	return &DecideResult{Decision: stored, Signals: signals, Checkpoints: checkpoints}, nil
}

// Get returns the stored decision for an event.
func (s *StrategyService) Get(ctx context.Context, eventID string) (*models.StrategyDecision, error) {
	return s.decisions.Get(ctx, eventID)
}

// Override records an organizer override. The original decision is kept;
// the synthesized schedule is regenerated for the new strategy.
func (s *StrategyService) Override(ctx context.Context, eventID string, strategy models.Strategy, actor *models.JWTClaims) (*models.StrategyDecision, error) {
	if !strategy.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown strategy")
	}
	if actor == nil || !actor.Role.CanOrganize() {
		return nil, appErrors.ErrForbidden
	}

	meta, err := s.events.GetMeta(ctx, eventID)
	if err != nil {
		return nil, err
	}

	decision, err := s.decisions.SetOverride(ctx, eventID, strategy, actor.UserID)
	if err != nil {
		return nil, err
	}

	signals := ExtractSignals(*meta)
	checkpoints, err := Synthesize(strategy, signals, *meta, s.synthOpts)
	if err != nil {
		return nil, err
	}
	if _, err := s.checkpoints.ReplaceForEvent(ctx, eventID, checkpoints); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule for override")
	}

	s.logger.Info("strategy overridden",
		zap.String("event_id", eventID),
		zap.String("strategy", string(strategy)),
		zap.String("actor_id", actor.UserID))
	return decision, nil
}

// EffectiveStrategy resolves the strategy in force for an event.
func (s *StrategyService) EffectiveStrategy(ctx context.Context, eventID string) (models.Strategy, error) {
	decision, err := s.decisions.Get(ctx, eventID)
	if err != nil {
		return "", err
	}
	return decision.Effective(), nil
}
