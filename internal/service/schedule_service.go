package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

// ScheduleService exposes the synthesized schedule for organizer preview
// and edit. Edits are re-validated against the schedule invariants; the
// schedule freezes once the event window closes.
type ScheduleService struct {
	events      eventMetaReader
	checkpoints scheduleWriter
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewScheduleService constructs the service.
func NewScheduleService(events eventMetaReader, checkpoints scheduleWriter, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		events:      events,
		checkpoints: checkpoints,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns the event's current checkpoint schedule.
func (s *ScheduleService) List(ctx context.Context, eventID string) ([]models.CheckpointDefinition, error) {
	checkpoints, err := s.checkpoints.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return checkpoints, nil
}

// CheckpointEdit is one checkpoint in an organizer's replacement schedule.
type CheckpointEdit struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"required"`
	Type         string    `json:"type" validate:"required"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required"`
	Weight       float64   `json:"weight" validate:"required"`
	Mandatory    bool      `json:"mandatory"`
	NonExclusive bool      `json:"non_exclusive"`
}

// ReplaceRequest carries the full edited schedule.
type ReplaceRequest struct {
	Checkpoints []CheckpointEdit `json:"checkpoints" validate:"required,min=1,dive"`
}

// Replace validates and stores an organizer-edited schedule. Violations
// of the ordering or overlap invariants are rejected with the offending
// checkpoints named, never auto-corrected.
func (s *ScheduleService) Replace(ctx context.Context, eventID string, req ReplaceRequest, actor *models.JWTClaims) ([]models.CheckpointDefinition, error) {
	if actor == nil || !actor.Role.CanOrganize() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	meta, err := s.events.GetMeta(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if meta.Finished(s.now()) {
		return nil, appErrors.ErrScheduleFinalized
	}

	checkpoints := make([]models.CheckpointDefinition, len(req.Checkpoints))
	for i, edit := range req.Checkpoints {
		checkpoints[i] = models.CheckpointDefinition{
			ID:           edit.ID,
			EventID:      eventID,
			Name:         edit.Name,
			Type:         models.CheckpointType(edit.Type),
			StartTime:    edit.StartTime,
			EndTime:      edit.EndTime,
			Weight:       edit.Weight,
			Mandatory:    edit.Mandatory,
			NonExclusive: edit.NonExclusive,
			Position:     i,
		}
	}
	if err := ValidateSchedule(*meta, checkpoints); err != nil {
		return nil, err
	}

	stored, err := s.checkpoints.ReplaceForEvent(ctx, eventID, checkpoints)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule")
	}
	s.logger.Info("schedule replaced",
		zap.String("event_id", eventID),
		zap.Int("checkpoints", len(stored)),
		zap.String("actor_id", actor.UserID))
	return stored, nil
}
