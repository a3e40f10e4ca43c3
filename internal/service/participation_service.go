package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/events"
)

type markRepository interface {
	UpsertVirtual(ctx context.Context, mark *models.ParticipationMark) (*models.ParticipationMark, error)
	InsertPhysical(ctx context.Context, mark *models.ParticipationMark) (*models.ParticipationMark, bool, error)
	Find(ctx context.Context, participantID, checkpointID string, layer models.MarkLayer) (*models.ParticipationMark, error)
	ListByParticipant(ctx context.Context, participantID, eventID string) ([]models.ParticipationMark, error)
	ListByCheckpoint(ctx context.Context, checkpointID string) ([]models.CheckpointMarkRecord, error)
	FingerprintUsedByOther(ctx context.Context, eventID, fingerprint, participantID string) (bool, error)
	SetDisputed(ctx context.Context, markID string) error
}

type checkpointReader interface {
	GetByID(ctx context.Context, checkpointID string) (*models.CheckpointDefinition, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.CheckpointDefinition, error)
}

type completionInvalidator interface {
	Invalidate(ctx context.Context, eventID, participantID string) error
}

// ParticipationService owns the participation record: one mark per
// (participant, checkpoint, layer), virtual last-writer-wins, physical
// conflict-checked on device fingerprint.
type ParticipationService struct {
	marks         markRepository
	checkpoints   checkpointReader
	registrations registrationChecker
	invalidator   completionInvalidator
	dispatcher    *events.Dispatcher
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewParticipationService constructs the service.
func NewParticipationService(marks markRepository, checkpoints checkpointReader, registrations registrationChecker, invalidator completionInvalidator, dispatcher *events.Dispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ParticipationService{
		marks:         marks,
		checkpoints:   checkpoints,
		registrations: registrations,
		invalidator:   invalidator,
		dispatcher:    dispatcher,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
	svc.validator.RegisterValidation("mark_layer", func(fl validator.FieldLevel) bool {
		return models.MarkLayer(fl.Field().String()).Valid()
	})
	svc.validator.RegisterValidation("mark_method", func(fl validator.FieldLevel) bool {
		return models.MarkMethod(fl.Field().String()).Valid()
	})
	return svc
}

// SetInvalidator wires the completion cache invalidator. The completion
// service reads marks through this service, so the link is set after
// both are constructed.
func (s *ParticipationService) SetInvalidator(invalidator completionInvalidator) {
	s.invalidator = invalidator
}

// RecordMarkRequest describes one mark to record.
type RecordMarkRequest struct {
	EventID           string     `json:"event_id" validate:"required"`
	CheckpointID      string     `json:"checkpoint_id" validate:"required"`
	ParticipantID     string     `json:"participant_id" validate:"required"`
	Layer             string     `json:"layer" validate:"required,mark_layer"`
	Method            string     `json:"method" validate:"required,mark_method"`
	ActorID           string     `json:"-"`
	ActorRole         string     `json:"-"`
	DeviceFingerprint *string    `json:"device_fingerprint,omitempty"`
	TokenID           *string    `json:"-"`
	MarkedAt          *time.Time `json:"marked_at,omitempty"`
}

// RecordMark stores one mark. Virtual marks may be re-recorded
// (self-correction); a physical re-mark from a different device is
// rejected with DUPLICATE_DEVICE_MISMATCH, while an identical retry is
// idempotent and returns the stored row unchanged.
func (s *ParticipationService) RecordMark(ctx context.Context, req RecordMarkRequest) (*models.ParticipationMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	layer := models.MarkLayer(req.Layer)
	if layer == models.LayerPhysical && (req.DeviceFingerprint == nil || *req.DeviceFingerprint == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "physical marks require a device fingerprint")
	}

	checkpoint, err := s.checkpoints.GetByID(ctx, req.CheckpointID)
	if err != nil {
		return nil, err
	}
	if checkpoint.EventID != req.EventID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "checkpoint does not belong to event")
	}

	markedAt := time.Now().UTC()
	if req.MarkedAt != nil {
		markedAt = req.MarkedAt.UTC()
	}
	mark := &models.ParticipationMark{
		EventID:           req.EventID,
		CheckpointID:      req.CheckpointID,
		ParticipantID:     req.ParticipantID,
		Layer:             layer,
		Marked:            true,
		MarkedAt:          markedAt,
		Method:            models.MarkMethod(req.Method),
		ActorID:           req.ActorID,
		ActorRole:         req.ActorRole,
		DeviceFingerprint: req.DeviceFingerprint,
		TokenID:           req.TokenID,
	}

	var stored *models.ParticipationMark
	switch layer {
	case models.LayerVirtual:
		stored, err = s.marks.UpsertVirtual(ctx, mark)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record mark")
		}
	case models.LayerPhysical:
		var inserted bool
		stored, inserted, err = s.marks.InsertPhysical(ctx, mark)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record mark")
		}
		if !inserted {
			// Operator-attested marks must not be spoofable by a later
			// write from another device. The surviving mark is flagged
			// disputed so it reads as physical_only pending review.
			if !sameFingerprint(stored.DeviceFingerprint, mark.DeviceFingerprint) {
				if err := s.marks.SetDisputed(ctx, stored.ID); err != nil {
					s.logger.Warn("failed to flag disputed mark", zap.String("mark_id", stored.ID), zap.Error(err))
				} else if s.invalidator != nil {
					if err := s.invalidator.Invalidate(ctx, req.EventID, req.ParticipantID); err != nil {
						s.logger.Warn("completion invalidation failed", zap.Error(err))
					}
				}
				return nil, appErrors.ErrDuplicateDeviceMismatch
			}
			return stored, nil
		}
	}

	s.metrics.RecordMark(string(layer), string(mark.Method))
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, req.EventID, req.ParticipantID); err != nil {
			s.logger.Warn("completion invalidation failed", zap.Error(err))
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.Publish(events.Event{
			Type:          events.TypeCheckpointMarked,
			EventID:       req.EventID,
			CheckpointID:  req.CheckpointID,
			ParticipantID: req.ParticipantID,
		})
	}
	return stored, nil
}

// BulkOverrideItem is one entry in an operator bulk import.
type BulkOverrideItem struct {
	ParticipantID string `json:"participant_id" validate:"required"`
	CheckpointID  string `json:"checkpoint_id" validate:"required"`
	Layer         string `json:"layer" validate:"required,mark_layer"`
}

// BulkOverrideRequest is an operator's manual bulk mark import.
type BulkOverrideRequest struct {
	Items []BulkOverrideItem `json:"items" validate:"required,min=1,dive"`
}

// BulkOverrideResult summarises a bulk import.
type BulkOverrideResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failures  []string `json:"failures,omitempty"`
}

// BulkOverride records marks best-effort for operator corrections.
// Individual conflicts are reported, not fatal.
func (s *ParticipationService) BulkOverride(ctx context.Context, eventID string, req BulkOverrideRequest, actor *models.JWTClaims) (*BulkOverrideResult, error) {
	if actor == nil || !actor.Role.CanOperate() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}

	result := &BulkOverrideResult{Processed: len(req.Items)}
	for _, item := range req.Items {
		_, err := s.RecordMark(ctx, RecordMarkRequest{
			EventID:       eventID,
			CheckpointID:  item.CheckpointID,
			ParticipantID: item.ParticipantID,
			Layer:         item.Layer,
			Method:        string(models.MethodBulkImport),
			ActorID:       actor.UserID,
			ActorRole:     string(actor.Role),
		})
		if err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("%s/%s: %s", item.ParticipantID, item.CheckpointID, appErrors.FromError(err).Code))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// SelfReport records a participant's own virtual mark. Virtual marks are
// unverified intent; re-reporting overwrites the previous record.
func (s *ParticipationService) SelfReport(ctx context.Context, eventID, checkpointID string, actor *models.JWTClaims) (*models.ParticipationMark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.registrations != nil {
		registered, err := s.registrations.IsRegistered(ctx, actor.UserID, eventID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
		}
		if !registered {
			return nil, appErrors.ErrNotRegistered
		}
	}
	return s.RecordMark(ctx, RecordMarkRequest{
		EventID:       eventID,
		CheckpointID:  checkpointID,
		ParticipantID: actor.UserID,
		Layer:         string(models.LayerVirtual),
		Method:        string(models.MethodSelfReport),
		ActorID:       actor.UserID,
		ActorRole:     string(actor.Role),
	})
}

// GetMarks returns all marks a participant holds for an event.
func (s *ParticipationService) GetMarks(ctx context.Context, participantID, eventID string) ([]models.ParticipationMark, error) {
	marks, err := s.marks.ListByParticipant(ctx, participantID, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	return marks, nil
}

// GetCheckpointMarks returns a checkpoint's marks for operator review.
func (s *ParticipationService) GetCheckpointMarks(ctx context.Context, checkpointID string) ([]models.CheckpointMarkRecord, error) {
	records, err := s.marks.ListByCheckpoint(ctx, checkpointID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load checkpoint marks")
	}
	return records, nil
}

// PriorPhysicalMark returns the stored physical mark for the tuple, if any.
func (s *ParticipationService) PriorPhysicalMark(ctx context.Context, participantID, checkpointID string) (*models.ParticipationMark, error) {
	return s.marks.Find(ctx, participantID, checkpointID, models.LayerPhysical)
}

// FingerprintUsedByOther exposes the anti-proxy reuse check.
func (s *ParticipationService) FingerprintUsedByOther(ctx context.Context, eventID, fingerprint, participantID string) (bool, error) {
	return s.marks.FingerprintUsedByOther(ctx, eventID, fingerprint, participantID)
}

func sameFingerprint(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
