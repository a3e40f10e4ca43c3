package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

type marksRenderer interface {
	RenderMarks(marks []models.CheckpointMarkRecord) ([]byte, error)
}

type sheetRenderer interface {
	RenderSignInSheet(event models.EventMeta, checkpoint models.CheckpointDefinition, participants []models.Participant) ([]byte, error)
}

type checkpointMarksLister interface {
	GetCheckpointMarks(ctx context.Context, checkpointID string) ([]models.CheckpointMarkRecord, error)
}

// ExportService renders checkpoint rosters to CSV and printable PDF.
type ExportService struct {
	events        eventMetaReader
	checkpoints   checkpointReader
	participation checkpointMarksLister
	participants  participantLister
	csv           marksRenderer
	pdf           sheetRenderer
	logger        *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(events eventMetaReader, checkpoints checkpointReader, participation checkpointMarksLister, participants participantLister, csv marksRenderer, pdf sheetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		events:        events,
		checkpoints:   checkpoints,
		participation: participation,
		participants:  participants,
		csv:           csv,
		pdf:           pdf,
		logger:        logger,
	}
}

// MarksCSV renders a checkpoint's recorded marks as CSV.
func (s *ExportService) MarksCSV(ctx context.Context, checkpointID string, actor *models.JWTClaims) ([]byte, error) {
	if actor == nil || !actor.Role.CanOperate() {
		return nil, appErrors.ErrForbidden
	}
	marks, err := s.participation.GetCheckpointMarks(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.RenderMarks(marks)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// SignInSheet renders a printable fallback sheet for a checkpoint, with
// one signature row per registered participant.
func (s *ExportService) SignInSheet(ctx context.Context, checkpointID string, actor *models.JWTClaims) ([]byte, error) {
	if actor == nil || !actor.Role.CanOperate() {
		return nil, appErrors.ErrForbidden
	}
	checkpoint, err := s.checkpoints.GetByID(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	meta, err := s.events.GetMeta(ctx, checkpoint.EventID)
	if err != nil {
		return nil, err
	}
	roster, err := s.participants.ListParticipants(ctx, checkpoint.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load participants")
	}
	data, err := s.pdf.RenderSignInSheet(*meta, *checkpoint, roster)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render sheet")
	}
	return data, nil
}
