package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

type fakeMarkRepo struct {
	stored        map[string]*models.ParticipationMark
	upsertCalls   int
	insertCalls   int
	reusedByOther bool
}

func newFakeMarkRepo() *fakeMarkRepo {
	return &fakeMarkRepo{stored: make(map[string]*models.ParticipationMark)}
}

func markKey(participantID, checkpointID string, layer models.MarkLayer) string {
	return participantID + "/" + checkpointID + "/" + string(layer)
}

func (f *fakeMarkRepo) UpsertVirtual(_ context.Context, mark *models.ParticipationMark) (*models.ParticipationMark, error) {
	f.upsertCalls++
	copied := *mark
	copied.ID = "mark-virtual"
	f.stored[markKey(mark.ParticipantID, mark.CheckpointID, models.LayerVirtual)] = &copied
	return &copied, nil
}

func (f *fakeMarkRepo) InsertPhysical(_ context.Context, mark *models.ParticipationMark) (*models.ParticipationMark, bool, error) {
	f.insertCalls++
	key := markKey(mark.ParticipantID, mark.CheckpointID, models.LayerPhysical)
	if existing, ok := f.stored[key]; ok {
		return existing, false, nil
	}
	copied := *mark
	copied.ID = "mark-physical"
	f.stored[key] = &copied
	return &copied, true, nil
}

func (f *fakeMarkRepo) Find(_ context.Context, participantID, checkpointID string, layer models.MarkLayer) (*models.ParticipationMark, error) {
	return f.stored[markKey(participantID, checkpointID, layer)], nil
}

func (f *fakeMarkRepo) ListByParticipant(_ context.Context, participantID, eventID string) ([]models.ParticipationMark, error) {
	var out []models.ParticipationMark
	for _, m := range f.stored {
		if m.ParticipantID == participantID && m.EventID == eventID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMarkRepo) ListByCheckpoint(_ context.Context, checkpointID string) ([]models.CheckpointMarkRecord, error) {
	var out []models.CheckpointMarkRecord
	for _, m := range f.stored {
		if m.CheckpointID == checkpointID {
			out = append(out, models.CheckpointMarkRecord{ParticipationMark: *m})
		}
	}
	return out, nil
}

func (f *fakeMarkRepo) FingerprintUsedByOther(_ context.Context, _, _, _ string) (bool, error) {
	return f.reusedByOther, nil
}

func (f *fakeMarkRepo) SetDisputed(_ context.Context, markID string) error {
	for _, m := range f.stored {
		if m.ID == markID {
			m.Disputed = true
		}
	}
	return nil
}

type fakeCheckpointReader struct {
	checkpoints map[string]*models.CheckpointDefinition
}

func (f *fakeCheckpointReader) GetByID(_ context.Context, checkpointID string) (*models.CheckpointDefinition, error) {
	cp, ok := f.checkpoints[checkpointID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return cp, nil
}

func (f *fakeCheckpointReader) ListByEvent(_ context.Context, eventID string) ([]models.CheckpointDefinition, error) {
	var out []models.CheckpointDefinition
	for _, cp := range f.checkpoints {
		if cp.EventID == eventID {
			out = append(out, *cp)
		}
	}
	return out, nil
}

type fakeRegistrations struct {
	registered map[string]bool
}

func (f *fakeRegistrations) IsRegistered(_ context.Context, participantID, eventID string) (bool, error) {
	return f.registered[participantID+"/"+eventID], nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context, string, string) error {
	f.calls++
	return nil
}

func newTestParticipationService(marks *fakeMarkRepo, registered bool) (*ParticipationService, *fakeInvalidator) {
	checkpoints := &fakeCheckpointReader{checkpoints: map[string]*models.CheckpointDefinition{
		"cp-1": {ID: "cp-1", EventID: "evt-1", Name: "Session 1", Type: models.CheckpointSession, Weight: 1.0},
	}}
	registrations := &fakeRegistrations{registered: map[string]bool{}}
	if registered {
		registrations.registered["user-1/evt-1"] = true
	}
	invalidator := &fakeInvalidator{}
	svc := NewParticipationService(marks, checkpoints, registrations, invalidator, nil, nil, nil, zap.NewNop())
	return svc, invalidator
}

func operatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "op-1", Role: models.RoleOperator}
}

func TestRecordMarkVirtualOverwrites(t *testing.T) {
	marks := newFakeMarkRepo()
	svc, invalidator := newTestParticipationService(marks, true)

	req := RecordMarkRequest{
		EventID: "evt-1", CheckpointID: "cp-1", ParticipantID: "user-1",
		Layer: string(models.LayerVirtual), Method: string(models.MethodSelfReport),
		ActorID: "user-1", ActorRole: string(models.RoleParticipant),
	}
	first, err := svc.RecordMark(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Marked)

	_, err = svc.RecordMark(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, marks.upsertCalls)
	assert.Equal(t, 2, invalidator.calls)
}

func TestRecordMarkPhysicalRequiresFingerprint(t *testing.T) {
	svc, _ := newTestParticipationService(newFakeMarkRepo(), true)

	_, err := svc.RecordMark(context.Background(), RecordMarkRequest{
		EventID: "evt-1", CheckpointID: "cp-1", ParticipantID: "user-1",
		Layer: string(models.LayerPhysical), Method: string(models.MethodOperatorScan),
		ActorID: "op-1", ActorRole: string(models.RoleOperator),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRecordMarkPhysicalIdempotentSameDevice(t *testing.T) {
	marks := newFakeMarkRepo()
	svc, _ := newTestParticipationService(marks, true)
	fingerprint := "device-abc"

	req := RecordMarkRequest{
		EventID: "evt-1", CheckpointID: "cp-1", ParticipantID: "user-1",
		Layer: string(models.LayerPhysical), Method: string(models.MethodOperatorScan),
		ActorID: "op-1", ActorRole: string(models.RoleOperator),
		DeviceFingerprint: &fingerprint,
	}
	first, err := svc.RecordMark(context.Background(), req)
	require.NoError(t, err)

	retry, err := svc.RecordMark(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)
	assert.Equal(t, 2, marks.insertCalls)
}

func TestRecordMarkPhysicalDeviceMismatchRejected(t *testing.T) {
	marks := newFakeMarkRepo()
	svc, _ := newTestParticipationService(marks, true)
	original := "device-abc"
	other := "device-xyz"

	req := RecordMarkRequest{
		EventID: "evt-1", CheckpointID: "cp-1", ParticipantID: "user-1",
		Layer: string(models.LayerPhysical), Method: string(models.MethodOperatorScan),
		ActorID: "op-1", ActorRole: string(models.RoleOperator),
		DeviceFingerprint: &original,
	}
	_, err := svc.RecordMark(context.Background(), req)
	require.NoError(t, err)

	req.DeviceFingerprint = &other
	_, err = svc.RecordMark(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateDeviceMismatch))

	// The stored mark keeps its original fingerprint but is now disputed.
	stored, err := svc.PriorPhysicalMark(context.Background(), "user-1", "cp-1")
	require.NoError(t, err)
	require.NotNil(t, stored.DeviceFingerprint)
	assert.Equal(t, original, *stored.DeviceFingerprint)
	assert.True(t, stored.Disputed)
}

func TestRecordMarkDeviceMismatchInvalidatesCompletion(t *testing.T) {
	marks := newFakeMarkRepo()
	svc, invalidator := newTestParticipationService(marks, true)
	original := "device-abc"
	other := "device-xyz"

	req := RecordMarkRequest{
		EventID: "evt-1", CheckpointID: "cp-1", ParticipantID: "user-1",
		Layer: string(models.LayerPhysical), Method: string(models.MethodOperatorScan),
		ActorID: "op-1", ActorRole: string(models.RoleOperator),
		DeviceFingerprint: &original,
	}
	_, err := svc.RecordMark(context.Background(), req)
	require.NoError(t, err)
	calls := invalidator.calls

	req.DeviceFingerprint = &other
	_, err = svc.RecordMark(context.Background(), req)
	require.Error(t, err)

	// The dispute changes the derived status, so the cached completion
	// result must be dropped even though the write was rejected.
	assert.Equal(t, calls+1, invalidator.calls)
}

func TestRecordMarkRejectsForeignCheckpoint(t *testing.T) {
	svc, _ := newTestParticipationService(newFakeMarkRepo(), true)

	_, err := svc.RecordMark(context.Background(), RecordMarkRequest{
		EventID: "evt-other", CheckpointID: "cp-1", ParticipantID: "user-1",
		Layer: string(models.LayerVirtual), Method: string(models.MethodSelfReport),
		ActorID: "user-1", ActorRole: string(models.RoleParticipant),
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSelfReportRequiresRegistration(t *testing.T) {
	svc, _ := newTestParticipationService(newFakeMarkRepo(), false)

	_, err := svc.SelfReport(context.Background(), "evt-1", "cp-1", &models.JWTClaims{UserID: "user-1", Role: models.RoleParticipant})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotRegistered))
}

func TestSelfReportRecordsVirtualMark(t *testing.T) {
	marks := newFakeMarkRepo()
	svc, _ := newTestParticipationService(marks, true)

	mark, err := svc.SelfReport(context.Background(), "evt-1", "cp-1", &models.JWTClaims{UserID: "user-1", Role: models.RoleParticipant})
	require.NoError(t, err)
	assert.Equal(t, models.LayerVirtual, mark.Layer)
	assert.Equal(t, models.MethodSelfReport, mark.Method)
	assert.Equal(t, "user-1", mark.ParticipantID)
	assert.WithinDuration(t, time.Now().UTC(), mark.MarkedAt, 5*time.Second)
}

func TestBulkOverrideRequiresOperator(t *testing.T) {
	svc, _ := newTestParticipationService(newFakeMarkRepo(), true)

	_, err := svc.BulkOverride(context.Background(), "evt-1", BulkOverrideRequest{
		Items: []BulkOverrideItem{{ParticipantID: "user-1", CheckpointID: "cp-1", Layer: string(models.LayerVirtual)}},
	}, &models.JWTClaims{UserID: "user-1", Role: models.RoleParticipant})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestBulkOverrideReportsPerItemFailures(t *testing.T) {
	svc, _ := newTestParticipationService(newFakeMarkRepo(), true)

	result, err := svc.BulkOverride(context.Background(), "evt-1", BulkOverrideRequest{
		Items: []BulkOverrideItem{
			{ParticipantID: "user-1", CheckpointID: "cp-1", Layer: string(models.LayerVirtual)},
			{ParticipantID: "user-2", CheckpointID: "cp-missing", Layer: string(models.LayerVirtual)},
		},
	}, operatorClaims())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "user-2/cp-missing")
}
