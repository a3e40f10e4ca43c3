package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
	"github.com/campuspulse/attendance-api/pkg/signing"
)

// fakeTokenRepo reproduces the conditional-update consume semantics of
// the SQL layer behind a mutex.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.VerificationToken
	seq    int
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*models.VerificationToken)}
}

func (f *fakeTokenRepo) Insert(_ context.Context, token *models.VerificationToken) (*models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	copied := *token
	copied.ID = fmt.Sprintf("tok-%d", f.seq)
	f.tokens[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (f *fakeTokenRepo) GetByID(_ context.Context, tokenID string) (*models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	out := *token
	return &out, nil
}

func (f *fakeTokenRepo) ConsumeUse(_ context.Context, tokenID string, now time.Time) (*models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	if now.After(token.ExpiresAt) {
		return nil, appErrors.ErrTokenExpired
	}
	if token.MaxUses != nil && token.UseCount >= *token.MaxUses {
		return nil, appErrors.ErrTokenExhausted
	}
	token.UseCount++
	out := *token
	return &out, nil
}

func (f *fakeTokenRepo) UpdateMaxUses(_ context.Context, tokenID string, maxUses *int) (*models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[tokenID]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	token.MaxUses = maxUses
	out := *token
	return &out, nil
}

func (f *fakeTokenRepo) SupersedeActiveCodes(_ context.Context, eventID string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.Scope == models.ScopeRotatingCode && token.EventID == eventID && token.SupersededAt == nil && token.ExpiresAt.After(now) {
			superseded := now
			token.SupersededAt = &superseded
		}
	}
	return nil
}

func (f *fakeTokenRepo) ActiveCodes(_ context.Context, eventID string, now time.Time) ([]models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VerificationToken
	for _, token := range f.tokens {
		if token.Scope == models.ScopeRotatingCode && token.EventID == eventID && token.ExpiresAt.After(now) {
			out = append(out, *token)
		}
	}
	return out, nil
}

func (f *fakeTokenRepo) ActiveSessionToken(_ context.Context, checkpointID string, now time.Time) (*models.VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.Scope == models.ScopeSessionQR && token.CheckpointID != nil && *token.CheckpointID == checkpointID && token.ExpiresAt.After(now) {
			out := *token
			return &out, nil
		}
	}
	return nil, nil
}

type fakeParticipation struct {
	mu            sync.Mutex
	recorded      []RecordMarkRequest
	prior         *models.ParticipationMark
	reusedByOther bool
}

func (f *fakeParticipation) RecordMark(_ context.Context, req RecordMarkRequest) (*models.ParticipationMark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, req)
	return &models.ParticipationMark{
		ID:            fmt.Sprintf("mark-%d", len(f.recorded)),
		EventID:       req.EventID,
		CheckpointID:  req.CheckpointID,
		ParticipantID: req.ParticipantID,
		Layer:         models.MarkLayer(req.Layer),
		Marked:        true,
	}, nil
}

func (f *fakeParticipation) PriorPhysicalMark(context.Context, string, string) (*models.ParticipationMark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prior, nil
}

func (f *fakeParticipation) FingerprintUsedByOther(context.Context, string, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reusedByOther, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []models.VerificationAudit
}

func (f *fakeAuditRepo) Insert(_ context.Context, entry *models.VerificationAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByEvent(_ context.Context, _ string, _, _ int) ([]models.VerificationAudit, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, len(f.entries), nil
}

func (f *fakeAuditRepo) outcomes(outcome string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.Outcome == outcome {
			count++
		}
	}
	return count
}

type verificationFixture struct {
	svc           *VerificationService
	tokens        *fakeTokenRepo
	participation *fakeParticipation
	audit         *fakeAuditRepo
	registrations *fakeRegistrations
	checkpoint    *models.CheckpointDefinition
	now           time.Time
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	checkpoint := &models.CheckpointDefinition{
		ID:        "cp-1",
		EventID:   "evt-1",
		Name:      "Session 1",
		Type:      models.CheckpointSession,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Weight:    1.0,
	}
	fixture := &verificationFixture{
		tokens:        newFakeTokenRepo(),
		participation: &fakeParticipation{},
		audit:         &fakeAuditRepo{},
		registrations: &fakeRegistrations{registered: map[string]bool{}},
		checkpoint:    checkpoint,
		now:           now,
	}
	checkpoints := &fakeCheckpointReader{checkpoints: map[string]*models.CheckpointDefinition{"cp-1": checkpoint}}
	fixture.svc = NewVerificationService(
		fixture.tokens, fixture.registrations, fixture.participation, checkpoints,
		fixture.audit, signing.NewQRSigner("test-secret"), nil,
		VerificationConfig{GraceWindow: 10 * time.Minute, CodeLength: 6, CodeRotationInterval: 5 * time.Minute},
		zap.NewNop(),
	)
	fixture.svc.now = func() time.Time { return fixture.now }
	return fixture
}

func (fx *verificationFixture) register(participantID string) {
	fx.registrations.registered[participantID+"/evt-1"] = true
}

func (fx *verificationFixture) issueQR(t *testing.T, maxUses *int) string {
	t.Helper()
	result, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", maxUses, operatorClaims())
	require.NoError(t, err)
	return result.QRPayload
}

func TestIssueSessionTokenWindow(t *testing.T) {
	fx := newVerificationFixture(t)

	result, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", nil, operatorClaims())
	require.NoError(t, err)
	assert.Equal(t, models.ScopeSessionQR, result.Token.Scope)
	assert.Equal(t, fx.checkpoint.EndTime.Add(10*time.Minute), result.Token.ExpiresAt)
	assert.NotEmpty(t, result.QRPayload)
}

func TestIssueSessionTokenReusesActive(t *testing.T) {
	fx := newVerificationFixture(t)

	first, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", nil, operatorClaims())
	require.NoError(t, err)
	second, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", nil, operatorClaims())
	require.NoError(t, err)
	assert.Equal(t, first.Token.ID, second.Token.ID)
}

func TestIssueSessionTokenRefreshesUseLimit(t *testing.T) {
	fx := newVerificationFixture(t)

	first, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", nil, operatorClaims())
	require.NoError(t, err)
	require.Nil(t, first.Token.MaxUses)

	limit := 5
	second, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", &limit, operatorClaims())
	require.NoError(t, err)
	assert.Equal(t, first.Token.ID, second.Token.ID)
	require.NotNil(t, second.Token.MaxUses)
	assert.Equal(t, 5, *second.Token.MaxUses)
}

func TestIssueSessionTokenRequiresOperator(t *testing.T) {
	fx := newVerificationFixture(t)

	_, err := fx.svc.IssueSessionToken(context.Background(), "cp-1", nil, &models.JWTClaims{UserID: "u", Role: models.RoleParticipant})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestScanRecordsPhysicalMark(t *testing.T) {
	fx := newVerificationFixture(t)
	fx.register("user-1")
	payload := fx.issueQR(t, nil)

	mark, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-1",
		DeviceFingerprint: "device-abc",
	}, operatorClaims())
	require.NoError(t, err)
	assert.Equal(t, models.LayerPhysical, mark.Layer)
	assert.Equal(t, 1, fx.audit.outcomes(models.AuditOutcomeAccepted))

	require.Len(t, fx.participation.recorded, 1)
	recorded := fx.participation.recorded[0]
	assert.Equal(t, string(models.MethodOperatorScan), recorded.Method)
	require.NotNil(t, recorded.DeviceFingerprint)
	assert.Equal(t, "device-abc", *recorded.DeviceFingerprint)
	require.NotNil(t, recorded.TokenID)
}

func TestScanOutsideWindowRejected(t *testing.T) {
	fx := newVerificationFixture(t)
	fx.register("user-1")
	payload := fx.issueQR(t, nil)

	fx.now = fx.checkpoint.EndTime.Add(11 * time.Minute)
	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-1",
		DeviceFingerprint: "device-abc",
	}, operatorClaims())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExpired))
	assert.Equal(t, 1, fx.audit.outcomes(models.AuditOutcomeRejected))
}

func TestScanUnregisteredRejected(t *testing.T) {
	fx := newVerificationFixture(t)
	payload := fx.issueQR(t, nil)

	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "stranger",
		DeviceFingerprint: "device-abc",
	}, operatorClaims())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotRegistered))
	assert.Equal(t, 1, fx.audit.outcomes(models.AuditOutcomeRejected))
}

func TestScanExhaustedTokenRejectedBeforeRegistrationCheck(t *testing.T) {
	fx := newVerificationFixture(t)
	fx.register("user-1")
	maxUses := 1
	payload := fx.issueQR(t, &maxUses)

	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-1",
		DeviceFingerprint: "device-abc",
	}, operatorClaims())
	require.NoError(t, err)

	// An unregistered participant scanning a spent token sees the token
	// state, not their registration status.
	_, err = fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "stranger",
		DeviceFingerprint: "device-other",
	}, operatorClaims())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenExhausted))
	assert.Len(t, fx.participation.recorded, 1)
}

func TestScanDeviceMismatchRejected(t *testing.T) {
	fx := newVerificationFixture(t)
	fx.register("user-1")
	payload := fx.issueQR(t, nil)
	original := "device-abc"
	fx.participation.prior = &models.ParticipationMark{
		ID: "mark-1", ParticipantID: "user-1", CheckpointID: "cp-1",
		Layer: models.LayerPhysical, Marked: true, DeviceFingerprint: &original,
	}

	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-1",
		DeviceFingerprint: "device-other",
	}, operatorClaims())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateDeviceMismatch))
	assert.Empty(t, fx.participation.recorded)
}

func TestScanSuspectedProxyNeedsOverride(t *testing.T) {
	fx := newVerificationFixture(t)
	fx.register("user-2")
	payload := fx.issueQR(t, nil)
	fx.participation.reusedByOther = true

	// Without an override the scan is rejected.
	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-2",
		DeviceFingerprint: "device-abc",
	}, operatorClaims())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSuspectedProxy))

	// An operator override records the mark with an audited outcome.
	mark, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-2",
		DeviceFingerprint: "device-abc",
		Override:          true,
	}, operatorClaims())
	require.NoError(t, err)
	assert.True(t, mark.Marked)
	assert.Equal(t, 1, fx.audit.outcomes(models.AuditOutcomeOverrideAccepted))
	assert.Equal(t, 1, fx.audit.outcomes(models.AuditOutcomeRejected))
}

func TestScanOverrideRequiresOperatorRole(t *testing.T) {
	fx := newVerificationFixture(t)
	fx.register("user-2")
	payload := fx.issueQR(t, nil)
	fx.participation.reusedByOther = true

	_, err := fx.svc.Scan(context.Background(), ScanRequest{
		QRPayload:         payload,
		ParticipantID:     "user-2",
		DeviceFingerprint: "device-abc",
		Override:          true,
	}, &models.JWTClaims{UserID: "user-2", Role: models.RoleParticipant})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSuspectedProxy))
}

func TestScanSingleUseTokenUnderContention(t *testing.T) {
	fx := newVerificationFixture(t)
	maxUses := 1
	payload := fx.issueQR(t, &maxUses)

	const attempts = 50
	for i := 0; i < attempts; i++ {
		fx.register(fmt.Sprintf("user-%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Scan(context.Background(), ScanRequest{
				QRPayload:         payload,
				ParticipantID:     fmt.Sprintf("user-%d", i),
				DeviceFingerprint: fmt.Sprintf("device-%d", i),
			}, operatorClaims())
		}(i)
	}
	wg.Wait()

	succeeded, exhausted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case appErrors.Is(err, appErrors.ErrTokenExhausted):
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, exhausted)
	assert.Len(t, fx.participation.recorded, 1)
}

func TestRotatingCodeRoundTrip(t *testing.T) {
	fx := newVerificationFixture(t)

	issued, err := fx.svc.IssueRotatingCode(context.Background(), "evt-1", operatorClaims())
	require.NoError(t, err)
	assert.Len(t, issued.Code, 6)
	assert.Equal(t, fx.now.Add(5*time.Minute), issued.ExpiresAt)

	token, err := fx.svc.ValidateAccessCode(context.Background(), "evt-1", issued.Code)
	require.NoError(t, err)
	assert.Equal(t, issued.TokenID, token.ID)

	_, err = fx.svc.ValidateAccessCode(context.Background(), "evt-1", "000000")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCode))
}

func TestRotatingCodeSupersededStaysValidUntilExpiry(t *testing.T) {
	fx := newVerificationFixture(t)

	first, err := fx.svc.IssueRotatingCode(context.Background(), "evt-1", operatorClaims())
	require.NoError(t, err)

	fx.now = fx.now.Add(3 * time.Minute)
	second, err := fx.svc.IssueRotatingCode(context.Background(), "evt-1", operatorClaims())
	require.NoError(t, err)

	// The superseded code still validates until its own expiry.
	_, err = fx.svc.ValidateAccessCode(context.Background(), "evt-1", first.Code)
	assert.NoError(t, err)
	_, err = fx.svc.ValidateAccessCode(context.Background(), "evt-1", second.Code)
	assert.NoError(t, err)

	// Past the first code's expiry only the fresh one remains.
	fx.now = first.ExpiresAt.Add(time.Second)
	_, err = fx.svc.ValidateAccessCode(context.Background(), "evt-1", first.Code)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCode))
	_, err = fx.svc.ValidateAccessCode(context.Background(), "evt-1", second.Code)
	assert.NoError(t, err)
}

func TestListAuditRequiresOperator(t *testing.T) {
	fx := newVerificationFixture(t)

	_, _, err := fx.svc.ListAudit(context.Background(), "evt-1", 1, 20, &models.JWTClaims{UserID: "u", Role: models.RoleParticipant})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
