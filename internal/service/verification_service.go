package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuspulse/attendance-api/internal/models"
	appErrors "github.com/campuspulse/attendance-api/pkg/errors"
)

type tokenRepository interface {
	Insert(ctx context.Context, token *models.VerificationToken) (*models.VerificationToken, error)
	GetByID(ctx context.Context, tokenID string) (*models.VerificationToken, error)
	ConsumeUse(ctx context.Context, tokenID string, now time.Time) (*models.VerificationToken, error)
	UpdateMaxUses(ctx context.Context, tokenID string, maxUses *int) (*models.VerificationToken, error)
	SupersedeActiveCodes(ctx context.Context, eventID string, now time.Time) error
	ActiveCodes(ctx context.Context, eventID string, now time.Time) ([]models.VerificationToken, error)
	ActiveSessionToken(ctx context.Context, checkpointID string, now time.Time) (*models.VerificationToken, error)
}

type registrationChecker interface {
	IsRegistered(ctx context.Context, participantID, eventID string) (bool, error)
}

type participationRecorder interface {
	RecordMark(ctx context.Context, req RecordMarkRequest) (*models.ParticipationMark, error)
	PriorPhysicalMark(ctx context.Context, participantID, checkpointID string) (*models.ParticipationMark, error)
	FingerprintUsedByOther(ctx context.Context, eventID, fingerprint, participantID string) (bool, error)
}

type auditWriter interface {
	Insert(ctx context.Context, entry *models.VerificationAudit) error
	ListByEvent(ctx context.Context, eventID string, page, pageSize int) ([]models.VerificationAudit, int, error)
}

type qrSigner interface {
	Generate(tokenID, checkpointID string, expiresAt time.Time) (string, error)
	Parse(payload string) (tokenID, checkpointID string, expiresAt time.Time, err error)
}

// VerificationConfig carries gateway tuning from the config layer.
type VerificationConfig struct {
	GraceWindow          time.Duration
	CodeLength           int
	CodeRotationInterval time.Duration
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.GraceWindow <= 0 {
		c.GraceWindow = 10 * time.Minute
	}
	if c.CodeLength <= 0 {
		c.CodeLength = 6
	}
	if c.CodeRotationInterval <= 0 {
		c.CodeRotationInterval = 5 * time.Minute
	}
	return c
}

// VerificationService issues and validates the two token scopes and runs
// the physical mark pipeline with its anti-proxy controls.
type VerificationService struct {
	tokens        tokenRepository
	registrations registrationChecker
	participation participationRecorder
	checkpoints   checkpointReader
	auditTrail    auditWriter
	signer        qrSigner
	metrics       *MetricsService
	cfg           VerificationConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewVerificationService constructs the service.
func NewVerificationService(tokens tokenRepository, registrations registrationChecker, participation participationRecorder, checkpoints checkpointReader, audit auditWriter, signer qrSigner, metrics *MetricsService, cfg VerificationConfig, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		tokens:        tokens,
		registrations: registrations,
		participation: participation,
		checkpoints:   checkpoints,
		auditTrail:    audit,
		signer:        signer,
		metrics:       metrics,
		cfg:           cfg.withDefaults(),
		logger:        logger,
		now:           time.Now,
	}
}

// SessionTokenResult returns an issued QR token with its scannable payload.
type SessionTokenResult struct {
	Token     *models.VerificationToken `json:"token"`
	QRPayload string                    `json:"qr_payload"`
}

// IssueSessionToken creates the shared QR token for a checkpoint, valid
// for the checkpoint window extended by the grace period on both sides.
// The token identifies where and when; the scanned participant identifies
// who.
func (s *VerificationService) IssueSessionToken(ctx context.Context, checkpointID string, maxUses *int, actor *models.JWTClaims) (*SessionTokenResult, error) {
	if actor == nil || !actor.Role.CanOperate() {
		return nil, appErrors.ErrForbidden
	}
	checkpoint, err := s.checkpoints.GetByID(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()

	if existing, err := s.tokens.ActiveSessionToken(ctx, checkpointID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up session token")
	} else if existing != nil {
		// An active token is reused, but a newly requested use limit
		// still takes effect on it.
		if maxUses != nil && !sameMaxUses(existing.MaxUses, maxUses) {
			existing, err = s.tokens.UpdateMaxUses(ctx, existing.ID, maxUses)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update token use limit")
			}
		}
		payload, err := s.signer.Generate(existing.ID, checkpointID, existing.ExpiresAt)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign qr payload")
		}
		return &SessionTokenResult{Token: existing, QRPayload: payload}, nil
	}

	token := &models.VerificationToken{
		Scope:        models.ScopeSessionQR,
		EventID:      checkpoint.EventID,
		CheckpointID: &checkpoint.ID,
		IssuedAt:     now,
		ExpiresAt:    checkpoint.EndTime.Add(s.cfg.GraceWindow),
		MaxUses:      maxUses,
		IssuedBy:     actor.UserID,
	}
	stored, err := s.tokens.Insert(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	payload, err := s.signer.Generate(stored.ID, checkpointID, stored.ExpiresAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign qr payload")
	}
	s.metrics.RecordTokenIssued(string(models.ScopeSessionQR))
	return &SessionTokenResult{Token: stored, QRPayload: payload}, nil
}

// RotatingCodeResult returns a freshly issued access code. The plaintext
// code is only available at issuance; storage keeps the bcrypt hash.
type RotatingCodeResult struct {
	TokenID   string    `json:"token_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueRotatingCode generates a fresh access code for the event and
// supersedes the previous one. The superseded code stays valid until its
// own expiry so in-flight validations do not race the refresh.
func (s *VerificationService) IssueRotatingCode(ctx context.Context, eventID string, actor *models.JWTClaims) (*RotatingCodeResult, error) {
	if actor == nil || !actor.Role.CanOperate() {
		return nil, appErrors.ErrForbidden
	}
	now := s.now().UTC()

	code, err := generateNumericCode(s.cfg.CodeLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access code")
	}

	if err := s.tokens.SupersedeActiveCodes(ctx, eventID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to supersede previous codes")
	}

	hashStr := string(hash)
	token := &models.VerificationToken{
		Scope:     models.ScopeRotatingCode,
		EventID:   eventID,
		CodeHash:  &hashStr,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.CodeRotationInterval),
		IssuedBy:  actor.UserID,
	}
	stored, err := s.tokens.Insert(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue access code")
	}

	s.metrics.RecordTokenIssued(string(models.ScopeRotatingCode))
	return &RotatingCodeResult{TokenID: stored.ID, Code: code, ExpiresAt: stored.ExpiresAt}, nil
}

// ValidateAccessCode admits an operator to a scanning session when the
// code matches any unexpired rotating code for the event. Superseded but
// unexpired codes still validate; expired ones fail closed.
func (s *VerificationService) ValidateAccessCode(ctx context.Context, eventID, code string) (*models.VerificationToken, error) {
	now := s.now().UTC()
	candidates, err := s.tokens.ActiveCodes(ctx, eventID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load access codes")
	}
	for i := range candidates {
		token := candidates[i]
		if token.CodeHash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*token.CodeHash), []byte(code)) == nil {
			return &token, nil
		}
	}
	s.metrics.RecordScanRejection(appErrors.ErrInvalidCode.Code)
	return nil, appErrors.ErrInvalidCode
}

// ScanRequest is one physical mark attempt via session QR token.
type ScanRequest struct {
	QRPayload         string `json:"qr_payload" validate:"required"`
	ParticipantID     string `json:"participant_id" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
	// Override accepts a suspected-proxy scan; requires an operator role
	// and is always audit-logged.
	Override  bool   `json:"override"`
	IPAddress string `json:"-"`
}

// Scan validates a mark attempt and records the physical mark.
//
// Pipeline: (1) resolve and window-check the token, (2) registration
// check, (3) prior-mark fingerprint check, (4) cross-participant
// fingerprint reuse check, (5) atomic use-count consumption and mark
// write. Steps 1-3 are hard rejections; step 4 is a soft rejection
// requiring an explicit operator override. Every attempt is written to
// the audit trail, win or lose.
func (s *VerificationService) Scan(ctx context.Context, req ScanRequest, actor *models.JWTClaims) (*models.ParticipationMark, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.QRPayload == "" || req.ParticipantID == "" || req.DeviceFingerprint == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "qr_payload, participant_id and device_fingerprint are required")
	}
	now := s.now().UTC()

	tokenID, checkpointID, _, err := s.signer.Parse(req.QRPayload)
	if err != nil {
		s.metrics.RecordScanRejection(appErrors.ErrValidation.Code)
		return nil, appErrors.Clone(appErrors.ErrValidation, "unrecognized qr payload")
	}

	checkpoint, err := s.checkpoints.GetByID(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	eventID := checkpoint.EventID

	// Step 1: the token must be inside the checkpoint window plus grace.
	if now.Before(checkpoint.StartTime.Add(-s.cfg.GraceWindow)) || now.After(checkpoint.EndTime.Add(s.cfg.GraceWindow)) {
		s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, appErrors.ErrTokenExpired.Code, &tokenID)
		s.metrics.RecordScanRejection(appErrors.ErrTokenExpired.Code)
		return nil, appErrors.Clone(appErrors.ErrTokenExpired, "outside checkpoint time window")
	}

	// An already-dead token is rejected here without consuming a use or
	// exposing later checks. The authoritative consumption happens
	// atomically in step 5; this read only fails fast.
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if !token.Usable(now) {
		code := appErrors.ErrTokenExhausted.Code
		rejection := appErrors.ErrTokenExhausted
		if now.After(token.ExpiresAt) {
			code = appErrors.ErrTokenExpired.Code
			rejection = appErrors.ErrTokenExpired
		}
		s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, code, &tokenID)
		s.metrics.RecordScanRejection(code)
		return nil, rejection
	}

	// Step 2: participant must be registered.
	registered, err := s.registrations.IsRegistered(ctx, req.ParticipantID, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if !registered {
		s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, appErrors.ErrNotRegistered.Code, &tokenID)
		s.metrics.RecordScanRejection(appErrors.ErrNotRegistered.Code)
		return nil, appErrors.ErrNotRegistered
	}

	// Step 3: a prior physical mark from a different device is a hard
	// conflict the operator must resolve manually.
	prior, err := s.participation.PriorPhysicalMark(ctx, req.ParticipantID, checkpointID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior mark")
	}
	if prior != nil && prior.DeviceFingerprint != nil && *prior.DeviceFingerprint != req.DeviceFingerprint {
		s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, appErrors.ErrDuplicateDeviceMismatch.Code, &tokenID)
		s.metrics.RecordScanRejection(appErrors.ErrDuplicateDeviceMismatch.Code)
		return nil, appErrors.ErrDuplicateDeviceMismatch
	}

	// Step 4: the same device marking a second participant is the
	// primary anti-proxy control. Never bypassed by retries; an explicit
	// operator override is required and always audited.
	reused, err := s.participation.FingerprintUsedByOther(ctx, eventID, req.DeviceFingerprint, req.ParticipantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check device reuse")
	}
	outcome := models.AuditOutcomeAccepted
	if reused {
		if !req.Override || !actor.Role.CanOperate() {
			s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, appErrors.ErrSuspectedProxy.Code, &tokenID)
			s.metrics.RecordScanRejection(appErrors.ErrSuspectedProxy.Code)
			return nil, appErrors.ErrSuspectedProxy
		}
		outcome = models.AuditOutcomeOverrideAccepted
	}

	// Step 5: consume a token use atomically, then record the mark.
	if _, err := s.tokens.ConsumeUse(ctx, tokenID, now); err != nil {
		code := appErrors.FromError(err).Code
		s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, code, &tokenID)
		s.metrics.RecordScanRejection(code)
		return nil, err
	}

	fingerprint := req.DeviceFingerprint
	mark, err := s.participation.RecordMark(ctx, RecordMarkRequest{
		EventID:           eventID,
		CheckpointID:      checkpointID,
		ParticipantID:     req.ParticipantID,
		Layer:             string(models.LayerPhysical),
		Method:            string(models.MethodOperatorScan),
		ActorID:           actor.UserID,
		ActorRole:         string(actor.Role),
		DeviceFingerprint: &fingerprint,
		TokenID:           &tokenID,
	})
	if err != nil {
		code := appErrors.FromError(err).Code
		s.writeAudit(ctx, eventID, &checkpointID, req, actor, models.AuditOutcomeRejected, code, &tokenID)
		s.metrics.RecordScanRejection(code)
		return nil, err
	}

	s.writeAudit(ctx, eventID, &checkpointID, req, actor, outcome, "", &tokenID)
	return mark, nil
}

// ListAudit returns the event's verification audit trail, newest first.
func (s *VerificationService) ListAudit(ctx context.Context, eventID string, page, pageSize int, actor *models.JWTClaims) ([]models.VerificationAudit, *models.Pagination, error) {
	if actor == nil || !actor.Role.CanOperate() {
		return nil, nil, appErrors.ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	entries, total, err := s.auditTrail.ListByEvent(ctx, eventID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return entries, models.NewPagination(page, pageSize, total), nil
}

func (s *VerificationService) writeAudit(ctx context.Context, eventID string, checkpointID *string, req ScanRequest, actor *models.JWTClaims, outcome, reason string, tokenID *string) {
	fingerprint := req.DeviceFingerprint
	entry := &models.VerificationAudit{
		EventID:           eventID,
		CheckpointID:      checkpointID,
		ParticipantID:     req.ParticipantID,
		ActorID:           actor.UserID,
		ActorRole:         string(actor.Role),
		Outcome:           outcome,
		Reason:            reason,
		DeviceFingerprint: &fingerprint,
		TokenID:           tokenID,
		IPAddress:         req.IPAddress,
	}
	if err := s.auditTrail.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.Error(err))
	}
}

func sameMaxUses(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func generateNumericCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
