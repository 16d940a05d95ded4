package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/internal/observability"
	"github.com/Jlndre/Capstone-eLife/internal/persistence"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// CertificateService mints and serves proof-of-life certificates.
type CertificateService struct {
	users        repository.UserRepository
	submissions  repository.SubmissionRepository
	certificates repository.CertificateRepository
	tx           repository.TxManager
	locker       persistence.UserLocker
	ledger       *LedgerService
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	method       string
	now          func() time.Time
}

// CertificateDependencies bundles collaborators for issuance.
type CertificateDependencies struct {
	Users              repository.UserRepository
	Submissions        repository.SubmissionRepository
	Certificates       repository.CertificateRepository
	Tx                 repository.TxManager
	Locker             persistence.UserLocker
	Ledger             *LedgerService
	Dispatcher         events.Dispatcher
	Metrics            *observability.Metrics
	Logger             *zap.Logger
	VerificationMethod string
	Now                func() time.Time
}

// CertificateVerification reports whether a stored snapshot still matches its digest.
type CertificateVerification struct {
	CertificateID string
	Valid         bool
	Expected      string
	Computed      string
}

func NewCertificateService(deps CertificateDependencies) *CertificateService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &CertificateService{
		users:        deps.Users,
		submissions:  deps.Submissions,
		certificates: deps.Certificates,
		tx:           deps.Tx,
		locker:       deps.Locker,
		ledger:       deps.Ledger,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		method:       deps.VerificationMethod,
		now:          deps.Now,
	}
}

// Issue returns the certificate for the user's latest approved submission,
// minting it on first call. created is false when it already existed.
// quarterLabel defaults to the current quarter.
func (s *CertificateService) Issue(ctx context.Context, userID, quarterLabel string) (cert *domain.DigitalCertificate, created bool, err error) {
	ctx, span := tracer.Start(ctx, "certificate.issue")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("user.id", userID))

	period := domain.PeriodOf(s.now())
	if strings.TrimSpace(quarterLabel) != "" {
		period, err = domain.ParseQuarterLabel(quarterLabel)
		if err != nil {
			return nil, false, apperrors.NewInputError("quarter must look like Q1-2025", map[string]any{"quarter": quarterLabel})
		}
	}

	cert, created, obligation, err := s.issueLocked(ctx, userID, period)
	if err != nil {
		return nil, false, err
	}

	s.metrics.RecordCertificate(created)
	if created {
		s.logger.Info("certificate issued",
			zap.String("user_id", userID),
			zap.String("certificate_id", cert.ID),
			zap.String("quarter", cert.Quarter))
		s.publish(ctx, events.New(events.EventCertificateIssued, userID, events.CertificateIssuedPayload{
			CertificateID: cert.ID,
			SubmissionID:  cert.SubmissionID,
			Quarter:       cert.Quarter,
		}))
		s.ledger.publishObligation(ctx, events.EventObligationComplete, obligation)
	}
	return cert, created, nil
}

// issueLocked runs the issuance transaction under the per-user lock. The lock
// is released on return, before any event is published.
func (s *CertificateService) issueLocked(ctx context.Context, userID string, period domain.QuarterPeriod) (cert *domain.DigitalCertificate, created bool, obligation *domain.QuarterObligation, err error) {
	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrLockTimeout) {
			return nil, false, nil, apperrors.NewConflict("another request for this user is in progress", map[string]any{"retryable": true})
		}
		return nil, false, nil, err
	}
	defer release()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sub, err := s.submissions.LatestApproved(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("approved verification", nil)
		}
		if err != nil {
			return err
		}

		existing, err := s.certificates.GetBySubmission(ctx, sub.ID)
		if err == nil {
			cert = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.Details.HasIdentity() {
			return apperrors.NewInputError("user details not found", nil)
		}

		issuedAt := s.now().UTC()
		snapshot, err := s.snapshot(user, period, issuedAt)
		if err != nil {
			return err
		}
		cert = &domain.DigitalCertificate{
			UserID:          userID,
			SubmissionID:    sub.ID,
			Quarter:         period.Label(),
			Filename:        fmt.Sprintf("certificate_%s_%s.json", userID, period.Label()),
			IssuedAt:        issuedAt,
			ContentSnapshot: snapshot,
			SignatureHash:   Digest(snapshot),
		}
		created, err = s.certificates.CreateIfAbsent(ctx, cert)
		if err != nil || !created {
			return err
		}

		obligation, err = s.ledger.complete(ctx, userID, period, sub.ID, issuedAt)
		return err
	})
	if err != nil {
		return nil, false, nil, err
	}
	return cert, created, obligation, nil
}

// Get returns a certificate to its owner or an admin. Other callers, and
// malformed ids, see not found.
func (s *CertificateService) Get(ctx context.Context, userID string, role domain.Role, certificateID string) (*domain.DigitalCertificate, error) {
	if _, err := uuid.Parse(certificateID); err != nil {
		return nil, apperrors.NewNotFound("certificate", nil)
	}
	cert, err := s.certificates.GetByID(ctx, certificateID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("certificate", nil)
	}
	if err != nil {
		return nil, err
	}
	if cert.UserID != userID && role != domain.RoleAdmin {
		return nil, apperrors.NewNotFound("certificate", nil)
	}
	return cert, nil
}

// List returns the user's certificates, newest first.
func (s *CertificateService) List(ctx context.Context, userID string) ([]domain.DigitalCertificate, error) {
	return s.certificates.ListByUser(ctx, userID)
}

// Verify recomputes the digest over the stored snapshot. Visibility follows Get.
func (s *CertificateService) Verify(ctx context.Context, userID string, role domain.Role, certificateID string) (*CertificateVerification, error) {
	cert, err := s.Get(ctx, userID, role, certificateID)
	if err != nil {
		return nil, err
	}
	computed := Digest(cert.ContentSnapshot)
	return &CertificateVerification{
		CertificateID: cert.ID,
		Valid:         computed == cert.SignatureHash,
		Expected:      cert.SignatureHash,
		Computed:      computed,
	}, nil
}

// snapshot serialises the certificate content. Map keys marshal sorted, so
// the bytes are stable for identical content.
func (s *CertificateService) snapshot(user *domain.User, period domain.QuarterPeriod, issuedAt time.Time) ([]byte, error) {
	var dob any
	if user.Details.DateOfBirth != nil {
		dob = user.Details.DateOfBirth.Format("2006-01-02")
	}
	return json.Marshal(map[string]any{
		"pensioner_number":    user.PensionerNumber,
		"user_id":             user.ID,
		"fullName":            user.Details.FullName(),
		"dob":                 dob,
		"trn":                 user.Details.TRN,
		"verification_method": s.method,
		"quarter":             period.Label(),
		"issue_date":          issuedAt.Format(time.RFC3339Nano),
		"expiry_date":         nil,
	})
}

// Digest is the hex sha256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *CertificateService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
