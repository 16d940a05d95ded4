package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Jlndre/Capstone-eLife/internal/biometrics"
	"github.com/Jlndre/Capstone-eLife/internal/config"
	"github.com/Jlndre/Capstone-eLife/internal/document"
	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/internal/observability"
	"github.com/Jlndre/Capstone-eLife/internal/persistence"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	"github.com/Jlndre/Capstone-eLife/internal/storage"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// Stage and outcome labels used in metrics and logs.
const (
	stageDocument = "document"
	stageLive     = "live"

	reasonSynthetic     = "synthetic_content"
	reasonDocumentCheck = "document_checks_failed"
	reasonFaceMismatch  = "face_mismatch"
)

// VerificationService runs the document and live-match stages.
type VerificationService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	identities  repository.IdentityRecordRepository
	tx          repository.TxManager
	locker      persistence.UserLocker
	store       storage.ObjectStore
	ocr         TextExtractor
	screener    *biometrics.Screener
	faces       *biometrics.FaceMatcher
	documents   *document.Matcher
	frames      *biometrics.FrameSelector
	decode      func([]byte) (image.Image, error)
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	policy      config.VerificationConfig
	now         func() time.Time
}

// VerificationDependencies bundles collaborators for the pipeline.
type VerificationDependencies struct {
	Users       repository.UserRepository
	Submissions repository.SubmissionRepository
	Identities  repository.IdentityRecordRepository
	Tx          repository.TxManager
	Locker      persistence.UserLocker
	Store       storage.ObjectStore
	OCR         TextExtractor
	Screener    *biometrics.Screener
	FaceMatcher *biometrics.FaceMatcher
	Documents   *document.Matcher
	Frames      *biometrics.FrameSelector
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Policy      config.VerificationConfig
	Now         func() time.Time
}

// Upload is one uploaded image.
type Upload struct {
	Filename string
	Data     []byte
}

// DocumentInput is the document-stage request. An empty DocumentType means
// the type is detected from the OCR text.
type DocumentInput struct {
	Image        Upload
	DocumentType domain.DocumentType
}

// DocumentResult describes a document that passed every check.
type DocumentResult struct {
	SubmissionID     string
	IdentityRecordID string
	Report           document.Report
	Liveness         biometrics.LivenessResult
}

// LiveResult describes a completed live-match attempt.
type LiveResult struct {
	SubmissionID  string
	Status        domain.SubmissionStatus
	SelectedFrame string
	Sharpness     float64
	Match         biometrics.MatchResult
	Liveness      biometrics.LivenessResult
	VerifiedAt    time.Time
}

func NewVerificationService(deps VerificationDependencies) *VerificationService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	decode := biometrics.Decoder(deps.Policy.MaxImagePixels)
	if deps.Frames == nil {
		deps.Frames = biometrics.NewFrameSelector(decode, nil)
	}
	return &VerificationService{
		users:       deps.Users,
		submissions: deps.Submissions,
		identities:  deps.Identities,
		tx:          deps.Tx,
		locker:      deps.Locker,
		store:       deps.Store,
		ocr:         deps.OCR,
		screener:    deps.Screener,
		faces:       deps.FaceMatcher,
		documents:   deps.Documents,
		frames:      deps.Frames,
		decode:      decode,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		policy:      deps.Policy,
		now:         deps.Now,
	}
}

// SubmitDocument screens the document photo, reads it and checks it against
// the user's registered details. A pending submission and an identity record
// are stored whenever the checks ran, pass or fail; the record is marked
// verified only on a pass. Failed checks come back as a VERIFICATION_REJECTED
// error carrying the report.
func (s *VerificationService) SubmitDocument(ctx context.Context, userID string, in DocumentInput) (res *DocumentResult, err error) {
	ctx, span := tracer.Start(ctx, "verification.document")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("user.id", userID))

	if len(in.Image.Data) == 0 {
		return nil, apperrors.NewInputError("id_image is required", nil)
	}
	img, err := s.decode(in.Image.Data)
	if errors.Is(err, biometrics.ErrImageTooLarge) {
		return nil, s.tooLarge("id_image", in.Image.Filename)
	}
	if err != nil {
		return nil, apperrors.NewInputError("id_image is not a supported image", map[string]any{"filename": in.Image.Filename})
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("user", nil)
	}
	if err != nil {
		return nil, err
	}

	liveness, face, err := s.screener.ScreenImage(ctx, img, s.policy.DocumentDeepfakeThreshold)
	switch {
	case errors.Is(err, biometrics.ErrNoFaceDetected):
		s.metrics.RecordVerdict(stageDocument, "no_face")
		return nil, apperrors.NewNoFaceDetected("no face found on the document; retake the photo")
	case err != nil:
		s.metrics.RecordVerdict(stageDocument, "error")
		return nil, apperrors.NewModelUnavailable("liveness_screener", err)
	}
	span.SetAttributes(attribute.Float64("liveness.score", liveness.Score))

	if liveness.Synthetic {
		s.metrics.RecordVerdict(stageDocument, "synthetic")
		s.logger.Warn("document rejected as synthetic",
			zap.String("user_id", userID),
			zap.Float64("score", liveness.Score))
		s.publish(ctx, events.New(events.EventDocumentRejected, userID, events.DocumentCheckedPayload{
			DocumentType: string(in.DocumentType),
			Reason:       reasonSynthetic,
		}))
		return nil, apperrors.NewPolicyRejection(reasonSynthetic, map[string]any{"liveness": liveness})
	}

	var (
		docRef, faceRef string
		fragments       []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ref, err := s.put(gctx, "documents", userID, in.Image.Data)
		docRef = ref
		return err
	})
	g.Go(func() error {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, face, &jpeg.Options{Quality: 90}); err != nil {
			return apperrors.NewInternalError(err)
		}
		ref, err := s.put(gctx, "faces", userID, buf.Bytes())
		faceRef = ref
		return err
	})
	g.Go(func() error {
		out, err := s.ocr.ExtractText(gctx, in.Image.Data)
		if err != nil {
			return apperrors.NewModelUnavailable("ocr", err)
		}
		fragments = out
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.RecordVerdict(stageDocument, "error")
		s.discard(docRef, faceRef)
		return nil, err
	}

	report := s.documents.Evaluate(fragments, user.Details, in.DocumentType)
	failed := report.FailedChecks()

	sub := &domain.VerificationSubmission{
		UserID:           userID,
		DocumentImageRef: docRef,
		Status:           domain.SubmissionPending,
		SubmittedAt:      s.now().UTC(),
		Notes:            documentNotes(failed),
	}
	rec := &domain.IdentityRecord{
		UserID:       userID,
		Type:         report.DocumentType,
		ImageRef:     docRef,
		FaceImageRef: faceRef,
		ExpiryDate:   report.ExpiryDate,
		Verified:     report.Passed(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.submissions.Create(ctx, sub); err != nil {
			return err
		}
		rec.SubmissionID = sub.ID
		return s.identities.Create(ctx, rec)
	})
	if err != nil {
		s.metrics.RecordVerdict(stageDocument, "error")
		s.discard(docRef, faceRef)
		return nil, err
	}

	payload := events.DocumentCheckedPayload{
		SubmissionID: sub.ID,
		DocumentType: string(report.DocumentType),
		FailedChecks: failed,
	}
	if !report.Passed() {
		s.metrics.RecordVerdict(stageDocument, "rejected")
		s.logger.Info("document checks failed",
			zap.String("user_id", userID),
			zap.String("submission_id", sub.ID),
			zap.Strings("failed_checks", failed))
		payload.Reason = reasonDocumentCheck
		s.publish(ctx, events.New(events.EventDocumentRejected, userID, payload))
		return nil, apperrors.NewPolicyRejection(reasonDocumentCheck, map[string]any{
			"submission_id": sub.ID,
			"failed_checks": failed,
			"report":        report,
		})
	}

	s.metrics.RecordVerdict(stageDocument, "passed")
	s.logger.Info("document verified",
		zap.String("user_id", userID),
		zap.String("submission_id", sub.ID),
		zap.String("document_type", string(report.DocumentType)))
	s.publish(ctx, events.New(events.EventDocumentVerified, userID, payload))

	return &DocumentResult{
		SubmissionID:     sub.ID,
		IdentityRecordID: rec.ID,
		Report:           report,
		Liveness:         liveness,
	}, nil
}

// SubmitLive matches the sharpest capture frame against the user's most
// recent verified identity document. One terminal submission is written per attempt:
// approved when the faces match and the frame is not synthetic, flagged
// otherwise. A flagged attempt returns VERIFICATION_REJECTED.
func (s *VerificationService) SubmitLive(ctx context.Context, userID string, frames []Upload) (res *LiveResult, err error) {
	ctx, span := tracer.Start(ctx, "verification.live")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("frames", len(frames)))

	switch {
	case len(frames) == 0:
		return nil, apperrors.NewInputError("at least one frame is required", nil)
	case s.policy.MaxLiveFrames > 0 && len(frames) > s.policy.MaxLiveFrames:
		return nil, apperrors.NewInputError("too many frames", map[string]any{"max_frames": s.policy.MaxLiveFrames})
	}
	for _, f := range frames {
		if errors.Is(biometrics.CheckSize(f.Data, s.policy.MaxImagePixels), biometrics.ErrImageTooLarge) {
			return nil, s.tooLarge("frames", f.Filename)
		}
	}

	rec, err := s.identities.LatestVerified(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("verified identity record", map[string]any{"hint": "pass the document stage first"})
	}
	if err != nil {
		return nil, err
	}

	refs, err := s.uploadFrames(ctx, userID, frames)
	if err != nil {
		s.discard(refs...)
		return nil, err
	}

	candidates := make([]biometrics.Frame, len(frames))
	for i, f := range frames {
		candidates[i] = biometrics.Frame{Ref: refs[i], Data: f.Data}
	}
	selected, ok := s.frames.Select(candidates)
	if !ok {
		s.discard(refs...)
		s.metrics.RecordVerdict(stageLive, "undecodable")
		return nil, apperrors.NewInputError("none of the frames could be decoded", nil)
	}

	docImage, err := s.load(ctx, rec.ImageRef)
	if err != nil {
		s.discard(refs...)
		return nil, err
	}

	var (
		liveness biometrics.LivenessResult
		match    biometrics.MatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		liveness, _, err = s.screener.ScreenImage(gctx, selected.Image, s.policy.FrameDeepfakeThreshold)
		if errors.Is(err, biometrics.ErrNoFaceDetected) {
			return apperrors.NewNoFaceDetected("no face found in the capture; record again")
		}
		if err != nil {
			return apperrors.NewModelUnavailable("liveness_screener", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		match, err = s.faces.Compare(gctx, docImage, selected.Image)
		if err != nil {
			return apperrors.NewModelUnavailable("face_embedder", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.discard(refs...)
		if apperrors.IsCode(err, apperrors.CodeNoFaceDetected) {
			s.metrics.RecordVerdict(stageLive, "no_face")
		} else {
			s.metrics.RecordVerdict(stageLive, "error")
		}
		return nil, err
	}

	status := domain.SubmissionFlagged
	if match.IsMatch && !liveness.Synthetic {
		status = domain.SubmissionApproved
	}
	reason := liveReason(match, liveness)

	sub, err := s.recordLive(ctx, userID, rec, refs, status, reason)
	if err != nil {
		s.discard(refs...)
		s.metrics.RecordVerdict(stageLive, "error")
		return nil, err
	}
	span.SetAttributes(attribute.String("submission.status", string(status)))

	res = &LiveResult{
		SubmissionID:  sub.ID,
		Status:        status,
		SelectedFrame: selected.Frame.Ref,
		Sharpness:     selected.Variance,
		Match:         match,
		Liveness:      liveness,
		VerifiedAt:    *sub.VerifiedAt,
	}
	payload := events.LiveMatchPayload{
		SubmissionID:       sub.ID,
		AdjustedSimilarity: match.AdjustedSimilarity,
		Distance:           match.Distance,
		DeepfakeScore:      liveness.Score,
		Synthetic:          liveness.Synthetic,
	}
	s.metrics.RecordVerdict(stageLive, string(status))

	if status == domain.SubmissionFlagged {
		s.logger.Warn("live match flagged",
			zap.String("user_id", userID),
			zap.String("submission_id", sub.ID),
			zap.String("reason", reason),
			zap.Float64("adjusted_similarity", match.AdjustedSimilarity),
			zap.Float64("distance", match.Distance),
			zap.Float64("deepfake_score", liveness.Score))
		s.publish(ctx, events.New(events.EventLiveMatchFlagged, userID, payload))
		return nil, apperrors.NewPolicyRejection(reason, map[string]any{
			"submission_id": sub.ID,
			"status":        status,
			"match":         match,
			"liveness":      liveness,
		})
	}

	s.logger.Info("live match approved",
		zap.String("user_id", userID),
		zap.String("submission_id", sub.ID))
	s.publish(ctx, events.New(events.EventLiveMatchApproved, userID, payload))
	return res, nil
}

// ListSubmissions returns the user's submissions, newest first.
func (s *VerificationService) ListSubmissions(ctx context.Context, userID string, limit int) ([]domain.VerificationSubmission, error) {
	return s.submissions.ListByUser(ctx, userID, limit)
}

// recordLive commits the submission under the user lock so issuance never
// reads an approval that is still being written.
func (s *VerificationService) recordLive(ctx context.Context, userID string, rec *domain.IdentityRecord, refs []string, status domain.SubmissionStatus, notes string) (*domain.VerificationSubmission, error) {
	release, err := s.locker.Lock(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrLockTimeout) {
			return nil, apperrors.NewConflict("another request for this user is in progress", map[string]any{"retryable": true})
		}
		return nil, err
	}
	defer release()

	now := s.now().UTC()
	sub := &domain.VerificationSubmission{
		UserID:           userID,
		DocumentImageRef: rec.ImageRef,
		LiveImageRefs:    refs,
		Status:           status,
		SubmittedAt:      now,
		VerifiedAt:       &now,
		Notes:            notes,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *VerificationService) tooLarge(field, filename string) error {
	limit := s.policy.MaxImagePixels
	if limit <= 0 {
		limit = biometrics.DefaultMaxPixels
	}
	return apperrors.NewInputError(field+" exceeds the pixel limit", map[string]any{"filename": filename, "max_pixels": limit})
}

func (s *VerificationService) uploadFrames(ctx context.Context, userID string, frames []Upload) ([]string, error) {
	for i, f := range frames {
		if len(f.Data) == 0 {
			return nil, apperrors.NewInputError("empty frame", map[string]any{"index": i})
		}
	}

	refs := make([]string, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	if s.policy.UploadConcurrency > 0 {
		g.SetLimit(s.policy.UploadConcurrency)
	}
	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			ref, err := s.put(gctx, "frames", userID, f.Data)
			refs[i] = ref
			return err
		})
	}
	return refs, g.Wait()
}

func (s *VerificationService) put(ctx context.Context, kind, userID string, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	ref, err := s.store.Put(ctx, storage.ObjectKey(kind, userID, storage.ExtensionFor(contentType)), data, contentType)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return ref, nil
}

func (s *VerificationService) load(ctx context.Context, ref string) (image.Image, error) {
	data, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	img, err := s.decode(data)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return img, nil
}

// discard removes blobs left behind by an aborted stage. Failures are logged only.
func (s *VerificationService) discard(refs ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.store.Delete(ctx, ref); err != nil {
			s.logger.Warn("discard upload", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func (s *VerificationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func documentNotes(failed []string) string {
	if len(failed) == 0 {
		return "document checks passed"
	}
	return "failed: " + strings.Join(failed, ",")
}

func liveReason(match biometrics.MatchResult, liveness biometrics.LivenessResult) string {
	switch {
	case liveness.Synthetic:
		return reasonSynthetic
	case !match.IsMatch:
		return reasonFaceMismatch
	}
	return ""
}
