package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/Jlndre/Capstone-eLife/internal/api/http"
	"github.com/Jlndre/Capstone-eLife/internal/api/http/handlers"
	"github.com/Jlndre/Capstone-eLife/internal/auth"
	"github.com/Jlndre/Capstone-eLife/internal/config"
	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/internal/observability"
	"github.com/Jlndre/Capstone-eLife/internal/persistence"
	"github.com/Jlndre/Capstone-eLife/internal/repository"
	"github.com/Jlndre/Capstone-eLife/internal/service"
	"github.com/Jlndre/Capstone-eLife/internal/storage"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	app   *fiber.App
	repos repository.Repositories
	user  *domain.User
	token string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := zap.NewNop()
	now := func() time.Time { return fixedNow }
	s.repos = repository.NewMemoryRepositories()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	dispatcher := events.NewInMemoryDispatcher(logger)
	locker := persistence.NewMemoryLocker()

	cfg := config.Config{
		App:          config.AppConfig{Name: "elife-verification"},
		Auth:         config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLHours: 1},
		Verification: config.DefaultVerification(),
	}
	authService := service.NewAuthService(cfg, s.repos.Users, logger)
	ledger := service.NewLedgerService(service.LedgerDependencies{Quarters: s.repos.Quarters, Dispatcher: dispatcher, Metrics: metrics, Now: now})
	certificates := service.NewCertificateService(service.CertificateDependencies{
		Users:              s.repos.Users,
		Submissions:        s.repos.Submissions,
		Certificates:       s.repos.Certificates,
		Tx:                 s.repos.Tx,
		Locker:             locker,
		Ledger:             ledger,
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		VerificationMethod: cfg.Verification.VerificationMethod,
		Now:                now,
	})
	verification := service.NewVerificationService(service.VerificationDependencies{
		Users:       s.repos.Users,
		Submissions: s.repos.Submissions,
		Identities:  s.repos.Identities,
		Tx:          s.repos.Tx,
		Locker:      locker,
		Store:       storage.NewMemoryStore(),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Policy:      cfg.Verification,
		Now:         now,
	})

	s.app = fiber.New()
	httptransport.RegisterMiddlewares(s.app, logger, metrics, 0)
	httptransport.RegisterRoutes(s.app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("elife-verification", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Verification:   handlers.NewVerificationHandler(verification),
		Certificates:   handlers.NewCertificatesHandler(certificates),
		Quarters:       handlers.NewQuartersHandler(ledger),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), s.repos.Users),
		Gatherer:       registry,
	})

	hash, err := auth.HashPassword("secret-pass", bcrypt.MinCost)
	s.Require().NoError(err)
	s.user = &domain.User{
		PensionerNumber: "P-1001",
		PasswordHash:    hash,
		Role:            domain.RolePensioner,
		Details:         domain.UserDetails{FirstName: "Jane", LastName: "Doe", TRN: "123456789"},
	}
	s.Require().NoError(s.repos.Users.Create(context.Background(), s.user))

	s.token, _, err = authService.TokenManager().GenerateToken(s.user.ID, s.user.Role)
	s.Require().NoError(err)
}

func (s *RouterSuite) do(method, path string, body io.Reader, contentType string, authed bool) (int, envelope) {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (s *RouterSuite) approve() {
	at := fixedNow.Add(-time.Hour)
	s.Require().NoError(s.repos.Submissions.Create(context.Background(), &domain.VerificationSubmission{
		UserID: s.user.ID, Status: domain.SubmissionApproved, SubmittedAt: at, VerifiedAt: &at,
	}))
}

func (s *RouterSuite) TestLogin() {
	s.Run("valid credentials", func() {
		status, env := s.do("POST", "/auth/login", strings.NewReader(`{"pensioner_number":"P-1001","password":"secret-pass"}`), "application/json", false)
		s.Equal(fiber.StatusOK, status)
		var data struct {
			Auth struct {
				Token string `json:"token"`
			} `json:"auth"`
		}
		s.Require().NoError(json.Unmarshal(env.Data, &data))
		s.NotEmpty(data.Auth.Token)
	})

	s.Run("bad password", func() {
		status, env := s.do("POST", "/auth/login", strings.NewReader(`{"pensioner_number":"P-1001","password":"nope"}`), "application/json", false)
		s.Equal(fiber.StatusUnauthorized, status)
		s.Require().NotNil(env.Error)
		s.Equal("UNAUTHORIZED", env.Error.Code)
	})
}

func (s *RouterSuite) TestCertificatesRequireAuth() {
	status, env := s.do("POST", "/certificates", nil, "", false)
	s.Equal(fiber.StatusUnauthorized, status)
	s.Require().NotNil(env.Error)
}

func (s *RouterSuite) TestIssueWithoutApproval() {
	status, env := s.do("POST", "/certificates", nil, "", true)
	s.Equal(fiber.StatusNotFound, status)
	s.Equal("NOT_FOUND", env.Error.Code)
}

func (s *RouterSuite) TestIssueThenFetch() {
	s.approve()

	status, env := s.do("POST", "/certificates", strings.NewReader(`{"quarter":"Q2-2025"}`), "application/json", true)
	s.Require().Equal(fiber.StatusCreated, status)
	var minted struct {
		ID              string          `json:"id"`
		SignatureHash   string          `json:"digital_signature_hash"`
		ContentSnapshot json.RawMessage `json:"content_snapshot"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &minted))
	s.Equal(service.Digest(minted.ContentSnapshot), minted.SignatureHash)

	status, env = s.do("POST", "/certificates", nil, "", true)
	s.Equal(fiber.StatusOK, status)
	var again struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &again))
	s.Equal(minted.ID, again.ID)

	status, _ = s.do("GET", "/certificates/"+minted.ID, nil, "", true)
	s.Equal(fiber.StatusOK, status)

	status, env = s.do("GET", "/certificates/"+minted.ID+"/verify", nil, "", true)
	s.Equal(fiber.StatusOK, status)
	var verified struct {
		Valid bool `json:"valid"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &verified))
	s.True(verified.Valid)

	status, env = s.do("GET", "/quarters?year=2025", nil, "", true)
	s.Equal(fiber.StatusOK, status)
	var rows []struct {
		Label  string `json:"label"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &rows))
	s.Require().Len(rows, 1)
	s.Equal("Q2-2025", rows[0].Label)
	s.Equal("completed", rows[0].Status)
}

func (s *RouterSuite) TestCertificateLookupMisses() {
	s.Run("malformed id", func() {
		status, env := s.do("GET", "/certificates/not-a-uuid", nil, "", true)
		s.Equal(fiber.StatusNotFound, status)
		s.Equal("NOT_FOUND", env.Error.Code)
	})

	s.Run("someone else's certificate cannot be verified", func() {
		theirs := &domain.DigitalCertificate{
			UserID:          "another-pensioner",
			SubmissionID:    "their-submission",
			Quarter:         "Q2-2025",
			ContentSnapshot: []byte(`{"fullName":"Other"}`),
		}
		theirs.SignatureHash = service.Digest(theirs.ContentSnapshot)
		_, err := s.repos.Certificates.CreateIfAbsent(context.Background(), theirs)
		s.Require().NoError(err)

		status, env := s.do("GET", "/certificates/"+theirs.ID+"/verify", nil, "", true)
		s.Equal(fiber.StatusNotFound, status)
		s.Equal("NOT_FOUND", env.Error.Code)
	})
}

func (s *RouterSuite) TestIssueMalformedQuarter() {
	s.approve()
	status, env := s.do("POST", "/certificates", strings.NewReader(`{"quarter":"2025/2"}`), "application/json", true)
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal("INPUT_INVALID", env.Error.Code)
}

func (s *RouterSuite) TestDocumentRequiresImage() {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	s.Require().NoError(w.WriteField("document_type", "passport"))
	s.Require().NoError(w.Close())

	status, env := s.do("POST", "/verification/document", &body, w.FormDataContentType(), true)
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal("INPUT_INVALID", env.Error.Code)
}

func (s *RouterSuite) TestLiveWithoutIdentityRecord() {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("frames", "frame-1.png")
	s.Require().NoError(err)
	_, err = part.Write([]byte("frame bytes"))
	s.Require().NoError(err)
	s.Require().NoError(w.Close())

	status, env := s.do("POST", "/verification/live", &body, w.FormDataContentType(), true)
	s.Equal(fiber.StatusNotFound, status)
	s.Equal("NOT_FOUND", env.Error.Code)

	subs, err := s.repos.Submissions.ListByUser(context.Background(), s.user.ID, 0)
	s.Require().NoError(err)
	s.Empty(subs)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	status, _ := s.do("GET", "/health/ready", nil, "", false)
	s.Equal(fiber.StatusOK, status)

	s.do("GET", "/health/live", nil, "", false)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal(fiber.StatusOK, resp.StatusCode)
	s.Contains(string(raw), "elife_http_requests_total")
}

func (s *RouterSuite) TestSubmissionsListing() {
	s.approve()

	status, env := s.do("GET", "/verification/submissions?limit=5", nil, "", true)
	s.Equal(fiber.StatusOK, status)
	var rows []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &rows))
	s.Require().Len(rows, 1)
	s.Equal("approved", rows[0].Status)

	status, env = s.do("GET", "/verification/submissions?limit=0", nil, "", true)
	s.Equal(fiber.StatusBadRequest, status)
	s.Equal("INPUT_INVALID", env.Error.Code)
}
