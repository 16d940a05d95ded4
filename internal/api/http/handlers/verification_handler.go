package handlers

import (
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Jlndre/Capstone-eLife/internal/api/dto"
	"github.com/Jlndre/Capstone-eLife/internal/auth"
	"github.com/Jlndre/Capstone-eLife/internal/domain"
	"github.com/Jlndre/Capstone-eLife/internal/service"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

const maxImageBytes = 10 << 20

// VerificationHandler exposes the document and live-match stages.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Document handles POST /verification/document (multipart: id_image, document_type).
func (h *VerificationHandler) Document(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("id_image")
	if err != nil {
		return apperrors.NewInputError("id_image is required", nil)
	}
	upload, err := readUpload(fh)
	if err != nil {
		return err
	}

	var docType domain.DocumentType
	if raw := c.FormValue("document_type"); raw != "" {
		parsed, ok := domain.ParseDocumentType(raw)
		if !ok {
			return apperrors.NewInputError("unknown document_type", map[string]any{"document_type": raw})
		}
		docType = parsed
	}

	res, err := h.verification.SubmitDocument(c.UserContext(), principal.User.ID, service.DocumentInput{
		Image:        upload,
		DocumentType: docType,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDocumentVerificationResponse(res)})
}

// Live handles POST /verification/live (multipart: frames, repeated).
func (h *VerificationHandler) Live(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewInputError("multipart form required", nil)
	}
	files := form.File["frames"]
	if len(files) == 0 {
		return apperrors.NewInputError("at least one frame is required", nil)
	}
	frames := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		upload, err := readUpload(fh)
		if err != nil {
			return err
		}
		frames = append(frames, upload)
	}

	res, err := h.verification.SubmitLive(c.UserContext(), principal.User.ID, frames)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLiveVerificationResponse(res)})
}

// Submissions handles GET /verification/submissions?limit=.
func (h *VerificationHandler) Submissions(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			return apperrors.NewInputError("limit must be between 1 and 100", nil)
		}
		limit = n
	}

	subs, err := h.verification.ListSubmissions(c.UserContext(), principal.User.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponses(subs)})
}

func readUpload(fh *multipart.FileHeader) (service.Upload, error) {
	if fh.Size > maxImageBytes {
		return service.Upload{}, apperrors.NewInputError("image too large", map[string]any{"filename": fh.Filename, "max_bytes": maxImageBytes})
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, apperrors.NewInputError("unreadable upload", map[string]any{"filename": fh.Filename})
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return service.Upload{}, apperrors.NewInputError("unreadable upload", map[string]any{"filename": fh.Filename})
	}
	return service.Upload{Filename: fh.Filename, Data: data}, nil
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
