package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jlndre/Capstone-eLife/internal/api/dto"
	"github.com/Jlndre/Capstone-eLife/internal/service"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// CertificatesHandler exposes certificate issuance and retrieval.
type CertificatesHandler struct {
	certificates *service.CertificateService
}

// NewCertificatesHandler constructs handler.
func NewCertificatesHandler(certificates *service.CertificateService) *CertificatesHandler {
	return &CertificatesHandler{certificates: certificates}
}

// Issue handles POST /certificates. 201 when minted, 200 when it already existed.
func (h *CertificatesHandler) Issue(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.IssueCertificateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewInputError("invalid payload", nil)
		}
	}

	cert, created, err := h.certificates.Issue(c.UserContext(), principal.User.ID, req.Quarter)
	if err != nil {
		return err
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewCertificateResponse(cert)})
}

// List handles GET /certificates.
func (h *CertificatesHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	certs, err := h.certificates.List(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	out := make([]dto.CertificateResponse, 0, len(certs))
	for i := range certs {
		out = append(out, dto.NewCertificateResponse(&certs[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /certificates/:id.
func (h *CertificatesHandler) Get(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	cert, err := h.certificates.Get(c.UserContext(), principal.User.ID, principal.Role, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCertificateResponse(cert)})
}

// Verify handles GET /certificates/:id/verify.
func (h *CertificatesHandler) Verify(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	res, err := h.certificates.Verify(c.UserContext(), principal.User.ID, principal.Role, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCertificateVerificationResponse(res)})
}
