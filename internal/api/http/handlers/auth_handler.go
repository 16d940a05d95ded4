package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Jlndre/Capstone-eLife/internal/api/dto"
	"github.com/Jlndre/Capstone-eLife/internal/service"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInputError("invalid payload", nil)
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.PensionerNumber, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
