package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	jwtpkg "github.com/piresc/navieta/internal/pkg/jwt"
	"github.com/piresc/navieta/internal/pkg/logger"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/internal/utils"
)

// AuthHandler mints admin tokens for the route management API. Issuance
// sits behind the static API key, so a deployment without a key keeps
// the admin API reachable only with an externally minted token.
type AuthHandler struct {
	jwtCfg models.JWTConfig
}

// NewAuthHandler creates a token issuance handler.
func NewAuthHandler(jwtCfg models.JWTConfig) *AuthHandler {
	return &AuthHandler{jwtCfg: jwtCfg}
}

type tokenRequest struct {
	Subject string `json:"subject"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// IssueToken exchanges the API key for an admin JWT.
func (h *AuthHandler) IssueToken(c echo.Context) error {
	if h.jwtCfg.Secret == "" {
		return utils.ErrorResponseHandler(c, http.StatusServiceUnavailable, "Admin tokens are not configured")
	}

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
	}
	if req.Subject == "" {
		req.Subject = "admin"
	}

	token, expiresAt, err := jwtpkg.GenerateToken(req.Subject, h.jwtCfg)
	if err != nil {
		logger.Error("Failed to mint admin token", logger.Err(err))
		return utils.InternalServerErrorResponse(c, "Failed to mint token")
	}

	return utils.SuccessResponse(c, http.StatusOK, "Token issued", tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
