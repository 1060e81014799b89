package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	jwtpkg "github.com/piresc/navieta/internal/pkg/jwt"
	"github.com/piresc/navieta/internal/pkg/models"
	"github.com/piresc/navieta/internal/utils"
)

// ValidateAdminToken middleware guards the admin route-management endpoints
// with a bearer JWT signed by the configured secret.
func ValidateAdminToken(cfg models.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Secret == "" {
				return utils.UnauthorizedResponse(c, "Admin API is not configured")
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return utils.UnauthorizedResponse(c, "Authorization header is required")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return utils.UnauthorizedResponse(c, "Authorization header must be a bearer token")
			}

			claims, err := jwtpkg.ValidateToken(parts[1], cfg.Secret)
			if err != nil {
				return utils.UnauthorizedResponse(c, "Invalid token")
			}

			c.Set("admin_claims", claims)
			return next(c)
		}
	}
}
