// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"fluencr-service/internal/domain/auth"
	"fluencr-service/internal/domain/entitlement"
	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/pkg/jwt"
	"fluencr-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxAccountID = "account_id"
	ctxRoles     = "roles"
	ctxJTI       = "jti"
	ctxEmail     = "email"
)

// FeatureChecker decides whether an account may use a gated feature.
type FeatureChecker interface {
	Require(ctx context.Context, accountID string, feature entitlement.Feature) error
}

type AuthMiddleware struct {
	verifier jwt.TokenVerifier
}

func NewAuthMiddleware(verifier jwt.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Auth validates the bearer token. The subject must be the account UUID.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return m.authenticate(false)
}

// AuthWebSocket is Auth for the websocket upgrade route, which also accepts
// the token as a "token" query parameter.
func (m *AuthMiddleware) AuthWebSocket() gin.HandlerFunc {
	return m.authenticate(true)
}

func (m *AuthMiddleware) authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, allowQuery)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid token subject", err)
			return
		}

		c.Set(ctxAccountID, accountID.String())
		c.Set(ctxRoles, claims.AllRoles())
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxEmail, claims.Email)

		c.Next()
	}
}

// RequireRole middleware that requires user to have at least one of the specified roles
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoles := GetRoles(c)
		if !IsAuthenticated(c) {
			response.Error(c, http.StatusForbidden, "no roles found - authentication required", nil)
			return
		}

		for _, userRole := range userRoles {
			for _, requiredRole := range roles {
				if userRole == requiredRole {
					c.Next()
					return
				}
			}
		}

		err := errors.New("user does not have required role")
		response.Error(c, http.StatusForbidden, "insufficient permissions", err, map[string]interface{}{
			"required_roles": roles,
			"user_roles":     userRoles,
		})
	}
}

// AdminOnly returns middlewares for admin-only routes (Auth + RequireRole)
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(auth.RoleAdmin, auth.RoleSuperAdmin),
	}
}

// RequireFeature rejects accounts whose subscription does not entitle them
// to feature. MUST be used after Auth() middleware
func RequireFeature(checker FeatureChecker, feature entitlement.Feature) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, ok := GetAccountID(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}

		if err := checker.Require(c.Request.Context(), accountID, feature); err != nil {
			if xerrors.Is(err, xerrors.ErrForbidden) {
				response.Error(c, http.StatusForbidden, "your plan does not include this feature", err, gin.H{
					"feature": feature,
				})
				return
			}
			response.FromError(c, "failed to check entitlement", err)
			return
		}

		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context, allowQuery bool) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on websocket upgrades.
	if allowQuery {
		return c.Query("token")
	}
	return ""
}
