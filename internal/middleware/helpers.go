// internal/middleware/helpers.go
package middleware

import (
	"fluencr-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

// GetAccountID returns the authenticated account UUID.
func GetAccountID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxAccountID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// MustGetAccountID gets the account ID from context or panics
func MustGetAccountID(c *gin.Context) string {
	id, ok := GetAccountID(c)
	if !ok {
		panic("account_id not found in context")
	}
	return id
}

// GetRoles gets user roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get(ctxRoles)
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

// GetActor describes the caller for audited operations.
func GetActor(c *gin.Context) auth.Actor {
	id, _ := GetAccountID(c)
	return auth.Actor{ID: id, Roles: GetRoles(c), Source: auth.SourceHTTP}
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetAccountID(c)
	return ok
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	return GetActor(c).IsAdmin()
}
