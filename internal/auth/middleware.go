package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// VersionSource reports the current token version of a user so that
// logout and password changes invalidate older tokens.
type VersionSource interface {
	GetTokenVersion(ctx context.Context, id string) (int, error)
}

// Authenticate resolves a raw Authorization header value to claims.
// A missing header yields (nil, nil): the caller is anonymous.
func Authenticate(ctx context.Context, tokens TokenService, versions VersionSource, header string) (*Claims, error) {
	if header == "" {
		return nil, nil
	}
	raw, ok := BearerToken(header)
	if !ok {
		return nil, errInvalidToken
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, errInvalidToken
	}
	if versions != nil {
		current, err := versions.GetTokenVersion(ctx, claims.UserID)
		if err != nil || current != claims.TokenVersion {
			return nil, errInvalidToken
		}
	}
	return claims, nil
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens TokenService, versions VersionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}
		claims, err := Authenticate(c.Request.Context(), tokens, versions, h)
		if err != nil || claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through with no identity, and
// rejects only a bearer token that is present but invalid.
func OptionalAuth(tokens TokenService, versions VersionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := Authenticate(c.Request.Context(), tokens, versions, c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		if claims != nil {
			c.Set(CtxClaimsKey, claims)
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !MustGetClaims(c).IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// UserID is the current identity, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if claims := MustGetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
