package controller

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github/itish2003/docchat/models"
)

// Authorizer decides whether a request may use the API.
type Authorizer interface {
	Authorized(r *http.Request) bool
}

// APIKeyAuthorizer accepts requests carrying one of a fixed set of keys,
// either as "Authorization: Bearer <key>" or in the X-API-Key header.
// With no keys configured every request is accepted.
type APIKeyAuthorizer struct {
	keys [][]byte
}

// NewAPIKeyAuthorizer creates an authorizer for keys. Blank keys are ignored.
func NewAPIKeyAuthorizer(keys []string) *APIKeyAuthorizer {
	a := &APIKeyAuthorizer{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			a.keys = append(a.keys, []byte(k))
		}
	}
	return a
}

// Authorized implements Authorizer.
func (a *APIKeyAuthorizer) Authorized(r *http.Request) bool {
	if len(a.keys) == 0 {
		return true
	}
	presented := r.Header.Get("X-API-Key")
	if auth := r.Header.Get("Authorization"); presented == "" && auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return false
		}
		presented = strings.TrimSpace(token)
	}
	if presented == "" {
		return false
	}
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(k, []byte(presented)) == 1 {
			return true
		}
	}
	return false
}

// AuthMiddleware rejects unauthorized requests with 401 before any handler runs.
func AuthMiddleware(auth Authorizer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if auth != nil && !auth.Authorized(ctx.Request) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
			return
		}
		ctx.Next()
	}
}

// TimeoutMiddleware bounds each request's context. Non-positive d disables it.
func TimeoutMiddleware(d time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if d <= 0 {
			ctx.Next()
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), d)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(reqCtx)
		ctx.Next()
	}
}

// CORSMiddleware allows browser clients from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
