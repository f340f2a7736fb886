package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

type TokenValidator interface {
	Validate(token string) (domain.Principal, error)
}

// Authenticate resolves the bearer token into a principal stored on the
// context.
func Authenticate(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		principal, err := tokens.Validate(strings.TrimSpace(token))
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			writeError(c, domain.NewError(domain.ErrUnauthorized, "not authenticated"))
			return
		}
		if err := principal.RequireAdmin(); err != nil {
			writeError(c, err)
			return
		}
		c.Next()
	}
}

func CurrentPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

// actor is CurrentPrincipal for handlers behind Authenticate.
func actor(c *gin.Context) (domain.Principal, bool) {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		writeError(c, domain.NewError(domain.ErrUnauthorized, "not authenticated"))
	}
	return principal, ok
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}
		if principal, ok := CurrentPrincipal(c); ok {
			fields["user_id"] = principal.UserID.String()
		}
		entry := logger.Log.WithFields(fields)
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request")
			return
		}
		entry.Info("request")
	}
}
