package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Role orders panel permissions from read-only up to token administration.
type Role int

const (
	RoleViewer Role = iota
	RoleModerator
	RoleAdmin
	RoleSuperAdmin
)

const (
	ctxKeyRole  = "panel_role"
	ctxKeyLabel = "panel_label"
)

func (r Role) String() string {
	switch r {
	case RoleViewer:
		return "viewer"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "superadmin"
	}
	return "unknown"
}

func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer, true
	case "moderator":
		return RoleModerator, true
	case "admin":
		return RoleAdmin, true
	case "superadmin":
		return RoleSuperAdmin, true
	}
	return RoleViewer, false
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// authenticate resolves the bearer token into a role. The bootstrap token
// from config acts as a standing SuperAdmin credential so the first real
// token can be minted.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			s.fail(c, errMissingToken)
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		if bootstrap := s.cfg.HTTP.BootstrapToken; bootstrap != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(bootstrap)) == 1 {
			c.Set(ctxKeyRole, RoleSuperAdmin)
			c.Set(ctxKeyLabel, "bootstrap")
			c.Next()
			return
		}

		stored, err := s.store.GetTokenByHash(c.Request.Context(), hashToken(token))
		if err != nil {
			s.fail(c, errBadToken)
			return
		}
		role, ok := ParseRole(stored.Role)
		if !ok {
			s.fail(c, errBadToken)
			return
		}
		_ = s.store.TouchToken(c.Request.Context(), stored.ID)
		c.Set(ctxKeyRole, role)
		c.Set(ctxKeyLabel, stored.Label)
		c.Next()
	}
}

func (s *Server) requireRole(min Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentRole(c) < min {
			s.fail(c, errForbidden)
			return
		}
		c.Next()
	}
}

func currentRole(c *gin.Context) Role {
	if role, ok := c.Get(ctxKeyRole); ok {
		return role.(Role)
	}
	return RoleViewer
}

func actorLabel(c *gin.Context) string {
	if label, ok := c.Get(ctxKeyLabel); ok {
		return label.(string)
	}
	return ""
}

// requestLogger emits one structured line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
