package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
)

var errBadRole = errors.New("unknown role")

type mintTokenRequest struct {
	Role  string `json:"role"`
	Label string `json:"label"`
}

// handleMintToken creates a panel token and returns the plaintext exactly
// once. Only the hash is stored.
func (s *Server) handleMintToken(c *gin.Context) {
	var req mintTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	role, ok := ParseRole(req.Role)
	if !ok {
		s.fail(c, errBadRole)
		return
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		s.fail(c, err)
		return
	}
	token := hex.EncodeToString(raw)

	id, err := s.store.InsertToken(c.Request.Context(), storage.PanelToken{
		TokenHash: hashToken(token),
		Role:      role.String(),
		Label:     req.Label,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    id,
		"token": token,
		"role":  role.String(),
		"label": req.Label,
	})
}

func (s *Server) handleDeleteToken(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	if err := s.store.DeleteToken(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
