package web

import (
	"net/http"
	"time"

	"bastion-panel/internal/storage"
	"bastion-panel/internal/utils"

	"github.com/gin-gonic/gin"
)

type watchlistDTO struct {
	Domain    string    `json:"domain"`
	AddedBy   string    `json:"added_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListWatchlist(c *gin.Context) {
	entries, err := s.store.ListWatchlistDomains(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]watchlistDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, watchlistDTO{Domain: e.Domain, AddedBy: e.AddedBy, CreatedAt: e.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"domains": items})
}

type addWatchlistRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) handleAddWatchlist(c *gin.Context) {
	var req addWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	domain, err := utils.NormalizeDomain(req.Domain)
	if err != nil {
		s.fail(c, err)
		return
	}
	entry := storage.WatchlistEntry{
		GuildID:   c.Param("guild_id"),
		Domain:    domain,
		AddedBy:   actorLabel(c),
		CreatedAt: time.Now(),
	}
	if err := s.store.AddWatchlistDomain(c.Request.Context(), entry); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, watchlistDTO{Domain: entry.Domain, AddedBy: entry.AddedBy, CreatedAt: entry.CreatedAt})
}

func (s *Server) handleRemoveWatchlist(c *gin.Context) {
	domain, err := utils.NormalizeDomain(c.Param("domain"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.RemoveWatchlistDomain(c.Request.Context(), c.Param("guild_id"), domain); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
