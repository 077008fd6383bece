package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bastion-panel/internal/export"
	"bastion-panel/internal/moderation"
	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type caseDTO struct {
	ID          int64      `json:"id"`
	GuildID     string     `json:"guild_id"`
	UserID      string     `json:"user_id"`
	ModeratorID string     `json:"moderator_id"`
	Kind        string     `json:"kind"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func toCaseDTO(c storage.ModerationCase) caseDTO {
	return caseDTO{
		ID:          c.ID,
		GuildID:     c.GuildID,
		UserID:      c.UserID,
		ModeratorID: c.ModeratorID,
		Kind:        c.Kind,
		Reason:      c.Reason,
		Status:      c.Status,
		Note:        c.Note,
		CreatedAt:   c.CreatedAt,
		ResolvedAt:  c.ResolvedAt,
	}
}

func (s *Server) handleListCases(c *gin.Context) {
	filter := storage.CaseFilter{
		UserID: c.Query("user_id"),
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 50),
	}
	if cursor := c.Query("cursor"); cursor != "" {
		t, id, ok := moderation.DecodeCursor(cursor)
		if !ok {
			s.fail(c, fmt.Errorf("%w: %s", errBadCursor, cursor))
			return
		}
		filter.BeforeTime = t
		filter.BeforeID = id
	}

	page, err := s.moderation.List(c.Request.Context(), c.Param("guild_id"), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]caseDTO, 0, len(page.Cases))
	for _, mc := range page.Cases {
		items = append(items, toCaseDTO(mc))
	}
	c.JSON(http.StatusOK, gin.H{"cases": items, "next_cursor": page.NextCursor})
}

type openCaseRequest struct {
	UserID      string `json:"user_id"`
	ModeratorID string `json:"moderator_id"`
	Kind        string `json:"kind"`
	Reason      string `json:"reason"`
}

func (s *Server) handleOpenCase(c *gin.Context) {
	var req openCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	opened, err := s.moderation.Open(c.Request.Context(), moderation.OpenRequest{
		GuildID:     c.Param("guild_id"),
		UserID:      req.UserID,
		ModeratorID: req.ModeratorID,
		Kind:        req.Kind,
		Reason:      req.Reason,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCaseDTO(opened))
}

func (s *Server) handleGetCase(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	mc, err := s.moderation.Get(c.Request.Context(), c.Param("guild_id"), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCaseDTO(mc))
}

type resolveCaseRequest struct {
	ModeratorID string `json:"moderator_id"`
	Note        string `json:"note"`
}

func (s *Server) handleResolveCase(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	var req resolveCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	resolved, err := s.moderation.Resolve(c.Request.Context(), c.Param("guild_id"), req.ModeratorID, id, req.Note)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCaseDTO(resolved))
}

type addNoteRequest struct {
	ModeratorID string `json:"moderator_id"`
	Note        string `json:"note"`
}

func (s *Server) handleAddCaseNote(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	if err := s.moderation.AddNote(c.Request.Context(), c.Param("guild_id"), req.ModeratorID, id, req.Note); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportCases(c *gin.Context) {
	page, err := s.moderation.List(c.Request.Context(), c.Param("guild_id"), storage.CaseFilter{
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 100),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="cases.csv"`)
	if err := export.WriteCasesCSV(c.Writer, page.Cases); err != nil {
		s.logger.Warn("cases export write failed", zap.Error(err))
	}
}

type flagDTO struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Rule      string    `json:"rule"`
	Details   string    `json:"details"`
	Reviewed  bool      `json:"reviewed"`
	CaseID    *int64    `json:"case_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListFlags(c *gin.Context) {
	flags, err := s.moderation.ListFlags(c.Request.Context(), c.Param("guild_id"),
		c.Query("unreviewed") == "true", queryInt(c, "limit", 50))
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]flagDTO, 0, len(flags))
	for _, f := range flags {
		items = append(items, flagDTO{
			ID:        f.ID,
			GuildID:   f.GuildID,
			UserID:    f.UserID,
			Rule:      f.Rule,
			Details:   f.Details,
			Reviewed:  f.Reviewed,
			CaseID:    f.CaseID,
			CreatedAt: f.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"flags": items})
}

type reviewFlagRequest struct {
	ModeratorID string `json:"moderator_id"`
	CaseID      *int64 `json:"case_id"`
}

func (s *Server) handleReviewFlag(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	var req reviewFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	if err := s.moderation.ReviewFlag(c.Request.Context(), c.Param("guild_id"), req.ModeratorID, id, req.CaseID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}
