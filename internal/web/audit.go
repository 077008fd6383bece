package web

import (
	"net/http"
	"time"

	"bastion-panel/internal/export"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type auditDTO struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Level     string    `json:"level"`
	Event     string    `json:"event"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// auditWindow reads the shared since/level/limit query parameters.
func auditWindow(c *gin.Context) (time.Time, string, int) {
	since := time.Now().AddDate(0, 0, -queryInt(c, "days", 7))
	if raw := c.Query("since"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			since = parsed
		}
	}
	return since, c.Query("level"), queryInt(c, "limit", 200)
}

func (s *Server) handleListAudit(c *gin.Context) {
	since, level, limit := auditWindow(c)
	logs, err := s.store.ListAuditLogs(c.Request.Context(), c.Param("guild_id"), since, level, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]auditDTO, 0, len(logs))
	for _, l := range logs {
		items = append(items, auditDTO{
			ID:        l.ID,
			GuildID:   l.GuildID,
			ActorID:   l.ActorID,
			TargetID:  l.TargetID,
			Level:     l.Level,
			Event:     l.Event,
			Details:   l.Details,
			CreatedAt: l.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": items})
}

func (s *Server) handleExportAudit(c *gin.Context) {
	since, level, limit := auditWindow(c)
	logs, err := s.store.ListAuditLogs(c.Request.Context(), c.Param("guild_id"), since, level, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="audit.csv"`)
	if err := export.WriteAuditCSV(c.Writer, logs); err != nil {
		s.logger.Warn("audit export write failed", zap.Error(err))
	}
}
