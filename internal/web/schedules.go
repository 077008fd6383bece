package web

import (
	"net/http"
	"time"

	"bastion-panel/internal/schedule"
	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
)

type scheduleDTO struct {
	ID        int64      `json:"id"`
	GuildID   string     `json:"guild_id"`
	ChannelID string     `json:"channel_id"`
	CronExpr  string     `json:"cron_expr"`
	Content   string     `json:"content"`
	Enabled   bool       `json:"enabled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s *Server) toScheduleDTO(m storage.ScheduledMessage) scheduleDTO {
	dto := scheduleDTO{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		CronExpr:  m.CronExpr,
		Content:   m.Content,
		Enabled:   m.Enabled,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if next := s.schedules.NextRun(m.ID); !next.IsZero() {
		dto.NextRun = &next
	}
	return dto
}

func (s *Server) handleListSchedules(c *gin.Context) {
	messages, err := s.schedules.List(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]scheduleDTO, 0, len(messages))
	for _, m := range messages {
		items = append(items, s.toScheduleDTO(m))
	}
	c.JSON(http.StatusOK, gin.H{"schedules": items})
}

type scheduleRequest struct {
	ChannelID string `json:"channel_id"`
	CronExpr  string `json:"cron_expr"`
	Content   string `json:"content"`
	Enabled   bool   `json:"enabled"`
}

func (s *Server) handleCreateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	created, err := s.schedules.Create(c.Request.Context(), storage.ScheduledMessage{
		GuildID:   c.Param("guild_id"),
		ChannelID: req.ChannelID,
		CronExpr:  req.CronExpr,
		Content:   req.Content,
		Enabled:   req.Enabled,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.toScheduleDTO(created))
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	m, err := s.schedules.Get(c.Request.Context(), c.Param("guild_id"), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toScheduleDTO(m))
}

func (s *Server) handleUpdateSchedule(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	updated, err := s.schedules.Update(c.Request.Context(), storage.ScheduledMessage{
		ID:        id,
		GuildID:   c.Param("guild_id"),
		ChannelID: req.ChannelID,
		CronExpr:  req.CronExpr,
		Content:   req.Content,
		Enabled:   req.Enabled,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toScheduleDTO(updated))
}

func (s *Server) handleDeleteSchedule(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	if err := s.schedules.Delete(c.Request.Context(), c.Param("guild_id"), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type validateScheduleRequest struct {
	CronExpr string `json:"cron_expr"`
}

func (s *Server) handleValidateSchedule(c *gin.Context) {
	var req validateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	if err := schedule.ValidateCron(req.CronExpr); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}
