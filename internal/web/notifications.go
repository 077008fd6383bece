package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type notificationDTO struct {
	ID        int64     `json:"id"`
	GuildID   string    `json:"guild_id"`
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListNotifications(c *gin.Context) {
	notifications, err := s.notify.List(c.Request.Context(), c.Param("guild_id"),
		c.Query("unread") == "true", queryInt(c, "limit", 50))
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, notificationDTO{
			ID:        n.ID,
			GuildID:   n.GuildID,
			Level:     n.Level,
			Title:     n.Title,
			Body:      n.Body,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	if err := s.notify.MarkRead(c.Request.Context(), c.Param("guild_id"), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMarkAllNotificationsRead(c *gin.Context) {
	updated, err := s.notify.MarkAllRead(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) handleDeleteNotification(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.failBinding(c, err)
		return
	}
	if err := s.notify.Delete(c.Request.Context(), c.Param("guild_id"), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
