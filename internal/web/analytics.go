package web

import (
	"net/http"
	"time"

	"bastion-panel/internal/export"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) handleAnalyticsReport(c *gin.Context) {
	since := time.Now().AddDate(0, 0, -queryInt(c, "days", 30))
	report, err := s.analytics.Report(c.Request.Context(), c.Param("guild_id"), since)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleAnalyticsSeries(c *gin.Context) {
	series, err := s.analytics.Series(c.Request.Context(), c.Param("guild_id"), queryInt(c, "days", 14))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": series})
}

func (s *Server) handleAnalyticsExport(c *gin.Context) {
	series, err := s.analytics.Series(c.Request.Context(), c.Param("guild_id"), queryInt(c, "days", 30))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="analytics.csv"`)
	if err := export.WriteSeriesCSV(c.Writer, series); err != nil {
		s.logger.Warn("analytics export write failed", zap.Error(err))
	}
}
