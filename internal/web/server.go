package web

import (
	"context"
	"net/http"
	"time"

	"bastion-panel/internal/analytics"
	"bastion-panel/internal/config"
	"bastion-panel/internal/moderation"
	"bastion-panel/internal/notify"
	"bastion-panel/internal/playback"
	"bastion-panel/internal/schedule"
	"bastion-panel/internal/settings"
	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChannelValidator confirms a channel exists in a guild and carries voice
// before a playback request reserves the guild slot.
type ChannelValidator interface {
	ValidateVoiceChannel(guildID, channelID string) error
}

// Server wires the panel services into one gin router.
type Server struct {
	cfg        config.Config
	logger     *zap.Logger
	store      *storage.Store
	settings   *settings.Service
	moderation *moderation.Service
	analytics  *analytics.Service
	schedules  *schedule.Service
	notify     *notify.Service
	playback   *playback.Manager
	channels   ChannelValidator

	oauth  *oauthStates
	engine *gin.Engine
	http   *http.Server
}

func NewServer(
	cfg config.Config,
	logger *zap.Logger,
	store *storage.Store,
	settingsSvc *settings.Service,
	moderationSvc *moderation.Service,
	analyticsSvc *analytics.Service,
	scheduleSvc *schedule.Service,
	notifySvc *notify.Service,
	playbackMgr *playback.Manager,
	channels ChannelValidator,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		settings:   settingsSvc,
		moderation: moderationSvc,
		analytics:  analyticsSvc,
		schedules:  scheduleSvc,
		notify:     notifySvc,
		playback:   playbackMgr,
		channels:   channels,
		oauth:      newOAuthStates(),
		engine:     gin.New(),
	}
	s.engine.Use(requestLogger(logger), s.recovery())
	s.routes()
	s.http = &http.Server{Addr: cfg.HTTP.Addr, Handler: s.engine}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/auth/discord", s.handleOAuthStart)
	s.engine.GET("/auth/discord/callback", s.handleOAuthCallback)

	api := s.engine.Group("/api/v1")
	api.Use(s.authenticate())

	guild := api.Group("/guilds/:guild_id")

	guild.GET("/settings", s.handleGetSettings)
	guild.PUT("/settings", s.requireRole(RoleAdmin), s.handlePutSettings)

	guild.GET("/cases", s.requireRole(RoleModerator), s.handleListCases)
	guild.POST("/cases", s.requireRole(RoleModerator), s.handleOpenCase)
	guild.GET("/cases/:id", s.requireRole(RoleModerator), s.handleGetCase)
	guild.POST("/cases/:id/resolve", s.requireRole(RoleModerator), s.handleResolveCase)
	guild.POST("/cases/:id/notes", s.requireRole(RoleModerator), s.handleAddCaseNote)
	guild.GET("/cases/export", s.requireRole(RoleModerator), s.handleExportCases)

	guild.GET("/flags", s.requireRole(RoleModerator), s.handleListFlags)
	guild.POST("/flags/:id/review", s.requireRole(RoleModerator), s.handleReviewFlag)

	guild.GET("/audit", s.handleListAudit)
	guild.GET("/audit/export", s.handleExportAudit)

	guild.GET("/analytics/report", s.handleAnalyticsReport)
	guild.GET("/analytics/series", s.handleAnalyticsSeries)
	guild.GET("/analytics/export", s.handleAnalyticsExport)

	guild.GET("/schedules", s.handleListSchedules)
	guild.POST("/schedules", s.requireRole(RoleAdmin), s.handleCreateSchedule)
	guild.GET("/schedules/:id", s.handleGetSchedule)
	guild.PUT("/schedules/:id", s.requireRole(RoleAdmin), s.handleUpdateSchedule)
	guild.DELETE("/schedules/:id", s.requireRole(RoleAdmin), s.handleDeleteSchedule)
	api.POST("/schedules/validate", s.handleValidateSchedule)

	guild.GET("/notifications", s.handleListNotifications)
	guild.POST("/notifications/:id/read", s.handleMarkNotificationRead)
	guild.POST("/notifications/read-all", s.handleMarkAllNotificationsRead)
	guild.DELETE("/notifications/:id", s.requireRole(RoleAdmin), s.handleDeleteNotification)

	guild.GET("/sounds", s.handleListSounds)
	guild.POST("/sounds", s.requireRole(RoleAdmin), s.handleUploadSound)
	guild.GET("/sounds/export", s.handleExportSounds)
	guild.GET("/sounds/:name/download", s.handleDownloadSound)
	guild.DELETE("/sounds/:name", s.requireRole(RoleAdmin), s.handleDeleteSound)

	guild.GET("/watchlist", s.handleListWatchlist)
	guild.POST("/watchlist", s.requireRole(RoleModerator), s.handleAddWatchlist)
	guild.DELETE("/watchlist/:domain", s.requireRole(RoleModerator), s.handleRemoveWatchlist)

	guild.POST("/voice/vox", s.requireRole(RoleModerator), s.handlePlayVox)
	guild.POST("/voice/vox/preview", s.handlePreviewVox)
	guild.POST("/voice/tts", s.requireRole(RoleModerator), s.handlePlayTTS)
	guild.POST("/voice/stop", s.requireRole(RoleModerator), s.handleStopPlayback)
	guild.GET("/voice/status", s.handleVoiceStatus)

	api.POST("/tokens", s.requireRole(RoleSuperAdmin), s.handleMintToken)
	api.DELETE("/tokens/:id", s.requireRole(RoleSuperAdmin), s.handleDeleteToken)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// recovery turns panics into the uniform error body instead of gin's
// default empty 500.
func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				traceID := uuid.NewString()
				s.logger.Error("panic recovered",
					zap.String("trace_id", traceID),
					zap.Any("panic", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, APIError{
					Message: http.StatusText(http.StatusInternalServerError),
					Detail:  "internal panic",
					Status:  http.StatusInternalServerError,
					TraceID: traceID,
				})
			}
		}()
		c.Next()
	}
}

func (s *Server) Serve() error {
	s.logger.Info("http listening", zap.String("addr", s.cfg.HTTP.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.HTTP.ShutdownSeconds)*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
