package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bastion-panel/internal/analytics"
	"bastion-panel/internal/audit"
	"bastion-panel/internal/bot"
	"bastion-panel/internal/config"
	"bastion-panel/internal/moderation"
	"bastion-panel/internal/notify"
	"bastion-panel/internal/playback"
	"bastion-panel/internal/schedule"
	"bastion-panel/internal/settings"
	"bastion-panel/internal/storage"
	"bastion-panel/internal/tts"
	"bastion-panel/internal/vox"
	"bastion-panel/internal/web"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	auditLogger := audit.NewLogger(store, logger)
	settingsSvc := settings.NewService(cfg, store, auditLogger)
	moderationSvc := moderation.New(store, auditLogger)
	analyticsSvc := analytics.New(store)

	discord, err := bot.New(cfg, logger)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := discord.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	notifySvc := notify.NewService(store, settingsSvc, discord, logger)
	auditLogger.SetNotifier(notifySvc.HandleAudit)

	scheduleSvc, err := schedule.NewService(store, discord, auditLogger, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := scheduleSvc.Start(startCtx); err != nil {
		startCancel()
		logger.Fatal("scheduler start failed", zap.Error(err))
	}
	startCancel()

	library := vox.NewLibrary(cfg.Vox.SoundRoot, cfg.Vox.MaxWords)
	ttsClient := tts.NewClient(cfg.TTS)
	connector := playback.NewDiscordConnector(discord.Session(), cfg.Playback.Bitrate)
	playbackMgr := playback.NewManager(cfg.Playback, connector, library, ttsClient, auditLogger, logger)

	server := web.NewServer(cfg, logger, store, settingsSvc, moderationSvc, analyticsSvc,
		scheduleSvc, notifySvc, playbackMgr, discord)
	go func() {
		if err := server.Serve(); err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	cleanupDone := make(chan struct{})
	go startRetentionLoop(store, cfg.RetentionDays, logger, cleanupDone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	close(cleanupDone)
	scheduleSvc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
	discord.Close(ctx)
}

// startRetentionLoop prunes audit logs past the retention window once a day.
func startRetentionLoop(store *storage.Store, retentionDays int, logger *zap.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := store.CleanupAuditLogs(ctx, retentionDays); err != nil {
				logger.Warn("audit cleanup failed", zap.Error(err))
			}
			cancel()
		}
	}
}
