package notify

import (
	"context"
	"fmt"
	"time"

	"bastion-panel/internal/audit"
	"bastion-panel/internal/settings"
	"bastion-panel/internal/storage"

	"go.uber.org/zap"
)

// Sender mirrors critical notifications into the guild's log channel.
type Sender interface {
	SendChannelMessage(channelID, content string) error
}

// Service records panel notifications and fans critical audit events out to
// Discord. It plugs into the audit logger as its notifier.
type Service struct {
	store    *storage.Store
	settings *settings.Service
	sender   Sender
	logger   *zap.Logger
}

func NewService(store *storage.Store, settingsSvc *settings.Service, sender Sender, logger *zap.Logger) *Service {
	return &Service{store: store, settings: settingsSvc, sender: sender, logger: logger}
}

// HandleAudit turns WARN and CRIT audit entries into panel notifications.
// INFO entries stay in the audit log only.
func (s *Service) HandleAudit(ctx context.Context, entry storage.AuditLog) {
	if entry.Level == audit.LevelInfo {
		return
	}

	n := storage.Notification{
		GuildID:   entry.GuildID,
		Level:     entry.Level,
		Title:     entry.Event,
		Body:      entry.Details,
		CreatedAt: time.Now(),
	}
	if _, err := s.store.InsertNotification(ctx, n); err != nil {
		s.logger.Warn("notification insert failed", zap.Error(err))
	}

	if entry.Level == audit.LevelCrit {
		s.mirror(ctx, entry)
	}
}

func (s *Service) mirror(ctx context.Context, entry storage.AuditLog) {
	if s.sender == nil {
		return
	}
	guild, err := s.settings.Get(ctx, entry.GuildID)
	if err != nil || guild.LogChannel == "" {
		return
	}
	content := fmt.Sprintf("**%s** %s: %s", entry.Level, entry.Event, entry.Details)
	if err := s.sender.SendChannelMessage(guild.LogChannel, content); err != nil {
		s.logger.Warn("notification mirror failed",
			zap.String("guild_id", entry.GuildID),
			zap.String("channel_id", guild.LogChannel),
			zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, guildID string, unreadOnly bool, limit int) ([]storage.Notification, error) {
	return s.store.ListNotifications(ctx, guildID, unreadOnly, limit)
}

func (s *Service) MarkRead(ctx context.Context, guildID string, id int64) error {
	return s.store.MarkNotificationRead(ctx, guildID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, guildID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, guildID)
}

func (s *Service) Delete(ctx context.Context, guildID string, id int64) error {
	return s.store.DeleteNotification(ctx, guildID, id)
}
