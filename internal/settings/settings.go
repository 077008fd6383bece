package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bastion-panel/internal/audit"
	"bastion-panel/internal/config"
	"bastion-panel/internal/storage"
)

var (
	ErrInvalidLanguage  = errors.New("unsupported language")
	ErrInvalidRetention = errors.New("retention must be at least one day")
)

var supportedLanguages = map[string]bool{
	"en": true,
	"de": true,
	"fr": true,
	"es": true,
}

// Service reads and writes per-guild settings, falling back to the
// deployment-wide defaults for guilds that never saved a row.
type Service struct {
	cfg   config.Config
	store *storage.Store
	audit *audit.Logger
}

func NewService(cfg config.Config, store *storage.Store, auditLog *audit.Logger) *Service {
	return &Service{cfg: cfg, store: store, audit: auditLog}
}

// Defaults builds the settings a guild starts with.
func (s *Service) Defaults(guildID string) storage.GuildSettings {
	return storage.GuildSettings{
		GuildID:       guildID,
		LogChannel:    s.cfg.DefaultLogChannel,
		Language:      s.cfg.DefaultLanguage,
		TTSEnabled:    true,
		VoxEnabled:    true,
		VoxSoundSet:   s.cfg.Vox.DefaultSet,
		TTSVoice:      s.cfg.TTS.Voice,
		RetentionDays: s.cfg.RetentionDays,
	}
}

func (s *Service) Get(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	return s.store.GetGuildSettings(ctx, guildID, s.Defaults(guildID))
}

func (s *Service) Update(ctx context.Context, actorID string, settings storage.GuildSettings) (storage.GuildSettings, error) {
	settings.Language = strings.ToLower(strings.TrimSpace(settings.Language))
	if settings.Language == "" {
		settings.Language = s.cfg.DefaultLanguage
	}
	if !supportedLanguages[settings.Language] {
		return storage.GuildSettings{}, fmt.Errorf("%w: %s", ErrInvalidLanguage, settings.Language)
	}
	if settings.RetentionDays < 1 {
		return storage.GuildSettings{}, ErrInvalidRetention
	}
	if settings.VoxSoundSet == "" {
		settings.VoxSoundSet = s.cfg.Vox.DefaultSet
	}
	if settings.TTSVoice == "" {
		settings.TTSVoice = s.cfg.TTS.Voice
	}

	if err := s.store.UpsertGuildSettings(ctx, settings); err != nil {
		return storage.GuildSettings{}, err
	}
	s.audit.Log(ctx, audit.LevelInfo, settings.GuildID, actorID, "", "settings_updated",
		fmt.Sprintf("language=%s tts=%t vox=%t retention=%d",
			settings.Language, settings.TTSEnabled, settings.VoxEnabled, settings.RetentionDays))
	return s.Get(ctx, settings.GuildID)
}
