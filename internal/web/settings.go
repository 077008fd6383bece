package web

import (
	"net/http"
	"time"

	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
)

type settingsDTO struct {
	GuildID       string    `json:"guild_id"`
	LogChannel    string    `json:"log_channel"`
	Language      string    `json:"language"`
	TTSEnabled    bool      `json:"tts_enabled"`
	VoxEnabled    bool      `json:"vox_enabled"`
	VoxSoundSet   string    `json:"vox_sound_set"`
	TTSVoice      string    `json:"tts_voice"`
	RetentionDays int       `json:"retention_days"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toSettingsDTO(s storage.GuildSettings) settingsDTO {
	return settingsDTO{
		GuildID:       s.GuildID,
		LogChannel:    s.LogChannel,
		Language:      s.Language,
		TTSEnabled:    s.TTSEnabled,
		VoxEnabled:    s.VoxEnabled,
		VoxSoundSet:   s.VoxSoundSet,
		TTSVoice:      s.TTSVoice,
		RetentionDays: s.RetentionDays,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (s *Server) handleGetSettings(c *gin.Context) {
	guildID := c.Param("guild_id")
	current, err := s.settings.Get(c.Request.Context(), guildID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettingsDTO(current))
}

type putSettingsRequest struct {
	LogChannel    string `json:"log_channel"`
	Language      string `json:"language"`
	TTSEnabled    bool   `json:"tts_enabled"`
	VoxEnabled    bool   `json:"vox_enabled"`
	VoxSoundSet   string `json:"vox_sound_set"`
	TTSVoice      string `json:"tts_voice"`
	RetentionDays int    `json:"retention_days"`
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	updated, err := s.settings.Update(c.Request.Context(), actorLabel(c), storage.GuildSettings{
		GuildID:       c.Param("guild_id"),
		LogChannel:    req.LogChannel,
		Language:      req.Language,
		TTSEnabled:    req.TTSEnabled,
		VoxEnabled:    req.VoxEnabled,
		VoxSoundSet:   req.VoxSoundSet,
		TTSVoice:      req.TTSVoice,
		RetentionDays: req.RetentionDays,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettingsDTO(updated))
}
