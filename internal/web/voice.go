package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errVoxDisabled = errors.New("vox playback is disabled for this guild")
	errTTSDisabled = errors.New("tts playback is disabled for this guild")
)

type voxRequest struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
	SoundSet  string `json:"sound_set"`
}

func (s *Server) handlePlayVox(c *gin.Context) {
	guildID := c.Param("guild_id")
	var req voxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}

	guild, err := s.settings.Get(c.Request.Context(), guildID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !guild.VoxEnabled {
		s.fail(c, errVoxDisabled)
		return
	}
	soundSet := req.SoundSet
	if soundSet == "" {
		soundSet = guild.VoxSoundSet
	}
	if err := s.channels.ValidateVoiceChannel(guildID, req.ChannelID); err != nil {
		s.fail(c, err)
		return
	}

	result, err := s.playback.PlayVox(c.Request.Context(), guildID, req.ChannelID, soundSet, req.Text, actorLabel(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

type voxPreviewRequest struct {
	Text     string `json:"text"`
	SoundSet string `json:"sound_set"`
}

func (s *Server) handlePreviewVox(c *gin.Context) {
	var req voxPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}
	soundSet := req.SoundSet
	if soundSet == "" {
		guild, err := s.settings.Get(c.Request.Context(), c.Param("guild_id"))
		if err != nil {
			s.fail(c, err)
			return
		}
		soundSet = guild.VoxSoundSet
	}
	result, err := s.playback.PreviewVox(soundSet, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type ttsRequest struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
	Voice     string `json:"voice"`
}

func (s *Server) handlePlayTTS(c *gin.Context) {
	guildID := c.Param("guild_id")
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.failBinding(c, err)
		return
	}

	guild, err := s.settings.Get(c.Request.Context(), guildID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !guild.TTSEnabled {
		s.fail(c, errTTSDisabled)
		return
	}
	voice := req.Voice
	if voice == "" {
		voice = guild.TTSVoice
	}
	if err := s.channels.ValidateVoiceChannel(guildID, req.ChannelID); err != nil {
		s.fail(c, err)
		return
	}

	if err := s.playback.PlayTTS(c.Request.Context(), guildID, req.ChannelID, req.Text, voice, actorLabel(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) handleStopPlayback(c *gin.Context) {
	if err := s.playback.Stop(c.Request.Context(), c.Param("guild_id"), actorLabel(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleVoiceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.playback.Status(c.Param("guild_id")))
}
