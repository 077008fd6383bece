package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"bastion-panel/internal/export"
	"bastion-panel/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errBadSoundName  = errors.New("sound name must be lowercase letters, digits, dash or underscore")
	errBadSoundType  = errors.New("unsupported audio format")
	errSoundTooLarge = errors.New("sound file too large")
	errSoundExists   = errors.New("sound name already taken")
)

var soundNameRegex = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

var soundContentTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
}

type soundDTO struct {
	ID          int64     `json:"id"`
	GuildID     string    `json:"guild_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toSoundDTO(s storage.Sound) soundDTO {
	return soundDTO{
		ID:          s.ID,
		GuildID:     s.GuildID,
		Name:        s.Name,
		Size:        s.Size,
		ContentType: s.ContentType,
		UploadedBy:  s.UploadedBy,
		CreatedAt:   s.CreatedAt,
	}
}

func (s *Server) handleListSounds(c *gin.Context) {
	sounds, err := s.store.ListSounds(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	items := make([]soundDTO, 0, len(sounds))
	for _, sound := range sounds {
		items = append(items, toSoundDTO(sound))
	}
	c.JSON(http.StatusOK, gin.H{"sounds": items})
}

func (s *Server) handleUploadSound(c *gin.Context) {
	guildID := c.Param("guild_id")
	name := strings.ToLower(strings.TrimSpace(c.PostForm("name")))
	if !soundNameRegex.MatchString(name) {
		s.fail(c, errBadSoundName)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		s.failBinding(c, err)
		return
	}
	if header.Size > s.cfg.Sounds.MaxSizeBytes {
		s.fail(c, fmt.Errorf("%w: %d bytes", errSoundTooLarge, header.Size))
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := soundContentTypes[ext]
	if !ok {
		s.fail(c, fmt.Errorf("%w: %s", errBadSoundType, ext))
		return
	}

	if _, err := s.store.GetSound(c.Request.Context(), guildID, name); err == nil {
		s.fail(c, errSoundExists)
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.fail(c, err)
		return
	}

	fileName := fmt.Sprintf("%s_%s%s", guildID, name, ext)
	if err := os.MkdirAll(s.cfg.Sounds.UploadDir, 0o755); err != nil {
		s.fail(c, err)
		return
	}
	path := filepath.Join(s.cfg.Sounds.UploadDir, fileName)

	src, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer src.Close()
	// Spool to a temp file first. The final path is only written once the
	// row exists, so a failed insert never disturbs a stored sound.
	tmp, err := os.CreateTemp(s.cfg.Sounds.UploadDir, fileName+".part-*")
	if err != nil {
		s.fail(c, err)
		return
	}
	tmpPath := tmp.Name()
	written, err := io.Copy(tmp, io.LimitReader(src, s.cfg.Sounds.MaxSizeBytes+1))
	tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		s.fail(c, err)
		return
	}
	if written > s.cfg.Sounds.MaxSizeBytes {
		os.Remove(tmpPath)
		s.fail(c, errSoundTooLarge)
		return
	}

	sound := storage.Sound{
		GuildID:     guildID,
		Name:        name,
		FileName:    fileName,
		Size:        written,
		ContentType: contentType,
		UploadedBy:  actorLabel(c),
		CreatedAt:   time.Now(),
	}
	id, err := s.store.InsertSound(c.Request.Context(), sound)
	if err != nil {
		os.Remove(tmpPath)
		s.fail(c, err)
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		if delErr := s.store.DeleteSound(c.Request.Context(), guildID, name); delErr != nil {
			s.logger.Warn("orphaned sound row cleanup failed",
				zap.String("name", name),
				zap.Error(delErr))
		}
		s.fail(c, err)
		return
	}
	sound.ID = id
	c.JSON(http.StatusCreated, toSoundDTO(sound))
}

// handleDownloadSound serves the raw file with range support so audio
// players can seek.
func (s *Server) handleDownloadSound(c *gin.Context) {
	sound, err := s.store.GetSound(c.Request.Context(), c.Param("guild_id"), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	path := filepath.Join(s.cfg.Sounds.UploadDir, sound.FileName)
	file, err := os.Open(path)
	if err != nil {
		s.fail(c, storage.ErrNotFound)
		return
	}
	defer file.Close()
	c.Header("Content-Type", sound.ContentType)
	http.ServeContent(c.Writer, c.Request, sound.FileName, sound.CreatedAt, file)
}

func (s *Server) handleDeleteSound(c *gin.Context) {
	guildID := c.Param("guild_id")
	name := c.Param("name")
	sound, err := s.store.GetSound(c.Request.Context(), guildID, name)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.DeleteSound(c.Request.Context(), guildID, name); err != nil {
		s.fail(c, err)
		return
	}
	if err := os.Remove(filepath.Join(s.cfg.Sounds.UploadDir, sound.FileName)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("sound file removal failed",
			zap.String("file", sound.FileName),
			zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportSounds(c *gin.Context) {
	sounds, err := s.store.ListSounds(c.Request.Context(), c.Param("guild_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="sounds.zip"`)
	if err := export.WriteSoundsZIP(c.Writer, s.cfg.Sounds.UploadDir, sounds); err != nil {
		s.logger.Warn("sounds export write failed", zap.Error(err))
	}
}
