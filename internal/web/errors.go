package web

import (
	"errors"
	"net/http"

	"bastion-panel/internal/bot"
	"bastion-panel/internal/moderation"
	"bastion-panel/internal/playback"
	"bastion-panel/internal/schedule"
	"bastion-panel/internal/settings"
	"bastion-panel/internal/storage"
	"bastion-panel/internal/tts"
	"bastion-panel/internal/utils"
	"bastion-panel/internal/vox"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIError is the uniform error body every endpoint returns on failure.
// The trace id also lands in the server log so operators can match the two.
type APIError struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Status  int    `json:"status"`
	TraceID string `json:"trace_id"`
}

var (
	errMissingToken = errors.New("missing bearer token")
	errBadToken     = errors.New("unknown token")
	errForbidden    = errors.New("insufficient role")
	errBadCursor    = errors.New("malformed cursor")
)

// statusFor buckets service errors into HTTP statuses. Anything unmapped is
// an internal error and keeps its message in the response body.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingToken), errors.Is(err, errBadToken):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, moderation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrBusy),
		errors.Is(err, playback.ErrNotPlaying),
		errors.Is(err, moderation.ErrAlreadyResolved),
		errors.Is(err, errSoundExists):
		return http.StatusConflict
	case errors.Is(err, tts.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, moderation.ErrInvalidKind),
		errors.Is(err, moderation.ErrMissingUser),
		errors.Is(err, moderation.ErrEmptyNote),
		errors.Is(err, vox.ErrEmptyMessage),
		errors.Is(err, vox.ErrTooManyWords),
		errors.Is(err, vox.ErrUnknownSet),
		errors.Is(err, playback.ErrNoClips),
		errors.Is(err, tts.ErrEmptyText),
		errors.Is(err, tts.ErrTextTooLong),
		errors.Is(err, schedule.ErrInvalidCron),
		errors.Is(err, schedule.ErrEmptyContent),
		errors.Is(err, schedule.ErrMissingChannel),
		errors.Is(err, settings.ErrInvalidLanguage),
		errors.Is(err, settings.ErrInvalidRetention),
		errors.Is(err, utils.ErrInvalidDomain),
		errors.Is(err, bot.ErrUnknownChannel),
		errors.Is(err, bot.ErrNotVoice),
		errors.Is(err, bot.ErrNotText),
		errors.Is(err, errBadCursor),
		errors.Is(err, errBadSoundName),
		errors.Is(err, errBadSoundType),
		errors.Is(err, errSoundTooLarge),
		errors.Is(err, errVoxDisabled),
		errors.Is(err, errTTSDisabled),
		errors.Is(err, errBadRole),
		errors.Is(err, errBadOAuthState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := APIError{
		Message: http.StatusText(status),
		Detail:  err.Error(),
		Status:  status,
		TraceID: uuid.NewString(),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("trace_id", body.TraceID),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) failBinding(c *gin.Context, err error) {
	body := APIError{
		Message: http.StatusText(http.StatusBadRequest),
		Detail:  err.Error(),
		Status:  http.StatusBadRequest,
		TraceID: uuid.NewString(),
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
