package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"bastion-panel/internal/analytics"
	"bastion-panel/internal/audit"
	"bastion-panel/internal/config"
	"bastion-panel/internal/moderation"
	"bastion-panel/internal/notify"
	"bastion-panel/internal/playback"
	"bastion-panel/internal/schedule"
	"bastion-panel/internal/settings"
	"bastion-panel/internal/storage"
	"bastion-panel/internal/tts"
	"bastion-panel/internal/vox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bootToken = "boot-secret"

type allowAllChannels struct{}

func (allowAllChannels) ValidateVoiceChannel(guildID, channelID string) error { return nil }

type noopVoice struct{}

func (noopVoice) Speaking(bool) error                      { return nil }
func (noopVoice) Play(ctx context.Context, _ string) error { return ctx.Err() }
func (noopVoice) Disconnect() error                        { return nil }

type noopConnector struct{}

func (noopConnector) Connect(guildID, channelID string) (playback.Voice, error) {
	return noopVoice{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())

	cfg := config.DefaultConfig()
	cfg.DiscordToken = "test-token"
	cfg.HTTP.BootstrapToken = bootToken
	cfg.Sounds.UploadDir = t.TempDir()
	cfg.Vox.SoundRoot = t.TempDir()

	voxDir := filepath.Join(cfg.Vox.SoundRoot, "default")
	require.NoError(t, os.MkdirAll(voxDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(voxDir, "warning.wav"), []byte("clip"), 0o644))

	logger := zap.NewNop()
	auditLogger := audit.NewLogger(store, logger)
	settingsSvc := settings.NewService(cfg, store, auditLogger)
	moderationSvc := moderation.New(store, auditLogger)
	analyticsSvc := analytics.New(store)
	notifySvc := notify.NewService(store, settingsSvc, nil, logger)
	auditLogger.SetNotifier(notifySvc.HandleAudit)

	scheduleSvc, err := schedule.NewService(store, nil, auditLogger, logger)
	require.NoError(t, err)
	require.NoError(t, scheduleSvc.Start(context.Background()))
	t.Cleanup(scheduleSvc.Stop)

	library := vox.NewLibrary(cfg.Vox.SoundRoot, cfg.Vox.MaxWords)
	ttsClient := tts.NewClient(cfg.TTS)
	playbackMgr := playback.NewManager(cfg.Playback, noopConnector{}, library, ttsClient, auditLogger, logger)

	return NewServer(cfg, logger, store, settingsSvc, moderationSvc, analyticsSvc,
		scheduleSvc, notifySvc, playbackMgr, allowAllChannels{})
}

func doRequest(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealthNeedsNoToken(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/settings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/settings", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/settings", bootToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorBodyShape(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/cases/999", bootToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var apiErr APIError
	decode(t, w, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
	assert.NotEmpty(t, apiErr.TraceID)
}

func TestMintedTokenRoles(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/tokens", bootToken,
		map[string]string{"role": "viewer", "label": "readonly"})
	require.Equal(t, http.StatusCreated, w.Code)
	var minted struct {
		ID    int64  `json:"id"`
		Token string `json:"token"`
	}
	decode(t, w, &minted)
	require.NotEmpty(t, minted.Token)

	// viewer can read settings
	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/settings", minted.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// but cannot open cases or mint tokens
	w = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/cases", minted.Token,
		map[string]string{"user_id": "u1", "kind": "warn"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doRequest(t, s, http.MethodPost, "/api/v1/tokens", minted.Token,
		map[string]string{"role": "viewer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// deleted tokens stop working
	w = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/tokens/%d", minted.ID), bootToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/settings", minted.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/settings", bootToken, map[string]any{
		"language": "fr", "tts_enabled": true, "vox_enabled": true, "retention_days": 14,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got settingsDTO
	decode(t, w, &got)
	assert.Equal(t, "fr", got.Language)
	assert.Equal(t, 14, got.RetentionDays)

	w = doRequest(t, s, http.MethodPut, "/api/v1/guilds/g1/settings", bootToken, map[string]any{
		"language": "klingon", "retention_days": 14,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/cases", bootToken,
		map[string]string{"user_id": "u1", "moderator_id": "m1", "kind": "warn", "reason": "spam"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created caseDTO
	decode(t, w, &created)
	require.NotZero(t, created.ID)

	w = doRequest(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/guilds/g1/cases/%d/resolve", created.ID), bootToken,
		map[string]string{"moderator_id": "m1", "note": "handled"})
	require.Equal(t, http.StatusOK, w.Code)

	// second resolve conflicts
	w = doRequest(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/guilds/g1/cases/%d/resolve", created.ID), bootToken,
		map[string]string{"moderator_id": "m1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// invalid kind is a 400
	w = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/cases", bootToken,
		map[string]string{"user_id": "u1", "kind": "yeet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// listing returns the case
	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/cases", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Cases []caseDTO `json:"cases"`
	}
	decode(t, w, &page)
	assert.Len(t, page.Cases, 1)
}

func TestScheduleValidateEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/schedules/validate", bootToken,
		map[string]string{"cron_expr": "0 9 * * 1-5"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodPost, "/api/v1/schedules/validate", bootToken,
		map[string]string{"cron_expr": "whenever"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleCRUDOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/schedules", bootToken, map[string]any{
		"channel_id": "c1", "cron_expr": "0 9 * * *", "content": "morning", "enabled": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created scheduleDTO
	decode(t, w, &created)

	w = doRequest(t, s, http.MethodPut,
		fmt.Sprintf("/api/v1/guilds/g1/schedules/%d", created.ID), bootToken, map[string]any{
			"channel_id": "c1", "cron_expr": "0 18 * * *", "content": "evening", "enabled": false,
		})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodDelete,
		fmt.Sprintf("/api/v1/guilds/g1/schedules/%d", created.ID), bootToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestVoxPreviewEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/voice/vox/preview", bootToken,
		map[string]string{"text": "warning unknown", "sound_set": "default"})
	require.Equal(t, http.StatusOK, w.Code)

	var result playback.VoxResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Skipped)

	w = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/voice/vox/preview", bootToken,
		map[string]string{"text": "warning", "sound_set": "missing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStopWithoutPlayback(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/voice/stop", bootToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVoiceStatusIdle(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/voice/status", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap playback.Snapshot
	decode(t, w, &snap)
	assert.False(t, snap.Playing)
}

func TestWatchlistNormalizesDomains(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/watchlist", bootToken,
		map[string]string{"domain": "https://Bad.Example.com/phish"})
	require.Equal(t, http.StatusCreated, w.Code)
	var entry watchlistDTO
	decode(t, w, &entry)
	assert.Equal(t, "bad.example.com", entry.Domain)

	w = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/watchlist", bootToken,
		map[string]string{"domain": "!!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, s, http.MethodDelete, "/api/v1/guilds/g1/watchlist/bad.example.com", bootToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNotificationsFromAuditEvents(t *testing.T) {
	s := newTestServer(t)

	// opening a case writes a WARN audit entry which becomes a notification
	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/cases", bootToken,
		map[string]string{"user_id": "u1", "kind": "warn"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/notifications?unread=true", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Notifications []notificationDTO `json:"notifications"`
	}
	decode(t, w, &list)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "case_opened", list.Notifications[0].Title)

	w = doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/notifications/read-all", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/notifications?unread=true", bootToken, nil)
	decode(t, w, &list)
	assert.Empty(t, list.Notifications)
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/cases", bootToken,
		map[string]string{"user_id": "u1", "kind": "warn"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/analytics/report", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report analytics.Report
	decode(t, w, &report)
	assert.Equal(t, 1, report.OpenCases)
	assert.Equal(t, 1, report.ByEvent["case_opened"])

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/analytics/export?days=3", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "day,total,warn,crit")
}

func TestAuditExportCSV(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/v1/guilds/g1/cases", bootToken,
		map[string]string{"user_id": "u1", "kind": "warn"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/guilds/g1/audit/export", bootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "case_opened")
}
