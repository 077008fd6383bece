package settings

import (
	"context"
	"errors"
	"testing"

	"bastion-panel/internal/audit"
	"bastion-panel/internal/config"
	"bastion-panel/internal/storage"

	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.DefaultConfig()
	return NewService(cfg, store, audit.NewLogger(store, zap.NewNop()))
}

func TestGetFallsBackToDefaults(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.Get(context.Background(), "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GuildID != "g1" || got.Language != "en" || got.RetentionDays != 30 {
		t.Fatalf("unexpected defaults %+v", got)
	}
	if !got.TTSEnabled || !got.VoxEnabled {
		t.Fatalf("expected playback enabled by default, got %+v", got)
	}
}

func TestUpdateValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := storage.GuildSettings{GuildID: "g1", Language: "en", RetentionDays: 30}

	bad := base
	bad.Language = "klingon"
	if _, err := svc.Update(ctx, "ops", bad); !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}

	bad = base
	bad.RetentionDays = 0
	if _, err := svc.Update(ctx, "ops", bad); !errors.Is(err, ErrInvalidRetention) {
		t.Fatalf("expected ErrInvalidRetention, got %v", err)
	}
}

func TestUpdatePersistsAndFillsGaps(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	updated, err := svc.Update(ctx, "ops", storage.GuildSettings{
		GuildID:       "g1",
		Language:      " FR ",
		LogChannel:    "c9",
		TTSEnabled:    true,
		RetentionDays: 14,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Language != "fr" || updated.LogChannel != "c9" {
		t.Fatalf("unexpected settings %+v", updated)
	}
	if updated.VoxSoundSet == "" || updated.TTSVoice == "" {
		t.Fatalf("expected defaulted sound set and voice, got %+v", updated)
	}

	again, err := svc.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if again.RetentionDays != 14 {
		t.Fatalf("expected persisted retention, got %+v", again)
	}
}
