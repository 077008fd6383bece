package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScheduleLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertSchedule(ctx, ScheduledMessage{
		GuildID:   "g1",
		ChannelID: "c1",
		CronExpr:  "0 9 * * *",
		Content:   "good morning",
		Enabled:   true,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetSchedule(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "good morning" || !got.Enabled {
		t.Fatalf("unexpected schedule %+v", got)
	}

	got.Content = "good evening"
	got.Enabled = false
	if err := store.UpdateSchedule(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	enabled, err := store.ListEnabledSchedules(ctx)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 0 {
		t.Fatalf("expected no enabled schedules, got %d", len(enabled))
	}

	if err := store.DeleteSchedule(ctx, "other-guild", id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-guild delete to fail, got %v", err)
	}
	if err := store.DeleteSchedule(ctx, "g1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestPanelTokens(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertToken(ctx, PanelToken{
		TokenHash: "abc123",
		Role:      "moderator",
		Label:     "ops",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert token: %v", err)
	}

	got, err := store.GetTokenByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if got.Role != "moderator" || got.Label != "ops" {
		t.Fatalf("unexpected token %+v", got)
	}
	if got.LastUsedAt != nil {
		t.Fatalf("expected unused token")
	}

	if err := store.TouchToken(ctx, id); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err = store.GetTokenByHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("get after touch: %v", err)
	}
	if got.LastUsedAt == nil {
		t.Fatalf("expected last_used_at after touch")
	}

	if err := store.DeleteToken(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetTokenByHash(ctx, "abc123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNotificationsReadFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.InsertNotification(ctx, Notification{
			GuildID:   "g1",
			Level:     "WARN",
			Title:     "schedule_failed",
			Body:      "delivery error",
			CreatedAt: time.Now(),
		}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	unread, err := store.ListNotifications(ctx, "g1", true, 10)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 3 {
		t.Fatalf("expected 3 unread, got %d", len(unread))
	}

	if err := store.MarkNotificationRead(ctx, "g1", unread[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	updated, err := store.MarkAllNotificationsRead(ctx, "g1")
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 newly read, got %d", updated)
	}

	unread, err = store.ListNotifications(ctx, "g1", true, 10)
	if err != nil {
		t.Fatalf("list after read: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread, got %d", len(unread))
	}
}

func TestWatchlistDomains(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := WatchlistEntry{GuildID: "g1", Domain: "bad.example.com", AddedBy: "ops", CreatedAt: time.Now()}
	if err := store.AddWatchlistDomain(ctx, entry); err != nil {
		t.Fatalf("add: %v", err)
	}
	// duplicate insert is a no-op
	if err := store.AddWatchlistDomain(ctx, entry); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	entries, err := store.ListWatchlistDomains(ctx, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 domain, got %d", len(entries))
	}

	if err := store.RemoveWatchlistDomain(ctx, "g1", "bad.example.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.RemoveWatchlistDomain(ctx, "g1", "bad.example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestFlaggedEventReview(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.InsertFlaggedEvent(ctx, FlaggedEvent{
		GuildID:   "g1",
		UserID:    "u1",
		Rule:      "phishing_domain",
		Details:   "posted bad.example.com",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert flag: %v", err)
	}

	caseID, err := store.InsertCase(ctx, ModerationCase{
		GuildID: "g1", UserID: "u1", ModeratorID: "m1", Kind: "warn", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("insert case: %v", err)
	}

	if err := store.MarkFlaggedEventReviewed(ctx, id, &caseID); err != nil {
		t.Fatalf("review: %v", err)
	}
	got, err := store.GetFlaggedEvent(ctx, id)
	if err != nil {
		t.Fatalf("get flag: %v", err)
	}
	if !got.Reviewed || got.CaseID == nil || *got.CaseID != caseID {
		t.Fatalf("unexpected flag %+v", got)
	}

	if err := store.MarkFlaggedEventReviewed(ctx, id, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double review, got %v", err)
	}
}

func TestSoundCatalog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.InsertSound(ctx, Sound{
		GuildID:     "g1",
		Name:        "airhorn",
		FileName:    "g1_airhorn.ogg",
		Size:        2048,
		ContentType: "audio/ogg",
		UploadedBy:  "ops",
		CreatedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("insert sound: %v", err)
	}

	got, err := store.GetSound(ctx, "g1", "airhorn")
	if err != nil {
		t.Fatalf("get sound: %v", err)
	}
	if got.FileName != "g1_airhorn.ogg" || got.Size != 2048 {
		t.Fatalf("unexpected sound %+v", got)
	}

	if _, err := store.GetSound(ctx, "g2", "airhorn"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cross-guild miss, got %v", err)
	}

	if err := store.DeleteSound(ctx, "g1", "airhorn"); err != nil {
		t.Fatalf("delete sound: %v", err)
	}
}
