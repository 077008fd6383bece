package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bastion-panel/internal/audit"
	"bastion-panel/internal/storage"
)

var (
	ErrNotFound        = errors.New("case not found")
	ErrInvalidKind     = errors.New("invalid case kind")
	ErrMissingUser     = errors.New("user id is required")
	ErrAlreadyResolved = errors.New("case already resolved")
	ErrEmptyNote       = errors.New("note is empty")
)

var validKinds = map[string]struct{}{
	"warn": {},
	"mute": {},
	"kick": {},
	"ban":  {},
}

type Service struct {
	store *storage.Store
	audit *audit.Logger
}

func New(store *storage.Store, auditLogger *audit.Logger) *Service {
	return &Service{store: store, audit: auditLogger}
}

type OpenRequest struct {
	GuildID     string
	UserID      string
	ModeratorID string
	Kind        string
	Reason      string
}

func (s *Service) Open(ctx context.Context, req OpenRequest) (storage.ModerationCase, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return storage.ModerationCase{}, ErrMissingUser
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if _, ok := validKinds[kind]; !ok {
		return storage.ModerationCase{}, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	c := storage.ModerationCase{
		GuildID:     req.GuildID,
		UserID:      req.UserID,
		ModeratorID: req.ModeratorID,
		Kind:        kind,
		Reason:      strings.TrimSpace(req.Reason),
		Status:      "open",
		CreatedAt:   time.Now(),
	}
	id, err := s.store.InsertCase(ctx, c)
	if err != nil {
		return storage.ModerationCase{}, err
	}
	c.ID = id

	s.audit.Log(ctx, audit.LevelWarn, req.GuildID, req.ModeratorID, req.UserID, "case_opened",
		fmt.Sprintf("case=%d kind=%s", id, kind))
	return c, nil
}

func (s *Service) Get(ctx context.Context, guildID string, id int64) (storage.ModerationCase, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ModerationCase{}, ErrNotFound
		}
		return storage.ModerationCase{}, err
	}
	if c.GuildID != guildID {
		return storage.ModerationCase{}, ErrNotFound
	}
	return c, nil
}

func (s *Service) Resolve(ctx context.Context, guildID, moderatorID string, id int64, note string) (storage.ModerationCase, error) {
	existing, err := s.Get(ctx, guildID, id)
	if err != nil {
		return storage.ModerationCase{}, err
	}
	if existing.Status != "open" {
		return storage.ModerationCase{}, ErrAlreadyResolved
	}

	if err := s.store.ResolveCase(ctx, id, strings.TrimSpace(note), time.Now()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Raced with another resolver between the read and the update.
			return storage.ModerationCase{}, ErrAlreadyResolved
		}
		return storage.ModerationCase{}, err
	}

	s.audit.Log(ctx, audit.LevelInfo, guildID, moderatorID, existing.UserID, "case_resolved",
		fmt.Sprintf("case=%d", id))
	return s.Get(ctx, guildID, id)
}

func (s *Service) AddNote(ctx context.Context, guildID, moderatorID string, id int64, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrEmptyNote
	}
	if _, err := s.Get(ctx, guildID, id); err != nil {
		return err
	}
	if err := s.store.AppendCaseNote(ctx, id, note); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.audit.Log(ctx, audit.LevelInfo, guildID, moderatorID, "", "case_note", fmt.Sprintf("case=%d", id))
	return nil
}

type Page struct {
	Cases      []storage.ModerationCase
	NextCursor string
}

func (s *Service) List(ctx context.Context, guildID string, filter storage.CaseFilter) (Page, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	cases, err := s.store.ListCases(ctx, guildID, filter)
	if err != nil {
		return Page{}, err
	}

	page := Page{Cases: cases}
	if len(cases) == filter.Limit {
		last := cases[len(cases)-1]
		page.NextCursor = EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (s *Service) ListFlags(ctx context.Context, guildID string, unreviewedOnly bool, limit int) ([]storage.FlaggedEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListFlaggedEvents(ctx, guildID, unreviewedOnly, limit)
}

func (s *Service) ReviewFlag(ctx context.Context, guildID, moderatorID string, id int64, caseID *int64) error {
	flag, err := s.store.GetFlaggedEvent(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if flag.GuildID != guildID {
		return ErrNotFound
	}
	if caseID != nil {
		if _, err := s.Get(ctx, guildID, *caseID); err != nil {
			return err
		}
	}
	if err := s.store.MarkFlaggedEventReviewed(ctx, id, caseID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.audit.Log(ctx, audit.LevelInfo, guildID, moderatorID, flag.UserID, "flag_reviewed",
		fmt.Sprintf("flag=%d rule=%s", id, flag.Rule))
	return nil
}

// EncodeCursor packs a keyset position into an opaque page token.
func EncodeCursor(t time.Time, id int64) string {
	return fmt.Sprintf("%d.%d", t.Unix(), id)
}

func DecodeCursor(cursor string) (time.Time, int64, bool) {
	var unix, id int64
	if _, err := fmt.Sscanf(cursor, "%d.%d", &unix, &id); err != nil {
		return time.Time{}, 0, false
	}
	if unix <= 0 || id <= 0 {
		return time.Time{}, 0, false
	}
	return time.Unix(unix, 0), id, true
}
