package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"bastion-panel/internal/audit"
	"bastion-panel/internal/storage"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

var (
	ErrInvalidCron    = errors.New("invalid cron expression")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrMissingChannel = errors.New("channel id is required")
)

// Sender delivers a scheduled message to its channel.
type Sender interface {
	SendChannelMessage(channelID, content string) error
}

// Service keeps the cron scheduler in step with the scheduled_messages
// table. Every enabled row owns exactly one job, keyed by row id.
type Service struct {
	store  *storage.Store
	sender Sender
	audit  *audit.Logger
	logger *zap.Logger

	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      map[int64]gocron.Job
}

func NewService(store *storage.Store, sender Sender, auditLog *audit.Logger, logger *zap.Logger) (*Service, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &Service{
		store:     store,
		sender:    sender,
		audit:     auditLog,
		logger:    logger,
		scheduler: scheduler,
		jobs:      make(map[int64]gocron.Job),
	}, nil
}

// ValidateCron checks a five-field cron expression by asking the scheduler
// to parse it. The probe job is removed immediately.
func ValidateCron(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ErrInvalidCron
	}
	probe, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	defer func() { _ = probe.Shutdown() }()
	if _, err := probe.NewJob(gocron.CronJob(expr, false), gocron.NewTask(func() {})); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCron, expr)
	}
	return nil
}

// Start loads every enabled schedule from storage and begins running jobs.
func (s *Service) Start(ctx context.Context) error {
	messages, err := s.store.ListEnabledSchedules(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range messages {
		if err := s.addJobLocked(m); err != nil {
			s.logger.Warn("skipping schedule with bad cron",
				zap.Int64("id", m.ID),
				zap.String("guild_id", m.GuildID),
				zap.Error(err))
		}
	}
	s.scheduler.Start()
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.scheduler.Shutdown()
}

// Create validates and persists a schedule, then arms its job when enabled.
func (s *Service) Create(ctx context.Context, m storage.ScheduledMessage) (storage.ScheduledMessage, error) {
	if err := validateMessage(m); err != nil {
		return storage.ScheduledMessage{}, err
	}
	id, err := s.store.InsertSchedule(ctx, m)
	if err != nil {
		return storage.ScheduledMessage{}, err
	}
	stored, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return storage.ScheduledMessage{}, err
	}
	if stored.Enabled {
		s.mu.Lock()
		if err := s.addJobLocked(stored); err != nil {
			s.logger.Warn("schedule job not armed", zap.Int64("id", stored.ID), zap.Error(err))
		}
		s.mu.Unlock()
	}
	s.audit.Log(ctx, audit.LevelInfo, stored.GuildID, "", "", "schedule_created",
		fmt.Sprintf("schedule %d: %q in channel %s", stored.ID, stored.CronExpr, stored.ChannelID))
	return stored, nil
}

// Update rewrites the row and rebuilds the job to match.
func (s *Service) Update(ctx context.Context, m storage.ScheduledMessage) (storage.ScheduledMessage, error) {
	if err := validateMessage(m); err != nil {
		return storage.ScheduledMessage{}, err
	}
	if err := s.store.UpdateSchedule(ctx, m); err != nil {
		return storage.ScheduledMessage{}, err
	}
	stored, err := s.store.GetSchedule(ctx, m.ID)
	if err != nil {
		return storage.ScheduledMessage{}, err
	}

	s.mu.Lock()
	s.removeJobLocked(stored.ID)
	if stored.Enabled {
		if err := s.addJobLocked(stored); err != nil {
			s.logger.Warn("schedule job not armed", zap.Int64("id", stored.ID), zap.Error(err))
		}
	}
	s.mu.Unlock()

	s.audit.Log(ctx, audit.LevelInfo, stored.GuildID, "", "", "schedule_updated",
		fmt.Sprintf("schedule %d: %q enabled=%t", stored.ID, stored.CronExpr, stored.Enabled))
	return stored, nil
}

// Delete removes the row and tears down its job.
func (s *Service) Delete(ctx context.Context, guildID string, id int64) error {
	if err := s.store.DeleteSchedule(ctx, guildID, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.removeJobLocked(id)
	s.mu.Unlock()
	s.audit.Log(ctx, audit.LevelInfo, guildID, "", "", "schedule_deleted",
		fmt.Sprintf("schedule %d removed", id))
	return nil
}

func (s *Service) List(ctx context.Context, guildID string) ([]storage.ScheduledMessage, error) {
	return s.store.ListSchedules(ctx, guildID)
}

func (s *Service) Get(ctx context.Context, guildID string, id int64) (storage.ScheduledMessage, error) {
	m, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return storage.ScheduledMessage{}, err
	}
	if m.GuildID != guildID {
		return storage.ScheduledMessage{}, storage.ErrNotFound
	}
	return m, nil
}

// NextRun reports when the job for a schedule fires next. Zero time means
// the schedule is disabled or its job failed to arm.
func (s *Service) NextRun(id int64) time.Time {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	next, err := job.NextRun()
	if err != nil {
		return time.Time{}
	}
	return next
}

func (s *Service) addJobLocked(m storage.ScheduledMessage) error {
	id := m.ID
	guildID := m.GuildID
	channelID := m.ChannelID
	content := m.Content
	job, err := s.scheduler.NewJob(
		gocron.CronJob(m.CronExpr, false),
		gocron.NewTask(func() { s.fire(id, guildID, channelID, content) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCron, m.CronExpr)
	}
	s.jobs[m.ID] = job
	return nil
}

func (s *Service) removeJobLocked(id int64) {
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	_ = s.scheduler.RemoveJob(job.ID())
	delete(s.jobs, id)
}

func (s *Service) fire(id int64, guildID, channelID, content string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.SendChannelMessage(channelID, content); err != nil {
		s.logger.Warn("scheduled message failed",
			zap.Int64("id", id),
			zap.String("guild_id", guildID),
			zap.String("channel_id", channelID),
			zap.Error(err))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.audit.Log(ctx, audit.LevelWarn, guildID, "", "", "schedule_failed",
			fmt.Sprintf("schedule %d: %v", id, err))
		return
	}
	s.logger.Debug("scheduled message sent", zap.Int64("id", id), zap.String("channel_id", channelID))
}

func validateMessage(m storage.ScheduledMessage) error {
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if strings.TrimSpace(m.ChannelID) == "" {
		return ErrMissingChannel
	}
	return ValidateCron(m.CronExpr)
}
