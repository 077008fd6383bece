package analytics

import (
	"context"
	"time"

	"bastion-panel/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Total     int            `json:"total"`
	ByLevel   map[string]int `json:"by_level"`
	ByEvent   map[string]int `json:"by_event"`
	ByKind    map[string]int `json:"by_case_kind"`
	OpenCases int            `json:"open_cases"`
	Resolved  int            `json:"resolved_cases"`
}

type DayBucket struct {
	Day   string `json:"day"`
	Total int    `json:"total"`
	Warn  int    `json:"warn"`
	Crit  int    `json:"crit"`
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since, "", 0)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
	}

	byKind, err := s.store.CountCasesByKind(ctx, guildID)
	if err != nil {
		return Report{}, err
	}
	report.ByKind = byKind

	open, err := s.store.CountCases(ctx, guildID, "open")
	if err != nil {
		return Report{}, err
	}
	resolved, err := s.store.CountCases(ctx, guildID, "resolved")
	if err != nil {
		return Report{}, err
	}
	report.OpenCases = open
	report.Resolved = resolved
	return report, nil
}

// Series buckets a guild's audit activity into calendar days (UTC) over the
// last `days` days, oldest first. Empty days are present with zero counts.
func (s *Service) Series(ctx context.Context, guildID string, days int) ([]DayBucket, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	logs, err := s.store.ListAuditLogs(ctx, guildID, start, "", 0)
	if err != nil {
		return nil, err
	}

	buckets := make([]DayBucket, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = DayBucket{Day: day}
		index[day] = i
	}

	for _, log := range logs {
		day := log.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			continue
		}
		buckets[i].Total++
		switch log.Level {
		case "WARN":
			buckets[i].Warn++
		case "CRIT":
			buckets[i].Crit++
		}
	}
	return buckets, nil
}
