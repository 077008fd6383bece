package export

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"bastion-panel/internal/analytics"
	"bastion-panel/internal/storage"
)

// WriteAuditCSV streams a guild's audit window as CSV with a header row.
func WriteAuditCSV(w io.Writer, logs []storage.AuditLog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "guild_id", "actor_id", "target_id", "level", "event", "details", "created_at"}); err != nil {
		return err
	}
	for _, log := range logs {
		record := []string{
			strconv.FormatInt(log.ID, 10),
			log.GuildID,
			log.ActorID,
			log.TargetID,
			log.Level,
			log.Event,
			log.Details,
			log.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteCasesCSV(w io.Writer, cases []storage.ModerationCase) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "guild_id", "user_id", "moderator_id", "kind", "reason", "status", "created_at", "resolved_at"}); err != nil {
		return err
	}
	for _, c := range cases {
		resolved := ""
		if c.ResolvedAt != nil {
			resolved = c.ResolvedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.GuildID,
			c.UserID,
			c.ModeratorID,
			c.Kind,
			c.Reason,
			c.Status,
			c.CreatedAt.UTC().Format(time.RFC3339),
			resolved,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSV streams the per-day activity buckets as CSV.
func WriteSeriesCSV(w io.Writer, buckets []analytics.DayBucket) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"day", "total", "warn", "crit"}); err != nil {
		return err
	}
	for _, b := range buckets {
		record := []string{
			b.Day,
			strconv.Itoa(b.Total),
			strconv.Itoa(b.Warn),
			strconv.Itoa(b.Crit),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSoundsZIP packs the given sound files into a ZIP archive. Each entry
// is named `<name><ext>` from its library name and stored file extension.
// Missing files are skipped rather than failing the whole archive.
func WriteSoundsZIP(w io.Writer, dir string, sounds []storage.Sound) error {
	archive := zip.NewWriter(w)
	for _, sound := range sounds {
		path := dir + string(os.PathSeparator) + sound.FileName
		file, err := os.Open(path)
		if err != nil {
			continue
		}

		entry, err := archive.CreateHeader(&zip.FileHeader{
			Name:     sound.FileName,
			Method:   zip.Deflate,
			Modified: sound.CreatedAt,
		})
		if err != nil {
			file.Close()
			return fmt.Errorf("zip entry %s: %w", sound.FileName, err)
		}
		if _, err := io.Copy(entry, file); err != nil {
			file.Close()
			return fmt.Errorf("zip copy %s: %w", sound.FileName, err)
		}
		file.Close()
	}
	return archive.Close()
}
