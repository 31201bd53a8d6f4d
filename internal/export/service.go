package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"svstudio/internal/models"

	"github.com/rs/zerolog"
)

// ErrStoreDegraded is returned when the bookings were served by a fallback
// store, so the report would be incomplete.
var ErrStoreDegraded = errors.New("booking store is degraded, report not written")

// healthReporter is implemented by stores that can serve from a fallback.
type healthReporter interface {
	Healthy() bool
}

type Config struct {
	Enabled       bool
	StoragePath   string
	RetentionDays int
}

// ReportService writes the previous month's report to disk once a day and
// prunes old report files.
type ReportService struct {
	lister Lister
	cfg    Config
	now    func() time.Time
	logger *zerolog.Logger
}

func NewReportService(lister Lister, cfg Config, logger *zerolog.Logger) *ReportService {
	l := logger.With().Str("component", "export").Logger()
	return &ReportService{
		lister: lister,
		cfg:    cfg,
		now:    time.Now,
		logger: &l,
	}
}

func (s *ReportService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("monthly export is disabled")
		return
	}

	s.logger.Info().Str("path", s.cfg.StoragePath).Msg("monthly export started")

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ReportService) runOnce(ctx context.Context) {
	month := s.now().AddDate(0, -1, 0).Format(models.MonthLayout)
	if _, err := s.ExportMonth(ctx, month); err != nil {
		s.logger.Error().Err(err).Str("month", month).Msg("monthly export failed")
	}
	s.CleanupOldReports()
}

// ReportPath is where the report for month is written.
func (s *ReportService) ReportPath(month string) string {
	return filepath.Join(s.cfg.StoragePath, fmt.Sprintf("bookings_%s.xlsx", month))
}

// ExportMonth writes the report for month unless it already exists. Nothing
// is written while the store is degraded, so a later run retries the month.
func (s *ReportService) ExportMonth(ctx context.Context, month string) (string, error) {
	path := s.ReportPath(month)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	var buf bytes.Buffer
	if err := BuildMonthlyReport(ctx, s.lister, month, &buf); err != nil {
		return "", err
	}
	if h, ok := s.lister.(healthReporter); ok && !h.Healthy() {
		return "", ErrStoreDegraded
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	s.logger.Info().Str("month", month).Str("path", path).Msg("monthly report written")
	return path, nil
}

// CleanupOldReports removes report files older than the retention period.
func (s *ReportService) CleanupOldReports() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read export directory for cleanup")
		return
	}

	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".xlsx") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("deleting old report")
			if err := os.Remove(filepath.Join(s.cfg.StoragePath, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("failed to delete old report")
			}
		}
	}
}
