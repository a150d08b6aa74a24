package snapshot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
	"github.com/rafaelcosta/cryptofolio-backend/internal/usecase/valuation"
)

// settingIntervalMinutes is the settings key the interval persists under so
// it survives a restart
const settingIntervalMinutes = "snapshot.interval_minutes"

// Valuer exposes the portfolio view the scheduler values on each tick
type Valuer interface {
	Portfolio(ctx context.Context) (*valuation.Portfolio, error)
}

// Scheduler periodically captures the total portfolio value. Every run
// appends exactly one SnapshotLog entry, success or failure; a failed run
// skips the snapshot, never crashes the process, and the next tick proceeds
// normally.
type Scheduler struct {
	Valuer       Valuer
	SnapshotRepo domain.SnapshotRepository
	LogRepo      domain.SnapshotLogRepository
	SettingsRepo domain.SettingsRepository

	logger      *zap.Logger
	tickTimeout time.Duration
	cron        *cron.Cron

	mu       sync.Mutex
	interval int // minutes
	entryID  cron.EntryID
}

// NewScheduler creates a new snapshot Scheduler. defaultInterval (minutes)
// applies only until an interval has been persisted through the settings
// repository; tickTimeout bounds each run so a hung price call cannot
// starve subsequent ticks.
func NewScheduler(valuer Valuer, snapshotRepo domain.SnapshotRepository, logRepo domain.SnapshotLogRepository,
	settingsRepo domain.SettingsRepository, defaultInterval int, tickTimeout time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Valuer:       valuer,
		SnapshotRepo: snapshotRepo,
		LogRepo:      logRepo,
		SettingsRepo: settingsRepo,
		logger:       logger,
		tickTimeout:  tickTimeout,
		cron:         cron.New(),
		interval:     defaultInterval,
	}
}

// Start loads the persisted interval (falling back to the default), schedules
// the first tick and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	minutes := s.interval
	if v, err := s.SettingsRepo.Get(ctx, settingIntervalMinutes); err == nil {
		if parsed, perr := strconv.Atoi(v); perr == nil && parsed >= 1 {
			minutes = parsed
		}
	}
	if minutes < 1 {
		return domain.ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.scheduleLocked(minutes); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("snapshot scheduler started", zap.Int("interval_minutes", minutes))
	return nil
}

// Stop halts the cron loop and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("snapshot scheduler stopped")
}

// Interval returns the currently configured interval in whole minutes
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the snapshot interval. Non-positive values are
// rejected with domain.ErrInvalidInterval and the prior interval is
// retained. The new value is persisted and takes effect from the next
// scheduled tick.
func (s *Scheduler) SetInterval(ctx context.Context, minutes int) error {
	if minutes < 1 {
		return domain.ErrInvalidInterval
	}

	if err := s.SettingsRepo.Set(ctx, settingIntervalMinutes, strconv.Itoa(minutes)); err != nil {
		return fmt.Errorf("failed to persist interval: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.scheduleLocked(minutes); err != nil {
		return err
	}
	s.logger.Info("snapshot interval updated", zap.Int("interval_minutes", minutes))
	return nil
}

// scheduleLocked swaps the cron entry for the given interval. Callers hold s.mu.
func (s *Scheduler) scheduleLocked(minutes int) error {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", minutes), s.tick)
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot job: %w", err)
	}
	s.entryID = id
	s.interval = minutes
	return nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce performs a single snapshot run: value the portfolio, append a
// snapshot and a success log entry, or a failure log entry on any error.
// Errors are never propagated; the outcome lives in the snapshot log.
func (s *Scheduler) RunOnce(ctx context.Context) {
	pf, err := s.Valuer.Portfolio(ctx)
	if err != nil {
		s.recordFailure(ctx, fmt.Sprintf("portfolio valuation failed: %v", err))
		return
	}

	if len(pf.Assets) == 0 {
		// Nothing to price. Original behavior: log success, skip the row.
		s.recordSuccess(ctx, "no assets with holdings, snapshot skipped")
		return
	}

	snap := &domain.PortfolioSnapshot{
		ID:         uuid.New(),
		CapturedAt: time.Now(),
		TotalValue: pf.TotalValue,
	}
	if err := s.SnapshotRepo.Add(ctx, snap); err != nil {
		s.recordFailure(ctx, fmt.Sprintf("failed to store snapshot: %v", err))
		return
	}

	s.recordSuccess(ctx, fmt.Sprintf("snapshot captured, total value %s", pf.TotalValue.StringFixed(2)))
}

// Snapshots returns the snapshot series within the trailing number of days,
// ordered by capture time. days <= 0 returns the full series.
func (s *Scheduler) Snapshots(ctx context.Context, days int) ([]*domain.PortfolioSnapshot, error) {
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}
	return s.SnapshotRepo.ListSince(ctx, since)
}

// Logs returns the most recent scheduler run outcomes, newest first
func (s *Scheduler) Logs(ctx context.Context, limit int) ([]*domain.SnapshotLog, error) {
	if limit <= 0 {
		return nil, domain.NewValidationError("limit", "must be positive")
	}
	return s.LogRepo.ListRecent(ctx, limit)
}

func (s *Scheduler) recordSuccess(ctx context.Context, message string) {
	s.appendLog(ctx, domain.SnapshotStatusSuccess, message)
	s.logger.Info("snapshot run succeeded", zap.String("message", message))
}

func (s *Scheduler) recordFailure(ctx context.Context, message string) {
	s.appendLog(ctx, domain.SnapshotStatusFailure, message)
	s.logger.Warn("snapshot run failed", zap.String("message", message))
}

func (s *Scheduler) appendLog(ctx context.Context, status domain.SnapshotStatus, message string) {
	entry := &domain.SnapshotLog{
		ID:        uuid.New(),
		Timestamp: time.Now(),
		Status:    status,
		Message:   message,
	}
	if err := s.LogRepo.Add(ctx, entry); err != nil {
		// The log is the last line of visibility; nothing left to do but
		// report it to the process log.
		s.logger.Error("failed to append snapshot log", zap.Error(err))
	}
}
