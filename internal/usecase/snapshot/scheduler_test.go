package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
	"github.com/rafaelcosta/cryptofolio-backend/internal/usecase/valuation"
)

// MockValuer is a mock implementation of Valuer for testing
type MockValuer struct {
	mock.Mock
}

func (m *MockValuer) Portfolio(ctx context.Context) (*valuation.Portfolio, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*valuation.Portfolio), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository for testing
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Add(ctx context.Context, snapshot *domain.PortfolioSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PortfolioSnapshot), args.Error(1)
}

// MockSnapshotLogRepository is a mock implementation of SnapshotLogRepository for testing
type MockSnapshotLogRepository struct {
	mock.Mock
}

func (m *MockSnapshotLogRepository) Add(ctx context.Context, log *domain.SnapshotLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockSnapshotLogRepository) ListRecent(ctx context.Context, limit int) ([]*domain.SnapshotLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SnapshotLog), args.Error(1)
}

// MockSettingsRepository is a mock implementation of SettingsRepository for testing
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockSettingsRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func newTestScheduler() (*Scheduler, *MockValuer, *MockSnapshotRepository, *MockSnapshotLogRepository, *MockSettingsRepository) {
	valuer := new(MockValuer)
	snapRepo := new(MockSnapshotRepository)
	logRepo := new(MockSnapshotLogRepository)
	settingsRepo := new(MockSettingsRepository)
	s := NewScheduler(valuer, snapRepo, logRepo, settingsRepo, 60, time.Minute, zap.NewNop())
	return s, valuer, snapRepo, logRepo, settingsRepo
}

func portfolioWorth(value string) *valuation.Portfolio {
	total := decimal.RequireFromString(value)
	return &valuation.Portfolio{
		Assets:     []*valuation.AssetValuation{{Value: total}},
		TotalValue: total,
	}
}

func TestRunOnce_CapturesSnapshotAndLogsSuccess(t *testing.T) {
	ctx := context.Background()
	s, valuer, snapRepo, logRepo, _ := newTestScheduler()

	valuer.On("Portfolio", ctx).Return(portfolioWorth("12345.678"), nil)
	snapRepo.On("Add", ctx, mock.MatchedBy(func(snap *domain.PortfolioSnapshot) bool {
		return snap.TotalValue.Equal(decimal.RequireFromString("12345.678")) && !snap.CapturedAt.IsZero()
	})).Return(nil)
	logRepo.On("Add", ctx, mock.MatchedBy(func(entry *domain.SnapshotLog) bool {
		return entry.Status == domain.SnapshotStatusSuccess
	})).Return(nil)

	s.RunOnce(ctx)

	snapRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
}

func TestRunOnce_ValuationFailureLogsFailureOnly(t *testing.T) {
	ctx := context.Background()
	s, valuer, snapRepo, logRepo, _ := newTestScheduler()

	valuer.On("Portfolio", ctx).Return(nil, domain.ErrUpstreamUnavailable)
	logRepo.On("Add", ctx, mock.MatchedBy(func(entry *domain.SnapshotLog) bool {
		return entry.Status == domain.SnapshotStatusFailure
	})).Return(nil)

	s.RunOnce(ctx)

	snapRepo.AssertNotCalled(t, "Add")
	logRepo.AssertExpectations(t)
}

func TestRunOnce_StorageFailureLogsFailure(t *testing.T) {
	ctx := context.Background()
	s, valuer, snapRepo, logRepo, _ := newTestScheduler()

	valuer.On("Portfolio", ctx).Return(portfolioWorth("100"), nil)
	snapRepo.On("Add", ctx, mock.Anything).Return(errors.New("connection reset"))
	logRepo.On("Add", ctx, mock.MatchedBy(func(entry *domain.SnapshotLog) bool {
		return entry.Status == domain.SnapshotStatusFailure
	})).Return(nil)

	s.RunOnce(ctx)

	logRepo.AssertExpectations(t)
}

func TestRunOnce_EmptyPortfolioSkipsSnapshot(t *testing.T) {
	ctx := context.Background()
	s, valuer, snapRepo, logRepo, _ := newTestScheduler()

	valuer.On("Portfolio", ctx).Return(&valuation.Portfolio{TotalValue: decimal.Zero}, nil)
	logRepo.On("Add", ctx, mock.MatchedBy(func(entry *domain.SnapshotLog) bool {
		return entry.Status == domain.SnapshotStatusSuccess
	})).Return(nil)

	s.RunOnce(ctx)

	snapRepo.AssertNotCalled(t, "Add")
	logRepo.AssertExpectations(t)
}

func TestRunOnce_LogRepoFailureDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	s, valuer, snapRepo, logRepo, _ := newTestScheduler()

	valuer.On("Portfolio", ctx).Return(portfolioWorth("100"), nil)
	snapRepo.On("Add", ctx, mock.Anything).Return(nil)
	logRepo.On("Add", ctx, mock.Anything).Return(errors.New("disk full"))

	assert.NotPanics(t, func() { s.RunOnce(ctx) })
}

func TestRunOnce_CapturedAtStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	s, valuer, snapRepo, logRepo, _ := newTestScheduler()

	valuer.On("Portfolio", ctx).Return(portfolioWorth("100"), nil)
	logRepo.On("Add", ctx, mock.Anything).Return(nil)

	var captured []time.Time
	snapRepo.On("Add", ctx, mock.Anything).Run(func(args mock.Arguments) {
		captured = append(captured, args.Get(1).(*domain.PortfolioSnapshot).CapturedAt)
	}).Return(nil)

	s.RunOnce(ctx)
	s.RunOnce(ctx)

	require.Len(t, captured, 2)
	assert.True(t, captured[1].After(captured[0]))
}

func TestSetInterval_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, settingsRepo := newTestScheduler()

	for _, minutes := range []int{0, -5} {
		err := s.SetInterval(ctx, minutes)
		assert.ErrorIs(t, err, domain.ErrInvalidInterval)
	}
	assert.Equal(t, 60, s.Interval())
	settingsRepo.AssertNotCalled(t, "Set")
}

func TestSetInterval_PersistsAndReschedules(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, settingsRepo := newTestScheduler()

	settingsRepo.On("Set", ctx, settingIntervalMinutes, "15").Return(nil)

	require.NoError(t, s.SetInterval(ctx, 15))
	assert.Equal(t, 15, s.Interval())
	settingsRepo.AssertExpectations(t)
}

func TestSetInterval_PersistFailureKeepsOldInterval(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, settingsRepo := newTestScheduler()

	settingsRepo.On("Set", ctx, settingIntervalMinutes, "15").Return(errors.New("db down"))

	err := s.SetInterval(ctx, 15)

	assert.Error(t, err)
	assert.Equal(t, 60, s.Interval())
}

func TestStart_LoadsPersistedInterval(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, settingsRepo := newTestScheduler()

	settingsRepo.On("Get", ctx, settingIntervalMinutes).Return("15", nil)

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Equal(t, 15, s.Interval())
}

func TestStart_FallsBackToDefaultWithoutPersistedValue(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, settingsRepo := newTestScheduler()

	settingsRepo.On("Get", ctx, settingIntervalMinutes).Return("", domain.ErrSettingNotFound)

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Equal(t, 60, s.Interval())
}

func TestStart_IgnoresCorruptPersistedValue(t *testing.T) {
	ctx := context.Background()
	s, _, _, _, settingsRepo := newTestScheduler()

	settingsRepo.On("Get", ctx, settingIntervalMinutes).Return("not-a-number", nil)

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Equal(t, 60, s.Interval())
}

func TestSnapshots_TrailingWindow(t *testing.T) {
	ctx := context.Background()
	s, _, snapRepo, _, _ := newTestScheduler()

	want := []*domain.PortfolioSnapshot{
		{TotalValue: decimal.RequireFromString("100"), CapturedAt: time.Now().Add(-time.Hour)},
	}
	snapRepo.On("ListSince", ctx, mock.MatchedBy(func(since time.Time) bool {
		return !since.IsZero()
	})).Return(want, nil)

	got, err := s.Snapshots(ctx, 7)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshots_FullSeries(t *testing.T) {
	ctx := context.Background()
	s, _, snapRepo, _, _ := newTestScheduler()

	snapRepo.On("ListSince", ctx, time.Time{}).Return([]*domain.PortfolioSnapshot{}, nil)

	_, err := s.Snapshots(ctx, 0)

	require.NoError(t, err)
	snapRepo.AssertExpectations(t)
}

func TestLogs_LimitValidation(t *testing.T) {
	ctx := context.Background()
	s, _, _, logRepo, _ := newTestScheduler()

	_, err := s.Logs(ctx, 0)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "limit", verr.Field)
	logRepo.AssertNotCalled(t, "ListRecent")
}

func TestLogs_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _, _, logRepo, _ := newTestScheduler()

	want := []*domain.SnapshotLog{
		{Status: domain.SnapshotStatusSuccess, Timestamp: time.Now()},
		{Status: domain.SnapshotStatusFailure, Timestamp: time.Now().Add(-time.Hour)},
	}
	logRepo.On("ListRecent", ctx, 2).Return(want, nil)

	got, err := s.Logs(ctx, 2)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}
