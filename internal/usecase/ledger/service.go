package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rafaelcosta/cryptofolio-backend/internal/domain"
)

// Service owns all writes to the asset ledger and serves position reads.
// Writes for a single asset are serialized through a per-asset lock so the
// cost-basis fold always observes a consistent total order; reads only ever
// see the pre- or post-state of a write.
type Service struct {
	AssetRepo       domain.AssetRepository
	TransactionRepo domain.TransactionRepository

	logger *zap.Logger

	mu          sync.Mutex
	assetLocks  map[uuid.UUID]*sync.Mutex
	positions   map[uuid.UUID]domain.Position
	positionGen map[uuid.UUID]uint64
}

// NewService creates a new ledger Service instance
func NewService(assetRepo domain.AssetRepository, txRepo domain.TransactionRepository, logger *zap.Logger) *Service {
	return &Service{
		AssetRepo:       assetRepo,
		TransactionRepo: txRepo,
		logger:          logger,
		assetLocks:      make(map[uuid.UUID]*sync.Mutex),
		positions:       make(map[uuid.UUID]domain.Position),
		positionGen:     make(map[uuid.UUID]uint64),
	}
}

// assetLock returns the write lock for one asset, creating it on first use
func (s *Service) assetLock(assetID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.assetLocks[assetID]
	if !ok {
		l = &sync.Mutex{}
		s.assetLocks[assetID] = l
	}
	return l
}

// invalidatePosition drops the cached position for an asset after a write
// and bumps its generation so an in-flight fold cannot re-poison the cache
// with the pre-write position
func (s *Service) invalidatePosition(assetID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, assetID)
	s.positionGen[assetID]++
}

// cachedPosition returns the cached position for an asset, if present
func (s *Service) cachedPosition(assetID uuid.UUID) (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[assetID]
	return pos, ok
}

// generation returns the current cache generation for an asset. Readers
// snapshot it before folding and pass it to storePosition.
func (s *Service) generation(assetID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionGen[assetID]
}

// storePosition caches a folded position unless a write invalidated the
// asset while the fold ran
func (s *Service) storePosition(pos domain.Position, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.positionGen[pos.AssetID] != gen {
		return
	}
	s.positions[pos.AssetID] = pos
}

// CreateAsset registers a new asset
func (s *Service) CreateAsset(ctx context.Context, name, symbol, priceLookupKey string) (*domain.Asset, error) {
	asset := &domain.Asset{
		ID:             uuid.New(),
		Name:           name,
		Symbol:         symbol,
		PriceLookupKey: priceLookupKey,
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	if err := s.AssetRepo.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	s.logger.Info("asset created",
		zap.String("asset_id", asset.ID.String()),
		zap.String("symbol", asset.Symbol))
	return asset, nil
}

// GetAsset retrieves a single asset by ID
func (s *Service) GetAsset(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	return s.AssetRepo.GetByID(ctx, id)
}

// ListAssets retrieves all registered assets
func (s *Service) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	return s.AssetRepo.List(ctx)
}

// UpdateAsset replaces the mutable fields of an asset
func (s *Service) UpdateAsset(ctx context.Context, id uuid.UUID, name, symbol, priceLookupKey string) (*domain.Asset, error) {
	asset, err := s.AssetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	asset.Name = name
	asset.Symbol = symbol
	asset.PriceLookupKey = priceLookupKey
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	if err := s.AssetRepo.Update(ctx, asset); err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}
	return asset, nil
}

// DeleteAsset removes an asset. Deletion is rejected with
// domain.ErrAssetHasTransactions while ledger transactions reference it;
// there is no cascading delete.
func (s *Service) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if _, err := s.AssetRepo.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.TransactionRepo.CountByAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}
	if count > 0 {
		return domain.ErrAssetHasTransactions
	}

	if err := s.AssetRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	s.logger.Info("asset deleted", zap.String("asset_id", id.String()))
	return nil
}

// CreateTransaction validates and appends a new transaction to the ledger.
// Sells exceeding the currently held quantity are rejected with
// domain.ErrInsufficientQuantity before anything is written.
func (s *Service) CreateTransaction(ctx context.Context, assetID uuid.UUID, kind domain.TransactionKind,
	quantity, unitPrice, fees decimal.Decimal, timestamp time.Time) (*domain.Transaction, error) {

	tx := &domain.Transaction{
		ID:        uuid.New(),
		AssetID:   assetID,
		Kind:      kind,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Fees:      fees,
		Timestamp: timestamp,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.AssetRepo.GetByID(ctx, assetID); err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			return nil, domain.NewValidationError("asset_id", "unknown asset")
		}
		return nil, err
	}

	lock := s.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	if kind == domain.KindSell {
		pos, err := s.foldPosition(ctx, assetID)
		if err != nil {
			return nil, err
		}
		if quantity.GreaterThan(pos.Quantity) {
			return nil, domain.ErrInsufficientQuantity
		}
	}

	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	s.invalidatePosition(assetID)

	s.logger.Info("transaction created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("asset_id", assetID.String()),
		zap.String("kind", string(kind)),
		zap.String("quantity", quantity.String()))
	return tx, nil
}

// ListTransactions retrieves the full ordered ledger
func (s *Service) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	return s.TransactionRepo.List(ctx)
}

// DeleteTransaction removes a transaction and invalidates the cached
// position of its asset
func (s *Service) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	tx, err := s.TransactionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	lock := s.assetLock(tx.AssetID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.TransactionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	s.invalidatePosition(tx.AssetID)

	s.logger.Info("transaction deleted",
		zap.String("transaction_id", id.String()),
		zap.String("asset_id", tx.AssetID.String()))
	return nil
}

// Position returns the derived position of one asset, folding its full
// ordered history. The result is cached until the next write to the asset.
func (s *Service) Position(ctx context.Context, assetID uuid.UUID) (domain.Position, error) {
	if pos, ok := s.cachedPosition(assetID); ok {
		return pos, nil
	}

	gen := s.generation(assetID)
	pos, err := s.foldPosition(ctx, assetID)
	if err != nil {
		return domain.Position{}, err
	}
	s.storePosition(pos, gen)
	return pos, nil
}

func (s *Service) foldPosition(ctx context.Context, assetID uuid.UUID) (domain.Position, error) {
	txs, err := s.TransactionRepo.ListByAsset(ctx, assetID)
	if err != nil {
		return domain.Position{}, fmt.Errorf("failed to load transactions: %w", err)
	}
	pos, err := domain.ComputePosition(assetID, txs)
	if err != nil {
		return domain.Position{}, fmt.Errorf("failed to fold position: %w", err)
	}
	return pos, nil
}
