package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// ReportService consultas de solo lectura sobre ventas, movimientos y stock
type ReportService interface {
	Sales(ctx context.Context, filter models.SaleFilter) ([]*models.Sale, error)
	Sale(ctx context.Context, id int64) (*models.Sale, error)
	Movements(ctx context.Context, filter models.MovementFilter) ([]*models.Movement, error)
	LowStock(ctx context.Context) ([]*models.Item, error)
	LowStockCount(ctx context.Context) (int, error)
	TopSelling(ctx context.Context, from, to *time.Time) ([]models.TopSellingRow, error)
	// Reconcile lista los items cuyo stock no coincide con la suma de sus movimientos
	Reconcile(ctx context.Context) ([]models.ReconcileRow, error)
	Policy() models.LowStockPolicy
}

type reportService struct {
	items     repository.ItemRepository
	sales     repository.SaleRepository
	movements repository.MovementRepository
	policy    models.LowStockPolicy
	limit     int
	logger    *zap.Logger
}

func NewReportService(
	items repository.ItemRepository,
	sales repository.SaleRepository,
	movements repository.MovementRepository,
	policy models.LowStockPolicy,
	limit int,
	logger *zap.Logger,
) ReportService {
	if limit <= 0 {
		limit = 200
	}
	return &reportService{
		items:     items,
		sales:     sales,
		movements: movements,
		policy:    policy,
		limit:     limit,
		logger:    logger,
	}
}

func (s *reportService) Policy() models.LowStockPolicy {
	return s.policy
}

func validRange(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return fmt.Errorf("%w: empty date range", models.ErrValidation)
	}
	return nil
}

func (s *reportService) clampLimit(limit int) int {
	if limit <= 0 || limit > s.limit {
		return s.limit
	}
	return limit
}

func (s *reportService) Sales(ctx context.Context, filter models.SaleFilter) ([]*models.Sale, error) {
	if err := validRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	filter.Limit = s.clampLimit(filter.Limit)
	return s.sales.List(ctx, filter)
}

func (s *reportService) Sale(ctx context.Context, id int64) (*models.Sale, error) {
	sale, err := s.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, models.NotFoundError("sale", id)
	}
	return sale, nil
}

func (s *reportService) Movements(ctx context.Context, filter models.MovementFilter) ([]*models.Movement, error) {
	if err := validRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	filter.Limit = s.clampLimit(filter.Limit)
	return s.movements.List(ctx, filter)
}

func (s *reportService) LowStock(ctx context.Context) ([]*models.Item, error) {
	return s.items.ListLowStock(ctx, s.policy, s.limit)
}

func (s *reportService) LowStockCount(ctx context.Context) (int, error) {
	items, err := s.items.ListLowStock(ctx, s.policy, 0)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *reportService) TopSelling(ctx context.Context, from, to *time.Time) ([]models.TopSellingRow, error) {
	if err := validRange(from, to); err != nil {
		return nil, err
	}
	return s.sales.TopSelling(ctx, from, to, s.limit)
}

func (s *reportService) Reconcile(ctx context.Context) ([]models.ReconcileRow, error) {
	rows, err := s.movements.Unreconciled(ctx)
	if err != nil {
		return nil, err
	}

	if len(rows) > 0 {
		s.logger.Warn("⚠️ Items con stock descuadrado",
			zap.String("operation", "reconcile"),
			zap.Int("items", len(rows)))
	} else {
		s.logger.Info("✅ Stock conciliado con movimientos", zap.String("operation", "reconcile"))
	}
	return rows, nil
}
