package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// ItemService catálogo de items
type ItemService interface {
	Create(ctx context.Context, who auth.Identity, req *models.CreateItemRequest) (*models.Item, error)
	Update(ctx context.Context, who auth.Identity, id int64, req *models.UpdateItemRequest) (*models.Item, error)
	Delete(ctx context.Context, who auth.Identity, id int64) error

	Get(ctx context.Context, id int64) (*models.Item, error)
	GetByPartNumber(ctx context.Context, partNumber string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error)
	Categories(ctx context.Context) ([]string, error)
}

// ItemCache caché de lectura por part number
type ItemCache interface {
	ItemCacheInvalidator
	Get(ctx context.Context, partNumber string) (*models.Item, bool)
	Set(ctx context.Context, item *models.Item) error
}

type itemService struct {
	tx        repository.TxRunner
	items     repository.ItemRepository
	movements repository.MovementRepository
	cache     ItemCache
	logger    *zap.Logger
	now       func() time.Time
}

// NewItemService cache puede ser nil
func NewItemService(
	tx repository.TxRunner,
	items repository.ItemRepository,
	movements repository.MovementRepository,
	cache ItemCache,
	logger *zap.Logger,
) ItemService {
	return &itemService{
		tx:        tx,
		items:     items,
		movements: movements,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Create da de alta el item; el stock inicial queda registrado como movimiento
func (s *itemService) Create(ctx context.Context, who auth.Identity, req *models.CreateItemRequest) (*models.Item, error) {
	if !auth.HasAnyRole(who, auth.RoleAdmin, auth.RoleStandard) {
		return nil, models.ErrForbidden
	}

	item, err := itemFromRequest(req.PartNumber, req.Description, req.Price, req.MinStock, req.Category, req.ImagePath)
	if err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, models.ErrInvalidQuantity
	}
	item.Stock = req.Stock

	user := who.CurrentUser()
	logger := s.logger.With(
		zap.String("operation", "create_item"),
		zap.String("part_number", item.PartNumber),
		zap.String("username", user.Name),
	)

	err = s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.items.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		if item.Stock == 0 {
			return nil
		}
		return s.movements.WithTx(tx).Create(ctx, &models.Movement{
			CreatedAt:  s.now().UTC(),
			ItemID:     &item.ID,
			PartNumber: item.PartNumber,
			Delta:      item.Stock,
			Reason:     models.ReasonInitial,
			Username:   user.Name,
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicatePartNumber) {
			logger.Info("ℹ️ Part number duplicado")
		} else {
			logger.Error("❌ Error creando item", zap.Error(err))
		}
		return nil, err
	}

	s.invalidate(ctx, logger, item.PartNumber)
	logger.Info("✅ Item creado", zap.Int64("item_id", item.ID), zap.Int("stock", item.Stock))
	return item, nil
}

// Update edita metadatos; solo admin
func (s *itemService) Update(ctx context.Context, who auth.Identity, id int64, req *models.UpdateItemRequest) (*models.Item, error) {
	if !auth.HasAnyRole(who, auth.RoleAdmin) {
		return nil, models.ErrForbidden
	}

	changes, err := itemFromRequest(req.PartNumber, req.Description, req.Price, req.MinStock, req.Category, req.ImagePath)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("operation", "update_item"), zap.Int64("item_id", id))

	current, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo item: %w", err)
	}
	if current == nil {
		return nil, models.NotFoundError("item", id)
	}

	changes.ID = id
	changes.Stock = current.Stock
	changes.CreatedAt = current.CreatedAt
	if err := s.items.Update(ctx, changes); err != nil {
		logger.Error("❌ Error actualizando item", zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, logger, current.PartNumber, changes.PartNumber)
	logger.Info("✅ Item actualizado", zap.String("part_number", changes.PartNumber))
	return changes, nil
}

// Delete elimina el item; su historial de ventas y movimientos se conserva
func (s *itemService) Delete(ctx context.Context, who auth.Identity, id int64) error {
	if !auth.HasAnyRole(who, auth.RoleAdmin) {
		return models.ErrForbidden
	}

	logger := s.logger.With(zap.String("operation", "delete_item"), zap.Int64("item_id", id))

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("error obteniendo item: %w", err)
	}
	if item == nil {
		return models.NotFoundError("item", id)
	}

	if err := s.items.Delete(ctx, id); err != nil {
		logger.Error("❌ Error eliminando item", zap.Error(err))
		return err
	}

	s.invalidate(ctx, logger, item.PartNumber)
	logger.Info("✅ Item eliminado", zap.String("part_number", item.PartNumber))
	return nil
}

func (s *itemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo item: %w", err)
	}
	if item == nil {
		return nil, models.NotFoundError("item", id)
	}
	return item, nil
}

// GetByPartNumber consulta primero el caché
func (s *itemService) GetByPartNumber(ctx context.Context, partNumber string) (*models.Item, error) {
	part := models.NormalizePartNumber(partNumber)
	if part == "" {
		return nil, models.ErrInvalidPartNumber
	}

	if s.cache != nil {
		if item, ok := s.cache.Get(ctx, part); ok {
			return item, nil
		}
	}

	item, err := s.items.GetByPartNumber(ctx, part)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo item: %w", err)
	}
	if item == nil {
		return nil, models.NotFoundError("item", part)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, item); err != nil {
			s.logger.Warn("⚠️ No se pudo guardar item en caché", zap.String("part_number", part), zap.Error(err))
		}
	}
	return item, nil
}

func (s *itemService) List(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: negative paging", models.ErrValidation)
	}
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Category = strings.TrimSpace(filter.Category)
	return s.items.List(ctx, filter)
}

func (s *itemService) Categories(ctx context.Context) ([]string, error) {
	return s.items.Categories(ctx)
}

func (s *itemService) invalidate(ctx context.Context, logger *zap.Logger, partNumbers ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, partNumbers...); err != nil {
		logger.Warn("⚠️ No se pudo invalidar caché", zap.Error(err))
	}
}

func itemFromRequest(partNumber, description, price string, minStock int, category, imagePath string) (*models.Item, error) {
	part := models.NormalizePartNumber(partNumber)
	if part == "" {
		return nil, models.ErrInvalidPartNumber
	}
	parsed, err := models.ParseOptionalPrice(price)
	if err != nil {
		return nil, err
	}
	if minStock < 0 {
		return nil, models.ErrInvalidQuantity
	}

	return &models.Item{
		PartNumber:  part,
		Description: strings.TrimSpace(description),
		Price:       parsed,
		MinStock:    minStock,
		Category:    strings.TrimSpace(category),
		ImagePath:   strings.TrimSpace(imagePath),
	}, nil
}
