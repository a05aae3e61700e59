package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// StockLedger autoridad única sobre el stock de cada item.
// Todo cambio que pasa por aquí deja un movimiento en el mismo commit.
type StockLedger interface {
	// Get stock actual por part number (sin distinguir mayúsculas)
	Get(ctx context.Context, partNumber string) (int, error)
	// CheckAvailable devuelve el item si hay al menos qty unidades
	CheckAvailable(ctx context.Context, itemID int64, qty int) (*models.Item, error)
	// Decrement descuenta dentro de tx; no registra movimiento, eso queda a cargo del llamador en la misma tx
	Decrement(ctx context.Context, tx *sql.Tx, itemID int64, qty int) (int, error)

	SetStock(ctx context.Context, who auth.Identity, itemID int64, stock int, note string) (*models.StockChange, error)
	AddStock(ctx context.Context, who auth.Identity, itemID int64, qty int, note string) (*models.StockChange, error)
}

// ItemCacheInvalidator invalidación del caché de items tras cambios de stock
type ItemCacheInvalidator interface {
	Invalidate(ctx context.Context, partNumbers ...string) error
}

type stockLedger struct {
	tx        repository.TxRunner
	items     repository.ItemRepository
	movements repository.MovementRepository
	cache     ItemCacheInvalidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewStockLedger cache puede ser nil
func NewStockLedger(
	tx repository.TxRunner,
	items repository.ItemRepository,
	movements repository.MovementRepository,
	cache ItemCacheInvalidator,
	logger *zap.Logger,
) StockLedger {
	return &stockLedger{
		tx:        tx,
		items:     items,
		movements: movements,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

func (l *stockLedger) Get(ctx context.Context, partNumber string) (int, error) {
	part := models.NormalizePartNumber(partNumber)
	if part == "" {
		return 0, models.ErrInvalidPartNumber
	}

	item, err := l.items.GetByPartNumber(ctx, part)
	if err != nil {
		return 0, fmt.Errorf("error obteniendo item: %w", err)
	}
	if item == nil {
		return 0, models.NotFoundError("item", part)
	}
	return item.Stock, nil
}

func (l *stockLedger) CheckAvailable(ctx context.Context, itemID int64, qty int) (*models.Item, error) {
	if qty <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	item, err := l.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("error obteniendo item: %w", err)
	}
	if item == nil {
		return nil, models.NotFoundError("item", itemID)
	}
	if item.Stock < qty {
		return nil, &models.InsufficientStockError{
			ItemID:     item.ID,
			PartNumber: item.PartNumber,
			Available:  item.Stock,
			Requested:  qty,
		}
	}
	return item, nil
}

func (l *stockLedger) Decrement(ctx context.Context, tx *sql.Tx, itemID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, models.ErrInvalidQuantity
	}

	items := l.items
	if tx != nil {
		items = items.WithTx(tx)
	}

	applied, err := items.DecrementIfAvailable(ctx, itemID, qty)
	if err != nil {
		return 0, err
	}

	item, err := items.GetByID(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("error releyendo item: %w", err)
	}
	if item == nil {
		return 0, models.NotFoundError("item", itemID)
	}
	if !applied {
		return 0, &models.InsufficientStockError{
			ItemID:     item.ID,
			PartNumber: item.PartNumber,
			Available:  item.Stock,
			Requested:  qty,
		}
	}
	return item.Stock, nil
}

// SetStock fija el stock absoluto; solo admin
func (l *stockLedger) SetStock(ctx context.Context, who auth.Identity, itemID int64, stock int, note string) (*models.StockChange, error) {
	if !auth.HasAnyRole(who, auth.RoleAdmin) {
		return nil, models.ErrForbidden
	}
	if stock < 0 {
		return nil, models.ErrInvalidQuantity
	}

	return l.apply(ctx, who, itemID, models.ReasonAdjustment, note, func(current int) int {
		return stock
	})
}

// AddStock registra una entrada de mercadería
func (l *stockLedger) AddStock(ctx context.Context, who auth.Identity, itemID int64, qty int, note string) (*models.StockChange, error) {
	if !auth.HasAnyRole(who, auth.RoleAdmin, auth.RoleStandard) {
		return nil, models.ErrForbidden
	}
	if qty <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	return l.apply(ctx, who, itemID, models.ReasonEntry, note, func(current int) int {
		return current + qty
	})
}

// apply lee, calcula y escribe stock y movimiento en una sola transacción
func (l *stockLedger) apply(
	ctx context.Context,
	who auth.Identity,
	itemID int64,
	reason models.MovementReason,
	note string,
	next func(current int) int,
) (*models.StockChange, error) {
	user := who.CurrentUser()
	logger := l.logger.With(
		zap.String("operation", "stock_"+string(reason)),
		zap.Int64("item_id", itemID),
		zap.String("username", user.Name),
	)

	var change *models.StockChange
	err := l.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		items := l.items.WithTx(tx)

		item, err := items.GetByID(ctx, itemID)
		if err != nil {
			return fmt.Errorf("error obteniendo item: %w", err)
		}
		if item == nil {
			return models.NotFoundError("item", itemID)
		}

		previous := item.Stock
		newStock := next(previous)
		if err := items.SetStock(ctx, itemID, newStock); err != nil {
			return err
		}

		movement := &models.Movement{
			CreatedAt:  l.now().UTC(),
			ItemID:     &item.ID,
			PartNumber: item.PartNumber,
			Delta:      newStock - previous,
			Reason:     reason,
			Username:   user.Name,
			Note:       note,
		}
		if err := l.movements.WithTx(tx).Create(ctx, movement); err != nil {
			return err
		}

		item.Stock = newStock
		change = &models.StockChange{
			Item:          item,
			PreviousStock: previous,
			NewStock:      newStock,
			Movement:      movement,
		}
		return nil
	})
	if err != nil {
		logger.Error("❌ Error actualizando stock", zap.Error(err))
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Invalidate(ctx, change.Item.PartNumber); err != nil {
			logger.Warn("⚠️ No se pudo invalidar caché", zap.Error(err))
		}
	}

	logger.Info("✅ Stock actualizado",
		zap.Int("cantidad_anterior", change.PreviousStock),
		zap.Int("cantidad_nueva", change.NewStock))
	return change, nil
}
