package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"inventory-service/internal/cache"
	"inventory-service/internal/models"
)

// CartService carritos abiertos identificados por ID explícito
type CartService interface {
	// Add suma qty a la línea del item; el total en el carrito no puede superar el stock actual
	Add(ctx context.Context, cartID string, itemID int64, qty int) (*models.Cart, error)
	Remove(ctx context.Context, cartID string, itemID int64) (*models.Cart, error)
	Clear(ctx context.Context, cartID string) error
	Get(ctx context.Context, cartID string) (*models.Cart, error)
}

type cartService struct {
	store  cache.CartStore
	ledger StockLedger
	logger *zap.Logger
}

func NewCartService(store cache.CartStore, ledger StockLedger, logger *zap.Logger) CartService {
	return &cartService{store: store, ledger: ledger, logger: logger}
}

const maxCartIDLength = 128

func validateCartID(cartID string) (string, error) {
	id := strings.TrimSpace(cartID)
	if id == "" || len(id) > maxCartIDLength {
		return "", fmt.Errorf("%w: invalid cart id", models.ErrValidation)
	}
	return id, nil
}

func (s *cartService) Add(ctx context.Context, cartID string, itemID int64, qty int) (*models.Cart, error) {
	id, err := validateCartID(cartID)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	logger := s.logger.With(
		zap.String("operation", "cart_add"),
		zap.String("cart_id", id),
		zap.Int64("item_id", itemID),
		zap.Int("qty", qty),
	)

	lines, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	existing := lines[itemID]
	requested := existing.Qty + qty

	item, err := s.ledger.CheckAvailable(ctx, itemID, requested)
	if err != nil {
		logger.Info("ℹ️ Item rechazado en carrito", zap.Error(err))
		return nil, err
	}

	line := models.CartLine{
		ItemID:      item.ID,
		PartNumber:  item.PartNumber,
		Description: item.Description,
		UnitPrice:   item.UnitPrice(),
		Qty:         requested,
	}
	// precio y descripción quedan fijados en el primer agregado
	if existing.Qty > 0 {
		line.Description = existing.Description
		line.UnitPrice = existing.UnitPrice
	}

	// el carrito resultante debe tener subtotales y total representables
	candidate := make(map[int64]models.CartLine, len(lines))
	for k, v := range lines {
		candidate[k] = v
	}
	candidate[itemID] = line
	if _, err := models.NewCart(id, candidate).Total(); err != nil {
		logger.Info("ℹ️ Monto fuera de rango", zap.Error(err))
		return nil, err
	}

	if err := s.store.SaveLine(ctx, id, line); err != nil {
		logger.Error("❌ Error guardando línea", zap.Error(err))
		return nil, err
	}
	lines[itemID] = line

	logger.Debug("Item agregado al carrito", zap.Int("qty_total", requested))
	return models.NewCart(id, lines), nil
}

func (s *cartService) Remove(ctx context.Context, cartID string, itemID int64) (*models.Cart, error) {
	id, err := validateCartID(cartID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveLine(ctx, id, itemID); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *cartService) Clear(ctx context.Context, cartID string) error {
	id, err := validateCartID(cartID)
	if err != nil {
		return err
	}
	return s.store.Clear(ctx, id)
}

func (s *cartService) Get(ctx context.Context, cartID string) (*models.Cart, error) {
	id, err := validateCartID(cartID)
	if err != nil {
		return nil, err
	}

	lines, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewCart(id, lines), nil
}
