package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// SaleCommitter convierte un carrito en una venta confirmada
type SaleCommitter interface {
	// Commit valida y persiste venta, líneas, descuentos de stock y movimientos en una sola transacción
	Commit(ctx context.Context, cartID string, customer models.Customer, who auth.Identity) (*models.Sale, error)
	// Checkout hace Commit y luego genera el documento; un fallo de render no deshace la venta
	Checkout(ctx context.Context, cartID string, customer models.Customer, who auth.Identity) (*models.CheckoutResult, error)
	// Document devuelve el PDF de la venta, regenerándolo si el archivo no está disponible
	Document(ctx context.Context, saleID int64) ([]byte, error)
}

// DocumentRenderer genera el documento de una venta confirmada
type DocumentRenderer interface {
	Render(sale *models.Sale) ([]byte, error)
}

// DocumentStore destino de los documentos generados
type DocumentStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// CheckoutRecorder contadores de checkout para monitoreo
type CheckoutRecorder interface {
	RecordCheckout(state models.SaleState, renderFailed bool)
}

type saleCommitter struct {
	tx        repository.TxRunner
	items     repository.ItemRepository
	sales     repository.SaleRepository
	movements repository.MovementRepository
	ledger    StockLedger
	carts     CartService
	renderer  DocumentRenderer
	documents DocumentStore
	cache     ItemCacheInvalidator
	recorder  CheckoutRecorder
	logger    *zap.Logger
	now       func() time.Time
}

type SaleCommitterDeps struct {
	Tx        repository.TxRunner
	Items     repository.ItemRepository
	Sales     repository.SaleRepository
	Movements repository.MovementRepository
	Ledger    StockLedger
	Carts     CartService
	Renderer  DocumentRenderer
	Documents DocumentStore
	Cache     ItemCacheInvalidator
	Recorder  CheckoutRecorder
}

func NewSaleCommitter(deps SaleCommitterDeps, logger *zap.Logger) SaleCommitter {
	return &saleCommitter{
		tx:        deps.Tx,
		items:     deps.Items,
		sales:     deps.Sales,
		movements: deps.Movements,
		ledger:    deps.Ledger,
		carts:     deps.Carts,
		renderer:  deps.Renderer,
		documents: deps.Documents,
		cache:     deps.Cache,
		recorder:  deps.Recorder,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *saleCommitter) Commit(ctx context.Context, cartID string, customer models.Customer, who auth.Identity) (*models.Sale, error) {
	if !auth.HasAnyRole(who, auth.RoleAdmin, auth.RoleStandard) {
		return nil, models.ErrForbidden
	}

	user := who.CurrentUser()
	logger := s.logger.With(
		zap.String("operation", "commit_sale"),
		zap.String("cart_id", cartID),
		zap.String("username", user.Name),
	)

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	logger.Debug("Estado de venta", zap.String("state", string(models.SaleOpen)), zap.Int("lines", len(cart.Lines)))

	if cart.IsEmpty() {
		logger.Info("ℹ️ Carrito vacío, venta rechazada", zap.String("state", string(models.SaleRejected)))
		s.record(models.SaleRejected, false)
		return nil, models.ErrEmptyCart
	}

	sale := &models.Sale{
		CreatedAt: s.now().UTC().Truncate(time.Second),
		Username:  user.Name,
		Customer:  customer,
	}

	err = s.tx.RunInTx(ctx, func(tx *sql.Tx) error {
		items := s.items.WithTx(tx)

		logger.Debug("Estado de venta", zap.String("state", string(models.SaleValidating)))
		partNumbers := make(map[int64]string, len(cart.Lines))
		for _, line := range cart.Lines {
			item, err := items.GetByID(ctx, line.ItemID)
			if err != nil {
				return fmt.Errorf("error releyendo item: %w", err)
			}
			if item == nil {
				return models.NotFoundError("item", line.PartNumber)
			}
			if line.Qty > item.Stock {
				return &models.InsufficientStockError{
					ItemID:     item.ID,
					PartNumber: item.PartNumber,
					Available:  item.Stock,
					Requested:  line.Qty,
				}
			}
			partNumbers[line.ItemID] = item.PartNumber
		}

		for _, line := range cart.Lines {
			saleLine, err := models.NewSaleLine(partNumbers[line.ItemID], line.Description, line.Qty, line.UnitPrice)
			if err != nil {
				return err
			}
			sale.Lines = append(sale.Lines, saleLine)
		}
		if err := s.sales.WithTx(tx).Create(ctx, sale); err != nil {
			return err
		}

		movements := s.movements.WithTx(tx)
		for _, line := range cart.Lines {
			if _, err := s.ledger.Decrement(ctx, tx, line.ItemID, line.Qty); err != nil {
				return err
			}

			itemID := line.ItemID
			saleID := sale.ID
			err := movements.Create(ctx, &models.Movement{
				CreatedAt:  sale.CreatedAt,
				ItemID:     &itemID,
				PartNumber: partNumbers[line.ItemID],
				Delta:      -line.Qty,
				Reason:     models.ReasonSale,
				SaleID:     &saleID,
				Username:   user.Name,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var insufficient *models.InsufficientStockError
		if errors.As(err, &insufficient) || errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
			logger.Info("ℹ️ Venta rechazada", zap.String("state", string(models.SaleRejected)), zap.Error(err))
		} else {
			logger.Error("❌ Error confirmando venta", zap.String("state", string(models.SaleRejected)), zap.Error(err))
		}
		s.record(models.SaleRejected, false)
		return nil, err
	}

	if err := s.carts.Clear(ctx, cartID); err != nil {
		logger.Warn("⚠️ Venta confirmada pero no se pudo vaciar el carrito", zap.Error(err))
	}

	if s.cache != nil {
		parts := make([]string, 0, len(sale.Lines))
		for _, l := range sale.Lines {
			parts = append(parts, l.PartNumber)
		}
		if err := s.cache.Invalidate(ctx, parts...); err != nil {
			logger.Warn("⚠️ No se pudo invalidar caché", zap.Error(err))
		}
	}

	logger.Info("✅ Venta confirmada",
		zap.String("state", string(models.SaleCommitted)),
		zap.Int64("sale_id", sale.ID),
		zap.String("total", sale.Total.String()),
		zap.Int("lines", len(sale.Lines)))
	return sale, nil
}

func (s *saleCommitter) Checkout(ctx context.Context, cartID string, customer models.Customer, who auth.Identity) (*models.CheckoutResult, error) {
	sale, err := s.Commit(ctx, cartID, customer, who)
	if err != nil {
		return nil, err
	}

	result := &models.CheckoutResult{Sale: sale, State: models.SaleCommitted}

	path, err := s.renderAndStore(ctx, sale)
	if err != nil {
		result.RenderErr = fmt.Errorf("%w: %v", models.ErrRenderFailure, err)
		s.logger.Warn("⚠️ Venta confirmada sin documento",
			zap.String("operation", "render_document"),
			zap.Int64("sale_id", sale.ID),
			zap.Error(err))
		s.record(models.SaleCommitted, true)
		return result, nil
	}

	sale.DocumentPath = path
	s.record(models.SaleCommitted, false)
	return result, nil
}

func (s *saleCommitter) renderAndStore(ctx context.Context, sale *models.Sale) (string, error) {
	if s.renderer == nil || s.documents == nil {
		return "", errors.New("document output not configured")
	}

	data, err := s.renderer.Render(sale)
	if err != nil {
		return "", err
	}

	path, err := s.documents.Save(ctx, DocumentName(sale), data)
	if err != nil {
		return "", err
	}

	if err := s.sales.AttachDocument(ctx, sale.ID, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *saleCommitter) Document(ctx context.Context, saleID int64) ([]byte, error) {
	sale, err := s.sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, models.NotFoundError("sale", saleID)
	}

	if sale.DocumentPath != "" && s.documents != nil {
		data, err := s.documents.Load(ctx, sale.DocumentPath)
		if err == nil {
			return data, nil
		}
		s.logger.Warn("⚠️ Documento no disponible, regenerando",
			zap.Int64("sale_id", saleID),
			zap.String("path", sale.DocumentPath),
			zap.Error(err))
	}

	if s.renderer == nil {
		return nil, fmt.Errorf("%w: renderer not configured", models.ErrRenderFailure)
	}
	data, err := s.renderer.Render(sale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRenderFailure, err)
	}
	return data, nil
}

func (s *saleCommitter) record(state models.SaleState, renderFailed bool) {
	if s.recorder != nil {
		s.recorder.RecordCheckout(state, renderFailed)
	}
}

// DocumentName nombre de archivo quote_<id>_<yyyymmdd_hhmmss>.pdf
func DocumentName(sale *models.Sale) string {
	return fmt.Sprintf("quote_%d_%s.pdf", sale.ID, sale.CreatedAt.Format("20060102_150405"))
}
