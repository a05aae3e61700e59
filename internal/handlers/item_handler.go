package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"inventory-service/internal/middleware"
	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// ItemHandler catálogo de items y ajustes de stock
type ItemHandler struct {
	items     services.ItemService
	ledger    services.StockLedger
	validator *validator.Validate
	logger    *zap.Logger
}

func NewItemHandler(items services.ItemService, ledger services.StockLedger, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		items:     items,
		ledger:    ledger,
		validator: validator.New(),
		logger:    logger,
	}
}

// bind decodifica y valida el body; responde 400 y devuelve false si falla
func (h *ItemHandler) bind(c *gin.Context, logger *zap.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBadRequest(c, logger, "Error en el formato de datos", err)
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		respondBadRequest(c, logger, "Datos de entrada inválidos", err)
		return false
	}
	return true
}

func (h *ItemHandler) Create(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "create_item"))

	var req models.CreateItemRequest
	if !h.bind(c, logger, &req) {
		return
	}

	item, err := h.items.Create(c.Request.Context(), middleware.Identity(c), &req)
	if err != nil {
		respondError(c, logger, "Error creando item", err)
		return
	}

	respondOK(c, http.StatusCreated, "Item creado", item)
}

func (h *ItemHandler) List(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_items"))

	var filter models.ItemFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBadRequest(c, logger, "Parámetros inválidos", err)
		return
	}

	items, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, logger, "Error listando items", err)
		return
	}

	respondOK(c, http.StatusOK, "Items obtenidos", gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *ItemHandler) Categories(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_categories"))

	categories, err := h.items.Categories(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error listando categorías", err)
		return
	}

	respondOK(c, http.StatusOK, "Categorías obtenidas", categories)
}

func (h *ItemHandler) Get(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_item"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, logger, "Item no encontrado", err)
		return
	}

	respondOK(c, http.StatusOK, "Item encontrado", item)
}

// GetByPartNumber búsqueda por part number, pasa primero por el caché
func (h *ItemHandler) GetByPartNumber(c *gin.Context) {
	start := time.Now()
	part := c.Param("part")
	logger := h.logger.With(
		zap.String("handler", "get_item_by_part"),
		zap.String("part_number", part),
	)

	item, err := h.items.GetByPartNumber(c.Request.Context(), part)
	if err != nil {
		respondError(c, logger, "Item no encontrado", err)
		return
	}

	logger.Debug("🔍 [DEBUG] Item encontrado", zap.Duration("latency", time.Since(start)))
	respondOK(c, http.StatusOK, "Item encontrado", gin.H{
		"item":       item,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

func (h *ItemHandler) Update(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "update_item"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	var req models.UpdateItemRequest
	if !h.bind(c, logger, &req) {
		return
	}

	item, err := h.items.Update(c.Request.Context(), middleware.Identity(c), id, &req)
	if err != nil {
		respondError(c, logger, "Error actualizando item", err)
		return
	}

	respondOK(c, http.StatusOK, "Item actualizado", item)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "delete_item"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	if err := h.items.Delete(c.Request.Context(), middleware.Identity(c), id); err != nil {
		respondError(c, logger, "Error eliminando item", err)
		return
	}

	respondOK(c, http.StatusOK, "Item eliminado", gin.H{"id": id})
}

// SetStock fija el stock absoluto (ajuste manual)
func (h *ItemHandler) SetStock(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "set_stock"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	var req models.SetStockRequest
	if !h.bind(c, logger, &req) {
		return
	}

	change, err := h.ledger.SetStock(c.Request.Context(), middleware.Identity(c), id, *req.Stock, req.Note)
	if err != nil {
		respondError(c, logger, "Error ajustando stock", err)
		return
	}

	respondOK(c, http.StatusOK, "Stock ajustado", change)
}

// AddStock entrada de mercadería
func (h *ItemHandler) AddStock(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "stock_entry"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	var req models.StockEntryRequest
	if !h.bind(c, logger, &req) {
		return
	}

	qty, err := models.ParseQuantity(req.Qty.String())
	if err != nil {
		respondError(c, logger, "Cantidad inválida", err)
		return
	}

	change, err := h.ledger.AddStock(c.Request.Context(), middleware.Identity(c), id, qty, req.Note)
	if err != nil {
		respondError(c, logger, "Error registrando entrada", err)
		return
	}

	respondOK(c, http.StatusOK, "Entrada registrada", change)
}
