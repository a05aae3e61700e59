package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// SaleHandler historial de ventas, movimientos y reportes de solo lectura
type SaleHandler struct {
	reports   services.ReportService
	committer services.SaleCommitter
	logger    *zap.Logger
}

func NewSaleHandler(reports services.ReportService, committer services.SaleCommitter, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		reports:   reports,
		committer: committer,
		logger:    logger,
	}
}

// paging limit/offset de la query
func paging(c *gin.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset"); err != nil {
		return 0, 0, err
	}
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("%w: negative paging", models.ErrValidation)
	}
	return limit, offset, nil
}

func (h *SaleHandler) ListSales(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_sales"))

	from, to, err := queryRange(c)
	if err != nil {
		respondBadRequest(c, logger, "Rango de fechas inválido", err)
		return
	}
	limit, offset, err := paging(c)
	if err != nil {
		respondBadRequest(c, logger, "Parámetros inválidos", err)
		return
	}

	sales, err := h.reports.Sales(c.Request.Context(), models.SaleFilter{
		From:       from,
		To:         to,
		PartNumber: queryOptional(c, "part"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondError(c, logger, "Error listando ventas", err)
		return
	}

	respondOK(c, http.StatusOK, "Ventas obtenidas", gin.H{
		"sales": sales,
		"count": len(sales),
	})
}

func (h *SaleHandler) GetSale(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_sale"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	sale, err := h.reports.Sale(c.Request.Context(), id)
	if err != nil {
		respondError(c, logger, "Venta no encontrada", err)
		return
	}

	respondOK(c, http.StatusOK, "Venta obtenida", sale)
}

// Document descarga el PDF de la venta
func (h *SaleHandler) Document(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "sale_document"))

	id, err := paramID(c, "id")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	sale, err := h.reports.Sale(c.Request.Context(), id)
	if err != nil {
		respondError(c, logger, "Venta no encontrada", err)
		return
	}

	data, err := h.committer.Document(c.Request.Context(), id)
	if err != nil {
		respondError(c, logger, "Error generando documento", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.DocumentName(sale)))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *SaleHandler) ListMovements(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "list_movements"))

	from, to, err := queryRange(c)
	if err != nil {
		respondBadRequest(c, logger, "Rango de fechas inválido", err)
		return
	}
	limit, offset, err := paging(c)
	if err != nil {
		respondBadRequest(c, logger, "Parámetros inválidos", err)
		return
	}

	filter := models.MovementFilter{
		From:       from,
		To:         to,
		PartNumber: queryOptional(c, "part"),
		Limit:      limit,
		Offset:     offset,
	}
	if reason := queryOptional(c, "reason"); reason != nil {
		r := models.MovementReason(*reason)
		filter.Reason = &r
	}

	movements, err := h.reports.Movements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, logger, "Error listando movimientos", err)
		return
	}

	respondOK(c, http.StatusOK, "Movimientos obtenidos", gin.H{
		"movements": movements,
		"count":     len(movements),
	})
}

func (h *SaleHandler) LowStock(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "low_stock"))

	items, err := h.reports.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, logger, "Error obteniendo stock bajo", err)
		return
	}

	respondOK(c, http.StatusOK, "Reporte de stock bajo", gin.H{
		"items":  items,
		"count":  len(items),
		"policy": h.reports.Policy(),
	})
}

func (h *SaleHandler) TopSelling(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "top_selling"))

	from, to, err := queryRange(c)
	if err != nil {
		respondBadRequest(c, logger, "Rango de fechas inválido", err)
		return
	}

	rows, err := h.reports.TopSelling(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, logger, "Error obteniendo más vendidos", err)
		return
	}

	respondOK(c, http.StatusOK, "Reporte de más vendidos", rows)
}
