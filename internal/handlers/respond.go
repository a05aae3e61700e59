package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory-service/internal/models"
)

// statusFor traduce la taxonomía de errores del dominio a códigos HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrDuplicatePartNumber):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError escribe el sobre de error; los 5xx no exponen el detalle interno
func respondError(c *gin.Context, logger *zap.Logger, message string, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	body := gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   err.Error(),
	}

	var stockErr *models.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["data"] = stockErr
	}

	if status >= http.StatusInternalServerError {
		logger.Error("❌ "+message, zap.Error(err))
		body["error"] = "internal error"
	} else {
		logger.Warn("⚠️ "+message, zap.Error(err), zap.Int("status", status))
	}

	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, logger *zap.Logger, message string, err error) {
	logger.Warn("⚠️ "+message, zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   err.Error(),
	})
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "✅ " + message,
		"data":    data,
	})
}

// paramID lee un id numérico positivo de la ruta
func paramID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return id, nil
}

// queryInt entero opcional de la query; vacío devuelve 0
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return v, nil
}

// queryTime acepta RFC3339 o fecha sola (YYYY-MM-DD, medianoche UTC)
func queryTime(c *gin.Context, name string) (t *time.Time, dateOnly bool, err error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, false, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		parsed = parsed.UTC()
		return &parsed, false, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false, errors.New("invalid " + name + ": " + raw)
	}
	return &parsed, true, nil
}

// queryRange from/to de la query; un to con solo fecha incluye ese día completo
func queryRange(c *gin.Context) (from, to *time.Time, err error) {
	if from, _, err = queryTime(c, "from"); err != nil {
		return nil, nil, err
	}
	var dateOnly bool
	if to, dateOnly, err = queryTime(c, "to"); err != nil {
		return nil, nil, err
	}
	if to != nil && dateOnly {
		end := to.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}

func queryOptional(c *gin.Context, name string) *string {
	if raw := strings.TrimSpace(c.Query(name)); raw != "" {
		return &raw
	}
	return nil
}
