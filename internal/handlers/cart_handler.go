package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"inventory-service/internal/middleware"
	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// CartHandler carrito abierto y cierre de venta
type CartHandler struct {
	carts     services.CartService
	committer services.SaleCommitter
	validator *validator.Validate
	logger    *zap.Logger
}

func NewCartHandler(carts services.CartService, committer services.SaleCommitter, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:     carts,
		committer: committer,
		validator: validator.New(),
		logger:    logger,
	}
}

// New reserva un ID de carrito; el carrito existe recién con su primera línea
func (h *CartHandler) New(c *gin.Context) {
	cart := models.NewCart(uuid.NewString(), nil)
	respondCart(c, h.logger, http.StatusCreated, "Carrito creado", cart)
}

func respondCart(c *gin.Context, logger *zap.Logger, status int, message string, cart *models.Cart) {
	view, err := cart.View()
	if err != nil {
		respondError(c, logger, "Total del carrito fuera de rango", err)
		return
	}
	respondOK(c, status, message, view)
}

func (h *CartHandler) Get(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_cart"), zap.String("cart_id", c.Param("cart")))

	cart, err := h.carts.Get(c.Request.Context(), c.Param("cart"))
	if err != nil {
		respondError(c, logger, "Error obteniendo carrito", err)
		return
	}

	respondCart(c, logger, http.StatusOK, "Carrito obtenido", cart)
}

func (h *CartHandler) AddItem(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "cart_add"), zap.String("cart_id", c.Param("cart")))

	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, logger, "Error en el formato de datos", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondBadRequest(c, logger, "Datos de entrada inválidos", err)
		return
	}

	qty, err := models.ParseQuantity(req.Qty.String())
	if err != nil {
		respondError(c, logger, "Cantidad inválida", err)
		return
	}

	cart, err := h.carts.Add(c.Request.Context(), c.Param("cart"), req.ItemID, qty)
	if err != nil {
		respondError(c, logger, "No se pudo agregar al carrito", err)
		return
	}

	respondCart(c, logger, http.StatusOK, "Item agregado", cart)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "cart_remove"), zap.String("cart_id", c.Param("cart")))

	itemID, err := paramID(c, "item")
	if err != nil {
		respondBadRequest(c, logger, "ID inválido", err)
		return
	}

	cart, err := h.carts.Remove(c.Request.Context(), c.Param("cart"), itemID)
	if err != nil {
		respondError(c, logger, "Error quitando item", err)
		return
	}

	respondCart(c, logger, http.StatusOK, "Item quitado", cart)
}

func (h *CartHandler) Clear(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "cart_clear"), zap.String("cart_id", c.Param("cart")))

	if err := h.carts.Clear(c.Request.Context(), c.Param("cart")); err != nil {
		respondError(c, logger, "Error vaciando carrito", err)
		return
	}

	respondOK(c, http.StatusOK, "Carrito vaciado", nil)
}

// Checkout confirma la venta; un fallo del documento se informa en "warning" sin deshacerla
func (h *CartHandler) Checkout(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "checkout"), zap.String("cart_id", c.Param("cart")))

	var req models.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, logger, "Error en el formato de datos", err)
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		respondBadRequest(c, logger, "Datos de entrada inválidos", err)
		return
	}

	result, err := h.committer.Checkout(c.Request.Context(), c.Param("cart"), req.Customer(), middleware.Identity(c))
	if err != nil {
		respondError(c, logger, "Venta rechazada", err)
		return
	}

	body := gin.H{
		"success": true,
		"message": "✅ Venta confirmada",
		"data":    result,
	}
	if result.RenderErr != nil {
		body["warning"] = result.RenderErr.Error()
	}

	logger.Info("✅ Checkout completado",
		zap.Int64("sale_id", result.Sale.ID),
		zap.Bool("document", result.RenderErr == nil))
	c.JSON(http.StatusCreated, body)
}
