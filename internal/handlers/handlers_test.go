package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"inventory-service/internal/app"
	"inventory-service/internal/auth"
	"inventory-service/internal/config"
	"inventory-service/internal/models"
	"inventory-service/internal/testutil"
)

type HandlersTestSuite struct {
	suite.Suite
	app    *app.App
	router *gin.Engine

	adminToken string
	clerkToken string
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", GinMode: gin.TestMode},
		JWT:       config.JWTConfig{Secret: "test-secret", ExpiryHours: 1},
		Logging:   config.LoggingConfig{Level: "error"},
		Documents: config.DocumentsConfig{Dir: filepath.Join(t.TempDir(), "documents"), Title: "Quotation", Footer: "Test"},
		Reports:   config.ReportsConfig{LowStockPolicy: "include_out_of_stock", Limit: 200},
		Cache:     config.CacheConfig{CartTTL: time.Hour, ItemTTL: time.Minute, ItemL1Max: 100},
	}
}

func (s *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	t := s.T()

	a, err := app.New(testConfig(t), testutil.NewTestDB(t), nil, zap.NewNop())
	s.Require().NoError(err)
	s.app = a
	s.router = a.Router

	s.adminToken, err = a.Tokens.Issue(auth.User{ID: "1", Name: "admin", Role: auth.RoleAdmin})
	s.Require().NoError(err)
	s.clerkToken, err = a.Tokens.Issue(auth.User{ID: "2", Name: "clerk", Role: auth.RoleStandard})
	s.Require().NoError(err)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *HandlersTestSuite) createItem(part string, stock int, price string) models.Item {
	w := testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/items", gin.H{
		"part_number": part,
		"description": "desc " + part,
		"price":       price,
		"stock":       stock,
	}, bearer(s.adminToken))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var item models.Item
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &item)
	return item
}

func (s *HandlersTestSuite) TestRequiresToken() {
	w := testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/items", nil, nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/items", nil, bearer("garbage"))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestPublicEndpoints() {
	w := testutil.DoRequest(s.T(), s.router, http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotEmpty(w.Header().Get("X-Request-ID"))

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/", nil, map[string]string{"X-Request-ID": "abc-123"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("abc-123", w.Header().Get("X-Request-ID"))
}

func (s *HandlersTestSuite) TestRolesOnStockRoutes() {
	item := s.createItem("P-1", 5, "1.00")
	path := fmt.Sprintf("/api/v1/items/%d/stock", item.ID)

	w := testutil.DoRequest(s.T(), s.router, http.MethodPut, path, gin.H{"stock": 9}, bearer(s.clerkToken))
	s.Equal(http.StatusForbidden, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPut, path, gin.H{"stock": 9, "note": "conteo"}, bearer(s.adminToken))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var change models.StockChange
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &change)
	s.Equal(5, change.PreviousStock)
	s.Equal(9, change.NewStock)
	s.Equal(models.ReasonAdjustment, change.Movement.Reason)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, fmt.Sprintf("/api/v1/items/%d/entry", item.ID),
		gin.H{"qty": 3}, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &change)
	s.Equal(12, change.NewStock)
}

func (s *HandlersTestSuite) TestCreateItemErrors() {
	s.createItem("P-1", 1, "1.00")

	w := testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/items",
		gin.H{"part_number": "p-1", "price": "2.00"}, bearer(s.adminToken))
	s.Equal(http.StatusConflict, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/items",
		gin.H{"part_number": "P-2", "price": "abc"}, bearer(s.adminToken))
	s.Equal(http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/items",
		gin.H{"description": "sin part number"}, bearer(s.adminToken))
	s.Equal(http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/items/999", nil, bearer(s.clerkToken))
	s.Equal(http.StatusNotFound, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/items/abc", nil, bearer(s.clerkToken))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestCheckoutFlow() {
	item := s.createItem("P-100", 10, "5.00")
	cartPath := "/api/v1/cart/register-1"

	w := testutil.DoRequest(s.T(), s.router, http.MethodPost, cartPath+"/items",
		gin.H{"item_id": item.ID, "qty": 3}, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var cart struct {
		Total models.Money `json:"total"`
		Count int          `json:"count"`
	}
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &cart)
	s.Equal("15.00", cart.Total.String())
	s.Equal(3, cart.Count)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, cartPath+"/items",
		gin.H{"item_id": item.ID, "qty": 8}, bearer(s.clerkToken))
	s.Require().Equal(http.StatusConflict, w.Code)
	var stockErr models.InsufficientStockError
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &stockErr)
	s.Equal(10, stockErr.Available)
	s.Equal(11, stockErr.Requested)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, cartPath+"/checkout",
		gin.H{"customer_name": "محمد"}, bearer(s.clerkToken))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	resp := testutil.ParseResponse(s.T(), w)
	s.Empty(resp.Warning)
	var result models.CheckoutResult
	testutil.DecodeData(s.T(), resp, &result)
	s.Equal(models.SaleCommitted, result.State)
	s.Equal("15.00", result.Sale.Total.String())
	s.Equal("clerk", result.Sale.Username)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, fmt.Sprintf("/api/v1/items/%d", item.ID), nil, bearer(s.clerkToken))
	var current models.Item
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &current)
	s.Equal(7, current.Stock)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, fmt.Sprintf("/api/v1/sales/%d/document", result.Sale.ID), nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("application/pdf", w.Header().Get("Content-Type"))
	s.True(strings.HasPrefix(w.Body.String(), "%PDF"))
	s.Contains(w.Header().Get("Content-Disposition"), fmt.Sprintf("quote_%d_", result.Sale.ID))

	// el carrito queda vacío tras confirmar
	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, cartPath+"/checkout", nil, bearer(s.clerkToken))
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/movements?part=P-100&reason=sale", nil, bearer(s.adminToken))
	s.Require().Equal(http.StatusOK, w.Code)
	var moves struct {
		Movements []models.Movement `json:"movements"`
	}
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &moves)
	s.Require().Len(moves.Movements, 1)
	s.Equal(-3, moves.Movements[0].Delta)
}

func (s *HandlersTestSuite) TestCartEndpoints() {
	item := s.createItem("P-1", 4, "2.50")

	w := testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/cart", nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusCreated, w.Code)
	var created models.CartView
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &created)
	s.Len(created.ID, 36)

	path := "/api/v1/cart/" + created.ID
	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, path+"/items", gin.H{"item_id": item.ID, "qty": 0}, bearer(s.clerkToken))
	s.Equal(http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, path+"/items", gin.H{"item_id": item.ID, "qty": 2}, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodDelete, fmt.Sprintf("%s/items/%d", path, item.ID), nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)
	var view models.CartView
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &view)
	s.Empty(view.Lines)

	w = testutil.DoRequest(s.T(), s.router, http.MethodDelete, path, nil, bearer(s.clerkToken))
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlersTestSuite) TestReports() {
	s.createItem("EMPTY", 0, "1.00")
	s.createItem("FULL", 50, "1.00")

	w := testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/reports/low-stock", nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)
	var low struct {
		Items  []models.Item `json:"items"`
		Policy string        `json:"policy"`
	}
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &low)
	s.Require().Len(low.Items, 1)
	s.Equal("EMPTY", low.Items[0].PartNumber)
	s.Equal("include_out_of_stock", low.Policy)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/reports/top-selling?from=2024-02-01&to=2024-01-01", nil, bearer(s.clerkToken))
	s.Equal(http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/sales?from=yesterday", nil, bearer(s.clerkToken))
	s.Equal(http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/sales/42", nil, bearer(s.clerkToken))
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestDateOnlyRangeIncludesEndDay() {
	item := s.createItem("DAY-1", 5, "1.00")
	w := testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/cart/day/items",
		gin.H{"item_id": item.ID, "qty": 2}, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	w = testutil.DoRequest(s.T(), s.router, http.MethodPost, "/api/v1/cart/day/checkout", nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var result models.CheckoutResult
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &result)
	day := result.Sale.CreatedAt.UTC().Format("2006-01-02")
	prev := result.Sale.CreatedAt.UTC().AddDate(0, 0, -1).Format("2006-01-02")

	var sales struct {
		Sales []models.Sale `json:"sales"`
	}
	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/sales?from="+day+"&to="+day, nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &sales)
	s.Require().Len(sales.Sales, 1, "un rango de un solo día incluye las ventas de ese día")
	s.Equal(result.Sale.ID, sales.Sales[0].ID)

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/sales?from="+prev+"&to="+day, nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &sales)
	s.Len(sales.Sales, 1, "el día final entra en el rango")

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/sales?to="+prev, nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &sales)
	s.Empty(sales.Sales)

	var moves struct {
		Movements []models.Movement `json:"movements"`
	}
	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/movements?part=DAY-1&reason=sale", nil, bearer(s.adminToken))
	s.Require().Equal(http.StatusOK, w.Code)
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &moves)
	s.Require().Len(moves.Movements, 1)
	moveDay := moves.Movements[0].CreatedAt.UTC().Format("2006-01-02")

	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/movements?part=DAY-1&reason=sale&from="+moveDay+"&to="+moveDay, nil, bearer(s.adminToken))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &moves)
	s.Len(moves.Movements, 1)

	// con hora explícita el límite sigue siendo exclusivo
	at := result.Sale.CreatedAt.UTC().Format(time.RFC3339)
	w = testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/sales?to="+at, nil, bearer(s.clerkToken))
	s.Require().Equal(http.StatusOK, w.Code)
	testutil.DecodeData(s.T(), testutil.ParseResponse(s.T(), w), &sales)
	s.Empty(sales.Sales)
}

func (s *HandlersTestSuite) TestMetricsRecordRequests() {
	s.createItem("P-1", 1, "1.00")

	w := testutil.DoRequest(s.T(), s.router, http.MethodGet, "/api/v1/monitoring/metrics", nil, bearer(s.adminToken))
	s.Require().Equal(http.StatusOK, w.Code)

	metrics := s.app.Monitoring.GetMetrics(context.Background())
	s.Equal(1, metrics.Requests.TotalRequests)
	s.Contains(metrics.Requests.ByEndpoint, "POST /api/v1/items")
}
