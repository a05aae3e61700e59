package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"inventory-service/internal/auth"
	"inventory-service/internal/cache"
	"inventory-service/internal/document"
	"inventory-service/internal/models"
	"inventory-service/internal/repository"
	"inventory-service/internal/testutil"
)

type fakeRecorder struct {
	mu                                  sync.Mutex
	committed, rejected, renderFailures int
}

func (f *fakeRecorder) RecordCheckout(state models.SaleState, renderFailed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch state {
	case models.SaleCommitted:
		f.committed++
	case models.SaleRejected:
		f.rejected++
	}
	if renderFailed {
		f.renderFailures++
	}
}

type failingRenderer struct{}

func (failingRenderer) Render(*models.Sale) ([]byte, error) {
	return nil, errors.New("disk full")
}

type ServicesTestSuite struct {
	suite.Suite
	ctx context.Context

	tx        repository.TxRunner
	items     repository.ItemRepository
	sales     repository.SaleRepository
	movements repository.MovementRepository
	cartStore *cache.MemoryCartStore
	itemCache *cache.ItemCache

	ledger    StockLedger
	itemSvc   ItemService
	carts     CartService
	committer SaleCommitter
	reports   ReportService
	recorder  *fakeRecorder
	docs      *document.FileStore

	admin auth.Identity
	clerk auth.Identity
}

func TestServicesSuite(t *testing.T) {
	suite.Run(t, new(ServicesTestSuite))
}

func (s *ServicesTestSuite) SetupTest() {
	s.ctx = context.Background()
	logger := zap.NewNop()
	db := testutil.NewTestDB(s.T())

	var err error
	s.items, err = repository.NewItemRepository(db.DB, db.Dialect)
	s.Require().NoError(err)
	s.sales, err = repository.NewSaleRepository(db.DB, db.Dialect)
	s.Require().NoError(err)
	s.movements, err = repository.NewMovementRepository(db.DB, db.Dialect)
	s.Require().NoError(err)
	s.tx = repository.NewTxRunner(db.DB)

	s.cartStore = cache.NewMemoryCartStore()
	s.itemCache = cache.NewItemCache(nil, 100, time.Minute, logger)
	s.recorder = &fakeRecorder{}
	s.docs = document.NewFileStore(filepath.Join(s.T().TempDir(), "documents"))

	s.ledger = NewStockLedger(s.tx, s.items, s.movements, s.itemCache, logger)
	s.itemSvc = NewItemService(s.tx, s.items, s.movements, s.itemCache, logger)
	s.carts = NewCartService(s.cartStore, s.ledger, logger)
	s.committer = s.newCommitter(document.NewRenderer(document.Options{}, document.NoFontResolver{}, nil, logger))
	s.reports = NewReportService(s.items, s.sales, s.movements, models.LowStockIncludeOutOfStock, 200, logger)

	s.admin = auth.NewIdentity(auth.User{ID: "1", Name: "admin", Role: auth.RoleAdmin})
	s.clerk = auth.NewIdentity(auth.User{ID: "2", Name: "clerk", Role: auth.RoleStandard})
}

func (s *ServicesTestSuite) newCommitter(renderer DocumentRenderer) SaleCommitter {
	return NewSaleCommitter(SaleCommitterDeps{
		Tx:        s.tx,
		Items:     s.items,
		Sales:     s.sales,
		Movements: s.movements,
		Ledger:    s.ledger,
		Carts:     s.carts,
		Renderer:  renderer,
		Documents: s.docs,
		Cache:     s.itemCache,
		Recorder:  s.recorder,
	}, zap.NewNop())
}

func (s *ServicesTestSuite) createItem(part string, stock int, price string) *models.Item {
	item, err := s.itemSvc.Create(s.ctx, s.admin, &models.CreateItemRequest{
		PartNumber:  part,
		Description: "desc " + part,
		Price:       price,
		Stock:       stock,
	})
	s.Require().NoError(err)
	return item
}

func (s *ServicesTestSuite) stockOf(id int64) int {
	item, err := s.items.GetByID(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(item)
	return item.Stock
}

func (s *ServicesTestSuite) countSales() int {
	sales, err := s.sales.List(s.ctx, models.SaleFilter{})
	s.Require().NoError(err)
	return len(sales)
}

func (s *ServicesTestSuite) assertReconciled() {
	rows, err := s.reports.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *ServicesTestSuite) TestP100Scenario() {
	item := s.createItem("P-100", 10, "5.00")

	cart, err := s.carts.Add(s.ctx, "c1", item.ID, 3)
	s.Require().NoError(err)
	total, err := cart.Total()
	s.Require().NoError(err)
	s.Equal("15.00", total.String())

	_, err = s.carts.Add(s.ctx, "c1", item.ID, 8)
	var insufficient *models.InsufficientStockError
	s.Require().True(errors.As(err, &insufficient))
	s.Equal(10, insufficient.Available)
	s.Equal(11, insufficient.Requested)

	cart, err = s.carts.Get(s.ctx, "c1")
	s.Require().NoError(err)
	s.Require().Len(cart.Lines, 1)
	s.Equal(3, cart.Lines[0].Qty)

	sale, err := s.committer.Commit(s.ctx, "c1", models.Customer{Name: "ACME"}, s.clerk)
	s.Require().NoError(err)
	s.Equal("15.00", sale.Total.String())
	s.Require().Len(sale.Lines, 1)
	s.Equal(3, sale.Lines[0].Qty)
	s.Equal("15.00", sale.Lines[0].Subtotal.String())
	s.Equal("clerk", sale.Username)

	s.Equal(7, s.stockOf(item.ID))

	reason := models.ReasonSale
	movements, err := s.reports.Movements(s.ctx, models.MovementFilter{ItemID: &item.ID, Reason: &reason})
	s.Require().NoError(err)
	s.Require().Len(movements, 1)
	s.Equal(-3, movements[0].Delta)
	s.Equal(sale.ID, *movements[0].SaleID)
	s.Equal("P-100", movements[0].PartNumber)

	cart, err = s.carts.Get(s.ctx, "c1")
	s.Require().NoError(err)
	s.True(cart.IsEmpty(), "un commit exitoso vacía el carrito")
	s.Equal(1, s.recorder.committed)
	s.assertReconciled()
}

func (s *ServicesTestSuite) TestSequentialCommitsAgainstSameStock() {
	item := s.createItem("SEQ-1", 5, "1.00")

	_, err := s.carts.Add(s.ctx, "a", item.ID, 5)
	s.Require().NoError(err)
	_, err = s.carts.Add(s.ctx, "b", item.ID, 1)
	s.Require().NoError(err)

	_, err = s.committer.Commit(s.ctx, "a", models.Customer{}, s.clerk)
	s.Require().NoError(err)
	s.Equal(0, s.stockOf(item.ID))

	_, err = s.committer.Commit(s.ctx, "b", models.Customer{}, s.clerk)
	s.True(errors.Is(err, models.ErrInsufficientStock))
	s.Equal(1, s.countSales())
	s.Equal(1, s.recorder.rejected)

	cart, err := s.carts.Get(s.ctx, "b")
	s.Require().NoError(err)
	s.Len(cart.Lines, 1, "el carrito rechazado se conserva")
	s.assertReconciled()
}

func (s *ServicesTestSuite) TestConcurrentCheckoutsAgainstSameStock() {
	item := s.createItem("RACE-1", 5, "1.00")

	carts := []string{"left", "right"}
	for _, id := range carts {
		_, err := s.carts.Add(s.ctx, id, item.ID, 5)
		s.Require().NoError(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(carts))
	start := make(chan struct{})
	for i, id := range carts {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			<-start
			_, errs[i] = s.committer.Checkout(s.ctx, id, models.Customer{}, s.clerk)
		}(i, id)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.True(errors.Is(err, models.ErrInsufficientStock), err)
	}
	s.Equal(1, succeeded, "solo un checkout puede llevarse el stock")
	s.Equal(0, s.stockOf(item.ID))
	s.Equal(1, s.countSales())
	s.Equal(1, s.recorder.committed)
	s.Equal(1, s.recorder.rejected)
	s.assertReconciled()
}

func (s *ServicesTestSuite) TestEmptyCartPersistsNothing() {
	_, err := s.committer.Commit(s.ctx, "empty", models.Customer{}, s.clerk)
	s.True(errors.Is(err, models.ErrEmptyCart))
	s.Equal(0, s.countSales())
}

func (s *ServicesTestSuite) TestCommitIsAllOrNothing() {
	a := s.createItem("A-1", 5, "2.00")
	b := s.createItem("B-1", 3, "4.00")

	_, err := s.carts.Add(s.ctx, "c", a.ID, 2)
	s.Require().NoError(err)
	_, err = s.carts.Add(s.ctx, "c", b.ID, 3)
	s.Require().NoError(err)

	// el stock cambia entre el carrito y el checkout
	_, err = s.ledger.SetStock(s.ctx, s.admin, b.ID, 1, "recount")
	s.Require().NoError(err)

	_, err = s.committer.Commit(s.ctx, "c", models.Customer{}, s.clerk)
	var insufficient *models.InsufficientStockError
	s.Require().True(errors.As(err, &insufficient))
	s.Equal("B-1", insufficient.PartNumber)
	s.Equal(1, insufficient.Available)

	s.Equal(5, s.stockOf(a.ID))
	s.Equal(1, s.stockOf(b.ID))
	s.Equal(0, s.countSales())

	reason := models.ReasonSale
	movements, err := s.reports.Movements(s.ctx, models.MovementFilter{Reason: &reason})
	s.Require().NoError(err)
	s.Empty(movements)

	cart, err := s.carts.Get(s.ctx, "c")
	s.Require().NoError(err)
	s.Len(cart.Lines, 2)
	s.assertReconciled()
}

func (s *ServicesTestSuite) TestCommitRejectsDeletedItem() {
	item := s.createItem("GONE-1", 4, "1.00")
	_, err := s.carts.Add(s.ctx, "c", item.ID, 1)
	s.Require().NoError(err)
	s.Require().NoError(s.itemSvc.Delete(s.ctx, s.admin, item.ID))

	_, err = s.committer.Commit(s.ctx, "c", models.Customer{}, s.clerk)
	s.True(errors.Is(err, models.ErrNotFound))
	s.Equal(0, s.countSales())
}

func (s *ServicesTestSuite) TestSaleLinesKeepCartSnapshot() {
	item := s.createItem("SNAP-1", 10, "5.00")
	_, err := s.carts.Add(s.ctx, "c", item.ID, 2)
	s.Require().NoError(err)

	_, err = s.itemSvc.Update(s.ctx, s.admin, item.ID, &models.UpdateItemRequest{
		PartNumber:  "SNAP-1",
		Description: "renamed",
		Price:       "9.00",
	})
	s.Require().NoError(err)

	// un segundo agregado no cambia el precio ya fijado
	_, err = s.carts.Add(s.ctx, "c", item.ID, 1)
	s.Require().NoError(err)

	sale, err := s.committer.Commit(s.ctx, "c", models.Customer{}, s.clerk)
	s.Require().NoError(err)
	s.Require().Len(sale.Lines, 1)
	s.Equal("5.00", sale.Lines[0].UnitPrice.String())
	s.Equal("desc SNAP-1", sale.Lines[0].Description)
	s.Equal(3, sale.Lines[0].Qty)
	s.Equal("15.00", sale.Total.String())

	stored, err := s.reports.Sale(s.ctx, sale.ID)
	s.Require().NoError(err)
	linesTotal, err := stored.LinesTotal()
	s.Require().NoError(err)
	s.Equal(linesTotal, stored.Total)
}

func (s *ServicesTestSuite) TestTotalsAreExact() {
	a := s.createItem("T-1", 100, "0.10")
	b := s.createItem("T-2", 100, "19.99")
	c := s.createItem("T-3", 100, "")

	for _, add := range []struct {
		id  int64
		qty int
	}{{a.ID, 3}, {b.ID, 7}, {c.ID, 2}} {
		_, err := s.carts.Add(s.ctx, "t", add.id, add.qty)
		s.Require().NoError(err)
	}

	sale, err := s.committer.Commit(s.ctx, "t", models.Customer{}, s.clerk)
	s.Require().NoError(err)

	var sum models.Money
	for _, l := range sale.Lines {
		subtotal, err := l.UnitPrice.Mul(l.Qty)
		s.Require().NoError(err)
		s.Equal(subtotal, l.Subtotal)
		sum += l.Subtotal
	}
	s.Equal(sum, sale.Total)
	s.Equal("140.23", sale.Total.String())
}

func (s *ServicesTestSuite) TestAmountOverflowIsRejected() {
	item := s.createItem("BIG-1", 3, "40000000000000000.00")

	_, err := s.carts.Add(s.ctx, "big", item.ID, 3)
	s.Require().ErrorIs(err, models.ErrAmountOverflow)
	s.ErrorIs(err, models.ErrInvalidQuantity)

	cart, err := s.carts.Get(s.ctx, "big")
	s.Require().NoError(err)
	s.True(cart.IsEmpty())

	// una línea cargada por fuera del servicio tampoco llega a confirmarse
	s.Require().NoError(s.cartStore.SaveLine(s.ctx, "big", models.CartLine{
		ItemID:      item.ID,
		PartNumber:  item.PartNumber,
		Description: item.Description,
		UnitPrice:   item.UnitPrice(),
		Qty:         3,
	}))
	_, err = s.committer.Commit(s.ctx, "big", models.Customer{}, s.clerk)
	s.Require().ErrorIs(err, models.ErrAmountOverflow)
	s.Equal(0, s.countSales())
	s.Equal(3, s.stockOf(item.ID))
	s.Equal(1, s.recorder.rejected)
	s.assertReconciled()

	s.Require().NoError(s.carts.Clear(s.ctx, "big"))
	_, err = s.carts.Add(s.ctx, "big", item.ID, 1)
	s.Require().NoError(err)
	sale, err := s.committer.Commit(s.ctx, "big", models.Customer{}, s.clerk)
	s.Require().NoError(err)
	s.Equal("40000000000000000.00", sale.Total.String())
}

func (s *ServicesTestSuite) TestCheckoutWritesDocument() {
	item := s.createItem("DOC-1", 5, "12.50")
	_, err := s.carts.Add(s.ctx, "c", item.ID, 2)
	s.Require().NoError(err)

	result, err := s.committer.Checkout(s.ctx, "c", models.Customer{Name: "שלום עולם", Phone: "555"}, s.clerk)
	s.Require().NoError(err)
	s.NoError(result.RenderErr)
	s.Equal(models.SaleCommitted, result.State)
	s.Equal(DocumentName(result.Sale), filepath.Base(result.Sale.DocumentPath))

	data, err := os.ReadFile(result.Sale.DocumentPath)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(data, []byte("%PDF-")))

	stored, err := s.reports.Sale(s.ctx, result.Sale.ID)
	s.Require().NoError(err)
	s.Equal(result.Sale.DocumentPath, stored.DocumentPath)

	// sin archivo el documento se regenera
	s.Require().NoError(os.Remove(result.Sale.DocumentPath))
	regenerated, err := s.committer.Document(s.ctx, result.Sale.ID)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(regenerated, []byte("%PDF-")))

	_, err = s.committer.Document(s.ctx, 999)
	s.True(errors.Is(err, models.ErrNotFound))
}

func (s *ServicesTestSuite) TestRenderFailureKeepsSale() {
	committer := s.newCommitter(failingRenderer{})
	item := s.createItem("RF-1", 5, "1.00")
	_, err := s.carts.Add(s.ctx, "c", item.ID, 1)
	s.Require().NoError(err)

	result, err := committer.Checkout(s.ctx, "c", models.Customer{}, s.clerk)
	s.Require().NoError(err)
	s.True(errors.Is(result.RenderErr, models.ErrRenderFailure))
	s.Empty(result.Sale.DocumentPath)

	s.Equal(1, s.countSales())
	s.Equal(4, s.stockOf(item.ID))
	s.Equal(1, s.recorder.renderFailures)

	cart, err := s.carts.Get(s.ctx, "c")
	s.Require().NoError(err)
	s.True(cart.IsEmpty())
}

func (s *ServicesTestSuite) TestRoles() {
	item := s.createItem("R-1", 5, "1.00")

	_, err := s.committer.Commit(s.ctx, "c", models.Customer{}, auth.Anonymous)
	s.True(errors.Is(err, models.ErrForbidden))

	_, err = s.ledger.SetStock(s.ctx, s.clerk, item.ID, 10, "")
	s.True(errors.Is(err, models.ErrForbidden))

	_, err = s.itemSvc.Update(s.ctx, s.clerk, item.ID, &models.UpdateItemRequest{PartNumber: "R-1"})
	s.True(errors.Is(err, models.ErrForbidden))

	s.True(errors.Is(s.itemSvc.Delete(s.ctx, s.clerk, item.ID), models.ErrForbidden))

	change, err := s.ledger.AddStock(s.ctx, s.clerk, item.ID, 2, "delivery")
	s.Require().NoError(err)
	s.Equal(5, change.PreviousStock)
	s.Equal(7, change.NewStock)
	s.Equal(models.ReasonEntry, change.Movement.Reason)
}

func (s *ServicesTestSuite) TestCartValidation() {
	item := s.createItem("CV-1", 5, "1.00")

	_, err := s.carts.Add(s.ctx, "c", item.ID, 0)
	s.True(errors.Is(err, models.ErrInvalidQuantity))

	_, err = s.carts.Add(s.ctx, "  ", item.ID, 1)
	s.True(errors.Is(err, models.ErrValidation))

	_, err = s.carts.Add(s.ctx, "c", 999, 1)
	s.True(errors.Is(err, models.ErrNotFound))

	// quitar algo ausente no es error
	cart, err := s.carts.Remove(s.ctx, "c", item.ID)
	s.Require().NoError(err)
	s.True(cart.IsEmpty())

	_, err = s.carts.Add(s.ctx, "c", item.ID, 2)
	s.Require().NoError(err)
	s.Require().NoError(s.carts.Clear(s.ctx, "c"))
	cart, err = s.carts.Get(s.ctx, "c")
	s.Require().NoError(err)
	s.True(cart.IsEmpty())
}

func (s *ServicesTestSuite) TestItemCreateValidation() {
	s.createItem("Dup-1", 0, "")

	_, err := s.itemSvc.Create(s.ctx, s.clerk, &models.CreateItemRequest{PartNumber: "DUP-1"})
	s.True(errors.Is(err, models.ErrDuplicatePartNumber))

	_, err = s.itemSvc.Create(s.ctx, s.clerk, &models.CreateItemRequest{PartNumber: "X", Price: "1.234"})
	s.True(errors.Is(err, models.ErrInvalidPrice))

	_, err = s.itemSvc.Create(s.ctx, s.clerk, &models.CreateItemRequest{PartNumber: "   "})
	s.True(errors.Is(err, models.ErrInvalidPartNumber))

	_, err = s.itemSvc.Create(s.ctx, s.clerk, &models.CreateItemRequest{PartNumber: "NEG", Stock: -1})
	s.True(errors.Is(err, models.ErrInvalidQuantity))
}

func (s *ServicesTestSuite) TestGetByPartNumberUsesCache() {
	s.createItem("Cache-1", 4, "1.00")

	item, err := s.itemSvc.GetByPartNumber(s.ctx, "cache-1")
	s.Require().NoError(err)
	s.Equal(4, item.Stock)

	_, err = s.itemSvc.GetByPartNumber(s.ctx, "CACHE-1")
	s.Require().NoError(err)
	s.Equal(int64(1), s.itemCache.GetStats().Hits)

	// un cambio de stock invalida la entrada
	_, err = s.ledger.AddStock(s.ctx, s.admin, item.ID, 1, "")
	s.Require().NoError(err)
	item, err = s.itemSvc.GetByPartNumber(s.ctx, "cache-1")
	s.Require().NoError(err)
	s.Equal(5, item.Stock)

	stock, err := s.ledger.Get(s.ctx, "CACHE-1")
	s.Require().NoError(err)
	s.Equal(5, stock)

	_, err = s.ledger.Get(s.ctx, "nope")
	s.True(errors.Is(err, models.ErrNotFound))
}

func (s *ServicesTestSuite) TestReconciliationAfterMixedHistory() {
	a := s.createItem("MIX-A", 10, "3.00")
	b := s.createItem("MIX-B", 0, "7.00")

	_, err := s.ledger.AddStock(s.ctx, s.clerk, b.ID, 6, "delivery")
	s.Require().NoError(err)
	_, err = s.ledger.SetStock(s.ctx, s.admin, a.ID, 8, "recount")
	s.Require().NoError(err)

	for i, qty := range []int{2, 3} {
		cartID := []string{"x", "y"}[i]
		_, err = s.carts.Add(s.ctx, cartID, a.ID, qty)
		s.Require().NoError(err)
		_, err = s.carts.Add(s.ctx, cartID, b.ID, 1)
		s.Require().NoError(err)
		_, err = s.committer.Commit(s.ctx, cartID, models.Customer{}, s.clerk)
		s.Require().NoError(err)
	}

	s.Equal(3, s.stockOf(a.ID))
	s.Equal(4, s.stockOf(b.ID))
	for _, item := range []*models.Item{a, b} {
		sum, err := s.movements.SumByItem(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(s.stockOf(item.ID), sum)
	}
	s.assertReconciled()
}

func (s *ServicesTestSuite) TestReports() {
	a := s.createItem("REP-A", 10, "2.00")
	s.createItem("REP-B", 1, "1.00")
	s.createItem("REP-ZERO", 0, "1.00")

	_, err := s.itemSvc.Update(s.ctx, s.admin, a.ID, &models.UpdateItemRequest{PartNumber: "REP-A", Price: "2.00", MinStock: 8})
	s.Require().NoError(err)

	_, err = s.carts.Add(s.ctx, "r", a.ID, 4)
	s.Require().NoError(err)
	_, err = s.committer.Commit(s.ctx, "r", models.Customer{}, s.clerk)
	s.Require().NoError(err)

	low, err := s.reports.LowStock(s.ctx)
	s.Require().NoError(err)
	parts := map[string]bool{}
	for _, item := range low {
		parts[item.PartNumber] = true
	}
	s.True(parts["REP-A"])
	s.True(parts["REP-ZERO"])

	strict := NewReportService(s.items, s.sales, s.movements, models.LowStockThresholdOnly, 200, zap.NewNop())
	count, err := strict.LowStockCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)

	top, err := s.reports.TopSelling(s.ctx, nil, nil)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal("REP-A", top[0].PartNumber)
	s.Equal(4, top[0].Qty)
	s.Equal("8.00", top[0].Sales.String())

	part := "rep-a"
	sales, err := s.reports.Sales(s.ctx, models.SaleFilter{PartNumber: &part})
	s.Require().NoError(err)
	s.Len(sales, 1)

	future := time.Now().Add(time.Hour)
	sales, err = s.reports.Sales(s.ctx, models.SaleFilter{From: &future})
	s.Require().NoError(err)
	s.Empty(sales)

	past := time.Now().Add(-time.Hour)
	_, err = s.reports.Sales(s.ctx, models.SaleFilter{From: &future, To: &past})
	s.True(errors.Is(err, models.ErrValidation))

	_, err = s.reports.Sale(s.ctx, 12345)
	s.True(errors.Is(err, models.ErrNotFound))
}
