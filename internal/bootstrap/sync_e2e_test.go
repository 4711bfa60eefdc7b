package bootstrap_test

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	appintegration "github.com/crm/backend/internal/application/integration"
	"github.com/crm/backend/internal/bootstrap"
	"github.com/crm/backend/internal/domain/catalog"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/domain/partner"
	"github.com/crm/backend/internal/domain/trade"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/crm/backend/tests/testutil"
)

func newSyncConfig(store *testutil.FakeStorefront, phases ...string) *config.Config {
	return &config.Config{
		Platform: store.PlatformConfig(),
		Sync: config.SyncConfig{
			RunTimeout:         time.Minute,
			LockBackend:        bootstrap.LockBackendDatabase,
			LockTTL:            2 * time.Minute,
			PageSize:           2,
			MaxOrderPages:      10,
			OrderMatchKeys:     []string{"phone", "email"},
			IDNumberMetaKey:    "_billing_id_number",
			CountryCallingCode: "57",
			Phases:             phases,
		},
	}
}

func newSyncServices(t *testing.T, cfg *config.Config, db *gorm.DB) *bootstrap.Services {
	t.Helper()
	services, err := bootstrap.NewServices(cfg, db, bootstrap.Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.NotNil(t, services.Orchestrator)
	t.Cleanup(func() { _ = services.Close() })
	return services
}

func seedCatalog(store *testutil.FakeStorefront) {
	store.AddCategories(
		testutil.StoreCategory{ID: 5, Name: "Bridal Veils", Slug: "bridal-veils", Parent: 10},
		testutil.StoreCategory{ID: 10, Name: "Bride Collection", Slug: "bride-collection"},
		testutil.StoreCategory{ID: 20, Name: "Pajamas", Slug: "pajamas"},
	)
	store.AddProducts(
		testutil.StoreProduct{
			ID: 101, Name: "Lace Veil", Type: "simple", Status: "publish", SKU: "VEIL-1",
			Price: "150000", StockQuantity: testutil.Ptr(4),
			Categories: []testutil.StoreCategoryRef{{ID: 5}},
		},
		testutil.StoreProduct{
			ID: 102, Name: "Silk Pajama Set", Type: "simple", Status: "publish", SKU: "PJ-1",
			Price: "89000", Categories: []testutil.StoreCategoryRef{{ID: 20}},
		},
		testutil.StoreProduct{
			ID: 103, Name: "Robe Bundle", Type: "variable", Status: "publish", SKU: "ROBE",
			Categories: []testutil.StoreCategoryRef{{ID: 20}},
		},
	)
}

func storeOrder(id int64, created string, billing testutil.StoreAddress, lines ...testutil.StoreLineItem) testutil.StoreOrder {
	return testutil.StoreOrder{
		ID:             id,
		Status:         "processing",
		Currency:       "COP",
		PaymentMethod:  "Bank transfer",
		DateCreatedGMT: created,
		Billing:        billing,
		Shipping:       billing,
		LineItems:      lines,
	}
}

func findOrder(t *testing.T, db *gorm.DB, externalID int64) *trade.Order {
	t.Helper()
	ctx := context.Background()
	repo := persistence.NewGormOrderRepository(db)
	found, err := repo.FindByExternalID(ctx, externalID)
	require.NoError(t, err)
	order, err := repo.FindByID(ctx, found.ID)
	require.NoError(t, err)
	return order
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func orderCursor(t *testing.T, db *gorm.DB) *integration.SyncCursor {
	t.Helper()
	cursor, err := persistence.NewGormCursorRepository(db).Get(context.Background(), integration.OrderCursorName)
	require.NoError(t, err)
	return cursor
}

func TestSync_EndToEnd(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)
	seedCatalog(store)
	buyer := store.Contact("+57 300 123 4567")
	store.AddOrders(storeOrder(999, "2026-10-01T10:00:00", buyer,
		testutil.StoreLineItem{ID: 1, Name: "Bridal Lace Veil", ProductID: 101, SKU: "VEIL-1", Quantity: 1, Price: "150000", Total: "150000"},
		testutil.StoreLineItem{ID: 2, Name: "Gift Card", ProductID: 555, Quantity: 1, Price: "20000", Total: "20000"},
	))
	store.AddOrders(testutil.StoreOrder{ID: 1000, Status: "pending", DateCreatedGMT: "2026-10-01T11:00:00", Billing: store.Contact("")})

	services := newSyncServices(t, newSyncConfig(store), db)

	summary, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, integration.SyncStatusSuccess, summary.Status, "%+v", summary.Phases)
	require.Len(t, summary.Phases, 4)

	t.Run("categories parents first", func(t *testing.T) {
		assert.Equal(t, 3, summary.Phase(integration.PhaseCategories).Created)

		categories := persistence.NewGormCategoryRepository(db)
		bride, err := categories.FindByExternalID(ctx, 10)
		require.NoError(t, err)
		veils, err := categories.FindByExternalID(ctx, 5)
		require.NoError(t, err)
		pajamas, err := categories.FindByExternalID(ctx, 20)
		require.NoError(t, err)

		assert.Equal(t, catalog.BrandBride, bride.Brand)
		assert.Equal(t, catalog.BrandBride, veils.Brand)
		assert.Equal(t, catalog.BrandSleepwear, pajamas.Brand)
		require.NotNil(t, veils.ParentID)
		assert.Equal(t, bride.ID, *veils.ParentID)
		assert.Nil(t, bride.ParentID)
	})

	t.Run("simple products only", func(t *testing.T) {
		phase := summary.Phase(integration.PhaseProducts)
		assert.Equal(t, 2, phase.Created)
		assert.Equal(t, 1, phase.Skipped)

		products := persistence.NewGormProductRepository(db)
		veil, err := products.FindByExternalID(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, "VEIL-1", veil.SKU)
		assert.Equal(t, 4, veil.Stock)
		assert.Equal(t, catalog.BrandBride, veil.Brand)
		assert.True(t, veil.Price.Equal(decimal.NewFromInt(150000)))

		pajama, err := products.FindByExternalID(ctx, 102)
		require.NoError(t, err)
		assert.Equal(t, 0, pajama.Stock)
		assert.Equal(t, catalog.BrandSleepwear, pajama.Brand)

		_, err = products.FindByExternalID(ctx, 103)
		assert.Error(t, err)
	})

	t.Run("orders imported with mapped lines", func(t *testing.T) {
		assert.Equal(t, 1, summary.Phase(integration.PhaseOrders).Created)

		order := findOrder(t, db, 999)
		assert.Equal(t, "EXT-999", order.OrderNumber)
		assert.Equal(t, trade.OrderSourceEcommerce, order.Source)
		assert.Equal(t, trade.OrderStatusProcessing, order.Status)
		assert.Equal(t, catalog.BrandBride.String(), order.Brand)
		assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(170000)), order.TotalAmount.String())
		require.Len(t, order.Items, 2)

		veil, err := persistence.NewGormProductRepository(db).FindByExternalID(ctx, 101)
		require.NoError(t, err)
		for _, item := range order.Items {
			switch item.ProductName {
			case "Bridal Lace Veil":
				require.NotNil(t, item.ProductID)
				assert.Equal(t, veil.ID, *item.ProductID)
			case "Gift Card":
				assert.Nil(t, item.ProductID)
			default:
				t.Fatalf("unexpected item %q", item.ProductName)
			}
		}

		assert.Equal(t, int64(0), countRows(t, db, &models.OrderModel{}, "external_id = ?", 1000), "pending orders are not pulled")
		assert.Equal(t, int64(999), orderCursor(t, db).LastExternalID)
	})

	t.Run("stock pushed to the storefront", func(t *testing.T) {
		assert.Equal(t, 2, summary.Phase(integration.PhaseInventory).Updated)
		writes := store.StockWrites()
		require.Len(t, writes, 2)
		got := map[int64]int{}
		for _, w := range writes {
			assert.True(t, w.ManageStock)
			got[w.ProductID] = w.StockQuantity
		}
		assert.Equal(t, map[int64]int{101: 4, 102: 0}, got)
	})

	t.Run("shipping order matches the buyer by phone", func(t *testing.T) {
		veil, err := persistence.NewGormProductRepository(db).FindByExternalID(ctx, 101)
		require.NoError(t, err)
		imported := findOrder(t, db, 999)

		resp, err := services.ShippingOrders.Create(ctx, appintegration.ShippingOrderRequest{
			Contact: appintegration.ShippingContactRequest{FirstName: buyer.FirstName, LastName: buyer.LastName, Phone: "300-123-4567"},
			Address: appintegration.ShippingAddressRequest{Street: "Calle 10 # 5-20", City: "Bogota", Country: "CO"},
			Items:   []appintegration.ShippingOrderItemRequest{{ProductID: &veil.ID, Quantity: 2}},
		})
		require.NoError(t, err)

		assert.True(t, resp.Matched)
		assert.Equal(t, partner.MatchKeyPhone, resp.MatchedBy)
		assert.Equal(t, imported.CustomerID, resp.CustomerID)
		assert.True(t, resp.Total.Equal(decimal.NewFromInt(300000)))
		assert.Regexp(t, regexp.MustCompile(`^WEB-\d{8}-[0-9A-F]{6}$`), resp.OrderNumber)
	})
}

func TestSync_OrderImportedTwiceKeepsOneRow(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)
	store.AddOrders(storeOrder(999, "2026-10-01T10:00:00", store.Contact("3001234567"),
		testutil.StoreLineItem{ID: 1, Name: "Pajama Set", Quantity: 1, Price: "89000", Total: "89000"},
	))
	services := newSyncServices(t, newSyncConfig(store, "orders"), db)

	first, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Phase(integration.PhaseOrders).Created)
	assert.Equal(t, integration.SyncStatusSkipped, first.Phase(integration.PhaseCategories).Status)

	store.SetOrderStatus(999, "completed")
	second, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)

	orders := second.Phase(integration.PhaseOrders)
	assert.Equal(t, 0, orders.Created)
	assert.Equal(t, 1, orders.Updated)
	assert.Equal(t, int64(1), countRows(t, db, &models.OrderModel{}, "external_id = ?", 999))
	assert.Equal(t, int64(1), countRows(t, db, &models.OrderItemModel{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &models.CustomerModel{}, ""))
	assert.Equal(t, trade.OrderStatusDelivered, findOrder(t, db, 999).Status)
}

func TestSync_FailedOrderDoesNotBlockOthers(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)
	line := func(qty int) testutil.StoreLineItem {
		return testutil.StoreLineItem{ID: 1, Name: "Pajama Set", Quantity: qty, Price: "89000"}
	}
	broken := storeOrder(1002, "2026-10-01T11:00:00", store.Contact("3110000002"), line(0))
	store.AddOrders(
		storeOrder(1001, "2026-10-01T10:00:00", store.Contact("3110000001"), line(1)),
		broken,
		storeOrder(1003, "2026-10-01T12:00:00", store.Contact("3110000003"), line(2)),
	)
	services := newSyncServices(t, newSyncConfig(store, "orders"), db)

	summary, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)

	phase := summary.Phase(integration.PhaseOrders)
	assert.Equal(t, integration.SyncStatusPartial, phase.Status)
	assert.Equal(t, integration.SyncStatusPartial, summary.Status)
	assert.True(t, summary.Succeeded())
	assert.Equal(t, 2, phase.Created)
	assert.Equal(t, 1, phase.Failed)
	require.Len(t, phase.Failures, 1)
	assert.Equal(t, "1002", phase.Failures[0].ItemID)

	assert.Equal(t, int64(1), countRows(t, db, &models.OrderModel{}, "external_id = ?", 1001))
	assert.Equal(t, int64(0), countRows(t, db, &models.OrderModel{}, "external_id = ?", 1002))
	assert.Equal(t, int64(1), countRows(t, db, &models.OrderModel{}, "external_id = ?", 1003))
	assert.Equal(t, int64(2), countRows(t, db, &models.CustomerModel{}, ""), "the failed order's customer is rolled back")
	assert.Equal(t, int64(1001), orderCursor(t, db).LastExternalID)

	broken.LineItems = []testutil.StoreLineItem{line(1)}
	store.AddOrders(broken)

	retry, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)

	phase = retry.Phase(integration.PhaseOrders)
	assert.Equal(t, integration.SyncStatusSuccess, phase.Status)
	assert.Equal(t, 1, phase.Created)
	assert.Equal(t, int64(3), countRows(t, db, &models.OrderModel{}, ""))
	assert.Equal(t, int64(1003), orderCursor(t, db).LastExternalID)
}

func TestSync_StorefrontOutageFailsRun(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)
	store.Fail(http.MethodGet, "/orders", http.StatusInternalServerError)
	services := newSyncServices(t, newSyncConfig(store, "orders"), db)

	summary, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)

	assert.Equal(t, integration.SyncStatusFailed, summary.Status)
	assert.False(t, summary.Succeeded())
	assert.Contains(t, summary.Phase(integration.PhaseOrders).Error, "500")
}

func TestSync_CatalogItemFailureAndRerun(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)
	store.AddCategories(testutil.StoreCategory{ID: 20, Name: "Pajamas", Slug: "pajamas"})
	for i := 1; i <= 10; i++ {
		sku := fmt.Sprintf("PJ-%d", i)
		if i == 3 {
			sku = "PJ-2"
		}
		store.AddProducts(testutil.StoreProduct{
			ID: int64(200 + i), Name: fmt.Sprintf("Pajama Set %d", i), Type: "simple", Status: "publish",
			SKU: sku, Price: "89000", StockQuantity: testutil.Ptr(i),
			Categories: []testutil.StoreCategoryRef{{ID: 20}},
		})
	}
	services := newSyncServices(t, newSyncConfig(store, "categories", "products"), db)

	first, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)

	products := first.Phase(integration.PhaseProducts)
	assert.Equal(t, integration.SyncStatusPartial, products.Status)
	assert.Equal(t, 10, products.Total)
	assert.Equal(t, 9, products.Created)
	assert.Equal(t, 1, products.Failed)
	require.Len(t, products.Failures, 1)
	assert.Equal(t, "203", products.Failures[0].ItemID)
	assert.Empty(t, products.Error)
	assert.Equal(t, int64(1), countRows(t, db, &models.ProductModel{}, "external_id = ?", 210), "later products still processed")
	assert.Equal(t, int64(9), countRows(t, db, &models.ProductModel{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &models.CategoryModel{}, ""))

	second, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Phase(integration.PhaseCategories).Created)
	products = second.Phase(integration.PhaseProducts)
	assert.Equal(t, 0, products.Created)
	assert.Equal(t, 9, products.Updated)
	assert.Equal(t, 1, products.Failed)
	assert.Equal(t, int64(9), countRows(t, db, &models.ProductModel{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &models.CategoryModel{}, ""))
}

func TestSync_IdentityConflictsNameTheirOrder(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)

	customers := persistence.NewGormCustomerRepository(db)
	byPhone, err := partner.NewCustomer("Ana", "Phone", partner.Identifiers{Phone: "3001234567"}, partner.CustomerSourceWeb)
	require.NoError(t, err)
	require.NoError(t, customers.Create(ctx, byPhone))
	byEmail, err := partner.NewCustomer("Ana", "Email", partner.Identifiers{Email: "ana@example.com"}, partner.CustomerSourceWeb)
	require.NoError(t, err)
	require.NoError(t, customers.Create(ctx, byEmail))

	buyer := store.Contact("+57 300 123 4567")
	buyer.Email = "ana@example.com"
	line := testutil.StoreLineItem{ID: 1, Name: "Pajama Set", Quantity: 1, Price: "89000"}
	store.AddOrders(
		storeOrder(2001, "2026-10-01T10:00:00", buyer, line),
		storeOrder(2002, "2026-10-01T11:00:00", buyer, line),
	)
	services := newSyncServices(t, newSyncConfig(store, "orders"), db)

	summary, err := services.Orchestrator.Run(ctx, integration.TriggerCLI)
	require.NoError(t, err)
	orders := summary.Phase(integration.PhaseOrders)
	assert.Equal(t, 2, orders.Created)
	assert.Equal(t, 2, orders.Conflicts)
	assert.Equal(t, byPhone.ID, findOrder(t, db, 2001).CustomerID)

	resp, err := services.ShippingOrders.Create(ctx, appintegration.ShippingOrderRequest{
		Contact: appintegration.ShippingContactRequest{FirstName: "Ana", Phone: "300 123 4567", Email: "ANA@example.com"},
		Address: appintegration.ShippingAddressRequest{Street: "Calle 10 # 5-20", City: "Bogota", Country: "CO"},
		Items:   []appintegration.ShippingOrderItemRequest{{Name: "Gift Card", Quantity: 1, UnitPrice: testutil.Ptr(decimal.NewFromInt(50000))}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Conflict)

	conflicts, err := persistence.NewGormIdentityConflictRepository(db).ListUnresolved(ctx, 0)
	require.NoError(t, err)
	sources := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		sources = append(sources, c.Source)
		assert.Equal(t, byPhone.ID, c.ChosenCustomerID)
		require.NotNil(t, c.EmailCustomerID)
		assert.Equal(t, byEmail.ID, *c.EmailCustomerID)
	}
	assert.ElementsMatch(t, []string{"order:2001", "order:2002", "web:" + resp.OrderNumber}, sources)
}

func TestSync_HTTP(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	store := testutil.NewFakeStorefront(t)
	seedCatalog(store)
	services := newSyncServices(t, newSyncConfig(store), db)
	engine := router.NewEngine(router.EngineConfig{ServiceName: "crm-test", MaxBodySize: 1 << 20},
		services.HTTPHandlers("test", services.HealthChecks(db)...), zaptest.NewLogger(t))

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.PerformRequest(t, engine, http.MethodPost, "/api/v1/sync/runs", nil, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	started := testutil.DecodeData[appintegration.RunResponse](t, w)
	assert.Equal(t, integration.TriggerHTTP, started.Trigger)

	services.Orchestrator.Wait()

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/api/v1/sync/runs?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := testutil.DecodeData[[]appintegration.RunResponse](t, w)
	require.Len(t, runs, 1)
	assert.Equal(t, started.RunID, runs[0].RunID)
	assert.Equal(t, integration.SyncStatusSuccess, runs[0].Status)
	assert.Len(t, runs[0].Phases, 4)

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/api/v1/sync/conflicts", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	testutil.AssertSuccessResponse(t, w)
}

func TestSync_HTTPWithoutPlatform(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	services, err := bootstrap.NewServices(&config.Config{}, db, bootstrap.Options{})
	require.NoError(t, err)
	assert.Nil(t, services.Orchestrator)

	engine := router.NewEngine(router.EngineConfig{}, services.HTTPHandlers("test"), nil)

	testutil.RunHTTPTestCases(t, engine, []testutil.HTTPTestCase{
		{Name: "start run", Method: http.MethodPost, Path: "/api/v1/sync/runs", ExpectedStatus: http.StatusServiceUnavailable},
		{Name: "history", Method: http.MethodGet, Path: "/api/v1/sync/runs", ExpectedStatus: http.StatusServiceUnavailable},
		{Name: "conflicts", Method: http.MethodGet, Path: "/api/v1/sync/conflicts", ExpectedStatus: http.StatusOK},
		{
			Name:   "shipping order",
			Method: http.MethodPost,
			Path:   "/api/v1/shipping-orders",
			Body: map[string]any{
				"contact": map[string]string{"first_name": "Ana", "phone": "3001234567"},
				"address": map[string]string{"street": "Calle 10", "city": "Bogota"},
				"items":   []map[string]any{{"name": "Pajama Set", "quantity": 1, "unit_price": "89000"}},
			},
			ExpectedStatus: http.StatusCreated,
		},
	})
}
