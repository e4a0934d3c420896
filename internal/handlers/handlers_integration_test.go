package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/guard"
	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app   *fiber.App
	store repositories.Store
	auth  *services.AuthService
}

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	db, err := database.Open(database.DriverSQLite, database.MemorySQLiteDSN(uuid.NewString()), log)
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	store := repositories.NewGORMStore(db)

	authService := services.NewAuthService(store.Users(), "test_jwt_secret", time.Hour, log)
	_, err = authService.EnsureAdmin(context.Background(), "admin", "admin@example.com", "admin123")
	require.NoError(t, err)

	app := fiber.New()
	handlers.RegisterAPI(app, handlers.Services{
		Auth:     authService,
		Products: services.NewProductService(store.Products(), store.Categories(), log),
		Carts:    services.NewCartService(store),
		Checkout: services.NewCheckoutService(store, guard.NewMemoryGuard(), nil, log),
		Orders:   services.NewOrderService(store, nil, log),
	}, log)

	seedProductsForTest(t, store)
	return &testEnv{app: app, store: store, auth: authService}
}

// seedProductsForTest populates the catalog for tests.
func seedProductsForTest(t *testing.T, store repositories.Store) {
	t.Helper()
	ctx := context.Background()
	category := &models.Category{Name: "Feeding", Slug: "feeding"}
	require.NoError(t, store.Categories().Create(ctx, category))
	products := []models.Product{
		{Name: "Bottle", Slug: "bottle", Price: decimal.NewFromInt(299000), Stock: 10, CategoryID: &category.ID},
		{Name: "Diapers", Slug: "diapers", Price: decimal.NewFromInt(150000), Stock: 30},
	}
	for i := range products {
		require.NoError(t, store.Products().Create(ctx, &products[i]))
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, data := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, string(data))
	var loginResp map[string]string
	require.NoError(t, json.Unmarshal(data, &loginResp))
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	status, data := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, string(data))
	return e.login(t, username, "password123")
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)

	userToRegister := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}
	status, data := env.do(t, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusCreated, status)
	registerResp := decode[map[string]interface{}](t, data)
	assert.Equal(t, "User registered successfully", registerResp["message"])
	assert.NotContains(t, string(data), "password")

	// Duplicate registration
	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusConflict, status)

	// Invalid registration
	status, data = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(data), "Validation failed")

	token := env.login(t, "testuser", "password123")
	claims, err := env.auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Equal(t, "customer", claims["role"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "testuser", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, data = env.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
	me := decode[models.User](t, data)
	assert.Equal(t, "testuser", me.Username)
}

func TestCatalogEndpoints(t *testing.T) {
	env := setupApp(t)

	// Browsing needs no token
	status, data := env.do(t, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Product](t, data), 2)

	status, data = env.do(t, http.MethodGet, "/api/v1/products?category=feeding", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Product](t, data), 1)

	status, _ = env.do(t, http.MethodGet, "/api/v1/products?category=toys", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data = env.do(t, http.MethodGet, "/api/v1/products/bottle", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Bottle", decode[models.Product](t, data).Name)

	status, data = env.do(t, http.MethodGet, "/api/v1/categories/feeding", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `"products"`)

	status, _ = env.do(t, http.MethodGet, "/api/v1/categories/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Catalog writes need the admin role
	newProduct := map[string]interface{}{"name": "Smart Monitor", "price": 1890000, "stock": 5}
	status, _ = env.do(t, http.MethodPost, "/api/v1/products", "", newProduct)
	assert.Equal(t, http.StatusUnauthorized, status)

	customerToken := env.registerAndLogin(t, "lan")
	status, data = env.do(t, http.MethodPost, "/api/v1/products", customerToken, newProduct)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "/", decode[map[string]interface{}](t, data)["redirect"])

	adminToken := env.login(t, "admin", "admin123")
	status, data = env.do(t, http.MethodPost, "/api/v1/products", adminToken, newProduct)
	require.Equal(t, http.StatusCreated, status, string(data))
	created := decode[models.Product](t, data)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "smart-monitor", created.Slug)

	updated := map[string]interface{}{"name": "Smart Monitor Pro", "slug": "smart-monitor", "price": 2190000, "stock": 4}
	status, data = env.do(t, http.MethodPut, "/api/v1/products/"+created.ID, adminToken, updated)
	require.Equal(t, http.StatusOK, status, string(data))
	assert.Equal(t, "Smart Monitor Pro", decode[models.Product](t, data).Name)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/products/"+created.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = env.do(t, http.MethodGet, "/api/v1/products/smart-monitor", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data = env.do(t, http.MethodPost, "/api/v1/categories", adminToken, map[string]string{"name": "Bath Time"})
	require.Equal(t, http.StatusCreated, status, string(data))
	assert.Equal(t, "bath-time", decode[models.Category](t, data).Slug)
}

func TestCartCheckoutAndOrders(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin(t, "lan")
	ctx := context.Background()

	bottle, err := env.store.Products().GetBySlug(ctx, "bottle")
	require.NoError(t, err)

	// Cart and checkout need a session
	status, data := env.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "/auth", decode[map[string]interface{}](t, data)["redirect"])

	// Empty cart checkout
	shipping := map[string]string{"shipping_address": "12 Nguyen Hue, Q1", "shipping_phone": "0901234567"}
	status, data = env.do(t, http.MethodPost, "/api/v1/checkout", token, shipping)
	require.Equal(t, http.StatusOK, status, string(data))
	emptyResult := decode[services.CheckoutResult](t, data)
	assert.Equal(t, services.CheckoutCartEmpty, emptyResult.State)
	assert.Equal(t, "/cart", emptyResult.Redirect)

	status, data = env.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{"product_id": bottle.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, status, string(data))
	view := decode[models.CartView](t, data)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "598.000đ", view.TotalDisplay)
	itemID := view.Items[0].ID

	// Quantity below one leaves the cart unchanged
	status, data = env.do(t, http.MethodPatch, "/api/v1/cart/items/"+itemID, token, map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, decode[models.CartView](t, data).Items[0].Quantity)

	// Missing shipping phone blocks submission
	status, data = env.do(t, http.MethodPost, "/api/v1/checkout", token, map[string]string{"shipping_address": "12 Nguyen Hue"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "collecting_input", decode[map[string]interface{}](t, data)["state"])

	status, data = env.do(t, http.MethodPost, "/api/v1/checkout", token, shipping)
	require.Equal(t, http.StatusCreated, status, string(data))
	result := decode[services.CheckoutResult](t, data)
	assert.Equal(t, services.CheckoutSucceeded, result.State)
	assert.Equal(t, "/orders", result.Redirect)
	require.NotNil(t, result.Order)
	assert.True(t, decimal.NewFromInt(598000).Equal(result.Order.TotalAmount))
	require.Len(t, result.Order.Items, 1)

	status, data = env.do(t, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[models.CartView](t, data).Items)

	status, data = env.do(t, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, status)
	orders := decode[[]models.Order](t, data)
	require.Len(t, orders, 1)
	assert.Equal(t, result.Order.ID, orders[0].ID)

	status, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+result.Order.ID, token, nil)
	assert.Equal(t, http.StatusOK, status)

	// Other shoppers cannot see the order
	otherToken := env.registerAndLogin(t, "minh")
	status, _ = env.do(t, http.MethodGet, "/api/v1/orders/"+result.Order.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminOrderStatus(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin(t, "lan")
	adminToken := env.login(t, "admin", "admin123")
	ctx := context.Background()

	diapers, err := env.store.Products().GetBySlug(ctx, "diapers")
	require.NoError(t, err)
	status, _ := env.do(t, http.MethodPost, "/api/v1/cart/items", token, map[string]interface{}{"product_id": diapers.ID})
	require.Equal(t, http.StatusCreated, status)
	status, data := env.do(t, http.MethodPost, "/api/v1/checkout", token, map[string]string{"shipping_address": "a", "shipping_phone": "p"})
	require.Equal(t, http.StatusCreated, status)
	orderID := decode[services.CheckoutResult](t, data).Order.ID
	statusPath := "/api/v1/admin/orders/" + orderID + "/status"

	status, _ = env.do(t, http.MethodPatch, statusPath, token, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, status)

	status, data = env.do(t, http.MethodPatch, statusPath, adminToken, map[string]string{"status": "delivered"})
	require.Equal(t, http.StatusOK, status, string(data))
	assert.Equal(t, models.OrderStatusDelivered, decode[models.Order](t, data).Status)

	// Idempotent
	status, _ = env.do(t, http.MethodPatch, statusPath, adminToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusOK, status)

	// Terminal
	status, _ = env.do(t, http.MethodPatch, statusPath, adminToken, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPatch, statusPath, adminToken, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPatch, "/api/v1/admin/orders/missing/status", adminToken, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusNotFound, status)

	status, data = env.do(t, http.MethodGet, "/api/v1/admin/orders", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	all := decode[[]models.Order](t, data)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].User)
	assert.Equal(t, "lan", all[0].User.Username)

	status, data = env.do(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	dashboard := decode[services.Dashboard](t, data)
	assert.Equal(t, 1, dashboard.OrderCounts["delivered"])
	assert.Equal(t, 2, dashboard.ProductCount)
}
