package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatedcrate/storefront/internal/auth"
	"github.com/curatedcrate/storefront/internal/domain/box"
	"github.com/curatedcrate/storefront/internal/domain/cart"
	"github.com/curatedcrate/storefront/internal/domain/discount"
	"github.com/curatedcrate/storefront/internal/domain/order"
	"github.com/curatedcrate/storefront/internal/domain/product"
	"github.com/curatedcrate/storefront/internal/domain/user"
)

// --- Mock implementations ---

type mockUserRepo struct {
	byID    map[string]*user.User
	byEmail map[string]*user.User
	users   []user.User
	total   int
}

func (m *mockUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	return nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _ *user.User) error { return nil }

func (m *mockUserRepo) List(_ context.Context, _ user.ListFilter) ([]user.User, int, error) {
	return m.users, m.total, nil
}

type mockProductRepo struct {
	products []product.Product
	byID     map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context, _ product.ListFilter) ([]product.Product, error) {
	return m.products, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }

type mockBoxRepo struct {
	boxes []box.ThemedBox
	byID  map[string]*box.ThemedBox
}

func (m *mockBoxRepo) List(_ context.Context) ([]box.ThemedBox, error) { return m.boxes, nil }

func (m *mockBoxRepo) GetByID(_ context.Context, id string) (*box.ThemedBox, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, box.ErrNotFound
	}
	return b, nil
}

func (m *mockBoxRepo) Create(_ context.Context, _ *box.ThemedBox, _ []string) error { return nil }
func (m *mockBoxRepo) Update(_ context.Context, _ *box.ThemedBox, _ []string) error { return nil }

type mockCartRepo struct {
	carts map[string]*cart.Cart
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *mockCartRepo) Put(_ context.Context, c *cart.Cart) error {
	m.carts[c.UserID] = c
	return nil
}

func (m *mockCartRepo) Delete(_ context.Context, userID string) error {
	delete(m.carts, userID)
	return nil
}

type mockValidator struct {
	approval *discount.Approval
	err      error
}

func (m *mockValidator) Validate(_ context.Context, _ string, _ decimal.Decimal) (*discount.Approval, error) {
	return m.approval, m.err
}

type mockDiscountRepo struct {
	createErr error
}

func (m *mockDiscountRepo) FindByCode(_ context.Context, _ string) (*discount.Discount, error) {
	return nil, discount.ErrNotFound
}

func (m *mockDiscountRepo) Create(_ context.Context, _ *discount.Discount) error {
	return m.createErr
}

type mockOrderStore struct {
	lastOrder *order.Order
	placeErr  error
}

func (m *mockOrderStore) FindByIdempotencyKey(_ context.Context, _, _ string) (*order.Order, error) {
	return nil, order.ErrNotFound
}

func (m *mockOrderStore) Place(_ context.Context, o *order.Order, _ []order.StockDecrement) error {
	if m.placeErr != nil {
		return m.placeErr
	}
	m.lastOrder = o
	return nil
}

type mockOrderRepo struct {
	byID       map[string]*order.Order
	userOrders []order.Order
	listOrders []order.CustomerOrder
	listTotal  int
	lastFilter order.ListFilter
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]order.Order, error) {
	return m.userOrders, nil
}

func (m *mockOrderRepo) List(_ context.Context, f order.ListFilter) ([]order.CustomerOrder, int, error) {
	m.lastFilter = f
	return m.listOrders, m.listTotal, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, _ order.Status) error {
	if _, ok := m.byID[id]; !ok {
		return order.ErrNotFound
	}
	return nil
}

// --- Test fixture ---

type fixture struct {
	handler   http.Handler
	tokens    *auth.Tokens
	users     *mockUserRepo
	products  *mockProductRepo
	boxes     *mockBoxRepo
	carts     *mockCartRepo
	validator *mockValidator
	discounts *mockDiscountRepo
	store     *mockOrderStore
	orders    *mockOrderRepo
}

func newTestProduct(id, name, price string, stock int) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Images:   []string{"/images/" + id + ".jpg"},
		Category: product.CategoryGourmet,
		Stock:    stock,
		Active:   true,
	}
}

func newFixture(products ...product.Product) *fixture {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	f := &fixture{
		tokens:    auth.NewTokens([]byte("test-secret"), time.Hour),
		users:     &mockUserRepo{byID: map[string]*user.User{}, byEmail: map[string]*user.User{}},
		products:  &mockProductRepo{products: products, byID: byID},
		boxes:     &mockBoxRepo{byID: map[string]*box.ThemedBox{}},
		carts:     &mockCartRepo{carts: map[string]*cart.Cart{}},
		validator: &mockValidator{},
		discounts: &mockDiscountRepo{},
		store:     &mockOrderStore{},
		orders:    &mockOrderRepo{byID: map[string]*order.Order{}},
	}

	svc := order.NewService(f.products, f.boxes, f.validator, f.store)
	h := NewHandler(
		HandlerConfig{},
		f.users,
		f.tokens,
		f.products,
		f.boxes,
		f.carts,
		f.validator,
		f.discounts,
		svc,
		f.orders,
	)
	f.handler = h.Routes()
	return f
}

func (f *fixture) tokenFor(t *testing.T, id string, role user.Role) string {
	t.Helper()
	u := &user.User{ID: id, Email: id + "@example.com", Name: id, Role: role}
	f.users.byID[id] = u
	token, err := f.tokens.Issue(u)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	f := newFixture(
		newTestProduct("p1", "Coffee Sampler", "24.00", 120),
		newTestProduct("p2", "Chocolate Trio", "18.50", 200),
	)

	rec := f.do(t, http.MethodGet, "/api/products", "", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var got []productResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "Coffee Sampler", got[0].Name)
	assert.InDelta(t, 24.00, got[0].Price, 0.001)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/products/missing", "", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "product not found", env.Message)
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(
		newTestProduct("p1", "Coffee Sampler", "10.00", 5),
		newTestProduct("p2", "Chocolate Trio", "20.00", 5),
	)
	token := f.tokenFor(t, "u1", user.RoleUser)

	body := `{
		"cartItems": [
			{"type": "product", "productId": "p1", "quantity": 2},
			{"type": "product", "productId": "p2", "quantity": 1}
		],
		"shippingAddress": {
			"fullName": "Jo Smith", "line1": "1 Main St", "city": "Springfield",
			"postalCode": "12345", "country": "US"
		},
		"paymentMethod": "card"
	}`
	rec := f.do(t, http.MethodPost, "/api/orders", token, body, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	var got orderResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.InDelta(t, 40.00, got.Subtotal, 0.001)
	assert.InDelta(t, 40.00, got.Total, 0.001)
	assert.Equal(t, string(order.StatusProcessing), got.Status)
	require.Len(t, got.Items, 2)

	require.NotNil(t, f.store.lastOrder)
	assert.Equal(t, "u1", f.store.lastOrder.UserID)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := newFixture()
	token := f.tokenFor(t, "u1", user.RoleUser)

	body := `{
		"cartItems": [{"type": "product", "productId": "ghost", "quantity": 1}],
		"shippingAddress": {
			"fullName": "Jo Smith", "line1": "1 Main St", "city": "Springfield",
			"postalCode": "12345", "country": "US"
		},
		"paymentMethod": "card"
	}`
	rec := f.do(t, http.MethodPost, "/api/orders", token, body, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Message, "ghost")
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()
	token := f.tokenFor(t, "u1", user.RoleUser)

	body := `{
		"cartItems": [],
		"shippingAddress": {
			"fullName": "Jo Smith", "line1": "1 Main St", "city": "Springfield",
			"postalCode": "12345", "country": "US"
		},
		"paymentMethod": "card"
	}`
	rec := f.do(t, http.MethodPost, "/api/orders", token, body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "cart is empty", env.Message)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(newTestProduct("p1", "Coffee Sampler", "10.00", 1))
	f.store.placeErr = &order.InsufficientStockError{ProductID: "p1", Requested: 3}
	token := f.tokenFor(t, "u1", user.RoleUser)

	body := `{
		"cartItems": [{"type": "product", "productId": "p1", "quantity": 3}],
		"shippingAddress": {
			"fullName": "Jo Smith", "line1": "1 Main St", "city": "Springfield",
			"postalCode": "12345", "country": "US"
		},
		"paymentMethod": "card"
	}`
	rec := f.do(t, http.MethodPost, "/api/orders", token, body, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Message, "insufficient stock")
}

func TestPlaceOrder_Unauthorized(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/orders", "", `{}`, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOrder_OwnershipEnforced(t *testing.T) {
	f := newFixture()
	f.orders.byID["o1"] = &order.Order{ID: "o1", UserID: "owner", Status: order.StatusProcessing}

	ownerToken := f.tokenFor(t, "owner", user.RoleUser)
	strangerToken := f.tokenFor(t, "stranger", user.RoleUser)
	adminToken := f.tokenFor(t, "boss", user.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/orders/o1", ownerToken, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/o1", strangerToken, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/o1", adminToken, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateDiscount(t *testing.T) {
	f := newFixture()
	f.validator.approval = &discount.Approval{
		Code:   "SAVE10",
		Kind:   discount.KindPercentage,
		Amount: decimal.RequireFromString("20.00"),
	}
	token := f.tokenFor(t, "u1", user.RoleUser)

	rec := f.do(t, http.MethodPost, "/api/discounts/validate", token,
		`{"code": "SAVE10", "cartSubtotal": 200.00}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)

	var got discountApprovalResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "SAVE10", got.Code)
	assert.Equal(t, "percentage", got.Kind)
	assert.InDelta(t, 20.00, got.Amount, 0.001)
}

func TestValidateDiscount_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown code", discount.ErrNotFound, http.StatusNotFound},
		{"expired code", discount.ErrExpired, http.StatusUnprocessableEntity},
		{"usage cap reached", discount.ErrUsageExceeded, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.validator.err = tt.err
			token := f.tokenFor(t, "u1", user.RoleUser)

			rec := f.do(t, http.MethodPost, "/api/discounts/validate", token,
				`{"code": "ANY", "cartSubtotal": 50}`, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).Success)
		})
	}
}

func TestCartRoundTrip(t *testing.T) {
	f := newFixture(newTestProduct("p1", "Coffee Sampler", "10.00", 5))
	token := f.tokenFor(t, "u1", user.RoleUser)

	// Empty cart before any PUT.
	rec := f.do(t, http.MethodGet, "/api/cart", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got cartResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Empty(t, got.Items)

	// Replace and read back.
	rec = f.do(t, http.MethodPut, "/api/cart", token,
		`{"items": [{"type": "product", "productId": "p1", "quantity": 2}]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cart", token, "", nil)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)

	// Clear.
	rec = f.do(t, http.MethodDelete, "/api/cart", token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.carts.carts)
}

func TestPutCart_RejectsUnknownType(t *testing.T) {
	f := newFixture()
	token := f.tokenFor(t, "u1", user.RoleUser)

	rec := f.do(t, http.MethodPut, "/api/cart", token,
		`{"items": [{"type": "mysteryBox", "productId": "p1", "quantity": 1}]}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminListOrders_PaginationDefaults(t *testing.T) {
	f := newFixture()
	f.orders.listTotal = 42
	token := f.tokenFor(t, "boss", user.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/admin/orders?page=banana&limit=", token, "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.orders.lastFilter.Page)
	assert.Equal(t, 10, f.orders.lastFilter.PageSize)

	var got adminOrderListResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, 1, got.Pagination.Page)
	assert.Equal(t, 5, got.Pagination.TotalPages)
	assert.Equal(t, 42, got.Pagination.Total)
}

func TestAdminListOrders_Forbidden(t *testing.T) {
	f := newFixture()
	token := f.tokenFor(t, "u1", user.RoleUser)

	rec := f.do(t, http.MethodGet, "/api/admin/orders", token, "", nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "admin access required", decodeEnvelope(t, rec).Message)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	f := newFixture()
	f.orders.byID["o1"] = &order.Order{ID: "o1", UserID: "u1", Status: order.StatusProcessing}
	token := f.tokenFor(t, "boss", user.RoleAdmin)

	rec := f.do(t, http.MethodPatch, "/api/admin/orders/o1/status", token,
		`{"status": "Shipped"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/admin/orders/o1/status", token,
		`{"status": "Teleported"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/admin/orders/ghost/status", token,
		`{"status": "Shipped"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCreateDiscount_Duplicate(t *testing.T) {
	f := newFixture()
	f.discounts.createErr = discount.ErrCodeExists
	token := f.tokenFor(t, "boss", user.RoleAdmin)

	rec := f.do(t, http.MethodPost, "/api/admin/discounts", token,
		`{"code": "SAVE10", "kind": "percentage", "value": 10}`, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email": "a@b.co", "password": "longenough"}`},
		{"bad email", `{"name": "Jo", "email": "nope", "password": "longenough"}`},
		{"short password", `{"name": "Jo", "email": "a@b.co", "password": "short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/auth/register", "", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_And_Me(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name": "Jo", "email": "jo@example.com", "password": "hunter22x"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got authResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	require.NotEmpty(t, got.Token)
	assert.Equal(t, "jo@example.com", got.User.Email)
	assert.Equal(t, string(user.RoleUser), got.User.Role)

	// The issued token authenticates /me once the user is in the repo.
	f.users.byID[got.User.ID] = &user.User{
		ID:    got.User.ID,
		Email: got.User.Email,
		Name:  got.User.Name,
		Role:  user.RoleUser,
	}
	rec = f.do(t, http.MethodGet, "/api/auth/me", got.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture()
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	f.users.byEmail["jo@example.com"] = &user.User{
		ID: "u1", Email: "jo@example.com", Name: "Jo", PasswordHash: hash, Role: user.RoleUser,
	}

	rec := f.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email": "jo@example.com", "password": "wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email": "nobody@example.com", "password": "whatever"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "",
		`{"email": "jo@example.com", "password": "correct-horse"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
