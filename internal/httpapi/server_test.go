package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/blog"
	"github.com/johnrirwin/hamroeshop/internal/catalog"
	"github.com/johnrirwin/hamroeshop/internal/config"
	"github.com/johnrirwin/hamroeshop/internal/images"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/orders"
	"github.com/johnrirwin/hamroeshop/internal/ratelimit"
	"github.com/johnrirwin/hamroeshop/internal/storefront"
	"github.com/johnrirwin/hamroeshop/internal/testutil"
)

var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

func f64(v float64) *float64 { return &v }

type testEnv struct {
	handler http.Handler
	authSvc *auth.Service
	storage *images.MemoryStorage
}

func seedProducts() []models.Product {
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	return []models.Product{
		{ID: "p1", SellerID: "seller-1", Name: "Wireless Earbuds", Category: "Electronic & Accessories", Brand: "Sony", Price: 5000, OfferPrice: f64(4500), Stock: 4, CreatedAt: base},
		{ID: "p2", SellerID: "seller-1", Name: "Gaming Mouse", Category: "Gaming Accessories", Brand: "Logitech", Price: 3000, Stock: 0, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", SellerID: "seller-2", Name: "Silk Kurta", Category: "Women's Fashion", Brand: "Generic", Price: 2500, OfferPrice: f64(2000), Stock: 7, FreeShipping: true, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := testutil.NullLogger()
	authSvc := auth.NewService(config.AuthConfig{
		JWTSecret:      "test-secret",
		JWTIssuer:      "hamroeshop",
		JWTAudience:    "hamroeshop-users",
		AccessTokenTTL: time.Hour,
	})

	storage := images.NewMemoryStorage("")
	imageSvc := images.NewService(nil, storage, logger, images.Options{})
	storefrontSvc := storefront.NewService(storefront.NewMemoryStore(seedProducts()...), logger, storefront.WithImages(imageSvc))
	blogSvc := blog.NewService(blog.NewMemoryStore(), logger)
	orderSvc := orders.NewService(orders.NewMemoryStore(), storefrontSvc, nil, logger)

	server := New(storefrontSvc, blogSvc, orderSvc, auth.NewMiddleware(authSvc), ratelimit.New(time.Hour), logger, Options{})
	return &testEnv{handler: server.Handler(), authSvc: authSvc, storage: storage}
}

func (e *testEnv) token(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	token, err := e.authSvc.IssueToken(userID, role, userID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodOptions, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusNotFound, "not_found", "resource not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]string
	decode(t, w, &response)
	assert.Equal(t, "not_found", response["code"])
	assert.Equal(t, "resource not found", response["message"])
}

func TestProductView(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products?sort=price-low&pageSize=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PageItems   []models.Product `json:"pageItems"`
		TotalCount  int              `json:"totalCount"`
		TotalPages  int              `json:"totalPages"`
		CurrentPage int              `json:"currentPage"`
		HasNext     bool             `json:"hasNext"`
		Pages       []interface{}    `json:"pages"`
		FacetCounts catalog.FacetCounts
	}
	decode(t, w, &resp)

	assert.Equal(t, 3, resp.TotalCount)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.CurrentPage)
	assert.True(t, resp.HasNext)
	require.Len(t, resp.PageItems, 2)
	assert.Equal(t, "p3", resp.PageItems[0].ID)
	assert.Equal(t, "p2", resp.PageItems[1].ID)
	assert.Equal(t, []interface{}{float64(1), float64(2)}, resp.Pages)
}

func TestProductViewFilters(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"group slug", "cat=technology-electronics", []string{"p2", "p1"}},
		{"in stock", "inStock=true", []string{"p3", "p1"}},
		{"free shipping", "freeShipping=true", []string{"p3"}},
		{"brands", "brands=Sony,Logitech", []string{"p2", "p1"}},
		{"price range on effective price", "minPrice=4000&maxPrice=4600", []string{"p1"}},
		{"search", "search=kurta", []string{"p3"}},
		{"search keeps trailing space", "search=silk+", []string{"p3"}},
		{"search with trailing space misses word end", "search=kurta+", []string{}},
		{"url category", "category=gaming+accessories", []string{"p2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/products?"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				PageItems []models.Product `json:"pageItems"`
			}
			decode(t, w, &resp)

			ids := make([]string, 0, len(resp.PageItems))
			for _, p := range resp.PageItems {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestProductViewHugePageSize(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products?pageSize="+strconv.Itoa(math.MaxInt), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PageItems  []models.Product `json:"pageItems"`
		TotalCount int              `json:"totalCount"`
		TotalPages int              `json:"totalPages"`
		HasNext    bool             `json:"hasNext"`
	}
	decode(t, w, &resp)
	assert.Equal(t, 3, resp.TotalCount)
	assert.Equal(t, 1, resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.Len(t, resp.PageItems, 3)
}

func TestProductViewBadInput(t *testing.T) {
	env := newTestEnv(t)

	for _, query := range []string{"ratings=five", "minPrice=cheap", "pageSize=0"} {
		w := env.do(t, http.MethodGet, "/api/products?"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestApplyFilterQuery(t *testing.T) {
	base := catalog.FilterState{PriceRange: catalog.PriceRange{Min: 10, Max: 900}, SortKey: catalog.SortNewest, Page: 1, PageSize: 20}
	query, err := url.ParseQuery("category=Nursery&category=Feeding&categories=a,b&categories=c&ratings=4&ratings=3&sort=name&page=3&facets=exclude-self&maxPrice=500")
	require.NoError(t, err)

	got, err := applyFilterQuery(base, query, catalog.FacetModeUnfiltered)
	require.NoError(t, err)

	assert.Equal(t, []string{"Nursery", "Feeding"}, got.URLCategories)
	assert.Equal(t, []string{"a", "b", "c"}, got.SelectedCategories)
	assert.Equal(t, []int{4, 3}, got.SelectedRatings)
	assert.Equal(t, catalog.SortName, got.SortKey)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, catalog.FacetModeExcludeSelf, got.FacetMode)
	assert.Equal(t, catalog.PriceRange{Min: 10, Max: 500}, got.PriceRange)
	assert.Equal(t, 20, got.PageSize)
}

func TestProductItemAndCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products/p1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Product
	decode(t, w, &p)
	assert.Equal(t, "Wireless Earbuds", p.Name)

	w = env.do(t, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/list?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Products []models.Product `json:"products"`
	}
	decode(t, w, &list)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "p3", list.Products[0].ID)

	w = env.do(t, http.MethodGet, "/api/products/category?category=Women%27s+Fashion", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Silk Kurta")

	w = env.do(t, http.MethodGet, "/api/catalog/filters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var meta models.FilterMetadata
	decode(t, w, &meta)
	assert.Equal(t, 3, meta.TotalCount)
	assert.Equal(t, []string{"Generic", "Logitech", "Sony"}, meta.Brands)

	w = env.do(t, http.MethodGet, "/api/catalog/groups", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "technology-electronics")
}

func multipartProduct(t *testing.T, fields map[string]string, imageCount int) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := 0; i < imageCount; i++ {
		part, err := mw.CreateFormFile("images", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func validProductFields() map[string]string {
	return map[string]string{
		"name":        "Handmade Dhaka Topi",
		"description": "Traditional cap woven in Palpa",
		"category":    "Clothing Accessories",
		"price":       "1200",
		"offerPrice":  "999",
		"stock":       "10",
		"sellerName":  "Palpa Crafts",
		"tags":        "topi,handmade",
	}
}

func (e *testEnv) postMultipart(t *testing.T, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "seller-9", models.RoleSeller)

	body, contentType := multipartProduct(t, validProductFields(), 2)
	w := env.postMultipart(t, token, body, contentType)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Product
	decode(t, w, &created)
	assert.Equal(t, "seller-9", created.SellerID)
	assert.Equal(t, models.DefaultBrand, created.Brand)
	assert.Len(t, created.Images, 2)
	assert.True(t, strings.HasPrefix(created.Images[0], "memory://images/"))
	assert.Equal(t, 2, env.storage.Len())

	w = env.do(t, http.MethodGet, "/api/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body, contentType = multipartProduct(t, validProductFields(), 1)
	w = env.postMultipart(t, token, body, contentType)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCreateProductRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartProduct(t, validProductFields(), 1)
	w := env.postMultipart(t, "", body, contentType)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body, contentType = multipartProduct(t, validProductFields(), 1)
	w = env.postMultipart(t, env.token(t, "user-1", models.RoleCustomer), body, contentType)
	assert.Equal(t, http.StatusForbidden, w.Code)

	fields := validProductFields()
	delete(fields, "sellerName")
	body, contentType = multipartProduct(t, fields, 1)
	w = env.postMultipart(t, env.token(t, "seller-a", models.RoleSeller), body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sellerName")

	body, contentType = multipartProduct(t, validProductFields(), 0)
	w = env.postMultipart(t, env.token(t, "seller-b", models.RoleSeller), body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least one image")
}

func TestUpdateAndDeleteProductOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, "seller-1", models.RoleSeller)
	other := env.token(t, "seller-2", models.RoleSeller)

	w := env.do(t, http.MethodPut, "/api/products/p1", other, map[string]interface{}{"stock": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/products/p1", owner, map[string]interface{}{"stock": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Product
	decode(t, w, &updated)
	assert.Equal(t, 1, updated.Stock)

	w = env.do(t, http.MethodDelete, "/api/products/p1", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/products/p1", env.token(t, "root", models.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/p1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewsAndPopular(t *testing.T) {
	env := newTestEnv(t)
	customer := env.token(t, "user-1", models.RoleCustomer)

	w := env.do(t, http.MethodPost, "/api/products/p3/reviews", "", map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/products/p3/reviews", customer, map[string]interface{}{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/products/p3/reviews", customer, map[string]interface{}{"rating": 4, "comment": "Lovely"})
	require.Equal(t, http.StatusCreated, w.Code)
	var reviewed models.Product
	decode(t, w, &reviewed)
	require.NotNil(t, reviewed.Rating)
	assert.Equal(t, 4.0, *reviewed.Rating)

	w = env.do(t, http.MethodPatch, "/api/admin/products/p3/popular", customer, map[string]bool{"popular": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/api/admin/products/p3/popular", env.token(t, "root", models.RoleAdmin), map[string]bool{"popular": true})
	require.Equal(t, http.StatusOK, w.Code)
	var popular models.Product
	decode(t, w, &popular)
	assert.True(t, popular.IsPopular)
}

func TestBlogRoutes(t *testing.T) {
	env := newTestEnv(t)
	seller := env.token(t, "seller-1", models.RoleSeller)

	w := env.do(t, http.MethodPost, "/api/blog", seller, models.CreateBlogParams{
		Title:    "Festive Gift Guide",
		Content:  "<p>Our <b>best</b> picks for Tihar.</p>",
		Category: "Guides",
		Status:   models.BlogStatusDraft,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var draft models.BlogPost
	decode(t, w, &draft)
	assert.Equal(t, "festive-gift-guide", draft.Slug)

	w = env.do(t, http.MethodGet, "/api/blog/"+draft.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/blog/"+draft.Slug, seller, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	published := models.BlogStatusPublished
	w = env.do(t, http.MethodPut, "/api/blog/"+draft.Slug, env.token(t, "seller-2", models.RoleSeller), models.UpdateBlogParams{Status: &published})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/api/blog/"+draft.Slug, seller, models.UpdateBlogParams{Status: &published})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/blog", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.BlogListResponse
	decode(t, w, &list)
	assert.Equal(t, 1, list.TotalCount)

	w = env.do(t, http.MethodGet, "/api/blog/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Guides")

	w = env.do(t, http.MethodGet, "/api/blog/seller", seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), draft.Slug)

	w = env.do(t, http.MethodDelete, "/api/blog/"+draft.Slug, seller, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOrderRoutes(t *testing.T) {
	env := newTestEnv(t)
	customer := env.token(t, "user-1", models.RoleCustomer)

	params := models.PlaceOrderParams{
		Items: []models.OrderItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p3", Quantity: 1}},
		Address: models.Address{
			FullName:    "Ram Thapa",
			PhoneNumber: "+977 9812345678",
			Area:        "Lakeside",
			City:        "Pokhara",
			Province:    "Gandaki",
		},
	}

	w := env.do(t, http.MethodPost, "/api/orders", "", params)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/orders", customer, params)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, 11000.0, order.TotalAmount)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)

	w = env.do(t, http.MethodGet, "/api/orders", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Orders []models.PopulatedOrder `json:"orders"`
	}
	decode(t, w, &mine)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, "Wireless Earbuds", mine.Orders[0].Items[0].Product.Name)

	w = env.do(t, http.MethodGet, "/api/orders/seller", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/orders/seller", env.token(t, "seller-2", models.RoleSeller), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sellerOrders struct {
		Count int `json:"count"`
	}
	decode(t, w, &sellerOrders)
	assert.Equal(t, 1, sellerOrders.Count)

	w = env.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", env.token(t, "seller-3", models.RoleSeller), map[string]string{"status": "Shipped"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/api/orders/"+order.ID+"/status", env.token(t, "seller-1", models.RoleSeller), map[string]string{"status": "Shipped"})
	require.Equal(t, http.StatusOK, w.Code)
	var shipped models.Order
	decode(t, w, &shipped)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)

	w = env.do(t, http.MethodGet, "/api/admin/orders", env.token(t, "root", models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), order.ID)
}

func TestPlaceOrderValidationError(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/orders", env.token(t, "user-1", models.RoleCustomer), models.PlaceOrderParams{
		Items:   []models.OrderItem{{ProductID: "p1", Quantity: 1}},
		Address: models.Address{FullName: "Ram", PhoneNumber: "123", Area: "A", City: "B", Province: "C"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid phone number")
}

func TestAddressBookRoutes(t *testing.T) {
	env := newTestEnv(t)
	customer := env.token(t, "user-1", models.RoleCustomer)

	body := map[string]interface{}{
		"addressData": map[string]string{
			"fullName":    "Ram Thapa",
			"phoneNumber": "9812345678",
			"zipcode":     "33700",
			"area":        "Lakeside",
			"district":    "Pokhara",
			"province":    "Gandaki",
		},
	}

	w := env.do(t, http.MethodPost, "/api/user/addresses", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/user/addresses", customer, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved models.SavedAddress
	decode(t, w, &saved)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Pokhara", saved.City)
	assert.Equal(t, "33700", saved.Zipcode)

	w = env.do(t, http.MethodPost, "/api/user/addresses", customer, map[string]string{
		"fullName": "Ram", "phoneNumber": "12", "area": "A", "city": "B", "province": "C",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid phone number")

	w = env.do(t, http.MethodGet, "/api/user/addresses", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Addresses []models.SavedAddress `json:"addresses"`
		Count     int                   `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = env.do(t, http.MethodPost, "/api/orders", customer, models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 1}},
		AddressID: saved.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decode(t, w, &order)
	assert.Equal(t, "Pokhara", order.Address.City)

	w = env.do(t, http.MethodPost, "/api/orders", env.token(t, "user-2", models.RoleCustomer), models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 1}},
		AddressID: saved.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
