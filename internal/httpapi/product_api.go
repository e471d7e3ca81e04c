package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/catalog"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/storefront"
)

// ProductAPI handles catalog browsing and seller listing endpoints
type ProductAPI struct {
	svc            *storefront.Service
	authMiddleware *auth.Middleware
	rateLimit      func(http.HandlerFunc) http.HandlerFunc
	logger         *logging.Logger
	opts           Options
}

// productViewResponse is one listing page plus its pagination control.
type productViewResponse struct {
	*catalog.ViewResult
	Pages   []catalog.PageMarker `json:"pages"`
	Filters catalog.FilterState  `json:"filters"`
}

// NewProductAPI creates a new product API handler
func NewProductAPI(svc *storefront.Service, authMiddleware *auth.Middleware, rateLimit func(http.HandlerFunc) http.HandlerFunc, logger *logging.Logger, opts Options) *ProductAPI {
	return &ProductAPI{
		svc:            svc,
		authMiddleware: authMiddleware,
		rateLimit:      rateLimit,
		logger:         logger,
		opts:           opts,
	}
}

// RegisterRoutes registers product and catalog routes on the given mux
func (api *ProductAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/products", corsMiddleware(api.handleProducts))
	mux.HandleFunc("/api/products/list", corsMiddleware(api.handleList))
	mux.HandleFunc("/api/products/category", corsMiddleware(api.handleByCategory))
	mux.HandleFunc("/api/products/", corsMiddleware(api.handleProductItem))
	mux.HandleFunc("/api/catalog/filters", corsMiddleware(api.handleFilters))
	mux.HandleFunc("/api/catalog/groups", corsMiddleware(api.handleGroups))
}

func (api *ProductAPI) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.viewProducts(w, r)
	case http.MethodPost:
		api.authMiddleware.RequireRole(models.RoleSeller)(api.rateLimit(api.createProduct))(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// viewProducts runs the catalog engine over the collection with filters
// taken from the query string.
func (api *ProductAPI) viewProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	pageSize := catalog.PageSizeForViewport(api.opts.DefaultViewport)
	if v := query.Get("viewport"); v != "" {
		pageSize = catalog.PageSizeForViewport(v)
	}
	if v := query.Get("pageSize"); v != "" {
		pageSize = parseIntQuery(v, pageSize)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	filters, err := api.svc.DefaultFilters(ctx, pageSize)
	if err != nil {
		writeServiceError(w, api.logger, "Product view", err)
		return
	}
	filters, err = applyFilterQuery(filters, query, api.opts.FacetMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	result, err := api.svc.View(ctx, filters)
	if err != nil {
		writeServiceError(w, api.logger, "Product view", err)
		return
	}

	writeJSON(w, http.StatusOK, productViewResponse{
		ViewResult: result,
		Pages:      catalog.GeneratePageNumbers(result.CurrentPage, result.TotalPages),
		Filters:    filters,
	})
}

// applyFilterQuery overlays query parameters on a default state. Absent
// parameters keep the defaults.
func applyFilterQuery(f catalog.FilterState, query url.Values, facetMode catalog.FacetMode) (catalog.FilterState, error) {
	f.URLCategories = nonEmpty(query["category"])
	f.CategoryGroup = strings.TrimSpace(query.Get("cat"))
	f.SearchQuery = query.Get("search")
	f.SelectedCategories = splitList(query["categories"])
	f.SelectedBrands = splitList(query["brands"])

	for _, v := range splitList(query["ratings"]) {
		rating, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid rating %q", v)
		}
		f.SelectedRatings = append(f.SelectedRatings, rating)
	}

	if v := query.Get("minPrice"); v != "" {
		lo, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("invalid minPrice %q", v)
		}
		f.PriceRange.Min = lo
	}
	if v := query.Get("maxPrice"); v != "" {
		hi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, fmt.Errorf("invalid maxPrice %q", v)
		}
		f.PriceRange.Max = hi
	}

	f.InStockOnly = parseBoolQuery(query.Get("inStock"))
	f.FreeShippingOnly = parseBoolQuery(query.Get("freeShipping"))

	if v := query.Get("sort"); v != "" {
		f.SortKey = catalog.SortKey(v)
	}
	f.Page = parseIntQuery(query.Get("page"), 1)

	f.FacetMode = facetMode
	if v := query.Get("facets"); v != "" {
		f.FacetMode = catalog.ParseFacetMode(v)
	}
	return f, nil
}

func (api *ProductAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	limit := parseIntQuery(r.URL.Query().Get("limit"), 0)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := api.svc.ListProducts(ctx, limit)
	if err != nil {
		writeServiceError(w, api.logger, "Product list", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

func (api *ProductAPI) handleByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "category is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := api.svc.ProductsByCategory(ctx, category)
	if err != nil {
		writeServiceError(w, api.logger, "Products by category", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"products": products,
		"count":    len(products),
	})
}

func (api *ProductAPI) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	meta, err := api.svc.FilterMetadata(ctx)
	if err != nil {
		writeServiceError(w, api.logger, "Filter metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (api *ProductAPI) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	groups, err := api.svc.GroupCounts(ctx)
	if err != nil {
		writeServiceError(w, api.logger, "Group counts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"groups": groups,
	})
}

// handleProductItem handles /api/products/{id} and /api/products/{id}/reviews
func (api *ProductAPI) handleProductItem(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/products/"), "/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "product id required")
		return
	}
	id := parts[0]

	if len(parts) > 1 {
		if parts[1] != "reviews" || len(parts) > 2 {
			writeError(w, http.StatusNotFound, "not_found", "unknown resource")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		api.authMiddleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			api.addReview(w, r, id)
		})(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		api.getProduct(w, r, id)
	case http.MethodPut, http.MethodPatch:
		api.authMiddleware.RequireRole(models.RoleSeller)(func(w http.ResponseWriter, r *http.Request) {
			api.updateProduct(w, r, id)
		})(w, r)
	case http.MethodDelete:
		api.authMiddleware.RequireRole(models.RoleSeller)(func(w http.ResponseWriter, r *http.Request) {
			api.deleteProduct(w, r, id)
		})(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *ProductAPI) getProduct(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := api.svc.GetProduct(ctx, id)
	if err != nil {
		writeServiceError(w, api.logger, "Get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// createProduct reads a multipart listing form: scalar fields, an optional
// JSON "attributes" object and one or more "images" files.
func (api *ProductAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	maxBody := api.opts.MaxUploadBytes*int64(api.opts.MaxImages) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxBody); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	params, err := parseCreateForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	files, err := api.readImages(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	product, err := api.svc.CreateProduct(r.Context(), userID, params, files)
	if err != nil {
		writeServiceError(w, api.logger, "Create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

func (api *ProductAPI) readImages(r *http.Request) ([]models.ImageUpload, error) {
	headers := r.MultipartForm.File["images"]
	if len(headers) > api.opts.MaxImages {
		return nil, fmt.Errorf("at most %d images are allowed", api.opts.MaxImages)
	}

	files := make([]models.ImageUpload, 0, len(headers))
	for _, header := range headers {
		if header.Size > api.opts.MaxUploadBytes {
			return nil, fmt.Errorf("image %s is larger than %d bytes", header.Filename, api.opts.MaxUploadBytes)
		}
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open image %s", header.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, api.opts.MaxUploadBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s", header.Filename)
		}
		files = append(files, models.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func parseCreateForm(r *http.Request) (models.CreateProductParams, error) {
	params := models.CreateProductParams{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Brand:       r.FormValue("brand"),
		Color:       r.FormValue("color"),
		SellerName:  r.FormValue("sellerName"),
		Tags:        splitList(r.MultipartForm.Value["tags"]),
	}

	floats := []struct {
		field string
		dst   *float64
	}{
		{"price", &params.Price},
		{"offerPrice", &params.OfferPrice},
	}
	for _, f := range floats {
		v := strings.TrimSpace(r.FormValue(f.field))
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("invalid %s", f.field)
		}
		*f.dst = parsed
	}

	// Blank fees stay nil so the storefront defaults apply.
	optional := []struct {
		field string
		dst   **float64
	}{
		{"shippingFee", &params.ShippingFee},
		{"deliveryCharge", &params.DeliveryCharge},
	}
	for _, f := range optional {
		v := strings.TrimSpace(r.FormValue(f.field))
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("invalid %s", f.field)
		}
		*f.dst = &parsed
	}

	if v := strings.TrimSpace(r.FormValue("stock")); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil || stock < 0 {
			return params, fmt.Errorf("invalid stock")
		}
		params.Stock = stock
	}
	params.FreeShipping = parseBoolQuery(r.FormValue("freeShipping"))

	if v := strings.TrimSpace(r.FormValue("attributes")); v != "" {
		if err := json.Unmarshal([]byte(v), &params.Attributes); err != nil {
			return params, fmt.Errorf("attributes must be a JSON object of strings")
		}
	}
	return params, nil
}

func (api *ProductAPI) updateProduct(w http.ResponseWriter, r *http.Request, id string) {
	var params models.UpdateProductParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := api.svc.UpdateProduct(ctx, auth.GetUserID(r.Context()), auth.GetRole(r.Context()), id, params)
	if err != nil {
		writeServiceError(w, api.logger, "Update product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (api *ProductAPI) deleteProduct(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := api.svc.DeleteProduct(ctx, auth.GetUserID(r.Context()), auth.GetRole(r.Context()), id); err != nil {
		writeServiceError(w, api.logger, "Delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *ProductAPI) addReview(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
		UserName string `json:"userName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := api.svc.AddReview(ctx, id, models.Review{
		UserID:   auth.GetUserID(r.Context()),
		UserName: body.UserName,
		Rating:   body.Rating,
		Comment:  body.Comment,
	})
	if err != nil {
		writeServiceError(w, api.logger, "Add review", err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// splitList flattens repeated and comma-separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
