package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/orders"
	"github.com/johnrirwin/hamroeshop/internal/storefront"
)

// AdminAPI handles admin-only endpoints
type AdminAPI struct {
	storefrontSvc  *storefront.Service
	orderSvc       *orders.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewAdminAPI creates a new admin API handler
func NewAdminAPI(storefrontSvc *storefront.Service, orderSvc *orders.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *AdminAPI {
	return &AdminAPI{
		storefrontSvc:  storefrontSvc,
		orderSvc:       orderSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers admin routes
func (api *AdminAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	if api.authMiddleware == nil {
		api.logger.Error("Admin API routes not registered: authMiddleware is nil")
		return
	}

	// All admin routes require the admin role
	admin := api.authMiddleware.RequireRole(models.RoleAdmin)
	mux.HandleFunc("/api/admin/products/", corsMiddleware(admin(api.handleAdminProduct)))
	if api.orderSvc != nil {
		mux.HandleFunc("/api/admin/orders", corsMiddleware(admin(api.handleAdminOrders)))
	}
}

// handleAdminProduct handles PATCH /api/admin/products/{id}/popular
func (api *AdminAPI) handleAdminProduct(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/products/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "popular" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var body struct {
		Popular bool `json:"popular"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	product, err := api.storefrontSvc.SetPopular(ctx, auth.GetRole(r.Context()), parts[0], body.Popular)
	if err != nil {
		writeServiceError(w, api.logger, "Set popular", err)
		return
	}

	api.logger.Info("Admin updated popular flag", logging.WithFields(map[string]interface{}{
		"admin_id":   auth.GetUserID(r.Context()),
		"product_id": parts[0],
		"popular":    body.Popular,
	}))
	writeJSON(w, http.StatusOK, product)
}

// handleAdminOrders handles GET /api/admin/orders
func (api *AdminAPI) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := api.orderSvc.ListForSeller(ctx, auth.GetUserID(r.Context()), models.RoleAdmin)
	if err != nil {
		writeServiceError(w, api.logger, "Admin order list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": list,
		"count":  len(list),
	})
}
