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
)

// OrderAPI handles HTTP API requests for orders
type OrderAPI struct {
	svc            *orders.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewOrderAPI creates a new order API handler
func NewOrderAPI(svc *orders.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *OrderAPI {
	return &OrderAPI{
		svc:            svc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers order routes on the given mux
func (api *OrderAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/orders", corsMiddleware(api.authMiddleware.RequireAuth(api.handleOrders)))
	mux.HandleFunc("/api/orders/seller", corsMiddleware(api.authMiddleware.RequireRole(models.RoleSeller)(api.handleSellerOrders)))
	mux.HandleFunc("/api/orders/", corsMiddleware(api.authMiddleware.RequireRole(models.RoleSeller)(api.handleOrderItem)))
}

// handleOrders handles GET (list) and POST (place) for the caller's orders
func (api *OrderAPI) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listOrders(w, r)
	case http.MethodPost:
		api.placeOrder(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *OrderAPI) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := api.svc.ListForUser(ctx, auth.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, api.logger, "Order list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": list,
		"count":  len(list),
	})
}

func (api *OrderAPI) placeOrder(w http.ResponseWriter, r *http.Request) {
	var params models.PlaceOrderParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := api.svc.Place(ctx, auth.GetUserID(r.Context()), params)
	if err != nil {
		writeServiceError(w, api.logger, "Place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (api *OrderAPI) handleSellerOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := api.svc.ListForSeller(ctx, auth.GetUserID(r.Context()), auth.GetRole(r.Context()))
	if err != nil {
		writeServiceError(w, api.logger, "Seller order list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": list,
		"count":  len(list),
	})
}

// handleOrderItem handles PATCH /api/orders/{id}/status
func (api *OrderAPI) handleOrderItem(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/orders/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "status" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := api.svc.UpdateStatus(ctx, auth.GetUserID(r.Context()), auth.GetRole(r.Context()), parts[0], body.Status)
	if err != nil {
		writeServiceError(w, api.logger, "Update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
