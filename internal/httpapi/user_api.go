package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/orders"
)

// UserAPI handles the signed-in customer's address book
type UserAPI struct {
	svc            *orders.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewUserAPI creates a new user API handler
func NewUserAPI(svc *orders.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *UserAPI {
	return &UserAPI{
		svc:            svc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers user routes on the given mux
func (api *UserAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/user/addresses", corsMiddleware(api.authMiddleware.RequireAuth(api.handleAddresses)))
}

// addressRequest accepts the address fields directly or wrapped in
// addressData. district is an alias for city.
type addressRequest struct {
	models.Address
	District    string          `json:"district"`
	AddressData *addressRequest `json:"addressData,omitempty"`
}

func (req addressRequest) toAddress() models.Address {
	if req.AddressData != nil {
		return req.AddressData.toAddress()
	}
	a := req.Address
	if a.City == "" {
		a.City = req.District
	}
	return a
}

func (api *UserAPI) handleAddresses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listAddresses(w, r)
	case http.MethodPost:
		api.addAddress(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *UserAPI) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	addresses, err := api.svc.ListAddresses(ctx, auth.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, api.logger, "Address list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"addresses": addresses,
		"count":     len(addresses),
	})
}

func (api *UserAPI) addAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	saved, err := api.svc.AddAddress(ctx, auth.GetUserID(r.Context()), req.toAddress())
	if err != nil {
		writeServiceError(w, api.logger, "Add address", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}
