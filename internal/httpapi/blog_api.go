package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/blog"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
)

const feedImportTimeout = 30 * time.Second

// BlogAPI handles blog post endpoints
type BlogAPI struct {
	svc            *blog.Service
	authMiddleware *auth.Middleware
	rateLimit      func(http.HandlerFunc) http.HandlerFunc
	logger         *logging.Logger
}

// NewBlogAPI creates a new blog API handler
func NewBlogAPI(svc *blog.Service, authMiddleware *auth.Middleware, rateLimit func(http.HandlerFunc) http.HandlerFunc, logger *logging.Logger) *BlogAPI {
	return &BlogAPI{
		svc:            svc,
		authMiddleware: authMiddleware,
		rateLimit:      rateLimit,
		logger:         logger,
	}
}

// RegisterRoutes registers blog routes on the given mux
func (api *BlogAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	seller := api.authMiddleware.RequireRole(models.RoleSeller)

	mux.HandleFunc("/api/blog", corsMiddleware(api.handleBlog))
	mux.HandleFunc("/api/blog/categories", corsMiddleware(api.handleCategories))
	mux.HandleFunc("/api/blog/seller", corsMiddleware(seller(api.handleSellerPosts)))
	mux.HandleFunc("/api/blog/import", corsMiddleware(seller(api.rateLimit(api.handleImport))))
	mux.HandleFunc("/api/blog/", corsMiddleware(api.handleBlogItem))
}

func (api *BlogAPI) handleBlog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.listPosts(w, r)
	case http.MethodPost:
		api.authMiddleware.RequireRole(models.RoleSeller)(api.rateLimit(api.createPost))(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// listPosts returns published posts only.
func (api *BlogAPI) listPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := models.BlogListParams{
		Page:          parseIntQuery(query.Get("page"), 1),
		Limit:         parseIntQuery(query.Get("limit"), 0),
		Category:      strings.TrimSpace(query.Get("category")),
		PublishedOnly: true,
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	response, err := api.svc.List(ctx, params)
	if err != nil {
		writeServiceError(w, api.logger, "Blog list", err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (api *BlogAPI) createPost(w http.ResponseWriter, r *http.Request) {
	var params models.CreateBlogParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	post, err := api.svc.Create(ctx, auth.GetUserID(r.Context()), params)
	if err != nil {
		writeServiceError(w, api.logger, "Create blog post", err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (api *BlogAPI) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	categories, err := api.svc.Categories(ctx)
	if err != nil {
		writeServiceError(w, api.logger, "Blog categories", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

func (api *BlogAPI) handleSellerPosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	posts, err := api.svc.ListBySeller(ctx, auth.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, api.logger, "Seller blog list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	})
}

func (api *BlogAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var body struct {
		URL string `json:"url"`
		Max int    `json:"max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "feed url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), feedImportTimeout)
	defer cancel()

	imported, err := api.svc.ImportFeed(ctx, auth.GetUserID(r.Context()), body.URL, body.Max)
	if err != nil {
		api.logger.Warn("Blog feed import failed", logging.WithFields(map[string]interface{}{
			"url":      body.URL,
			"imported": len(imported),
			"error":    err.Error(),
		}))
		writeError(w, http.StatusBadGateway, "feed_import_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"posts": imported,
		"count": len(imported),
	})
}

// handleBlogItem handles /api/blog/{slug}
func (api *BlogAPI) handleBlogItem(w http.ResponseWriter, r *http.Request) {
	postSlug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/blog/"), "/")
	if postSlug == "" || strings.Contains(postSlug, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		api.authMiddleware.OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
			api.getPost(w, r, postSlug)
		})(w, r)
	case http.MethodPut, http.MethodPatch:
		api.authMiddleware.RequireRole(models.RoleSeller)(func(w http.ResponseWriter, r *http.Request) {
			api.updatePost(w, r, postSlug)
		})(w, r)
	case http.MethodDelete:
		api.authMiddleware.RequireRole(models.RoleSeller)(func(w http.ResponseWriter, r *http.Request) {
			api.deletePost(w, r, postSlug)
		})(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// getPost serves a post and counts the view. Drafts are visible to their
// author and to admins only.
func (api *BlogAPI) getPost(w http.ResponseWriter, r *http.Request, postSlug string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	post, err := api.svc.GetBySlug(ctx, postSlug)
	if err != nil {
		writeServiceError(w, api.logger, "Get blog post", err)
		return
	}
	if post.Status != models.BlogStatusPublished &&
		!models.CanManage(auth.GetUserID(r.Context()), auth.GetRole(r.Context()), post.SellerID) {
		writeError(w, http.StatusNotFound, "not_found", blog.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (api *BlogAPI) updatePost(w http.ResponseWriter, r *http.Request, postSlug string) {
	var params models.UpdateBlogParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	post, err := api.svc.Update(ctx, auth.GetUserID(r.Context()), auth.GetRole(r.Context()), postSlug, params)
	if err != nil {
		writeServiceError(w, api.logger, "Update blog post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (api *BlogAPI) deletePost(w http.ResponseWriter, r *http.Request, postSlug string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := api.svc.Delete(ctx, auth.GetUserID(r.Context()), auth.GetRole(r.Context()), postSlug); err != nil {
		writeServiceError(w, api.logger, "Delete blog post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
