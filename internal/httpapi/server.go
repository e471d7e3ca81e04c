package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/blog"
	"github.com/johnrirwin/hamroeshop/internal/catalog"
	"github.com/johnrirwin/hamroeshop/internal/images"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/orders"
	"github.com/johnrirwin/hamroeshop/internal/ratelimit"
	"github.com/johnrirwin/hamroeshop/internal/slug"
	"github.com/johnrirwin/hamroeshop/internal/storefront"
)

const requestTimeout = 15 * time.Second

// Options tunes request handling.
type Options struct {
	DefaultViewport string
	FacetMode       catalog.FacetMode
	MaxUploadBytes  int64
	MaxImages       int
}

type Server struct {
	storefrontSvc  *storefront.Service
	blogSvc        *blog.Service
	orderSvc       *orders.Service
	authMiddleware *auth.Middleware
	limiter        ratelimit.RateLimiter
	opts           Options
	logger         *logging.Logger
	server         *http.Server
}

func New(storefrontSvc *storefront.Service, blogSvc *blog.Service, orderSvc *orders.Service, authMiddleware *auth.Middleware, limiter ratelimit.RateLimiter, logger *logging.Logger, opts Options) *Server {
	if opts.DefaultViewport == "" {
		opts.DefaultViewport = catalog.ViewportDesktop
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = 4
	}
	return &Server{
		storefrontSvc:  storefrontSvc,
		blogSvc:        blogSvc,
		orderSvc:       orderSvc,
		authMiddleware: authMiddleware,
		limiter:        limiter,
		opts:           opts,
		logger:         logger,
	}
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Catalog and product routes
	if s.storefrontSvc != nil {
		productAPI := NewProductAPI(s.storefrontSvc, s.authMiddleware, s.rateLimit, s.logger, s.opts)
		productAPI.RegisterRoutes(mux, s.corsMiddleware)

		adminAPI := NewAdminAPI(s.storefrontSvc, s.orderSvc, s.authMiddleware, s.logger)
		adminAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Blog routes
	if s.blogSvc != nil {
		blogAPI := NewBlogAPI(s.blogSvc, s.authMiddleware, s.rateLimit, s.logger)
		blogAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Order routes
	if s.orderSvc != nil {
		orderAPI := NewOrderAPI(s.orderSvc, s.authMiddleware, s.logger)
		orderAPI.RegisterRoutes(mux, s.corsMiddleware)

		userAPI := NewUserAPI(s.orderSvc, s.authMiddleware, s.logger)
		userAPI.RegisterRoutes(mux, s.corsMiddleware)
	}

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// rateLimit refuses a create request when the caller acted within the
// limiter's interval. It must run after authentication.
func (s *Server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}
		userID := auth.GetUserID(r.Context())
		if !s.limiter.AllowContext(r.Context(), "create:"+userID) {
			s.logger.Warn("Rate limited create request", logging.WithFields(map[string]interface{}{
				"user_id": userID,
				"path":    r.URL.Path,
			}))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "please wait before creating again")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// writeServiceError maps service sentinels and validation errors onto
// HTTP statuses. Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, action string, err error) {
	var (
		storefrontErr *storefront.ServiceError
		blogErr       *blog.ServiceError
		orderErr      *orders.ServiceError
		configErr     *catalog.ConfigurationError
		rejected      *images.RejectedError
	)

	switch {
	case errors.Is(err, storefront.ErrNotFound), errors.Is(err, blog.ErrNotFound), errors.Is(err, orders.ErrNotFound), errors.Is(err, orders.ErrAddressNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, storefront.ErrForbidden), errors.Is(err, blog.ErrForbidden), errors.Is(err, orders.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.As(err, &storefrontErr), errors.As(err, &blogErr), errors.As(err, &orderErr), errors.As(err, &configErr):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.As(err, &rejected):
		writeError(w, http.StatusUnprocessableEntity, "image_rejected", rejected.Error())
	case errors.Is(err, images.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, "unsupported_image", err.Error())
	case errors.Is(err, images.ErrModerationUnavailable):
		writeError(w, http.StatusServiceUnavailable, "moderation_unavailable", images.ErrModerationUnavailable.Error())
	case errors.Is(err, slug.ErrSlugExhausted):
		writeError(w, http.StatusConflict, "slug_exhausted", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.Error(action+" failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

func parseIntQuery(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolQuery(value string) bool {
	b, err := strconv.ParseBool(value)
	return err == nil && b
}
