package app

import (
	"context"
	"time"

	"github.com/johnrirwin/hamroeshop/internal/auth"
	"github.com/johnrirwin/hamroeshop/internal/blog"
	"github.com/johnrirwin/hamroeshop/internal/cache"
	"github.com/johnrirwin/hamroeshop/internal/catalog"
	"github.com/johnrirwin/hamroeshop/internal/config"
	"github.com/johnrirwin/hamroeshop/internal/database"
	"github.com/johnrirwin/hamroeshop/internal/httpapi"
	"github.com/johnrirwin/hamroeshop/internal/images"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/moderation"
	"github.com/johnrirwin/hamroeshop/internal/mongostore"
	"github.com/johnrirwin/hamroeshop/internal/orders"
	"github.com/johnrirwin/hamroeshop/internal/ratelimit"
	"github.com/johnrirwin/hamroeshop/internal/storefront"
	"github.com/johnrirwin/hamroeshop/internal/tagging"
)

const startupTimeout = 15 * time.Second

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	StorefrontSvc  *storefront.Service
	BlogSvc        *blog.Service
	OrderSvc       *orders.Service
	ImageSvc       *images.Service
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	db             *database.DB
	mongoProducts  *mongostore.ProductStore
	createLimiter  ratelimit.RateLimiter
}

// New creates and initializes a new App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// Initialize logger
	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))

	// Initialize cache and the create limiter that shares its backend
	app.Cache = app.initCache(ctx)

	// Initialize auth
	app.AuthService = auth.NewService(cfg.Auth)
	app.AuthMiddleware = auth.NewMiddleware(app.AuthService)

	// Initialize image pipeline
	app.ImageSvc = images.NewService(app.initModerator(ctx), app.initImageStorage(ctx), app.Logger, images.Options{
		UploadTimeout:     cfg.Images.UploadTimeout,
		ModerationTimeout: cfg.Moderation.Timeout,
		MaxUploadBytes:    cfg.Images.MaxUploadBytes,
	})

	// Initialize stores and domain services
	app.initDomainServices(ctx)

	// Initialize HTTP server
	app.HTTPServer = httpapi.New(app.StorefrontSvc, app.BlogSvc, app.OrderSvc, app.AuthMiddleware, app.createLimiter, app.Logger, httpapi.Options{
		DefaultViewport: cfg.Catalog.DefaultViewport,
		FacetMode:       catalog.ParseFacetMode(cfg.Catalog.FacetMode),
		MaxUploadBytes:  cfg.Images.MaxUploadBytes,
	})

	return app, nil
}

// Run starts the HTTP server and blocks until it stops
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.mongoProducts != nil {
		if err := a.mongoProducts.Close(ctx); err != nil {
			a.Logger.Error("MongoDB disconnect error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	if mem, ok := a.Cache.(*cache.MemoryCache); ok {
		mem.Stop()
	}

	_ = a.Logger.Sync()
	return nil
}

func (a *App) initCache(ctx context.Context) cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     a.Config.Cache.RedisAddr,
			Password: a.Config.Cache.RedisPassword,
			Prefix:   a.Config.Cache.RedisPrefix,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.createLimiter = ratelimit.New(a.Config.Server.RateLimitDur)
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		// Use Redis for distributed rate limiting when available
		a.createLimiter = ratelimit.NewRedis(redisCache.Client(), a.Config.Cache.RedisPrefix+"ratelimit:", a.Config.Server.RateLimitDur)
		a.Logger.Info("Using Redis for distributed rate limiting")
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		a.createLimiter = ratelimit.New(a.Config.Server.RateLimitDur)
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

// initModerator returns nil when moderation is disabled or AWS is not
// configured, which makes the image pipeline approve every image.
func (a *App) initModerator(ctx context.Context) images.Moderator {
	if !a.Config.Moderation.Enabled {
		a.Logger.Info("Image moderation disabled")
		return nil
	}

	detector, err := moderation.NewAWSDetector(ctx, a.Config.Moderation.AWSRegion)
	if err != nil {
		a.Logger.Warn("Failed to initialize Rekognition, image moderation disabled", logging.WithField("error", err.Error()))
		return nil
	}

	a.Logger.Info("Using Rekognition image moderation", logging.WithField("reject_confidence", a.Config.Moderation.RejectConfidence))
	return moderation.NewService(detector, a.Config.Moderation.RejectConfidence, moderation.WithTimeout(a.Config.Moderation.Timeout))
}

func (a *App) initImageStorage(ctx context.Context) images.Storage {
	cfg := a.Config.Images

	switch cfg.Provider {
	case "cloudinary":
		storage, err := images.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.Folder)
		if err != nil {
			a.Logger.Warn("Failed to initialize Cloudinary, using in-memory image storage", logging.WithField("error", err.Error()))
			return images.NewMemoryStorage("")
		}
		a.Logger.Info("Using Cloudinary image storage", logging.WithField("folder", cfg.Folder))
		return storage
	case "s3":
		storage, err := images.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.Folder)
		if err != nil {
			a.Logger.Warn("Failed to initialize S3, using in-memory image storage", logging.WithField("error", err.Error()))
			return images.NewMemoryStorage("")
		}
		a.Logger.Info("Using S3 image storage", logging.WithFields(map[string]interface{}{
			"bucket": cfg.S3Bucket,
			"region": cfg.S3Region,
		}))
		return storage
	default:
		a.Logger.Warn("No image provider configured, using in-memory image storage")
		return images.NewMemoryStorage("")
	}
}

// initDomainServices connects PostgreSQL and, when selected, MongoDB for
// products. Any store that cannot be reached falls back to memory.
func (a *App) initDomainServices(ctx context.Context) {
	var (
		productStore storefront.ProductStore = storefront.NewMemoryStore()
		blogStore    blog.Store              = blog.NewMemoryStore()
		orderStore   orders.Store            = orders.NewMemoryStore()
		addressStore orders.AddressStore     = orders.NewMemoryAddressStore()
	)

	if db := a.connectPostgres(ctx); db != nil {
		a.db = db
		productStore = database.NewProductStore(db)
		blogStore = database.NewBlogStore(db)
		orderStore = database.NewOrderStore(db)
		addressStore = database.NewAddressStore(db)
	}

	if a.Config.Store.ProductBackend == "mongo" {
		mongoStore, err := mongostore.Connect(ctx, a.Config.Store.MongoURI, a.Config.Store.MongoDatabase, a.Config.Store.MongoCollection)
		if err != nil {
			a.Logger.Warn("Failed to connect to MongoDB, keeping the default product store", logging.WithField("error", err.Error()))
		} else {
			a.Logger.Info("Using MongoDB product store", logging.WithFields(map[string]interface{}{
				"database":   a.Config.Store.MongoDatabase,
				"collection": a.Config.Store.MongoCollection,
			}))
			a.mongoProducts = mongoStore
			productStore = mongoStore
		}
	}

	engine := catalog.NewEngine(a.loadGroups())

	a.StorefrontSvc = storefront.NewService(productStore, a.Logger,
		storefront.WithCache(a.Cache, a.Config.Cache.TTL),
		storefront.WithEngine(engine),
		storefront.WithTagger(tagging.New()),
		storefront.WithImages(a.ImageSvc),
	)
	a.BlogSvc = blog.NewService(blogStore, a.Logger)
	a.OrderSvc = orders.NewService(orderStore, a.StorefrontSvc, nil, a.Logger, orders.WithAddressBook(addressStore))
}

func (a *App) connectPostgres(ctx context.Context) *database.DB {
	dbConfig := database.Config{
		Host:     a.Config.Database.Host,
		Port:     a.Config.Database.Port,
		User:     a.Config.Database.User,
		Password: a.Config.Database.Password,
		Database: a.Config.Database.Database,
		SSLMode:  a.Config.Database.SSLMode,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, using in-memory stores", logging.WithField("error", err.Error()))
		return nil
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(ctx); err != nil {
		a.Logger.Warn("Failed to run migrations, using in-memory stores", logging.WithField("error", err.Error()))
		_ = db.Close()
		return nil
	}
	return db
}

// loadGroups returns nil, meaning the built-in table, unless a groups
// file is configured and parses.
func (a *App) loadGroups() []catalog.CategoryGroup {
	path := a.Config.Catalog.GroupsFile
	if path == "" {
		return nil
	}

	groups, err := catalog.LoadGroups(path)
	if err != nil {
		a.Logger.Warn("Failed to load category groups, using defaults", logging.WithFields(map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		}))
		return nil
	}

	a.Logger.Info("Loaded category groups", logging.WithFields(map[string]interface{}{
		"path":   path,
		"groups": len(groups),
	}))
	return groups
}
