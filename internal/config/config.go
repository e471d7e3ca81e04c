package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Logging    LoggingConfig
	Auth       AuthConfig
	Images     ImagesConfig
	Moderation ModerationConfig
	Catalog    CatalogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr        string
	RateLimitDur    time.Duration // minimum gap between create calls per user
	ShutdownTimeout time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// StoreConfig selects where products are read from and written to.
type StoreConfig struct {
	ProductBackend  string // "postgres" or "mongo"
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds the settings used to verify identity-provider tokens
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// ImagesConfig selects and configures product image hosting.
type ImagesConfig struct {
	Provider            string // "cloudinary", "s3" or "none"
	Folder              string
	UploadTimeout       time.Duration
	MaxUploadBytes      int64
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	S3Bucket            string
	S3Region            string
}

// ModerationConfig holds image moderation settings.
type ModerationConfig struct {
	Enabled          bool
	AWSRegion        string
	RejectConfidence float64
	Timeout          time.Duration
}

// CatalogConfig holds listing defaults.
type CatalogConfig struct {
	GroupsFile      string // optional YAML file replacing the built-in category groups
	DefaultViewport string
	FacetMode       string
}

type flagValues struct {
	httpAddr     *string
	cacheTTL     *time.Duration
	cacheBackend *string
	redisAddr    *string
	rateLimitDur *time.Duration
	logLevel     *string
	dbHost       *string
	dbPort       *int
	dbUser       *string
	dbPassword   *string
	dbName       *string
	dbSSLMode    *string
	productStore *string
	groupsFile   *string
	facetMode    *string
	envFile      *string
}

// Load parses flags, a .env file and environment variables to build
// configuration. Environment variables win over flags; variables already
// set in the process win over the .env file.
func Load() *Config {
	cfg := &Config{}

	fv := flagValues{
		httpAddr:     flag.String("http", ":8080", "HTTP server address"),
		cacheTTL:     flag.Duration("cache-ttl", 5*time.Minute, "Cache TTL for the product collection"),
		cacheBackend: flag.String("cache-backend", "memory", "Cache backend: memory or redis"),
		redisAddr:    flag.String("redis-addr", "localhost:6379", "Redis server address"),
		rateLimitDur: flag.Duration("rate-limit", 10*time.Second, "Minimum delay between create requests from one user"),
		logLevel:     flag.String("log-level", "info", "Log level (debug, info, warn, error)"),
		dbHost:       flag.String("db-host", "localhost", "PostgreSQL host"),
		dbPort:       flag.Int("db-port", 5432, "PostgreSQL port"),
		dbUser:       flag.String("db-user", "postgres", "PostgreSQL user"),
		dbPassword:   flag.String("db-password", "postgres", "PostgreSQL password"),
		dbName:       flag.String("db-name", "hamroeshop", "PostgreSQL database name"),
		dbSSLMode:    flag.String("db-sslmode", "disable", "PostgreSQL SSL mode"),
		productStore: flag.String("product-store", "postgres", "Product store: postgres or mongo"),
		groupsFile:   flag.String("category-groups", "", "YAML file with category groups"),
		facetMode:    flag.String("facet-mode", "unfiltered", "Facet counting: unfiltered or exclude-self"),
		envFile:      flag.String("env-file", ".env", "Optional dotenv file"),
	}

	flag.Parse()

	loadEnvFile(getEnvOrDefault("ENV_FILE", *fv.envFile))

	applyEnvOverrides(fv)

	cfg.Server = ServerConfig{
		HTTPAddr:        *fv.httpAddr,
		RateLimitDur:    *fv.rateLimitDur,
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	cfg.Cache = CacheConfig{
		Backend:       *fv.cacheBackend,
		TTL:           *fv.cacheTTL,
		RedisAddr:     *fv.redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "hamroeshop:"),
	}

	cfg.Database = DatabaseConfig{
		Host:     *fv.dbHost,
		Port:     *fv.dbPort,
		User:     *fv.dbUser,
		Password: *fv.dbPassword,
		Database: *fv.dbName,
		SSLMode:  *fv.dbSSLMode,
	}

	cfg.Store = StoreConfig{
		ProductBackend:  strings.ToLower(*fv.productStore),
		MongoURI:        getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnvOrDefault("MONGODB_DATABASE", "hamroeshop"),
		MongoCollection: getEnvOrDefault("MONGODB_PRODUCTS_COLLECTION", "products"),
	}

	cfg.Logging = LoggingConfig{
		Level: *fv.logLevel,
	}

	cfg.Catalog = CatalogConfig{
		GroupsFile:      *fv.groupsFile,
		DefaultViewport: getEnvOrDefault("CATALOG_DEFAULT_VIEWPORT", "desktop"),
		FacetMode:       *fv.facetMode,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Images = loadImagesConfig()
	cfg.Moderation = loadModerationConfig()

	return cfg
}

// loadEnvFile reads KEY=value pairs into the environment without
// overriding variables that are already set. A missing file is fine.
func loadEnvFile(path string) {
	if path == "" {
		return
	}
	// Missing or unreadable files leave the process environment as the only source.
	_ = godotenv.Load(path)
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:      getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		JWTIssuer:      getEnvOrDefault("AUTH_JWT_ISSUER", "hamroeshop"),
		JWTAudience:    getEnvOrDefault("AUTH_JWT_AUDIENCE", "hamroeshop-users"),
		AccessTokenTTL: getDurationEnv("AUTH_ACCESS_TOKEN_TTL", time.Hour),
	}
}

func loadImagesConfig() ImagesConfig {
	maxBytes := int64(5 << 20)
	if v := os.Getenv("IMAGE_MAX_UPLOAD_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			maxBytes = parsed
		}
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("IMAGE_PROVIDER")))
	if provider == "" {
		provider = "none"
		if cloudName != "" {
			provider = "cloudinary"
		}
	}

	return ImagesConfig{
		Provider:            provider,
		Folder:              getEnvOrDefault("IMAGE_FOLDER", "products"),
		UploadTimeout:       getDurationEnv("IMAGE_UPLOAD_TIMEOUT", 30*time.Second),
		MaxUploadBytes:      maxBytes,
		CloudinaryCloudName: cloudName,
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3Region:            getEnvOrDefault("S3_REGION", os.Getenv("AWS_REGION")),
	}
}

func loadModerationConfig() ModerationConfig {
	rejectConfidence := 70.0
	if v := os.Getenv("MODERATION_REJECT_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rejectConfidence = parsed
		}
	}

	enabled := true
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IMAGE_MODERATION_ENABLED"))); v == "false" || v == "0" {
		enabled = false
	}

	return ModerationConfig{
		Enabled:          enabled,
		AWSRegion:        os.Getenv("AWS_REGION"),
		RejectConfidence: rejectConfidence,
		Timeout:          getDurationEnv("MODERATION_TIMEOUT", 5*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func applyEnvOverrides(fv flagValues) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*fv.httpAddr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*fv.cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*fv.cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*fv.redisAddr = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*fv.rateLimitDur = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*fv.logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*fv.dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*fv.dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*fv.dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*fv.dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*fv.dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*fv.dbSSLMode = v
	}
	if v := os.Getenv("PRODUCT_STORE"); v != "" {
		*fv.productStore = v
	}
	if v := os.Getenv("CATEGORY_GROUPS_FILE"); v != "" {
		*fv.groupsFile = v
	}
	if v := os.Getenv("FACET_MODE"); v != "" {
		*fv.facetMode = v
	}
}
