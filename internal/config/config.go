package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config holds all application configuration
type Config struct {
	// Market data API settings
	APIBaseURL        string
	APIKey            string
	HTTPTimeout       time.Duration
	RequestsPerMinute int
	TrendingCacheTTL  time.Duration

	// Dashboard settings
	RefreshInterval time.Duration
	PageSize        int

	// Persistence settings
	DataDir  string
	Store    string
	RedisURL string

	// Wallet settings
	WalletAddress    string
	KeystoreDir      string
	EthRPCURL        string
	DefaultConnector string

	// Backup settings
	BackupDir string

	// Logging
	LogDir string
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		APIBaseURL:        "https://api.coingecko.com/api/v3",
		HTTPTimeout:       15 * time.Second,
		RequestsPerMinute: 30,
		TrendingCacheTTL:  5 * time.Minute,
		RefreshInterval:   60 * time.Second,
		PageSize:          20,
		Store:             StoreFile,
		EthRPCURL:         "https://cloudflare-eth.com",
		DefaultConnector:  "address",
		LogDir:            "logs",
	}
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() {
	if baseURL := os.Getenv("COINFOLIO_API_URL"); baseURL != "" {
		c.APIBaseURL = baseURL
	}

	if key := os.Getenv("COINFOLIO_API_KEY"); key != "" {
		c.APIKey = key
	}

	if timeout := os.Getenv("COINFOLIO_HTTP_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.HTTPTimeout = d
		}
	}

	if rpm := os.Getenv("COINFOLIO_REQUESTS_PER_MINUTE"); rpm != "" {
		if r, err := strconv.Atoi(rpm); err == nil {
			c.RequestsPerMinute = r
		}
	}

	if ttl := os.Getenv("COINFOLIO_TRENDING_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			c.TrendingCacheTTL = d
		}
	}

	if interval := os.Getenv("COINFOLIO_REFRESH_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.RefreshInterval = d
		}
	}

	if pageSize := os.Getenv("COINFOLIO_PAGE_SIZE"); pageSize != "" {
		if p, err := strconv.Atoi(pageSize); err == nil {
			c.PageSize = p
		}
	}

	if dataDir := os.Getenv("COINFOLIO_DATA_DIR"); dataDir != "" {
		c.DataDir = dataDir
	}

	if store := os.Getenv("COINFOLIO_STORE"); store != "" {
		c.Store = store
	}

	if redisURL := os.Getenv("COINFOLIO_REDIS_URL"); redisURL != "" {
		c.RedisURL = redisURL
	}

	if address := os.Getenv("COINFOLIO_WALLET_ADDRESS"); address != "" {
		c.WalletAddress = address
	}

	if keystoreDir := os.Getenv("COINFOLIO_KEYSTORE_DIR"); keystoreDir != "" {
		c.KeystoreDir = keystoreDir
	}

	if rpcURL := os.Getenv("COINFOLIO_ETH_RPC_URL"); rpcURL != "" {
		c.EthRPCURL = rpcURL
	}

	if connector := os.Getenv("COINFOLIO_CONNECTOR"); connector != "" {
		c.DefaultConnector = connector
	}

	if backupDir := os.Getenv("COINFOLIO_BACKUP_DIR"); backupDir != "" {
		c.BackupDir = backupDir
	}

	if logDir := os.Getenv("COINFOLIO_LOG_DIR"); logDir != "" {
		c.LogDir = logDir
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", c.APIBaseURL, err)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got: %v", c.HTTPTimeout)
	}

	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests per minute must be positive, got: %d", c.RequestsPerMinute)
	}

	if c.TrendingCacheTTL <= 0 {
		return fmt.Errorf("trending cache TTL must be positive, got: %v", c.TrendingCacheTTL)
	}

	if c.RefreshInterval < 10*time.Second {
		return fmt.Errorf("refresh interval must be at least 10s, got: %v", c.RefreshInterval)
	}

	if c.PageSize < 1 || c.PageSize > 250 {
		return fmt.Errorf("page size must be between 1 and 250, got: %d", c.PageSize)
	}

	switch c.Store {
	case StoreFile:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis store selected but no redis URL configured")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}

	return nil
}
