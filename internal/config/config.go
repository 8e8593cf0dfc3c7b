package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageJSON   = "JSON"
	StorageSQLite = "SQLITE"
	StorageMySQL  = "MYSQL"
)

// Config holds all configuration for the application
type Config struct {
	AppMode        string `env:"APP_MODE" envDefault:"dev"`
	Port           string `env:"PORT" envDefault:"3000"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
	Clan           ClanConfig
	Storage        StorageConfig
	RateLimit      RateLimitConfig
	Database       DatabaseConfig
	JWT            JWTConfig
}

// ClanConfig holds gameplay limits and the xp curve
type ClanConfig struct {
	MaxMembers    int     `env:"CLAN_MAX_MEMBERS" envDefault:"20"`
	MaxActiveWars int     `env:"CLAN_MAX_ACTIVE_WARS" envDefault:"3"`
	XPPerLevel    float64 `env:"CLAN_XP_PER_LEVEL" envDefault:"1000"`
	XPPerKill     float64 `env:"CLAN_XP_PER_KILL" envDefault:"10"`
	WarWinPoints  int     `env:"CLAN_WAR_WIN_POINTS" envDefault:"100"`
	CreateCost    float64 `env:"CLAN_CREATE_COST" envDefault:"0"`
	BonusFile     string  `env:"CLAN_BONUS_FILE" envDefault:"config/bonuses.yml"`
}

// StorageConfig selects and tunes the persistence backend
type StorageConfig struct {
	Type             string        `env:"STORAGE_TYPE" envDefault:"JSON"`
	SnapshotPath     string        `env:"STORAGE_SNAPSHOT_PATH" envDefault:"data/clans.json.zst"`
	SnapshotCompress bool          `env:"STORAGE_SNAPSHOT_COMPRESS" envDefault:"true"`
	SQLitePath       string        `env:"STORAGE_SQLITE_FILE" envDefault:"data/clans.db"`
	AutosaveInterval time.Duration `env:"STORAGE_AUTOSAVE_INTERVAL" envDefault:"5m"`
	DailyResetSpec   string        `env:"STORAGE_DAILY_RESET_SPEC" envDefault:"@every 24h"`
	IOTimeout        time.Duration `env:"STORAGE_IO_TIMEOUT" envDefault:"10s"`
	IORetries        uint          `env:"STORAGE_IO_RETRIES" envDefault:"3"`
}

// RateLimitConfig caps requests per client IP within Window
type RateLimitConfig struct {
	Window    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	General   int           `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	ClanWrite int           `env:"RATE_LIMIT_CLAN_WRITE" envDefault:"3"`
	Token     int           `env:"RATE_LIMIT_TOKEN" envDefault:"5"`
}

// DatabaseConfig holds MySQL configuration, read with a DEV_/PROD_ prefix
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"root"`
	Password string `env:"DB_PASS"`
	DBName   string `env:"DB_NAME" envDefault:"clanmaster"`
}

// JWTConfig holds token settings for the HTTP front-end
type JWTConfig struct {
	Secret          string `env:"JWT_SECRET" envDefault:"default_secret"`
	AccessTokenMins int    `env:"ACCESS_TOKEN_MINUTES" envDefault:"60"`
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{}
	// Database is parsed again below with the mode prefix
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Trim spaces for Windows compatibility
	cfg.AppMode = strings.TrimSpace(cfg.AppMode)
	if cfg.AppMode != "dev" && cfg.AppMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", cfg.AppMode)
	}

	db, err := loadDatabaseConfig(cfg.AppMode)
	if err != nil {
		return nil, err
	}
	cfg.Database = db

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("✅ Configuration loaded successfully [MODE: %s, STORAGE: %s]", cfg.AppMode, cfg.Storage.Type)
	return cfg, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) (DatabaseConfig, error) {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	var db DatabaseConfig
	if err := env.ParseWithOptions(&db, env.Options{Prefix: prefix}); err != nil {
		return db, fmt.Errorf("parse database env: %w", err)
	}
	return db, nil
}

func (c *Config) validate() error {
	c.Storage.Type = strings.ToUpper(strings.TrimSpace(c.Storage.Type))
	switch c.Storage.Type {
	case StorageJSON, StorageSQLite, StorageMySQL:
	default:
		return fmt.Errorf("invalid STORAGE_TYPE: '%s' (must be JSON, SQLITE or MYSQL)", c.Storage.Type)
	}

	if c.Clan.MaxMembers < 1 {
		return fmt.Errorf("CLAN_MAX_MEMBERS must be at least 1, got %d", c.Clan.MaxMembers)
	}
	if c.Clan.MaxActiveWars < 1 {
		return fmt.Errorf("CLAN_MAX_ACTIVE_WARS must be at least 1, got %d", c.Clan.MaxActiveWars)
	}
	if c.Clan.XPPerLevel <= 0 {
		return fmt.Errorf("CLAN_XP_PER_LEVEL must be positive, got %v", c.Clan.XPPerLevel)
	}
	if c.Clan.XPPerKill < 0 {
		return fmt.Errorf("CLAN_XP_PER_KILL must not be negative, got %v", c.Clan.XPPerKill)
	}
	if c.Clan.CreateCost < 0 {
		return fmt.Errorf("CLAN_CREATE_COST must not be negative, got %v", c.Clan.CreateCost)
	}
	if c.Storage.AutosaveInterval <= 0 {
		return fmt.Errorf("STORAGE_AUTOSAVE_INTERVAL must be positive, got %s", c.Storage.AutosaveInterval)
	}
	if c.Storage.IOTimeout <= 0 {
		return fmt.Errorf("STORAGE_IO_TIMEOUT must be positive, got %s", c.Storage.IOTimeout)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
	}
	if c.RateLimit.General < 1 || c.RateLimit.ClanWrite < 1 || c.RateLimit.Token < 1 {
		return fmt.Errorf("RATE_LIMIT_* limits must be at least 1, got %+v", c.RateLimit)
	}
	if c.Storage.IORetries == 0 {
		c.Storage.IORetries = 1
	}
	return nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:" + c.Port
	}
	return c.AllowedOrigins
}
