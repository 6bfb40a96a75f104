package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string   `envconfig:"APP_PORT"`
	JWTSecret          string   `envconfig:"JWT_SECRET"`
	PublicBaseURL      string   `envconfig:"PUBLIC_BASE_URL"`
	Timezone           string   `envconfig:"TIMEZONE"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE"`
	AllowedOrigins     []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	// Database: "mysql" or "sqlite"
	DBDriver    string `envconfig:"DB_DRIVER"`
	DatabaseURI string `envconfig:"DATABASE_URI"`
	DBHost      string `envconfig:"DB_HOST"`
	DBPort      string `envconfig:"DB_PORT"`
	DBUser      string `envconfig:"DB_USER"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME"`
	SQLitePath  string `envconfig:"SQLITE_PATH"`
	SeedPrizes  bool   `envconfig:"SEED_PRIZES"`
	// Gin framework configuration
	GinMode string `envconfig:"GIN_MODE"`
	GinPath string `envconfig:"GIN_PATH"`
	// Redis for sessions/cache; disabled means in-memory fallbacks
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED"`
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     int    `envconfig:"REDIS_PORT"`
	RedisDB       int    `envconfig:"REDIS_DB"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	// Logging configuration
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogPath       string `envconfig:"LOG_PATH"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `envconfig:"LOG_COMPRESS"`
	// Rewards rules
	CheckInBasePoints      int    `envconfig:"CHECKIN_BASE_POINTS"`
	StreakBonusMultiplier  int    `envconfig:"STREAK_BONUS_MULTIPLIER"`
	ReferralBonusPoints    int    `envconfig:"REFERRAL_BONUS_POINTS"`
	RedemptionValidDays    int    `envconfig:"REDEMPTION_VALID_DAYS"`
	LeaderboardCacheTTLSec int    `envconfig:"LEADERBOARD_CACHE_TTL_SEC"`
	StreakSweepSchedule    string `envconfig:"STREAK_SWEEP_SCHEDULE"`
	// Sessions
	SessionCookieName string `envconfig:"SESSION_COOKIE_NAME"`
	SessionTTLHours   int    `envconfig:"SESSION_TTL_HOURS"`
	SessionFile       string `envconfig:"SESSION_FILE"`
	AdminTokenHours   int    `envconfig:"ADMIN_TOKEN_HOURS"`
	// Registration security
	RegisterMaxPerIPPerDay     int `envconfig:"REGISTER_MAX_PER_IP_PER_DAY"`
	RegisterAttemptCooldownSec int `envconfig:"REGISTER_ATTEMPT_COOLDOWN_SEC"`
}

// configSections lists the grouped keys accepted in config.json. Each section
// holds AppConfig field names, e.g. {"rewards": {"ReferralBonusPoints": 100}}.
var configSections = []string{"app", "database", "gin", "redis", "log", "rewards", "session", "register"}

var cfg AppConfig
var loaded bool

// Load loads the application configuration once during boot and exits on invalid input.
func Load() AppConfig {
	if loaded {
		return cfg
	}
	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	Set(c)
	return cfg
}

// LoadFrom builds a configuration with precedence config file -> defaults -> environment.
// A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("environment overrides: %w", err)
	}
	c.AllowedOrigins = splitAndTrim(c.AllowedOrigins)
	return c, nil
}

// Set replaces the cached configuration. Used by the CLI after flag handling and by tests.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Validate checks settings that have no safe default.
func (c AppConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in environment variables")
	}
	if c.CheckInBasePoints <= 0 || c.ReferralBonusPoints < 0 || c.StreakBonusMultiplier < 0 {
		return errors.New("rewards rules must not be negative and base points must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the time zone used to decide the calendar day of a check-in.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// loadJSONConfig reads the JSON file into out if present. Returns error only for invalid JSON.
// Flat keys are applied first, grouped sections override them.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	if err := json.Unmarshal(b, out); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, name := range configSections {
		section, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(section, out); err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:" + c.AppPort
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/gympoints.db"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "gympoints"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.CheckInBasePoints == 0 {
		c.CheckInBasePoints = 10
	}
	if c.StreakBonusMultiplier == 0 {
		c.StreakBonusMultiplier = 2
	}
	if c.ReferralBonusPoints == 0 {
		c.ReferralBonusPoints = 100
	}
	if c.RedemptionValidDays == 0 {
		c.RedemptionValidDays = 30
	}
	if c.LeaderboardCacheTTLSec == 0 {
		c.LeaderboardCacheTTLSec = 60
	}
	if c.StreakSweepSchedule == "" {
		c.StreakSweepSchedule = "5 0 * * *"
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "gym_session"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 24 * 30
	}
	if c.AdminTokenHours == 0 {
		c.AdminTokenHours = 12
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
}

func splitAndTrim(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
