package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"hestia/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration of the scraper
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Log      logger.Config  `yaml:"log"`
	Sheets   SheetsConfig   `yaml:"sheets"`
}

// DatabaseConfig holds the postgres connection string
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// TelegramConfig holds the bot token and the chat receiving operator alerts
type TelegramConfig struct {
	Token       string `yaml:"token"`
	OwnerChatID int64  `yaml:"owner_chat_id"`
}

// ScraperConfig controls fetching, history and pacing
type ScraperConfig struct {
	HistoryDays     int           `yaml:"history_days"`
	SendInterval    time.Duration `yaml:"send_interval"`
	LoopInterval    time.Duration `yaml:"loop_interval"`
	UserAgent       string        `yaml:"user_agent"`
	RandomUserAgent bool          `yaml:"random_user_agent"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RenderTimeout   time.Duration `yaml:"render_timeout"`
	BrowserDataDir  string        `yaml:"browser_data_dir"`
}

// History returns the change detection window
func (s ScraperConfig) History() time.Duration {
	return time.Duration(s.HistoryDays) * 24 * time.Hour
}

// SheetsConfig enables the optional Google Sheets export of new listings
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
	CredentialsPath string `yaml:"credentials_path"`
	CredentialsJSON string `yaml:"-"`
}

// Enabled reports whether a spreadsheet is configured
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != ""
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Scraper: ScraperConfig{
			HistoryDays:    180,
			SendInterval:   time.Second / 29,
			LoopInterval:   3 * time.Minute,
			RequestTimeout: 30 * time.Second,
			RenderTimeout:  45 * time.Second,
			BrowserDataDir: "/tmp/hestia-browser",
		},
		Log: logger.Config{
			Level: "info",
			Color: true,
			Fluent: logger.FluentConfig{
				Host: "localhost",
				Port: 24224,
				Tag:  "hestia",
			},
		},
	}
}

// Load reads configuration from the YAML file at path (optional, may be
// empty) and then applies environment overrides. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables
func (c *Config) applyEnv() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.URL = dsn
	} else if host := os.Getenv("DB_HOST"); host != "" {
		c.Database.URL = composeDSN(
			host,
			getEnvAsString("DB_PORT", "5432"),
			getEnvAsString("DB_USER", "hestia"),
			os.Getenv("DB_PASSWORD"),
			getEnvAsString("DB_NAME", "hestia"),
			getEnvAsString("DB_SSLMODE", "disable"),
		)
	}

	c.Telegram.Token = getEnvAsString("HESTIA_TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.OwnerChatID = getEnvAsInt64("HESTIA_OWNER_CHAT_ID", c.Telegram.OwnerChatID)

	c.Scraper.HistoryDays = getEnvAsInt("HESTIA_HISTORY_DAYS", c.Scraper.HistoryDays)
	c.Scraper.LoopInterval = getEnvAsDuration("HESTIA_LOOP_INTERVAL", c.Scraper.LoopInterval)
	c.Scraper.UserAgent = getEnvAsString("HESTIA_USER_AGENT", c.Scraper.UserAgent)
	c.Scraper.BrowserDataDir = getEnvAsString("HESTIA_BROWSER_DATA_DIR", c.Scraper.BrowserDataDir)

	c.Log.Level = getEnvAsString("LOG_LEVEL", c.Log.Level)
	c.Log.JSON = getEnvAsBool("LOG_JSON", c.Log.JSON)
	c.Log.Fluent.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", c.Log.Fluent.Enabled)
	c.Log.Fluent.Host = getEnvAsString("FLUENTBIT_HOST", c.Log.Fluent.Host)
	c.Log.Fluent.Port = getEnvAsInt("FLUENTBIT_PORT", c.Log.Fluent.Port)

	c.Sheets.SpreadsheetID = getEnvAsString("GOOGLE_SHEETS_SPREADSHEET_ID", c.Sheets.SpreadsheetID)
	c.Sheets.CredentialsJSON = os.Getenv("GOOGLE_SHEETS_CREDENTIALS")
}

// Validate reports the first configuration problem found
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required (set DATABASE_URL or DB_HOST)")
	}
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required (set HESTIA_TELEGRAM_TOKEN)")
	}
	if c.Scraper.HistoryDays <= 0 {
		return fmt.Errorf("scraper.history_days must be positive, got %d", c.Scraper.HistoryDays)
	}
	if c.Scraper.LoopInterval <= 0 {
		return fmt.Errorf("scraper.loop_interval must be positive, got %s", c.Scraper.LoopInterval)
	}
	if c.Scraper.SendInterval < 0 {
		return fmt.Errorf("scraper.send_interval must not be negative, got %s", c.Scraper.SendInterval)
	}
	if c.Scraper.RequestTimeout <= 0 {
		return fmt.Errorf("scraper.request_timeout must be positive, got %s", c.Scraper.RequestTimeout)
	}
	return nil
}

func composeDSN(host, port, user, password, dbname, sslmode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	return u.String()
}

// getEnvAsString reads an environment variable or returns the default value
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as int or returns the default value.
// A value that cannot be parsed is logged and ignored.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int64: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsBool reads an environment variable as bool or returns the default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration reads an environment variable as time.Duration or returns the default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists || valStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return value
}
