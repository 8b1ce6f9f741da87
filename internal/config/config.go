package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL    string `env:"-"`
	ClientDBPath string `env:"CLIENT_DB_PATH"`
	TokenFile    string `env:"TOKEN_FILE"`
	Version      bool   `env:"-"` // show client version and exit (flag only)

	// Sync settings
	HTTPTimeoutSec  int  `env:"HTTP_TIMEOUT_SEC"`
	SyncDebounceSec int  `env:"SYNC_DEBOUNCE_SEC"`
	AutoSync        bool `env:"AUTO_SYNC" envDefault:"true"`

	// Лимиты на размер бинарных вложений по категориям (МБ)
	Model3DMaxMB    int `env:"MODEL3D_MAX_MB"`
	VesselImgMaxMB  int `env:"VESSEL_IMG_MAX_MB"`
	ScanImageMaxMB  int `env:"SCAN_IMAGE_MAX_MB"`
	ScanDataMaxMB   int `env:"SCAN_DATA_MAX_MB"`
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL of the InspectVault server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.ClientDBPath, "client-db", cfg.ClientDBPath, "path to client SQLite DB")
	flag.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "path to auth token file (client)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")
	flag.BoolVar(&cfg.AutoSync, "auto-sync", cfg.AutoSync, "enable automatic sync on local mutations")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	// Fill client defaults if empty
	home, _ := os.UserHomeDir()
	if cfg.ClientDBPath == "" {
		cfg.ClientDBPath = filepath.Join(home, "ivcli.db")
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = filepath.Join(home, ".iv_token")
	}

	if cfg.HTTPTimeoutSec <= 0 {
		cfg.HTTPTimeoutSec = 30
	}
	if cfg.SyncDebounceSec <= 0 {
		cfg.SyncDebounceSec = 3
	}

	// Значения по умолчанию соответствуют лимитам бэкенда
	if cfg.Model3DMaxMB <= 0 {
		cfg.Model3DMaxMB = 50
	}
	if cfg.VesselImgMaxMB <= 0 {
		cfg.VesselImgMaxMB = 10
	}
	if cfg.ScanImageMaxMB <= 0 {
		cfg.ScanImageMaxMB = 5
	}
	if cfg.ScanDataMaxMB <= 0 {
		cfg.ScanDataMaxMB = 100
	}

	return cfg
}

// HTTPTimeout возвращает таймаут сетевых вызовов клиента.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// SyncDebounce возвращает задержку автозапуска синхронизации после мутации.
func (c *Config) SyncDebounce() time.Duration {
	return time.Duration(c.SyncDebounceSec) * time.Second
}
