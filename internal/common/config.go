package common

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `envconfig:"DB"`
	Server   ServerConfig   `envconfig:"SERVER"`
	OCR      OCRConfig      `envconfig:"OCR"`
	Catalog  CatalogConfig  `envconfig:"CATALOG"`
	Cache    CacheConfig    `envconfig:"REDIS"`
	Pipeline PipelineConfig `envconfig:"PIPELINE"`
}

// DatabaseConfig holds database-related configuration.
// Driver is "postgres" (URL is a pgx DSN) or "sqlite" (URL is a modernc DSN such as file:coa.db).
type DatabaseConfig struct {
	Driver           string        `envconfig:"DRIVER" default:"postgres"`
	URL              string        `envconfig:"URL"`
	MaxConns         int32         `envconfig:"MAX_CONNS" default:"20"`
	MinConns         int32         `envconfig:"MIN_CONNS" default:"5"`
	MaxConnLifetime  time.Duration `envconfig:"MAX_CONN_LIFETIME" default:"30m"`
	MaxConnIdleTime  time.Duration `envconfig:"MAX_CONN_IDLE_TIME" default:"5m"`
	DialTimeout      time.Duration `envconfig:"DIAL_TIMEOUT" default:"3s"`
	StatementTimeout time.Duration `envconfig:"STATEMENT_TIMEOUT" default:"0s"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string `envconfig:"GRPC_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// OCRConfig holds text recovery configuration
type OCRConfig struct {
	Pdftotext    string `envconfig:"PDFTOTEXT" default:"pdftotext"`
	Pdftoppm     string `envconfig:"PDFTOPPM" default:"pdftoppm"`
	Tesseract    string `envconfig:"TESSERACT" default:"tesseract"`
	TesseractLng string `envconfig:"TESSERACT_LANG" default:"kor+eng"`
	EnableRaster bool   `envconfig:"ENABLE_RASTER" default:"false"`
	DPI          int    `envconfig:"DPI" default:"300"`
	MinChars     int    `envconfig:"MIN_CHARS" default:"50"`

	CommandTimeout time.Duration `envconfig:"COMMAND_TIMEOUT" default:"60s"`
}

// CatalogConfig holds remote catalog configuration. An empty BaseURL disables the catalog.
type CatalogConfig struct {
	BaseURL string        `envconfig:"BASE_URL"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

// CacheConfig holds redis configuration for the catalog cache. An empty Addr disables caching.
type CacheConfig struct {
	Addr     string        `envconfig:"ADDR"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	TTL      time.Duration `envconfig:"TTL" default:"24h"`
}

// PipelineConfig holds knobs that are not domain rules.
type PipelineConfig struct {
	RulesFile   string `envconfig:"RULES_FILE"`
	Concurrency int    `envconfig:"CONCURRENCY" default:"4"`
}

// LoadConfig loads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, NewAppError(CodeConfig, "process environment", err)
	}
	return &c, nil
}

// UseInMemory points the database at a private in-memory SQLite instance with empty reference
// tables.
func (c *Config) UseInMemory() {
	c.Database.Driver = "sqlite"
	c.Database.URL = ":memory:"
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return NewAppError(CodeConfig, "DB_URL is required", ErrInvalidInput)
		}
	case "sqlite":
		if c.Database.URL == "" {
			c.Database.URL = "file:coa.db?_pragma=foreign_keys(1)"
		}
	default:
		return NewAppError(CodeConfig, "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "SERVER_GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.MinChars <= 0 {
		return NewAppError(CodeConfig, "OCR_MIN_CHARS must be positive", ErrInvalidInput)
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 1
	}
	return nil
}
