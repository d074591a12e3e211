package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/yukikurage/org-access-api/internal/constants"
)

type DBConfig struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"5432"`
	User         string        `env:"DB_USER" envDefault:"console"`
	Password     string        `env:"DB_PASSWORD" envDefault:"console"`
	Name         string        `env:"DB_NAME" envDefault:"admin_console"`
	SSLMode      string        `env:"DB_SSL_MODE" envDefault:"disable"`
	LogLevel     string        `env:"DB_LOG_LEVEL" envDefault:"warn"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

// DSN returns the connection string for the configured driver.
func (c DBConfig) DSN() string {
	if c.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type PasswordConfig struct {
	MemoryKiB   uint32 `env:"PASSWORD_ARGON2_MEMORY_KIB" envDefault:"65536"`
	Iterations  uint32 `env:"PASSWORD_ARGON2_ITERATIONS" envDefault:"3"`
	Parallelism uint8  `env:"PASSWORD_ARGON2_PARALLELISM" envDefault:"2"`
}

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"org-access-api"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DB DBConfig

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"default-secret-key-change-me"`

	// Origins of org-apps allowed to call the external endpoints.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	InvitationTTL       time.Duration `env:"INVITATION_TTL" envDefault:"168h"`
	SetDealerMaxRetries uint          `env:"SET_DEALER_MAX_RETRIES" envDefault:"5"`

	Password PasswordConfig
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.GinMode == "release"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = constants.DefaultInvitationTTL
	}
	if cfg.SetDealerMaxRetries == 0 {
		cfg.SetDealerMaxRetries = constants.DefaultSetDealerMaxRetries
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "mysql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return &cfg, nil
}
