package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/bibbank/lendcore/internal/domain/service"
	pkgpostgres "github.com/bibbank/lendcore/pkg/postgres"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	Port           int    `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER" envDefault:"lender"`
	Password       string `env:"DB_PASSWORD"`
	Name           string `env:"DB_NAME" envDefault:"lending"`
	SSLMode        string `env:"DB_SSLMODE" envDefault:"require"`
	MaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// LendingConfig tunes origination and the delinquency sweep.
type LendingConfig struct {
	AutoApprovalThreshold int           `env:"AUTO_APPROVAL_SCORE_THRESHOLD" envDefault:"640"`
	ScoringPolicyFile     string        `env:"SCORING_POLICY_FILE"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepBatchSize        int           `env:"SWEEP_BATCH_SIZE" envDefault:"500"`
}

type Config struct {
	HTTPPort      int    `env:"HTTP_PORT" envDefault:"8087"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	ServiceName   string `env:"SERVICE_NAME" envDefault:"lending-service"`
	DB            DatabaseConfig
	Log           LogConfig
	Lending       LendingConfig
}

// Load parses the process environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DB.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StorageDriver))
	}
	if c.HTTPPort <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be positive, got %d", c.HTTPPort))
	}
	if t := c.Lending.AutoApprovalThreshold; t < 300 || t > 900 {
		errs = append(errs, fmt.Errorf("AUTO_APPROVAL_SCORE_THRESHOLD must be within 300..900, got %d", t))
	}
	if c.Lending.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.Lending.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("SWEEP_BATCH_SIZE must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Postgres converts the database settings for pkg/postgres.
func (c Config) Postgres() pkgpostgres.Config {
	return pkgpostgres.Config{
		Host:            c.DB.Host,
		Port:            c.DB.Port,
		User:            c.DB.User,
		Password:        c.DB.Password,
		Database:        c.DB.Name,
		SSLMode:         c.DB.SSLMode,
		ApplicationName: c.ServiceName,
		MaxConns:        c.DB.MaxConns,
	}
}

// ScoringPolicy returns the default policy, or the one in
// SCORING_POLICY_FILE when set.
func (c Config) ScoringPolicy() (service.ScoringPolicy, error) {
	if c.Lending.ScoringPolicyFile == "" {
		return service.DefaultScoringPolicy(), nil
	}
	return LoadScoringPolicy(c.Lending.ScoringPolicyFile)
}
