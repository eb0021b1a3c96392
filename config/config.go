package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/configparser"
)

var (
	ErrModeNotProvided = errors.New("mode not provided")
	ErrInvalidMode     = errors.New("unknown service mode")
	ErrInvalidStore    = errors.New("unknown store driver")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode     types.ServiceMode `env:"MODE"`
		LogLevel string `env:"LOG_LEVEL" default:"INFO"`

		Store       StoreConfig
		Database    DatabaseConfig
		RabbitMQ    RabbitMQConfig
		Redis       RedisConfig
		Kafka       KafkaConfig
		WebSocket   WebSocketConfig
		ExternalAPI ExternalAPIConfig
		Services    ServicesConfig
		Auth        Auth
		Dispatch    DispatchConfig
	}

	StoreConfig struct {
		Driver types.StoreDriver `env:"STORE_DRIVER" default:"postgres"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ladies_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ladies_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ladies_drive"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"true"`
	}

	RedisConfig struct {
		Addr     string `env:"REDIS_ADDR" default:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" default:"0"`
		Enabled  bool   `env:"REDIS_ENABLED" default:"true"`
	}

	KafkaConfig struct {
		Brokers       []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
		LocationTopic string   `env:"KAFKA_LOCATION_TOPIC" default:"driver-locations"`
		GroupID       string   `env:"KAFKA_GROUP_ID" default:"location-consumer"`
		Enabled       bool     `env:"KAFKA_ENABLED" default:"true"`
	}

	WebSocketConfig struct {
		ReadBufferSize  int `env:"WEBSOCKET_READ_BUFFER" default:"1024"`
		WriteBufferSize int `env:"WEBSOCKET_WRITE_BUFFER" default:"1024"`
	}

	ExternalAPIConfig struct {
		LocationIQapiKey  string        `env:"LOCATIONIQ_API_KEY"`
		LocationIQBaseURL string        `env:"LOCATIONIQ_BASE_URL" default:"https://us1.locationiq.com/v1"`
		GeocodeCacheTTL   time.Duration `env:"LOCATIONIQ_CACHE_TTL" default:"24h"`
	}

	ServicesConfig struct {
		RideService   string `env:"SERVICES_RIDE_SERVICE" default:"3000"`
		DriverService string `env:"SERVICES_DRIVER_SERVICE" default:"3001"`
		AdminService  string `env:"SERVICES_ADMIN_SERVICE" default:"3004"`
		MetricsPort   string `env:"SERVICES_METRICS_PORT" default:"9100"`
	}

	Auth struct {
		AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" default:"24h"`
		JWTSecret      string        `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	DispatchConfig struct {
		SearchTimeout  time.Duration `env:"DISPATCH_SEARCH_TIMEOUT" default:"10m"`
		ExpiryInterval time.Duration `env:"DISPATCH_EXPIRY_INTERVAL" default:"30s"`
		RetryAttempts  int           `env:"DISPATCH_RETRY_ATTEMPTS" default:"3"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c DatabaseConfig) PoolLimits() (int32, int32, time.Duration, time.Duration) {
	return c.MaxConns, c.MinConns, c.MaxConnLifetime, c.MaxConnIdleTime
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// NewConfig loads the optional YAML file, applies env vars and defaults, and
// sets the service mode chosen on the command line.
func NewConfig(filepath string, mode string) (*Config, error) {
	cfg, err := Load(filepath)
	if err != nil {
		return nil, err
	}

	if mode != "" {
		cfg.Mode = types.ServiceMode(mode)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load parses the config without validating it. Used by commands that do not
// run a service mode.
func Load(filepath string) (*Config, error) {
	cfg := &Config{}
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks values the parser cannot.
func (c *Config) Validate() error {
	if c.Mode == "" {
		return ErrModeNotProvided
	}
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Store.Driver != types.StorePostgres && c.Store.Driver != types.StoreMemory {
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Store.Driver)
	}
	if c.Dispatch.SearchTimeout < 0 {
		return errors.New("dispatch search timeout must not be negative")
	}
	if c.Mode == types.LocationConsumer && !c.Kafka.Enabled {
		return errors.New("location-consumer mode requires kafka")
	}
	return nil
}

// Port returns the HTTP port of the configured mode.
func (c *Config) Port() string {
	switch c.Mode {
	case types.RideService:
		return c.Services.RideService
	case types.DriverService:
		return c.Services.DriverService
	case types.AdminService:
		return c.Services.AdminService
	default:
		return c.Services.MetricsPort
	}
}
