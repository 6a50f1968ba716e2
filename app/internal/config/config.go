package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultSessionStore    = SessionStoreMemory
	defaultSessionTTL      = 2 * time.Hour
	defaultPruneInterval   = 5 * time.Minute
	defaultKafkaTopic      = "checkout-events"
	defaultServiceTimeout  = 10 * time.Second
	defaultShippingTimeout = 5 * time.Second
	defaultPerItemWeight   = 500
	defaultFallbackFee     = 30000
	defaultCouponRefresh   = time.Minute
	defaultJWTExpiration   = 24 * time.Hour
	configFileEnv          = "CHECKOUT_CONFIG_FILE"
	SessionStoreMemory     = "memory"
	SessionStorePostgres   = "postgres"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	MySQL    MySQLConfig
	Postgres PostgresConfig
	Session  SessionConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Services ServicesConfig
	Shipping ShippingConfig
	Coupons  CouponConfig
	Tax      TaxConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

// MySQLConfig points at the storefront database holding carts, coupons and products.
type MySQLConfig struct {
	DSN     string
	Migrate bool
}

type PostgresConfig struct {
	DSN string
}

// SessionConfig selects where checkout sessions live. Memory sessions are lost on restart.
type SessionConfig struct {
	Store         string
	TTL           time.Duration
	PruneInterval time.Duration
}

// RedisConfig enables the shared address cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ServicesConfig lists the remote collaborators. Empty coupon or order URLs
// switch to the MySQL-backed local implementations.
type ServicesConfig struct {
	GeoURL      string
	GeoToken    string
	CouponURL   string
	ShippingURL string
	OrderURL    string
	Timeout     time.Duration
}

type ShippingConfig struct {
	PerItemWeightGrams int
	FallbackFee        float64
	Timeout            time.Duration
}

type CouponConfig struct {
	RefreshInterval time.Duration
}

type TaxConfig struct {
	Percent float64
}

// AuthConfig verifies shopper tokens. With no secret every request is anonymous.
type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	file         string
	fileSet      bool
	envMap       map[string]string
	useSystemEnv bool
}

// WithConfigFile overrides the YAML overlay path normally taken from CHECKOUT_CONFIG_FILE.
// An empty path disables the overlay.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.file = path
		o.fileSet = true
	}
}

// WithEnvMap injects an explicit key/value map. Values in the map take
// precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves configuration with precedence YAML file < OS env < explicit env map.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	if !options.fileSet {
		if v, ok := options.envMap[configFileEnv]; ok {
			options.file = v
		} else if options.useSystemEnv {
			options.file = os.Getenv(configFileEnv)
		}
	}

	fileValues, err := loadYAML(options.file)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := fileValues[key]; ok {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "APP_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "APP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "APP_WRITE_TIMEOUT", defaultWriteTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "APP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		},
		MySQL: MySQLConfig{
			DSN:     stringWithDefault(lookup, "MYSQL_DSN", ""),
			Migrate: boolWithDefault(lookup, "MYSQL_MIGRATE", false),
		},
		Postgres: PostgresConfig{
			DSN: stringWithDefault(lookup, "PG_DSN", ""),
		},
		Session: SessionConfig{
			Store:         strings.ToLower(stringWithDefault(lookup, "SESSION_STORE", defaultSessionStore)),
			TTL:           durationWithDefault(lookup, "SESSION_TTL", defaultSessionTTL),
			PruneInterval: durationWithDefault(lookup, "SESSION_PRUNE_INTERVAL", defaultPruneInterval),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: csvWithDefault(lookup, "KAFKA_BROKERS"),
			Topic:   stringWithDefault(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		},
		Services: ServicesConfig{
			GeoURL:      stringWithDefault(lookup, "GEO_SERVICE_URL", ""),
			GeoToken:    stringWithDefault(lookup, "GEO_SERVICE_TOKEN", ""),
			CouponURL:   stringWithDefault(lookup, "COUPON_SERVICE_URL", ""),
			ShippingURL: stringWithDefault(lookup, "SHIPPING_SERVICE_URL", ""),
			OrderURL:    stringWithDefault(lookup, "ORDER_SERVICE_URL", ""),
			Timeout:     durationWithDefault(lookup, "SERVICE_TIMEOUT", defaultServiceTimeout),
		},
		Shipping: ShippingConfig{
			PerItemWeightGrams: intWithDefault(lookup, "SHIPPING_PER_ITEM_WEIGHT_GRAMS", defaultPerItemWeight),
			FallbackFee:        floatWithDefault(lookup, "SHIPPING_FALLBACK_FEE", defaultFallbackFee),
			Timeout:            durationWithDefault(lookup, "SHIPPING_TIMEOUT", defaultShippingTimeout),
		},
		Coupons: CouponConfig{
			RefreshInterval: durationWithDefault(lookup, "COUPON_REFRESH_INTERVAL", defaultCouponRefresh),
		},
		Tax: TaxConfig{
			Percent: floatWithDefault(lookup, "TAX_PERCENT", 0),
		},
		Auth: AuthConfig{
			JWTSecret:     stringWithDefault(lookup, "JWT_SECRET", ""),
			JWTExpiration: durationWithDefault(lookup, "JWT_EXPIRATION", defaultJWTExpiration),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LocalCoupons reports whether coupons are priced from the MySQL catalog instead of the coupon service.
func (c Config) LocalCoupons() bool { return c.Services.CouponURL == "" }

func (c Config) LocalOrders() bool { return c.Services.OrderURL == "" }

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.MySQL.DSN == "" {
		missing = append(missing, "MySQL.DSN")
	}
	switch cfg.Session.Store {
	case SessionStoreMemory:
	case SessionStorePostgres:
		if cfg.Postgres.DSN == "" {
			missing = append(missing, "Postgres.DSN")
		}
	default:
		missing = append(missing, "Session.Store")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if cfg.Session.PruneInterval <= 0 {
		missing = append(missing, "Session.PruneInterval")
	}
	if cfg.Services.GeoURL == "" {
		missing = append(missing, "Services.GeoURL")
	}
	if cfg.Services.ShippingURL == "" {
		missing = append(missing, "Services.ShippingURL")
	}
	if cfg.Services.Timeout <= 0 {
		missing = append(missing, "Services.Timeout")
	}
	if cfg.Shipping.PerItemWeightGrams <= 0 {
		missing = append(missing, "Shipping.PerItemWeightGrams")
	}
	if cfg.Shipping.FallbackFee < 0 {
		missing = append(missing, "Shipping.FallbackFee")
	}
	if cfg.Shipping.Timeout <= 0 {
		missing = append(missing, "Shipping.Timeout")
	}
	if cfg.Coupons.RefreshInterval <= 0 {
		missing = append(missing, "Coupons.RefreshInterval")
	}
	if cfg.Tax.Percent < 0 || cfg.Tax.Percent > 100 {
		missing = append(missing, "Tax.Percent")
	}
	if len(cfg.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Kafka.Topic) == "" {
		missing = append(missing, "Kafka.Topic")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

// loadYAML reads a flat KEY: value document. A missing path is not an error
// when the overlay was not requested.
func loadYAML(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			values[key] = strings.Join(parts, ",")
		case map[string]any:
			return nil, errors.New("config file " + path + ": nested value for " + key)
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
