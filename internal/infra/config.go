package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config корневая структура конфигурации Brief Governance.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Trail    TrailConfig    `mapstructure:"trail"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"` // накатить schema.sql при старте
}

// RedisConfig описывает подключение к Redis (Pub/Sub уведомлений и сигналов).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	PublicKey      []byte
	PrivateKey     []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// PolicyConfig пороги Policy Engine. Значения из таблицы policy_settings перекрывают их в рантайме.
type PolicyConfig struct {
	OwnerApprovalCost float64 `mapstructure:"owner_approval_cost"`
	MaxCost           float64 `mapstructure:"max_cost"`
	CrisisMinContext  int     `mapstructure:"crisis_min_context"`
	UrgentDays        int     `mapstructure:"urgent_days"`
	RelaxedDays       int     `mapstructure:"relaxed_days"`
	LowCost           float64 `mapstructure:"low_cost"`
	CatalogPath       string  `mapstructure:"catalog_path"`
}

// AuditConfig пороги AI Auditor.
type AuditConfig struct {
	CostThreshold  float64 `mapstructure:"cost_threshold"`
	KPIUpperBound  float64 `mapstructure:"kpi_upper_bound"`
	DefaultSLADays int     `mapstructure:"default_sla_days"`
}

// NotifyConfig настройки надежной доставки уведомлений.
type NotifyConfig struct {
	Attempts      uint          `mapstructure:"attempts"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// TrailConfig настройки асинхронного журнала переходов.
type TrailConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV: POLICY_MAX_COST=80000 перекроет policy.max_cost
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет, работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключи из ENV (Docker/K8s) или из файла
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Пустые дефолты нужны, чтобы Unmarshal увидел ключи из ENV (DATABASE_URL и т.п.)
	v.SetDefault("server.host", "")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.public_key_path", "")
	v.SetDefault("auth.private_key_path", "")
	v.SetDefault("policy.catalog_path", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.migrate", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("auth.token_ttl", 8*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("policy.owner_approval_cost", 10000)
	v.SetDefault("policy.max_cost", 50000)
	v.SetDefault("policy.crisis_min_context", 30)
	v.SetDefault("policy.urgent_days", 3)
	v.SetDefault("policy.relaxed_days", 21)
	v.SetDefault("policy.low_cost", 1000)

	v.SetDefault("audit.cost_threshold", 10000)
	v.SetDefault("audit.kpi_upper_bound", 1_000_000)
	v.SetDefault("audit.default_sla_days", 5)

	v.SetDefault("notify.attempts", 3)
	v.SetDefault("notify.rate_per_second", 50)
	v.SetDefault("notify.burst", 10)
	v.SetDefault("notify.cb_max_requests", 3)
	v.SetDefault("notify.cb_interval", 5*time.Second)
	v.SetDefault("notify.cb_timeout", 30*time.Second)

	v.SetDefault("trail.buffer_size", 1000)
	v.SetDefault("trail.batch_size", 100)
	v.SetDefault("trail.flush_interval", 1*time.Second)
}

// loadKeyResource берет ключ напрямую из ENV, иначе из файла по пути
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
