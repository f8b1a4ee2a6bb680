package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lookup backends
const (
	LookupPostgres = "postgres"
	LookupRedis    = "redis"
)

// A Config represents all configuration of service
type Config struct {
	LogLevel       string               `yaml:"log_level"`
	Server         ServerConfig         `yaml:"server"`
	Kafka          KafkaConfig          `yaml:"kafka"`
	API            APIConfig            `yaml:"api"`
	Lookup         LookupConfig         `yaml:"lookup"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Cache          CacheConfig          `yaml:"cache"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// A ServerConfig contains configurations for the admin HTTP server
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// A KafkaConfig contains settings for Kafka
type KafkaConfig struct {
	Brokers          string        `yaml:"brokers"`
	MainTopic        string        `yaml:"main_topic"`
	RetryTopic       string        `yaml:"retry_topic"`
	ErrorTopic       string        `yaml:"error_topic"`
	GroupNamespace   string        `yaml:"group_namespace"`
	ErrorConsumer    bool          `yaml:"error_consumer"`
	RecoveryOffset   int64         `yaml:"recovery_offset"`
	MaxRetryAttempts int           `yaml:"max_retry_attempts"`
	PublishTimeout   time.Duration `yaml:"publish_timeout"`
}

// An APIConfig contains settings for the downstream order API
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Path    string        `yaml:"path"`
	Key     string        `yaml:"-"`
	Timeout time.Duration `yaml:"timeout"`
}

// A LookupConfig selects where entity ids are looked up
type LookupConfig struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
	Field      string `yaml:"field"`
}

// A DatabaseConfig contains settings for Postgres
type DatabaseConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string
	Password           string
	Database           string
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConnections int           `yaml:"max_open_connections"`
	MinOpenConnections int           `yaml:"min_open_connections"`
	MinIdleConnections int           `yaml:"min_idle_connections"`
	HealthCheckPeriod  time.Duration `yaml:"health_check_period"`
}

// A RedisConfig contains settings for Redis
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"-"`
}

// A CacheConfig represents settings for the lookup cache
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// A CircuitBreakerConfig represents circuit breaker configurations
type CircuitBreakerConfig struct {
	MaxFailers       int           `yaml:"max_failers"`
	Timeout          time.Duration `yaml:"timeout"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls"`
}

// LoadConfig loads data into Config structure from a file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var config Config
	config.applyDefaults()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if err := config.loadEnv(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills the values the yaml file may leave out
func (c *Config) applyDefaults() {
	c.LogLevel = "info"
	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.IdleTimeout = time.Minute

	c.Kafka.MainTopic = "chd-item-ordered"
	c.Kafka.RetryTopic = "chd-item-ordered-retry"
	c.Kafka.ErrorTopic = "chd-item-ordered-error"
	c.Kafka.GroupNamespace = "chd-order-consumer"
	c.Kafka.RecoveryOffset = -1
	c.Kafka.MaxRetryAttempts = 3
	c.Kafka.PublishTimeout = 3 * time.Second

	c.API.Path = "/chd-order-api/missing-image-deliveries"
	c.API.Timeout = 10 * time.Second

	c.Lookup.Backend = LookupPostgres
	c.Lookup.Collection = "transactions"
	c.Lookup.Field = "entity_id"

	c.Cache.Capacity = 1000
	c.Cache.TTL = 10 * time.Minute

	c.CircuitBreaker.MaxFailers = 5
	c.CircuitBreaker.Timeout = 30 * time.Second
	c.CircuitBreaker.HalfOpenMaxCalls = 1
}

// loadEnv loads data into Config structure from the environmental variables
func (c *Config) loadEnv() error {
	// the .env file is optional, plain environment variables work as well
	_ = godotenv.Load("deployments/.env")

	// Database env variables
	c.Database.User = os.Getenv("POSTGRES_USER")
	c.Database.Password = os.Getenv("POSTGRES_PASSWORD")
	c.Database.Database = os.Getenv("POSTGRES_DB")

	c.API.Key = os.Getenv("CHS_API_KEY")
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		c.Kafka.Brokers = env
	}
	if env := os.Getenv("IS_ERROR_QUEUE_CONSUMER"); env != "" {
		v, err := strconv.ParseBool(env)
		if err != nil {
			return fmt.Errorf("invalid IS_ERROR_QUEUE_CONSUMER %q: %w", env, err)
		}
		c.Kafka.ErrorConsumer = v
	}
	if env := os.Getenv("ERROR_RECOVERY_OFFSET"); env != "" {
		v, err := strconv.ParseInt(env, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ERROR_RECOVERY_OFFSET %q: %w", env, err)
		}
		c.Kafka.RecoveryOffset = v
	}

	return nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// BrokerList returns the trimmed broker addresses
func (c *KafkaConfig) BrokerList() []string {
	var brokers []string
	for _, broker := range strings.Split(c.Brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// GroupID returns the consumer group of topic
func (c *KafkaConfig) GroupID(topic string) string {
	return c.GroupNamespace + "-" + topic
}

// Validate checks if the most important fields are properly filled
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Kafka.BrokerList()) == 0 {
		return errors.New("kafka brokers are required")
	}
	if c.Kafka.MainTopic == "" || c.Kafka.RetryTopic == "" || c.Kafka.ErrorTopic == "" {
		return errors.New("main, retry and error topics are required")
	}
	if c.Kafka.MaxRetryAttempts < 1 {
		return fmt.Errorf("max retry attempts must be positive: %d", c.Kafka.MaxRetryAttempts)
	}
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}

	switch c.Lookup.Backend {
	case LookupPostgres:
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
	case LookupRedis:
		if c.Redis.URL == "" {
			return errors.New("redis url is required")
		}
	default:
		return fmt.Errorf("unknown lookup backend: %q", c.Lookup.Backend)
	}

	if c.Cache.Capacity <= 0 {
		return errors.New("cache capacity must be positive")
	}

	return nil
}
