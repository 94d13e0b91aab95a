package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CandleScan/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors"`
		RateLimit       struct {
			Burst        float64 `yaml:"burst" default:"20" validate:"gte=1"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"5" validate:"gt=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Analysis Analysis   `yaml:"analysis"`
	Source   Source     `yaml:"source"`
	Backend  Backend    `yaml:"backend"`
	Kafka    Kafka      `yaml:"kafka"`
	CH       ClickHouse `yaml:"clickhouse"`
	Redis    Redis      `yaml:"redis"`
}

type Analysis struct {
	LookBack    int           `yaml:"look_back" default:"3" validate:"gte=1,lte=60"`
	LookForward int           `yaml:"look_forward" default:"1" validate:"gte=1,lte=60"`
	Start       string        `yaml:"start" default:"2000-01-01" validate:"datetime=2006-01-02"`
	End         string        `yaml:"end" default:"2025-01-01" validate:"datetime=2006-01-02"`
	CacheTTL    time.Duration `yaml:"cache_ttl" default:"10m"`
	CacheSize   int           `yaml:"cache_size" default:"256" validate:"gte=1"`
}

type Source struct {
	Type    string `yaml:"type" default:"csv" validate:"oneof=csv clickhouse"`
	DataDir string `yaml:"data_dir" default:"data"`
}

type Backend struct {
	Type      string `yaml:"type" default:"none" validate:"oneof=none kafka clickhouse"`
	BatchSize int    `yaml:"batch_size" default:"500" validate:"gte=1"`
}

type Kafka struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic" default:"candlescan.matches"`
	RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled       bool          `yaml:"enabled"`
		GroupID       string        `yaml:"group_id" default:"candlescan"`
		RequestsTopic string        `yaml:"requests_topic" default:"candlescan.requests"`
		Workers       int           `yaml:"workers" default:"4" validate:"gte=1"`
		RetryMax      int           `yaml:"retry_max" default:"3"`
		BackoffMin    time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax    time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic      string        `yaml:"dlq_topic"`
		MinBytes      int           `yaml:"min_bytes" default:"1"`
		MaxBytes      int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"candlescan"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	BarsTable        string        `yaml:"bars_table" default:"daily_bars"`
	MatchesTable     string        `yaml:"matches_table" default:"pattern_matches"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"candlescan:"`
}

var validate = validator.New()

// Load reads a YAML configuration file, fills unset fields with their
// defaults and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (when present) and the YAML file, then overrides
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"ENVIRONMENT":         &c.Environment,
		"LOG_LEVEL":           &c.Log.Level,
		"LOG_FORMAT":          &c.Log.Format,
		"SOURCE":              &c.Source.Type,
		"DATA_DIR":            &c.Source.DataDir,
		"BACKEND":             &c.Backend.Type,
		"KAFKA_TOPIC":         &c.Kafka.Topic,
		"CLICKHOUSE_HOST":     &c.CH.Host,
		"CLICKHOUSE_USER":     &c.CH.User,
		"CLICKHOUSE_PASSWORD": &c.CH.Password,
		"REDIS_HOST":          &c.Redis.Host,
		"REDIS_PASSWORD":      &c.Redis.Password,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":     &c.Server.Port,
		"LOOK_BACK":       &c.Analysis.LookBack,
		"LOOK_FORWARD":    &c.Analysis.LookForward,
		"CLICKHOUSE_PORT": &c.CH.Port,
		"REDIS_PORT":      &c.Redis.Port,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("KAFKA_CONSUMER_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env KAFKA_CONSUMER_ENABLED: %w", err)
		}
		c.Kafka.Consumer.Enabled = b
	}
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env REDIS_ENABLED: %w", err)
		}
		c.Redis.Enabled = b
	}
	return nil
}

// Validate checks struct tags and the cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Analysis.Start > c.Analysis.End {
		return fmt.Errorf("analysis.start %s is after analysis.end %s", c.Analysis.Start, c.Analysis.End)
	}
	needKafka := c.Backend.Type == "kafka" || c.Kafka.Consumer.Enabled
	if needKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is in use")
	}
	if c.Kafka.Consumer.Enabled && c.Kafka.Consumer.RequestsTopic == "" {
		return fmt.Errorf("kafka.consumer.requests_topic is required")
	}
	return nil
}

// NeedsClickHouse reports whether any component reads or writes ClickHouse.
func (c *Config) NeedsClickHouse() bool {
	return c.Source.Type == "clickhouse" || c.Backend.Type == "clickhouse"
}
