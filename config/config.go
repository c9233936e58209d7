package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Signup   SignupConfig   `mapstructure:"signup"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env" validate:"oneof=development test production"`
}

// BackendConfig 后端服务（auth / rest / storage）
type BackendConfig struct {
	URL    string `mapstructure:"url" validate:"required,url"`
	APIKey string `mapstructure:"api_key" validate:"required"`
	Bucket string `mapstructure:"bucket" validate:"required"`
	// Timeout 0 表示不设超时
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type SessionConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=file database redis memory"`
	FilePath string `mapstructure:"file_path"`
	Key      string `mapstructure:"key" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ServerConfig struct {
	Port      int     `mapstructure:"port" validate:"gt=0,lt=65536"`
	Mode      string  `mapstructure:"mode" validate:"oneof=debug release test"`
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// SignupConfig 注册后写 profile 的重试参数
type SignupConfig struct {
	ProfileRetryMax     uint          `mapstructure:"profile_retry_max" validate:"gte=1"`
	ProfileRetryInitial time.Duration `mapstructure:"profile_retry_initial" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "moments")
	v.SetDefault("app.env", "development")
	v.SetDefault("backend.bucket", "Moments")
	v.SetDefault("backend.timeout", 0)
	v.SetDefault("session.driver", "file")
	v.SetDefault("session.file_path", "$HOME/.moments/session.json")
	v.SetDefault("session.key", "default")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "moments.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "moments:session:")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("tracing.service_name", "moments")
	v.SetDefault("signup.profile_retry_max", 5)
	v.SetDefault("signup.profile_retry_initial", 200*time.Millisecond)
}

// Load 读取配置：默认值 < config.yaml < .env / 环境变量（MOMENTS_ 前缀）
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 与 Load 相同，但可显式指定配置文件路径
func LoadFile(path string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.moments")
	}

	v.SetEnvPrefix("MOMENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// AutomaticEnv 只对已知 key 生效，这几个没有默认值
	_ = v.BindEnv("backend.url")
	_ = v.BindEnv("backend.api_key")
	_ = v.BindEnv("sentry.dsn")
	_ = v.BindEnv("redis.password")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Session.Driver == "file" && c.Session.FilePath == "" {
		return fmt.Errorf("invalid config: session.file_path is required for the file driver")
	}
	return nil
}
