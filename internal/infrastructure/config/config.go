package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/infusio/infusio/internal/shared/config"
)

type Config struct {
	Server   sharedConfig.ServerConfig   `mapstructure:"server"`
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
	Email    sharedConfig.EmailConfig    `mapstructure:"email"`
	Support  sharedConfig.SupportConfig  `mapstructure:"support"`
	Storage  sharedConfig.StorageConfig  `mapstructure:"storage"`
	Webhook  sharedConfig.WebhookConfig  `mapstructure:"webhook"`
	SSE      sharedConfig.SSEConfig      `mapstructure:"sse"`
	Redis    sharedConfig.RedisConfig    `mapstructure:"redis"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml (or the explicit file) and INFUSIO_* environment
// variables. A missing config file is tolerated so the service can run from
// environment variables alone.
func Load(env, file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("INFUSIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Support.ReplySecret == "" {
		return errors.New("support.reply_secret is required (INFUSIO_SUPPORT_REPLY_SECRET)")
	}
	if c.Support.InboundDomain == "" {
		return errors.New("support.inbound_domain is required")
	}
	switch c.Database.Driver {
	case "memory", "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Email.Provider {
	case "", "smtp", "sendgrid":
	default:
		return fmt.Errorf("unsupported email.provider %q", c.Email.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4200"})

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.database", "infusio.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("email.provider", "")
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.from_address", "suporte@infusio.local")
	v.SetDefault("email.from_name", "Infusio Suporte")
	v.SetDefault("email.send_timeout_seconds", 30)

	v.SetDefault("support.inbound_local_part", "suporte")
	v.SetDefault("support.team_addresses", []string{"atendimento@infusio.local"})
	v.SetDefault("support.min_description_length", 10)
	v.SetDefault("support.user_header", "X-User-ID")
	v.SetDefault("support.default_user_id", "")

	v.SetDefault("storage.dir", "./data/anexos")
	v.SetDefault("storage.base_url", "http://localhost:3000/files")

	v.SetDefault("webhook.rate_limit_per_minute", 600)

	v.SetDefault("sse.keepalive_seconds", 30)
	v.SetDefault("sse.buffer_size", 16)
	v.SetDefault("sse.max_conns_per_user", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
}
