package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the ticket store backend.
// Driver "memory" keeps tickets in process memory; "sqlite" and "mysql" use GORM.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == "sqlite" {
		return d.Database
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// EmailConfig configures the outbound transport. Provider is "smtp",
// "sendgrid" or empty (sending disabled).
type EmailConfig struct {
	Provider           string `mapstructure:"provider"`
	SMTPHost           string `mapstructure:"smtp_host"`
	SMTPPort           int    `mapstructure:"smtp_port"`
	SMTPUser           string `mapstructure:"smtp_user"`
	SMTPPassword       string `mapstructure:"smtp_password"`
	SendGridAPIKey     string `mapstructure:"sendgrid_api_key"`
	FromAddress        string `mapstructure:"from_address"`
	FromName           string `mapstructure:"from_name"`
	SendTimeoutSeconds int    `mapstructure:"send_timeout_seconds"`
}

func (e *EmailConfig) SendTimeout() time.Duration {
	if e.SendTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.SendTimeoutSeconds) * time.Second
}

type SupportConfig struct {
	ReplySecret          string   `mapstructure:"reply_secret"`
	InboundDomain        string   `mapstructure:"inbound_domain"`
	InboundLocalPart     string   `mapstructure:"inbound_local_part"`
	TeamAddresses        []string `mapstructure:"team_addresses"`
	MinDescriptionLength int      `mapstructure:"min_description_length"`
	UserHeader           string   `mapstructure:"user_header"`
	DefaultUserID        string   `mapstructure:"default_user_id"`
}

type StorageConfig struct {
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
}

type WebhookConfig struct {
	SharedSecret       string `mapstructure:"shared_secret"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
}

type SSEConfig struct {
	KeepaliveSeconds int `mapstructure:"keepalive_seconds"`
	BufferSize       int `mapstructure:"buffer_size"`
	MaxConnsPerUser  int `mapstructure:"max_conns_per_user"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
