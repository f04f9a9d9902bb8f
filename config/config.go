package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"milorg-admin/permissions"
)

// ErrMissingSecret is returned when no JWT signing secret is configured.
var ErrMissingSecret = errors.New("jwt_secret is not configured")

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`
	DatabaseURL string `mapstructure:"database_url"`
	ServiceName string `mapstructure:"service_name"`
	Language    string `mapstructure:"language"`
	Seed        bool   `mapstructure:"seed"`

	JwtSecret        string        `mapstructure:"jwt_secret"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	CookieMaxAge     time.Duration `mapstructure:"cookie_max_age"`
	GlobalPermission string        `mapstructure:"global_permission"`

	// TrustedProxies lists the peers, as IPs or CIDR blocks, whose
	// X-Forwarded-For header is believed.
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	LoginRate LoginRateConfig `mapstructure:"login_rate"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Consul    ConsulConfig    `mapstructure:"consul"`
}

type LoginRateConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// RedisConfig enables the shared login limiter when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ConsulConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Address       string `mapstructure:"address"`
	AdvertiseHost string `mapstructure:"advertise_host"`
}

// IsProduction reports whether cookies must be Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// GlobalSlug returns the validated global override permission.
func (c *Config) GlobalSlug() permissions.Slug {
	return permissions.Slug(c.GlobalPermission)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("database_url", "root:root@tcp(127.0.0.1:3306)/milorg?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("service_name", "milorg-admin")
	v.SetDefault("language", "pt-BR")
	v.SetDefault("seed", true)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", time.Hour)
	v.SetDefault("cookie_max_age", 7*24*time.Hour)
	v.SetDefault("global_permission", string(permissions.SystemManage))
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("login_rate.per_second", 1.0)
	v.SetDefault("login_rate.burst", 5)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("consul.enabled", false)
	v.SetDefault("consul.address", "127.0.0.1:8500")
	v.SetDefault("consul.advertise_host", "127.0.0.1")
}

// Load reads .env (if present), config.yaml and MILORG_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("MILORG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JwtSecret) == "" {
		return ErrMissingSecret
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.CookieMaxAge <= 0 {
		return fmt.Errorf("cookie_max_age must be positive, got %s", c.CookieMaxAge)
	}
	if _, err := permissions.Parse(c.GlobalPermission); err != nil {
		return fmt.Errorf("global_permission: %w", err)
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("trusted_proxies: %q is neither an IP nor a CIDR block", p)
		}
	}
	return nil
}
