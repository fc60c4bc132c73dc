package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Bot      BotConfig      `mapstructure:"bot"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // SQLite database file path
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address string `mapstructure:"address"` // listen address (e.g., ":8080")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// BotConfig contains chat transport settings for the notification gateway.
type BotConfig struct {
	APIBase     string `mapstructure:"api_base"` // bot API base URL
	Token       string `mapstructure:"token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"` // admin group for alerts
}

// DispatchConfig drives the assignment subsystem.
type DispatchConfig struct {
	OfferTTL            time.Duration `mapstructure:"offer_ttl"`             // how long a courier has to accept an offer
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`        // countdown/expiry poll interval
	MaxActiveOrders     int           `mapstructure:"max_active_orders"`     // per-courier concurrent order cap
	SkipAlertThreshold  int64         `mapstructure:"skip_alert_threshold"`  // alert admins at this many skips
	StaleAssignedCutoff time.Duration `mapstructure:"stale_assigned_cutoff"` // assigned-with-no-offer reconciliation age
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`  // stale-order job interval
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file (optional) with environment
// overrides (prefix CAMPUSBOT_, e.g. CAMPUSBOT_AUTH_JWT_SECRET). Missing keys
// fall back to defaults suitable for development.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CAMPUSBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "campusbot.db")
	v.SetDefault("http.address", ":8080")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("bot.api_base", "")
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.admin_chat_id", 0)
	v.SetDefault("dispatch.offer_ttl", 180*time.Second)
	v.SetDefault("dispatch.sweep_interval", 20*time.Second)
	v.SetDefault("dispatch.max_active_orders", 5)
	v.SetDefault("dispatch.skip_alert_threshold", 5)
	v.SetDefault("dispatch.stale_assigned_cutoff", 5*time.Minute)
	v.SetDefault("dispatch.maintenance_interval", 5*time.Minute)
	v.SetDefault("log.level", "info")
}

// Validate checks settings the process cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set; required (CAMPUSBOT_AUTH_JWT_SECRET)")
	}
	if c.Dispatch.OfferTTL <= 0 {
		return fmt.Errorf("dispatch.offer_ttl must be positive")
	}
	if c.Dispatch.SweepInterval <= 0 {
		return fmt.Errorf("dispatch.sweep_interval must be positive")
	}
	if c.Dispatch.MaxActiveOrders <= 0 {
		return fmt.Errorf("dispatch.max_active_orders must be positive")
	}
	return nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, OfferTTL: %s, Sweep: %s, Auth: *** (masked) ***}",
		c.Database.Path, c.HTTP.Address, c.Dispatch.OfferTTL, c.Dispatch.SweepInterval)
}
