package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMySQL  = "mysql"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type ProxyConfig struct {
	Timeout          string `mapstructure:"timeout"`
	FallbackUpstream string `mapstructure:"fallback_upstream"`
	FallbackPrefix   string `mapstructure:"fallback_prefix"`
	DebugPrefix      string `mapstructure:"debug_prefix"`
}

type StaticConfig struct {
	Dir string `mapstructure:"dir"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RequestLogConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type HealthCheckConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	Timeout  string `mapstructure:"timeout"`
	Path     string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	Static      StaticConfig      `mapstructure:"static"`
	Store       StoreConfig       `mapstructure:"store"`
	RequestLog  RequestLogConfig  `mapstructure:"request_log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. When configFile is empty,
// config.yaml is looked up in ./config and the working directory. A .env
// file in the working directory is loaded into the environment first.
func Load(configFile string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		slog.Error("failed to load .env file", slog.String("error", err.Error()))
		return nil, err
	}

	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "45s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("proxy.timeout", "30s")
	v.SetDefault("proxy.fallback_upstream", "http://www.google.com")
	v.SetDefault("proxy.fallback_prefix", "/proxy")
	v.SetDefault("proxy.debug_prefix", "/debug")
	v.SetDefault("static.dir", "../frontend")
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.dsn", "file:routes.db?_pragma=busy_timeout=5000")
	v.SetDefault("request_log.capacity", 100)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health_check.enabled", false)
	v.SetDefault("health_check.interval", "10s")
	v.SetDefault("health_check.timeout", "5s")
	v.SetDefault("health_check.path", "/")
	v.SetDefault("logging.level", LogLevelInfo)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

// ProxyTimeout returns the parsed proxy timeout. Call after Validate.
func (c *Config) ProxyTimeout() time.Duration {
	return mustDuration(c.Proxy.Timeout)
}

// ServerTimeouts returns the parsed read, write and idle timeouts.
func (c *Config) ServerTimeouts() (read, write, idle time.Duration) {
	return mustDuration(c.Server.ReadTimeout),
		mustDuration(c.Server.WriteTimeout),
		mustDuration(c.Server.IdleTimeout)
}

// HealthCheckTimings returns the parsed probe interval and timeout.
func (c *Config) HealthCheckTimings() (interval, timeout time.Duration) {
	return mustDuration(c.HealthCheck.Interval), mustDuration(c.HealthCheck.Timeout)
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
			validation.By(c.validateWriteOutlastsProxy),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Proxy,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProxyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProxyConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&pc.FallbackUpstream, validation.By(validateServerURL)),
					validation.Field(&pc.FallbackPrefix, validation.By(validateMountPrefix)),
					validation.Field(&pc.DebugPrefix, validation.By(validateMountPrefix)),
				)
			}),
		),
		validation.Field(&c.Store,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StoreConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StoreConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Driver,
						validation.Required,
						validation.In(StoreMemory, StoreSQLite, StoreMySQL),
					),
					validation.Field(&sc.DSN,
						validation.When(sc.Driver != StoreMemory, validation.Required),
					),
				)
			}),
		),
		validation.Field(&c.RequestLog,
			validation.By(func(value interface{}) error {
				rc, ok := value.(RequestLogConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a RequestLogConfig")
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.Capacity, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Path,
						validation.When(mc.Enabled, validation.Required, validation.By(validateMountPrefix)),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.When(hc.Enabled, validation.Required, validation.By(validateDuration)),
					),
					validation.Field(&hc.Timeout,
						validation.When(hc.Enabled, validation.Required, validation.By(validateDuration)),
					),
					validation.Field(&hc.Path,
						validation.When(hc.Enabled, validation.Required, validation.Match(probePathRE)),
					),
				)
			}),
		),
	)
}

// validateWriteOutlastsProxy keeps the server from cutting off a forward
// before the proxy timeout can answer 504. Unparsable durations are reported
// by their own rules.
func (c *Config) validateWriteOutlastsProxy(value interface{}) error {
	_, write, _ := c.ServerTimeouts()
	proxy := c.ProxyTimeout()
	if write <= 0 || proxy <= 0 {
		return nil
	}

	if write <= proxy {
		return validation.NewError("validation_write_timeout_too_short",
			"write_timeout must be longer than proxy.timeout ("+proxy.String()+")")
	}

	return nil
}

var probePathRE = regexp.MustCompile(`^/\S*$`)

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return nil
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateMountPrefix(value interface{}) error {
	prefix, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if prefix == "" {
		return nil
	}

	if !strings.HasPrefix(prefix, "/") || prefix == "/" {
		return validation.NewError("validation_invalid_prefix", "must start with / and name a path")
	}

	if strings.HasPrefix(prefix, "/api") {
		return validation.NewError("validation_reserved_prefix", "must not shadow the /api mount")
	}

	return nil
}
