// Package config loads the process configuration.
//
// PRECEDENCE (highest first):
//
//	command-line flags      → passed to Load as Overrides
//	WEATHERLY_* env vars    → WEATHERLY_WEATHER_API_KEY for weather.api_key
//	.env file               → loaded into the environment first, never
//	                          overriding variables that are already set
//	config file             → weatherly.yaml/.toml/.json in the working
//	                          directory, or the file named by --config
//	defaults                → Defaults() below
//
// The weather API key has no default. It must come from one of the sources
// above and is never compiled into the binary.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "WEATHERLY"

type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	Server  ServerConfig  `mapstructure:"server"`
	Weather WeatherConfig `mapstructure:"weather"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

type DBConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type ServerConfig struct {
	// Addr should stay on loopback; the UI has no transport security.
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

type WeatherConfig struct {
	APIKey  string        `mapstructure:"api_key"  validate:"required"`
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gt=0"`
}

type AuthConfig struct {
	PasswordScheme string `mapstructure:"password_scheme" validate:"oneof=sha256 bcrypt"`
	BcryptCost     int    `mapstructure:"bcrypt_cost"     validate:"gte=4,lte=31"`
	AdminUsername  string `mapstructure:"admin_username"  validate:"required"`
	AdminPassword  string `mapstructure:"admin_password"  validate:"required"`
	// SessionSecret signs the UI session cookie. Empty means a random secret
	// per process, so cookies never survive a restart.
	SessionSecret string `mapstructure:"session_secret" validate:"omitempty,min=16"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Defaults returns every key's default value, keyed the way config files
// and Overrides name them.
func Defaults() map[string]any {
	return map[string]any{
		"db.path":              "weatherly.db",
		"server.addr":          "127.0.0.1:8765",
		"weather.api_key":      "",
		"weather.base_url":     "https://api.openweathermap.org/data/2.5",
		"weather.timeout":      10 * time.Second,
		"auth.password_scheme": "sha256",
		"auth.bcrypt_cost":     12,
		"auth.admin_username":  "admin",
		"auth.admin_password":  "admin123",
		"auth.session_secret":  "",
		"log.level":            "info",
	}
}

// Options control where Load looks.
type Options struct {
	// ConfigFile is an explicit config file. Empty searches the working
	// directory for weatherly.{yaml,toml,json} and is fine when none exists.
	ConfigFile string
	// DotEnvFile defaults to ".env". A missing file is not an error.
	DotEnvFile string
	// Overrides win over every other source. Keys are dotted ("db.path").
	Overrides map[string]any
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, merges and validates the configuration.
func Load(opts Options) (*Config, error) {
	dotenv := opts.DotEnvFile
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading %s: %w", dotenv, err)
	}

	v := viper.New()
	for key, val := range Defaults() {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("weatherly")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading config file: %w", err)
			}
		}
	}

	for key, val := range opts.Overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	cfg.Auth.PasswordScheme = strings.ToLower(strings.TrimSpace(cfg.Auth.PasswordScheme))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", describe(err))
	}
	return &cfg, nil
}

// describe rewrites validator output into one line per bad key, named the
// way the user sets it.
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", keyFor(fe.Namespace()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

var fieldKeys = map[string]string{
	"Config.DB.Path":             "db.path",
	"Config.Server.Addr":         "server.addr",
	"Config.Weather.APIKey":      "weather.api_key",
	"Config.Weather.BaseURL":     "weather.base_url",
	"Config.Weather.Timeout":     "weather.timeout",
	"Config.Auth.PasswordScheme": "auth.password_scheme",
	"Config.Auth.BcryptCost":     "auth.bcrypt_cost",
	"Config.Auth.AdminUsername":  "auth.admin_username",
	"Config.Auth.AdminPassword":  "auth.admin_password",
	"Config.Auth.SessionSecret":  "auth.session_secret",
	"Config.Log.Level":           "log.level",
}

func keyFor(namespace string) string {
	if k, ok := fieldKeys[namespace]; ok {
		return k
	}
	return namespace
}

// SlogLevel converts log.level for slog.HandlerOptions.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
