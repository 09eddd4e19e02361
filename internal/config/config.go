package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPathEnv = "CONFIG_FILE"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverJSON     = "json"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"HTTP_PORT"`
}

// DataConfig holds the flat-file dataset location.
type DataConfig struct {
	Dir string `yaml:"dir" env:"DATA_DIR"`
}

// DatabaseConfig selects and configures the relational backend.
// Driver "json" skips the relational probe entirely and runs on flat files.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER"`
	Path   string `yaml:"path" env:"DB_PATH"`
	DSN    string `yaml:"dsn" env:"DB_DSN"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
	TokenTTL  int    `yaml:"tokenTtlMinutes" env:"TOKEN_TTL_MINUTES"`
}

// RedisConfig configures the optional active-session store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	TTL      int    `yaml:"ttlSeconds" env:"REDIS_TTL"`
}

// Config defines StationSync configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Data     DataConfig     `yaml:"data"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
}

// Load reads configuration from the optional YAML file referenced by
// CONFIG_FILE and overrides values from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:     HTTPConfig{Port: "3000"},
		Data:     DataConfig{Dir: "data"},
		Database: DatabaseConfig{Driver: DriverSQLite},
		Auth:     AuthConfig{JWTSecret: "station-sync-secret", TokenTTL: 120},
		Redis:    RedisConfig{TTL: 7200},
	}

	if err := hydrate(cfg); err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverJSON:
	default:
		return nil, fmt.Errorf("config: unknown database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver == DriverPostgres && strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: postgres driver requires database dsn")
	}
	if strings.TrimSpace(cfg.Data.Dir) == "" {
		return nil, errors.New("config: data dir required")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// SQLitePath returns the relational file path, defaulting to the data dir.
func (c *Config) SQLitePath() string {
	if strings.TrimSpace(c.Database.Path) != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Data.Dir, "stationsync.sqlite")
}

// TokenTTLDuration returns the JWT lifetime.
func (c *Config) TokenTTLDuration() time.Duration {
	if c.Auth.TokenTTL <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTL) * time.Minute
}

// SessionTTL returns the redis session lifetime.
func (c *Config) SessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// hydrate fills the struct from the YAML file (when CONFIG_FILE is set) and
// then from environment variables declared via `env` struct tags.
func hydrate(target *Config) error {
	if path := os.Getenv(defaultConfigPathEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, target); err != nil {
			return fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	return populateFromEnv(reflect.ValueOf(target).Elem())
}

func populateFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fieldVal := v.Field(i)
		fieldType := t.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if fieldVal.Kind() == reflect.Struct {
			if err := populateFromEnv(fieldVal); err != nil {
				return err
			}
			continue
		}

		envKey := fieldType.Tag.Get("env")
		if envKey == "" || envKey == "-" {
			continue
		}

		if val, ok := os.LookupEnv(envKey); ok {
			if err := assign(fieldVal, val); err != nil {
				return fmt.Errorf("config: parse %s: %w", envKey, err)
			}
		}
	}
	return nil
}

func assign(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(parsed)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type().String())
	}
	return nil
}
