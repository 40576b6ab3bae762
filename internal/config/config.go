// Package config loads dbscope settings from dbscope.yaml, DBSCOPE_*
// environment variables and .env files.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/koustreak/dbscope/internal/filestore"
	"github.com/koustreak/dbscope/internal/logger"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DBSCOPE_DATABASE_DSN.
const EnvPrefix = "DBSCOPE"

type Config struct {
	Database  Database  `mapstructure:"database"`
	Log       Log       `mapstructure:"log"`
	Server    Server    `mapstructure:"server"`
	Snapshot  Snapshot  `mapstructure:"snapshot"`
	Filestore Filestore `mapstructure:"filestore"`

	// Locale selects display formats for CLI output.
	Locale string `mapstructure:"locale"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// DSNEnv names an environment variable holding the DSN when DSN is empty.
	DSNEnv string `mapstructure:"dsn_env"`

	DefaultSchema string   `mapstructure:"default_schema"`
	SearchPath    []string `mapstructure:"search_path"`
	User          string   `mapstructure:"user"`

	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	// TypeOverrides maps native type names to field kinds.
	TypeOverrides map[string]string `mapstructure:"type_overrides"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Snapshot struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

type Filestore struct {
	Provider  string `mapstructure:"provider"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Root      string `mapstructure:"root"`
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	pool := database.DefaultConfig("", "")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_env", "DATABASE_URL")
	v.SetDefault("database.default_schema", "")
	v.SetDefault("database.search_path", []string{})
	v.SetDefault("database.user", "")
	v.SetDefault("database.max_conns", pool.MaxConns)
	v.SetDefault("database.min_conns", pool.MinConns)
	v.SetDefault("database.connect_timeout", pool.ConnectTimeout)
	v.SetDefault("database.query_timeout", pool.QueryTimeout)
	v.SetDefault("database.type_overrides", map[string]string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("snapshot.bucket", "dbscope")
	v.SetDefault("snapshot.prefix", "snapshots")

	v.SetDefault("filestore.provider", string(filestore.ProviderLocal))
	v.SetDefault("filestore.endpoint", "")
	v.SetDefault("filestore.access_key", "")
	v.SetDefault("filestore.secret_key", "")
	v.SetDefault("filestore.use_ssl", false)
	v.SetDefault("filestore.region", "")
	v.SetDefault("filestore.root", ".dbscope")

	v.SetDefault("locale", "en-US")
}

// Load reads configuration. path names an explicit config file; when empty
// dbscope.yaml is looked up in the working directory and is optional.
// envFiles are loaded into the process environment first (default ".env");
// missing files are ignored and variables already set win.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read env file "+f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("dbscope")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "unmarshal config", err)
	}
	return &cfg, nil
}

// DatabaseDSN returns the configured DSN, falling back to the variable
// named by dsn_env.
func (c *Config) DatabaseDSN() (string, error) {
	if c.Database.DSN != "" {
		return c.Database.DSN, nil
	}
	if c.Database.DSNEnv != "" {
		if dsn := os.Getenv(c.Database.DSNEnv); dsn != "" {
			return dsn, nil
		}
	}
	return "", errs.Newf(errs.ErrKindInvalidInput,
		"no database DSN: set database.dsn or the %s environment variable", c.Database.DSNEnv)
}

// DatabaseConfig builds the connection settings for the configured driver.
func (c *Config) DatabaseConfig() (*database.Config, error) {
	driver, err := database.ParseDriver(c.Database.Driver)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "database.driver", err)
	}
	dsn, err := c.DatabaseDSN()
	if err != nil {
		return nil, err
	}

	cfg := database.DefaultConfig(driver, dsn)
	cfg.DefaultSchema = c.Database.DefaultSchema
	cfg.User = c.Database.User
	if c.Database.MaxConns > 0 {
		cfg.MaxConns = c.Database.MaxConns
	}
	if c.Database.MinConns > 0 {
		cfg.MinConns = c.Database.MinConns
	}
	if c.Database.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.Database.ConnectTimeout
	}
	if c.Database.QueryTimeout > 0 {
		cfg.QueryTimeout = c.Database.QueryTimeout
	}
	return cfg, nil
}

// LoggerConfig returns logger settings; output goes to stderr.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	if c.Log.Level != "" {
		lc.Level = c.Log.Level
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}

// FilestoreConfig returns the snapshot store settings.
func (c *Config) FilestoreConfig() *filestore.Config {
	return &filestore.Config{
		Provider:  filestore.Provider(strings.ToLower(c.Filestore.Provider)),
		Endpoint:  c.Filestore.Endpoint,
		AccessKey: c.Filestore.AccessKey,
		SecretKey: c.Filestore.SecretKey,
		UseSSL:    c.Filestore.UseSSL,
		Region:    c.Filestore.Region,
		Root:      c.Filestore.Root,
	}
}
