package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix      = "CLICKER_"
	configPathEnv  = "CLICKER_CONFIG"
	envFileEnv     = "CLICKER_ENV_FILE"
	defaultEnvFile = ".env"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type ServerConfig struct {
	Env     string        `koanf:"env"` // local, dev, prod
	Address string        `koanf:"address"`
	Timeout time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	Driver          string        `koanf:"driver"`
	FileDir         string        `koanf:"file_dir"`
	PostgresConn    string        `koanf:"postgres_conn"`
	MongoURI        string        `koanf:"mongo_uri"`
	MongoDatabase   string        `koanf:"mongo_database"`
	MongoCollection string        `koanf:"mongo_collection"`
	RedisAddr       string        `koanf:"redis_addr"`
	RedisPassword   string        `koanf:"redis_password"`
	RedisDB         int           `koanf:"redis_db"`
	RedisPrefix     string        `koanf:"redis_prefix"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

type AuthConfig struct {
	BotToken  string        `koanf:"bot_token"`
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Required  bool          `koanf:"required"`
}

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Auth    AuthConfig    `koanf:"auth"`
}

func New() *Config {
	return &Config{
		Server: ServerConfig{
			Env:     "local",
			Address: ":3000",
			Timeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:          DriverMemory,
			FileDir:         "data/players",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "tg_clicker",
			MongoCollection: "players",
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "clicker:",
			ConnectTimeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
	}
}

func MustLoad() *Config {
	cfg, err := Load(context.Background())
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load layers defaults, an optional .env file, an optional YAML file named by CLICKER_CONFIG
// and CLICKER_* environment variables, later layers winning.
func Load(_ context.Context) (*Config, error) {
	const op = "config.Load"

	envFile := os.Getenv(envFileEnv)
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(configPathEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// CLICKER_STORAGE_POSTGRES_CONN -> storage.postgres_conn
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if s == "config" || s == "env_file" {
			return ""
		}
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("%w: server.address must not be empty", ErrInvalidConfig)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("%w: server.timeout must be positive", ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverFile:
		if c.Storage.FileDir == "" {
			return fmt.Errorf("%w: storage.file_dir is required for the file driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Storage.PostgresConn == "" {
			return fmt.Errorf("%w: storage.postgres_conn is required for the postgres driver", ErrInvalidConfig)
		}
	case DriverMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" || c.Storage.MongoCollection == "" {
			return fmt.Errorf("%w: storage.mongo_uri, mongo_database and mongo_collection are required for the mongo driver", ErrInvalidConfig)
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("%w: storage.redis_addr is required for the redis driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Auth.BotToken != "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret is required when auth.bot_token is set", ErrInvalidConfig)
	}
	if c.Auth.Required && c.Auth.BotToken == "" {
		return fmt.Errorf("%w: auth.required needs auth.bot_token", ErrInvalidConfig)
	}

	return nil
}
