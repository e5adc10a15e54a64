package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds server configuration aggregated from env/config files.
type Config struct {
	App struct {
		Name    string
		Version string
	}
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
	}
	Media struct {
		Backend        string
		Dir            string
		MaxSize        int64
		CleanupWorkers int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Cache struct {
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		TTLSeconds    int
	}
}

// TokenTTL is the lifetime of issued bearer tokens.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables, an optional .env file
// and an optional config file in the working directory.
func Load() (Config, error) {
	// variables already set in the environment win over .env
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("POSTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "Postly API")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.addr", "0.0.0.0:8001")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/postly.db")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 30)
	v.SetDefault("media.backend", "local")
	v.SetDefault("media.dir", "uploads")
	v.SetDefault("media.maxsize", 10*1024*1024)
	v.SetDefault("media.cleanupworkers", 2)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "postly-media")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("cache.redisaddr", "")
	v.SetDefault("cache.redispassword", "")
	v.SetDefault("cache.redisdb", 0)
	v.SetDefault("cache.ttlseconds", 30)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database url is required for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Media.Backend {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for s3 media")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}
	return nil
}
