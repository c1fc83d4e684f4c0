package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Keys double as flag names; the environment form is upper snake case
// (store-driver -> STORE_DRIVER).
const (
	KeyPort              = "port"
	KeyStoreDriver       = "store-driver"
	KeyStoreKey          = "store-key"
	KeyStoreFile         = "store-file"
	KeyRedisURL          = "redis-url"
	KeyDatabaseURL       = "database-url"
	KeyAdminPassword     = "admin-password"
	KeyAdminPasswordHash = "admin-password-hash"
	KeyJWTSecret         = "jwt-secret"
	KeyAdminTokenTTL     = "admin-token-ttl"
	KeyLoginRateLimit    = "login-rate-limit"
	KeyStaticDir         = "static-dir"
	KeyMaxContentLength  = "max-content-length"
	KeyServiceName       = "service-name"
)

type Config struct {
	Port              string
	StoreDriver       string
	StoreKey          string
	StoreFile         string
	RedisURL          string
	DatabaseURL       string
	AdminPassword     string
	AdminPasswordHash string
	JWTSecret         string
	AdminTokenTTL     time.Duration
	LoginRateLimit    int
	StaticDir         string
	MaxContentLength  int
	ServiceName       string
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8082")
	v.SetDefault(KeyStoreDriver, DriverFile)
	v.SetDefault(KeyStoreKey, "posts")
	v.SetDefault(KeyStoreFile, "/tmp/forum-data.json")
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyAdminPassword, "qingfengmoyun")
	v.SetDefault(KeyAdminPasswordHash, "")
	v.SetDefault(KeyJWTSecret, "dev-secret-key-change-in-production")
	v.SetDefault(KeyAdminTokenTTL, 12*time.Hour)
	v.SetDefault(KeyLoginRateLimit, 10)
	v.SetDefault(KeyStaticDir, "")
	v.SetDefault(KeyMaxContentLength, 2000)
	v.SetDefault(KeyServiceName, "homepage")
}

// LoadDotEnv reads .env files if present. Real environment variables win.
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load resolves every key from flags, environment and defaults, then validates.
func Load(v *viper.Viper) (Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	cfg := Config{
		Port:              v.GetString(KeyPort),
		StoreDriver:       strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreDriver))),
		StoreKey:          v.GetString(KeyStoreKey),
		StoreFile:         v.GetString(KeyStoreFile),
		RedisURL:          v.GetString(KeyRedisURL),
		DatabaseURL:       v.GetString(KeyDatabaseURL),
		AdminPassword:     v.GetString(KeyAdminPassword),
		AdminPasswordHash: v.GetString(KeyAdminPasswordHash),
		JWTSecret:         v.GetString(KeyJWTSecret),
		AdminTokenTTL:     v.GetDuration(KeyAdminTokenTTL),
		LoginRateLimit:    v.GetInt(KeyLoginRateLimit),
		StaticDir:         v.GetString(KeyStaticDir),
		MaxContentLength:  v.GetInt(KeyMaxContentLength),
		ServiceName:       v.GetString(KeyServiceName),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverFile:
		if c.StoreFile == "" {
			return fmt.Errorf("%s driver needs STORE_FILE", c.StoreDriver)
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%s driver needs REDIS_URL", c.StoreDriver)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s driver needs DATABASE_URL", c.StoreDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.StoreDriver != DriverFile && c.StoreDriver != DriverMemory && c.StoreKey == "" {
		return fmt.Errorf("STORE_KEY is empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return fmt.Errorf("set ADMIN_PASSWORD or ADMIN_PASSWORD_HASH")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is empty")
	}
	return nil
}

func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}
