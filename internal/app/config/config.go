package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int
	LogLevel    string
	LogJSON     bool
	JWT         JWTConfig
	Redis       RedisConfig
	MinIO       MinIOConfig
	License     LicenseConfig
}

type JWTConfig struct {
	Token            string
	ExpiresIn        time.Duration
	RefreshExpiresIn time.Duration
	SigningMethod    jwt.SigningMethod
}

type RedisConfig struct {
	Host        string
	Password    string
	Port        int
	User        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LicenseConfig параметры подписи токенов активации.
// Signing: "hmac" (по умолчанию) или "ed25519".
type LicenseConfig struct {
	Secret            string
	Signing           string
	Ed25519PrivateKey string
}

const (
	SigningHMAC    = "hmac"
	SigningEd25519 = "ed25519"
)

const (
	envRedisHost = "REDIS_HOST"
	envRedisPort = "REDIS_PORT"
	envRedisUser = "REDIS_USER"
	envRedisPass = "REDIS_PASSWORD"

	envMinIOEndpoint  = "MINIO_ENDPOINT"
	envMinIOAccessKey = "MINIO_ACCESS_KEY"
	envMinIOSecretKey = "MINIO_SECRET_KEY"
	envMinIOBucket    = "MINIO_BUCKET"
	envMinIOUseSSL    = "MINIO_USE_SSL"

	envJWTSecret         = "JWT_SECRET"
	envLicenseSecret     = "LICENSE_SECRET"
	envLicenseSigning    = "LICENSE_SIGNING"
	envLicenseEd25519Key = "LICENSE_ED25519_PRIVATE_KEY"
)

const (
	defaultAccessTTL  = 8 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour
)

func NewConfig() (*Config, error) {
	var err error

	configName := "config"
	_ = godotenv.Load()
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("toml")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")

	viper.SetDefault("ServiceHost", "0.0.0.0")
	viper.SetDefault("ServicePort", 8080)
	viper.SetDefault("LogLevel", "info")
	viper.SetDefault("JWT.ExpiresIn", defaultAccessTTL)
	viper.SetDefault("JWT.RefreshExpiresIn", defaultRefreshTTL)
	viper.SetDefault("MinIO.Bucket", "updates")
	viper.SetDefault("License.Signing", SigningHMAC)

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warn("config file not found, using defaults and env")
	}

	cfg := &Config{}
	err = viper.Unmarshal(cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.loadEnv()
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	log.Info("config parsed")

	return cfg, nil
}

// loadEnv секреты и адреса внешних сервисов берутся только из окружения
func (c *Config) loadEnv() error {
	var err error

	c.JWT.SigningMethod = jwt.SigningMethodHS256
	if v := os.Getenv(envJWTSecret); v != "" {
		c.JWT.Token = v
	}

	c.Redis.Host = os.Getenv(envRedisHost)
	if port := os.Getenv(envRedisPort); port != "" {
		c.Redis.Port, err = strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("redis port must be int value: %w", err)
		}
	}
	c.Redis.Password = os.Getenv(envRedisPass)
	c.Redis.User = os.Getenv(envRedisUser)
	c.Redis.DialTimeout = 10 * time.Second
	c.Redis.ReadTimeout = 10 * time.Second

	if v := os.Getenv(envMinIOEndpoint); v != "" {
		c.MinIO.Endpoint = v
	}
	c.MinIO.AccessKey = os.Getenv(envMinIOAccessKey)
	c.MinIO.SecretKey = os.Getenv(envMinIOSecretKey)
	if v := os.Getenv(envMinIOBucket); v != "" {
		c.MinIO.Bucket = v
	}
	if v := os.Getenv(envMinIOUseSSL); v != "" {
		c.MinIO.UseSSL, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("minio use ssl must be bool value: %w", err)
		}
	}

	if v := os.Getenv(envLicenseSecret); v != "" {
		c.License.Secret = v
	}
	if v := os.Getenv(envLicenseSigning); v != "" {
		c.License.Signing = v
	}
	if v := os.Getenv(envLicenseEd25519Key); v != "" {
		c.License.Ed25519PrivateKey = v
	}

	return nil
}

// Validate проверяет, что без секретов сервис не стартует.
func (c *Config) Validate() error {
	if c.JWT.Token == "" {
		return errors.New("jwt secret is not set (JWT_SECRET)")
	}
	switch c.License.Signing {
	case SigningHMAC:
		if c.License.Secret == "" {
			return errors.New("license secret is not set (LICENSE_SECRET)")
		}
	case SigningEd25519:
		if c.License.Ed25519PrivateKey == "" {
			return errors.New("ed25519 private key is not set (LICENSE_ED25519_PRIVATE_KEY)")
		}
	default:
		return fmt.Errorf("unknown license signing %q", c.License.Signing)
	}
	if c.JWT.ExpiresIn <= 0 || c.JWT.RefreshExpiresIn <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// SetupLogger настраивает logrus по конфигу.
func (c *Config) SetupLogger() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
