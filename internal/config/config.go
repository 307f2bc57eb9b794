package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Google  GoogleOAuthConfig
	DB      DBConfig
	Redis   RedisConfig
	Session SessionConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type AppConfig struct {
	// BaseURL is the externally visible origin, used to build the OAuth
	// redirect URI. No trailing slash required.
	BaseURL string
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectPath string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	// Secret signs the session cookie token.
	Secret string
	TTL    time.Duration
}

// Load reads configuration from environment variables and an optional .env
// file (local dev convenience; harmless when absent).
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("GOOGLE_OAUTH_REDIRECT_PATH", "/oauth/callback")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("SESSION_TTL_MINUTES", 720)

	cfg := &Config{
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetString("SERVER_PORT"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		App: AppConfig{
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		Google: GoogleOAuthConfig{
			ClientID:     viper.GetString("GOOGLE_OAUTH_CLIENT_ID"),
			ClientSecret: viper.GetString("GOOGLE_OAUTH_CLIENT_SECRET"),
			RedirectPath: viper.GetString("GOOGLE_OAUTH_REDIRECT_PATH"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       0,
		},
		Session: SessionConfig{
			Secret: viper.GetString("SECRET_KEY"),
			TTL:    time.Duration(viper.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
		},
	}

	for name, val := range map[string]string{
		"SECRET_KEY":   cfg.Session.Secret,
		"APP_BASE_URL": cfg.App.BaseURL,
		"DB_HOST":      cfg.DB.Host,
		"DB_USER":      cfg.DB.User,
		"DB_NAME":      cfg.DB.Name,
	} {
		if val == "" {
			return nil, fmt.Errorf("missing required env var: %s", name)
		}
	}

	if !strings.HasPrefix(cfg.Google.RedirectPath, "/") {
		return nil, fmt.Errorf("redirect path must start with \"/\": %s", cfg.Google.RedirectPath)
	}

	return cfg, nil
}

// RedirectURI joins the base URL and the configured OAuth callback path.
func (c *Config) RedirectURI() string {
	return strings.TrimRight(c.App.BaseURL, "/") + c.Google.RedirectPath
}

// DSN builds the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Addr returns host:port for the redis client.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}
