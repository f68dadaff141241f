package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recall/internal/embedding"
	"github.com/starford/recall/internal/noteservice"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Search    SearchConfig      `yaml:"search"`
	Import    ImportConfig      `yaml:"import"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.SQLite, &c.Auth, &c.Embedding, &c.Search, &c.Import} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds session and API key settings.
//
// SessionSecret signs session tokens and must be at least 32 bytes.
// KeyRatePerMinute caps requests per API key; zero disables the limit.
type AuthConfig struct {
	SessionSecret    string        `yaml:"session_secret"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	CookieName       string        `yaml:"cookie_name"`
	KeyRatePerMinute int           `yaml:"key_rate_per_minute"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.SessionSecret, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.KeyRatePerMinute, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	embedding.Config `yaml:",inline"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In("openai", "local")),
		validation.Field(&c.Dimensions, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetries, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if c.Provider == "local" && c.Dimensions == 0 {
		return fmt.Errorf("embedding: local provider needs dimensions")
	}
	return nil
}

// SearchConfig holds the default similarity threshold and result count.
type SearchConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
	MatchCount     int     `yaml:"match_count"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MatchThreshold, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&c.MatchCount, validation.Required, validation.Min(1), validation.Max(noteservice.MaxMatchCount)),
	); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return nil
}

// ImportConfig controls the Markdown inbox importer.
type ImportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Owner   string `yaml:"owner"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Owner, validation.Required),
	); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
// SessionSecret has no default and must come from the config file or env.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./recall.db",
		},
		Auth: AuthConfig{
			SessionTTL:       24 * time.Hour,
			CookieName:       "recall_session",
			KeyRatePerMinute: 120,
		},
		Embedding: EmbeddingConfig{embedding.Config{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		}},
		Search: SearchConfig{
			MatchThreshold: 0.3,
			MatchCount:     5,
		},
		Import: ImportConfig{
			Dir: "./inbox",
		},
	}
}
