package internal

import "github.com/starford/recall/internal/embedding"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	version  string
	embedder embedding.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithEmbedder overrides the embedding provider built from config.
func WithEmbedder(p embedding.Provider) Option {
	return func(a *application) {
		a.embedder = p
	}
}
