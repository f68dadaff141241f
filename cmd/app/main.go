package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/recall/internal"
	"github.com/starford/recall/internal/gateway"
	pkgconfig "github.com/starford/recall/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	creds := gateway.Credentials{Bearer: cmd.String("api-key")}
	if creds.Bearer == "" {
		creds.Bearer = cmd.String("session-token")
	}
	if creds.Bearer == "" {
		return errors.New("mcp: --api-key or --session-token is required")
	}

	return internal.RunMCP(ctx, creds, internal.WithConfig(cfg), internal.WithVersion(version))
}

func sessionToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tok, err := internal.MintSession(cfg, cmd.String("owner"))
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "recall",
		Usage:   "Personal notes with semantic search, exposed to AI assistants as tools",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (REST API, MCP over HTTP, SSE)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the note tools over MCP on stdio",
				Action: mcp,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "API key used for every tool call",
						Sources: cli.EnvVars("RECALL_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "session-token",
						Usage:   "Session token used when no API key is given",
						Sources: cli.EnvVars("RECALL_SESSION_TOKEN"),
					},
				},
			},
			{
				Name:   "session-token",
				Usage:  "Mint a development session token",
				Action: sessionToken,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Usage:    "Owner the token authenticates as",
						Required: true,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
