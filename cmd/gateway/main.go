// Command gateway runs the Conversation Gateway: the HTTP/SSE entry
// point that authenticates a teacher's request, rate-limits it, invokes
// the Native Agent Runtime, and streams the result back.
//
// Usage:
//
//	gateway serve
//	gateway serve --port 9090
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/classroomai/gateway/pkg/agentruntime"
	"github.com/classroomai/gateway/pkg/artifact"
	"github.com/classroomai/gateway/pkg/auth"
	"github.com/classroomai/gateway/pkg/config"
	"github.com/classroomai/gateway/pkg/convo"
	"github.com/classroomai/gateway/pkg/external"
	"github.com/classroomai/gateway/pkg/gateway"
	"github.com/classroomai/gateway/pkg/logger"
	"github.com/classroomai/gateway/pkg/model"
	"github.com/classroomai/gateway/pkg/observability"
	"github.com/classroomai/gateway/pkg/ratelimit"
	"github.com/classroomai/gateway/pkg/tools"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve ServeCmd `cmd:"" default:"1" help:"Start the conversation gateway."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose, or custom)." default:"simple"`
}

// ServeCmd starts the HTTP/SSE server.
type ServeCmd struct {
	Port int `help:"Override SERVICE_PORT from the environment."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return fmt.Errorf("gateway: parse log level: %w", err)
	}
	logger.Init(level, os.Stderr, cli.LogFormat)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("gateway: load config: %w", err)
	}
	if c.Port != 0 {
		cfg.ServicePort = c.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := buildProvider(cfg)
	var modelAware func(string) int
	if _, ok := provider.CountTokens(""); ok {
		modelAware = func(s string) int {
			n, _ := provider.CountTokens(s)
			return n
		}
	}
	tokenCounter := convo.NewTokenCounter(modelAware)

	conversations := buildConversationStore(cfg)
	artifacts := artifact.NewMemoryStore()

	registry := tools.NewRegistry()
	tools.RegisterCatalogue(registry, &tools.Deps{
		Data:      external.NewHTTPDataClient(cfg.ExternalDataBaseURL, cfg.ExternalDataTimeout),
		Artifacts: artifacts,
	})

	summarizer := convo.NewSummarizer(summarizeFunc(provider), tokenCounter, "", 0)

	budgets := agentruntime.DefaultBudgets()
	budgets.MaxToolCalls = cfg.MaxToolCalls
	budgets.MaxTurnDuration = cfg.MaxTurnDuration
	budgets.PerToolTimeout = cfg.PerToolTimeout
	budgets.HeartbeatInterval = cfg.HeartbeatInterval

	runtime := agentruntime.NewRuntime(provider, registry, conversations, artifacts, summarizer, tokenCounter, budgets)

	var validator *auth.JWTValidator
	if cfg.JWKSURL != "" {
		validator, err = auth.NewJWTValidator(auth.Config{
			JWKSURL:  cfg.JWKSURL,
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		})
		if err != nil {
			return fmt.Errorf("gateway: init auth: %w", err)
		}
		slog.Info("gateway: authentication enabled")
	} else {
		slog.Warn("gateway: AUTH_JWKS_URL not set, running without authentication (dev only)")
	}

	limiter, err := buildRateLimiter(cfg)
	if err != nil {
		return fmt.Errorf("gateway: init rate limiter: %w", err)
	}

	obsCfg := &observability.Config{
		Tracing: observability.TracingConfig{
			Enabled:  cfg.TracingEnabled,
			Exporter: "otlp",
			Endpoint: cfg.TracingEndpoint,
		},
		Metrics: observability.MetricsConfig{
			Enabled: cfg.MetricsEnabled,
		},
	}
	obsManager, err := observability.NewManager(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("gateway: init observability: %w", err)
	}
	defer obsManager.Shutdown(context.Background())

	srv := gateway.New(gateway.Options{
		Addr:          fmt.Sprintf(":%d", cfg.ServicePort),
		Runtime:       runtime,
		Auth:          validator,
		RateLimiter:   limiter,
		Observability: obsManager,
		CORSOrigins:   cfg.CORSOrigins,
	})

	slog.Info("gateway: starting", "port", cfg.ServicePort, "model_provider", cfg.ModelProvider, "conversation_store", cfg.ConversationStoreType)
	return srv.Start(ctx)
}

func buildProvider(cfg *config.Config) model.Provider {
	return model.NewOpenAIProvider(model.OpenAIConfig{
		Name:   cfg.ModelProvider + ":" + cfg.DefaultModel,
		APIKey: cfg.APIKey,
		Model:  cfg.DefaultModel,
	})
}

// buildRateLimiter opens a shared SQL pool when RATE_LIMIT_STORE_TYPE=sql
// so usage counters are consistent across every gateway instance; the
// driver actually loaded depends on RATE_LIMIT_DIALECT.
func buildRateLimiter(cfg *config.Config) (ratelimit.RateLimiter, error) {
	if cfg.RateLimitStoreType != "sql" {
		return ratelimit.NewMemoryRateLimiter(ratelimit.DefaultLimits())
	}

	driverName := map[string]string{
		"postgres": "postgres",
		"mysql":    "mysql",
		"sqlite":   "sqlite3",
	}[cfg.RateLimitDialect]

	db, err := sql.Open(driverName, cfg.RateLimitDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.RateLimitDialect, err)
	}
	return ratelimit.NewSQLRateLimiter(db, cfg.RateLimitDialect, ratelimit.DefaultLimits())
}

func buildConversationStore(cfg *config.Config) convo.Store {
	switch cfg.ConversationStoreType {
	case "redis":
		return convo.NewRedisStore(convo.RedisStoreConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return convo.NewMemoryStore()
	}
}

// summarizeFunc adapts a model.Provider into a convo.SummarizeFunc by
// driving one non-tool completion to exhaustion and concatenating its
// text deltas.
func summarizeFunc(provider model.Provider) convo.SummarizeFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		events, err := provider.RunStream(ctx, []model.Message{{Role: "user", Content: prompt}}, nil, model.Settings{MaxTokens: 1024})
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for ev := range events {
			switch ev.Kind {
			case model.EventTextDelta:
				b.WriteString(ev.Delta)
			case model.EventProviderError:
				return "", ev.Err
			}
		}
		return b.String(), nil
	}
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("gateway"),
		kong.Description("Conversation Gateway for the educational platform"),
		kong.UsageOnError(),
	)

	start := time.Now()
	err := kctx.Run(&cli)
	if err != nil {
		slog.Error("gateway: exited with error", "error", err, "uptime", time.Since(start))
		os.Exit(1)
	}
}
