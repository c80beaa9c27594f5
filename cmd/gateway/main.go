// Package main is the entry point for the interactions gateway.
//
// The gateway terminates the platform's interaction webhook: it verifies the
// Ed25519 signature on every delivery, classifies the payload, routes it to
// a registered command, button or menu handler, and writes the handler's
// response back on the same HTTP exchange. PostgreSQL (audit log) and Redis
// (replay guard) are optional; the gateway serves interactions without them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hookline/interactions-gateway/config"
	"github.com/hookline/interactions-gateway/internal/application/dispatch"
	"github.com/hookline/interactions-gateway/internal/application/eventhandler"
	"github.com/hookline/interactions-gateway/internal/domain/interaction"
	"github.com/hookline/interactions-gateway/internal/infrastructure/external/directory"
	"github.com/hookline/interactions-gateway/internal/infrastructure/messaging"
	"github.com/hookline/interactions-gateway/internal/infrastructure/persistence/postgres"
	"github.com/hookline/interactions-gateway/internal/infrastructure/persistence/redis"
	"github.com/hookline/interactions-gateway/internal/infrastructure/security"
	httpserver "github.com/hookline/interactions-gateway/internal/interface/http"
	"github.com/hookline/interactions-gateway/pkg/circuitbreaker"
	"github.com/hookline/interactions-gateway/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Load .env if present. Real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	httpLog := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting interactions gateway",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. SIGNATURE VERIFIER
	// ─────────────────────────────────────────────────────────────────────────
	verifier, err := security.NewVerifier(cfg.Discord.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to build signature verifier: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. AUDIT LOG (optional, PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	var healthCheckers []httpserver.HealthChecker

	if cfg.DatabaseEnabled() {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		log.Info("running database migrations...")
		if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		auditRepo := postgres.NewAuditRepository(dbConn)
		auditBreaker := circuitbreaker.DatabaseBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		})
		auditHandler := eventhandler.NewOnDispatchCompletedHandler(
			&auditSinkAdapter{repo: auditRepo, breaker: auditBreaker}, log)
		if err := auditHandler.Register(eventBus); err != nil {
			return fmt.Errorf("failed to register audit handler: %w", err)
		}

		healthCheckers = append(healthCheckers, namedChecker{
			name:  "postgres",
			check: dbConn.Ping,
		})
		log.Info("audit log enabled")
	} else {
		log.Info("audit log disabled, no database configured")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPLAY GUARD (optional, Redis)
	// ─────────────────────────────────────────────────────────────────────────
	var replayGuard *redis.ReplayGuard

	if cfg.RedisEnabled() {
		log.Info("connecting to Redis...")
		guardCfg := redis.DefaultConfig()
		guardCfg.Host = cfg.Redis.Host
		guardCfg.Port = cfg.Redis.Port
		guardCfg.Password = cfg.Redis.Password
		guardCfg.DB = cfg.Redis.DB
		guardCfg.PoolSize = cfg.Redis.PoolSize
		guardCfg.MinIdleConns = cfg.Redis.MinIdleConns
		guardCfg.DialTimeout = cfg.Redis.DialTimeout
		guardCfg.ReadTimeout = cfg.Redis.ReadTimeout
		guardCfg.WriteTimeout = cfg.Redis.WriteTimeout
		guardCfg.Window = cfg.Redis.ReplayWindow

		replayGuard, err = redis.NewReplayGuard(guardCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, replay guard disabled", "error", err)
		} else {
			defer replayGuard.Close()
			healthCheckers = append(healthCheckers, namedChecker{
				name:  "redis",
				check: replayGuard.Ping,
			})
			log.Info("replay guard enabled", "window", cfg.Redis.ReplayWindow.String())
		}
	} else {
		log.Info("replay guard disabled, no Redis configured")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REGISTRY AND HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	registry := dispatch.NewRegistry(httpLog)
	registerHandlers(registry, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. DISPATCHER
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := dispatch.NewDispatcher(verifier, registry, httpLog).
		WithObserver(messaging.NewBusObserver(eventBus, log))
	if replayGuard != nil {
		dispatcher.WithReplayGuard(replayGuard)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. DIRECTORY SERVICE (bot identity + command registration)
	// ─────────────────────────────────────────────────────────────────────────
	botTag := ""
	applicationID := cfg.Discord.ApplicationID

	if cfg.Discord.Token != "" {
		dirConfig := directory.DefaultClientConfig(cfg.Discord.Token)
		dirConfig.APIVersion = cfg.Discord.APIVersion
		dirConfig.Timeout = cfg.Discord.RequestTimeout
		dirConfig.Logger = log
		dirConfig.Debug = cfg.App.Debug
		dirClient := directory.NewClient(dirConfig)

		bot, err := dirClient.Me(ctx)
		if err != nil {
			return fmt.Errorf("failed to validate bot token: %w", err)
		}
		botTag = bot.Tag()
		if applicationID == "" {
			applicationID = bot.ID
		}
		log.Info("bot token validated", "bot", botTag, "application_id", applicationID)

		if !cfg.Discord.SkipRegistration {
			if err := registerCommands(ctx, dirClient, applicationID, cfg.Discord.GuildIDs, log); err != nil {
				return fmt.Errorf("failed to register commands: %w", err)
			}
		}
	} else {
		log.Warn("no bot token configured, skipping identity check and command registration")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. STARTUP LIFECYCLE EVENT
	// ─────────────────────────────────────────────────────────────────────────
	if err := registry.FireLifecycle(ctx, interaction.EventStartup, nil); err != nil {
		return fmt.Errorf("startup lifecycle handler failed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.IdleTimeout = cfg.Server.IdleTimeout
	serverCfg.MaxBodyBytes = cfg.Server.MaxBodyBytes
	serverCfg.RateLimitPerMinute = cfg.Server.RateLimitPerMinute

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		Dispatcher:     dispatcher,
		Logger:         httpLog,
		HealthCheckers: healthCheckers,
		BotTag:         botTag,
		Version:        cfg.App.Version,
	})

	errCh := server.StartAsync()
	log.Info("gateway is listening for interactions", "address", server.Address())

	_ = eventBus.Publish(&messaging.GatewayStartedEvent{
		Address: server.Address(),
		At:      time.Now().UTC(),
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 12. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}

	log.Info("gateway stopped")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// registerHandlers binds the gateway's built-in handlers. Real bots replace
// these with their own commands, buttons and menus.
func registerHandlers(registry *dispatch.Registry, log *slog.Logger) {
	registry.RegisterCommand("ping", func(ctx context.Context, in *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		return interaction.Message("Pong!"), nil
	})

	registry.RegisterCommand("echo", func(ctx context.Context, in *interaction.Interaction, opts []interaction.CommandOption) (*interaction.Response, error) {
		parts := make([]string, 0, len(opts))
		for _, opt := range opts {
			parts = append(parts, opt.StringValue())
		}
		if len(parts) == 0 {
			return interaction.Ephemeral("Nothing to echo."), nil
		}
		return interaction.Message(strings.Join(parts, " ")), nil
	})

	registry.RegisterButton("confirm", func(ctx context.Context, in *interaction.Interaction) (*interaction.Response, error) {
		return interaction.Ephemeral("Confirmed."), nil
	})

	registry.RegisterMenu("color_picker", func(ctx context.Context, in *interaction.Interaction, values []string) (*interaction.Response, error) {
		if len(values) == 0 {
			return interaction.Ephemeral("No color selected."), nil
		}
		return interaction.Ephemeral("You picked: " + strings.Join(values, ", ")), nil
	})

	registry.RegisterLifecycleHandler(interaction.EventStartup, func(ctx context.Context, _ *interaction.Interaction) error {
		log.Info("startup lifecycle event fired")
		return nil
	})

	registry.RegisterLifecycleHandler(interaction.EventInteractionReceive, func(ctx context.Context, in *interaction.Interaction) error {
		log.Debug("interaction received",
			"interaction_id", in.ID(),
			"kind", in.Kind().String(),
		)
		return nil
	})
}

// commandDefinitions returns the registration payloads for the built-in
// commands.
func commandDefinitions() []directory.CommandDefinition {
	return []directory.CommandDefinition{
		{
			Name:              "ping",
			Description:       "Check that the gateway is alive.",
			DMPermission:      true,
			DefaultPermission: true,
		},
		{
			Name:              "echo",
			Description:       "Echo the provided text back.",
			DMPermission:      true,
			DefaultPermission: true,
			Options: []directory.CommandOptionDefinition{
				{
					Type:        directory.OptionString,
					Name:        "text",
					Description: "Text to echo back.",
					Required:    true,
				},
			},
		},
	}
}

// registerCommands upserts the built-in commands, per guild when guild ids
// are configured and globally otherwise.
func registerCommands(ctx context.Context, client *directory.Client, applicationID string, guildIDs []string, log *slog.Logger) error {
	for _, cmd := range commandDefinitions() {
		if len(guildIDs) > 0 {
			for _, guildID := range guildIDs {
				if _, err := client.RegisterGuildCommand(ctx, applicationID, guildID, cmd); err != nil {
					return err
				}
				log.Info("registered guild command", "command", cmd.Name, "guild_id", guildID)
			}
			continue
		}

		if _, err := client.RegisterGlobalCommand(ctx, applicationID, cmd); err != nil {
			return err
		}
		log.Info("registered global command", "command", cmd.Name)
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS AND HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// auditSinkAdapter bridges the eventhandler's sink contract onto the
// PostgreSQL repository. Writes go through a circuit breaker so a dead
// database cannot pile up blocked audit writes.
type auditSinkAdapter struct {
	repo    *postgres.AuditRepository
	breaker *circuitbreaker.CircuitBreaker
}

func (a *auditSinkAdapter) Record(ctx context.Context, rec eventhandler.DispatchRecord) error {
	return a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.insert(ctx, rec)
	})
}

func (a *auditSinkAdapter) insert(ctx context.Context, rec eventhandler.DispatchRecord) error {
	return a.repo.Insert(ctx, postgres.AuditRecord{
		InteractionID: rec.InteractionID,
		Kind:          rec.Kind,
		Handled:       rec.Handled,
		Status:        rec.Status,
		CommandName:   rec.CommandName,
		CustomID:      rec.CustomID,
		GuildID:       rec.GuildID,
		Duration:      rec.Duration,
		Error:         rec.Error,
		OccurredAt:    rec.OccurredAt,
	})
}

// namedChecker adapts a ping function to the server's health contract.
type namedChecker struct {
	name  string
	check func(ctx context.Context) error
}

func (c namedChecker) Name() string { return c.name }

func (c namedChecker) Check(ctx context.Context) error { return c.check(ctx) }

// setupLogger builds the process-wide slog logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
