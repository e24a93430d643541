package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abusaleh34/secure-cas-commercial/internal/api"
	"github.com/abusaleh34/secure-cas-commercial/internal/audit"
	"github.com/abusaleh34/secure-cas-commercial/internal/challenge"
	"github.com/abusaleh34/secure-cas-commercial/internal/config"
	"github.com/abusaleh34/secure-cas-commercial/internal/core"
	"github.com/abusaleh34/secure-cas-commercial/internal/logging"
	"github.com/abusaleh34/secure-cas-commercial/internal/provision"
	"github.com/abusaleh34/secure-cas-commercial/internal/stats"
	"github.com/abusaleh34/secure-cas-commercial/internal/store"
	"github.com/abusaleh34/secure-cas-commercial/internal/tasks"
)

const (
	taskRuleRefresh   = "rule-refresh"
	taskInactiveSweep = "inactive-sweep"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the SecureCAS provisioning server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServeConfig()
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Listen
		}

		log.Info().Msg("Initializing stores...")
		identities, rules, closeStores, err := buildStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStores()

		auditor, err := buildAuditor(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = auditor.Close()
		}()

		challenges, err := buildChallengeStore(cfg)
		if err != nil {
			return err
		}
		sender := buildSender(cfg, challenges)

		ruleSet := provision.NewRuleSet(rules)
		if _, err := ruleSet.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("loading provisioning rules: %w", err)
		}

		engine := provision.NewEngine(identities, ruleSet, auditor, provision.Config{
			Disabled:              !cfg.JIT.Enabled,
			DefaultRoles:          cfg.JIT.DefaultRoles,
			SyncAttributesOnLogin: cfg.JIT.SyncAttributesOnLogin,
			EnabledSources:        cfg.EnabledSources(),
		})

		taskManager := tasks.NewManager(cmd.Context())
		defer taskManager.Stop()
		registerTasks(taskManager, cfg, engine, ruleSet)

		collector := stats.NewCollector(identities, rules)
		srv := api.NewServer(engine, identities, challenges, sender, collector, auditor, taskManager)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides server.listen)")
}

func loadServeConfig() (*config.Config, error) {
	if cfgFile == "" {
		log.Warn().Msg("no configuration file given, running with in-memory defaults")
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// buildStores returns the identity and rule stores per configuration. With
// the memory backend, rules come from the config file; with postgres, rules
// are administered in the database and the config's rules block seeds it
// only when the table is empty.
func buildStores(ctx context.Context, cfg *config.Config) (core.IdentityStore, core.RuleStore, func(), error) {
	switch cfg.Store.Type {
	case "postgres":
		pg, err := store.OpenPostgres(cfg.Store.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, nil, fmt.Errorf("migrating postgres store: %w", err)
		}
		if len(cfg.Rules) > 0 {
			existing, err := pg.ListAll(ctx)
			if err != nil {
				_ = pg.Close()
				return nil, nil, nil, fmt.Errorf("reading provisioning rules: %w", err)
			}
			if len(existing) == 0 {
				log.Info().Int("rules", len(cfg.Rules)).Msg("seeding rule table from config")
				if err := pg.SeedRules(ctx, cfg.Rules); err != nil {
					_ = pg.Close()
					return nil, nil, nil, fmt.Errorf("seeding provisioning rules: %w", err)
				}
			}
		}
		return pg, pg, func() { _ = pg.Close() }, nil
	default:
		return store.NewMemoryIdentityStore(), store.NewMemoryRuleStore(cfg.Rules), func() {}, nil
	}
}

func buildAuditor(cfg *config.Config) (core.Auditor, error) {
	if !cfg.Audit.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Audit.Type {
	case "file":
		return audit.NewFileAuditor(cfg.Audit.Path)
	default:
		return audit.NewInMemoryAuditor(), nil
	}
}

func buildChallengeStore(cfg *config.Config) (challenge.Store, error) {
	switch cfg.Challenge.Type {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Challenge.Redis.Addr,
			Password: cfg.Challenge.Redis.Password,
			DB:       cfg.Challenge.Redis.DB,
		})
		return challenge.NewRedisStore(client, cfg.MFA.OTPLength, cfg.MFA.Validity()), nil
	default:
		return challenge.NewMemoryStore(cfg.MFA.OTPLength, cfg.MFA.Validity()), nil
	}
}

func buildSender(cfg *config.Config, challenges challenge.Store) *challenge.Sender {
	transport := challenge.NewLogTransport(logging.NewZLogger(log.With().Str("component", "challenge-transport").Logger()))

	var sms core.SMSSender
	if cfg.MFA.SMSEnabled {
		sms = transport
	}
	var email core.EmailSender
	if cfg.MFA.EmailEnabled {
		email = transport
	}
	return challenge.NewSender(challenges, sms, email, cfg.MFA.Validity())
}

func registerTasks(manager *tasks.Manager, cfg *config.Config, engine *provision.Engine, ruleSet *provision.RuleSet) {
	manager.Register(taskRuleRefresh, cfg.JIT.RuleRefreshInterval,
		func(ctx context.Context, logger logging.InternalLogger) error {
			snap, err := ruleSet.Refresh(ctx)
			if err != nil {
				return err
			}
			logger.Info("rule snapshot refreshed at %s", snap.LoadedAt().Format(time.RFC3339))
			return nil
		})

	var sweepInterval time.Duration
	if cfg.JIT.AutoDeactivate {
		sweepInterval = 24 * time.Hour
	}
	manager.Register(taskInactiveSweep, sweepInterval,
		func(ctx context.Context, logger logging.InternalLogger) error {
			n, err := engine.DeactivateInactive(ctx, cfg.JIT.InactiveDays)
			if err != nil {
				return err
			}
			logger.Info("deactivated %d identities inactive for more than %d days", n, cfg.JIT.InactiveDays)
			return nil
		})
}
