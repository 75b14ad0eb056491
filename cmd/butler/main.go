package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mail-butler/internal/cache"
	"github.com/brandon/mail-butler/internal/compose"
	"github.com/brandon/mail-butler/internal/config"
	"github.com/brandon/mail-butler/internal/credential"
	"github.com/brandon/mail-butler/internal/email"
	"github.com/brandon/mail-butler/internal/gmail"
	"github.com/brandon/mail-butler/internal/llm"
	"github.com/brandon/mail-butler/internal/mcp"
	"github.com/brandon/mail-butler/internal/metrics"
	"github.com/brandon/mail-butler/internal/state"
	"github.com/brandon/mail-butler/internal/tools"
	"github.com/brandon/mail-butler/internal/triage"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	mode        = flag.String("mode", "watch", "watch, once, compose or mcp")
	storeSecret = flag.String("store-secret", "", "Read a secret from stdin and save it in the OS keyring under this key")
)

// provider is what both mailbox backends offer
type provider interface {
	triage.Mailbox
	compose.Sender
	Validate(ctx context.Context) error
	Address() string
	Close() error
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mail-butler version %s\n", version)
		os.Exit(0)
	}

	// stdout carries the MCP protocol, so logs go to stderr
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	if *storeSecret != "" {
		if err := saveSecret(*storeSecret); err != nil {
			logger.WithError(err).Fatal("Failed to store secret")
		}
		logger.WithField("key", *storeSecret).Info("Secret stored in keyring")
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("mail-butler stopped")
	}
	logger.Info("Shutting down")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"mode":     *mode,
		"provider": cfg.Provider,
		"version":  version,
	}).Info("Starting mail-butler")

	db, err := cache.NewCache(cfg.CachePath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer db.Close()
	journal := cache.NewStore(db, logger)

	mailbox, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer mailbox.Close()

	if err := mailbox.Validate(ctx); err != nil {
		if email.IsAuthError(err) {
			return fmt.Errorf("mailbox rejected credentials: %w", err)
		}
		return fmt.Errorf("mailbox unreachable: %w", err)
	}
	logger.WithField("address", mailbox.Address()).Info("Mailbox connected")

	client, err := llm.New(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		return err
	}
	butler := llm.NewButler(client, cfg.LLM.Model, logger)
	policy := triage.NewPolicy(cfg.AutoSendEmails, cfg.AutoSendDomains)

	switch *mode {
	case "compose":
		return compose.NewSession(butler, mailbox, os.Stdout, logger).Run(ctx)

	case "mcp":
		registry := tools.NewRegistry(tools.Deps{
			Policy:   policy,
			Journal:  journal,
			Composer: butler,
			Sender:   mailbox,
		}, logger)
		return mcp.NewServer(registry, version, logger).Run(ctx, os.Stdin, os.Stdout)

	case "watch", "once":
	default:
		return fmt.Errorf("unknown mode %q", *mode)
	}

	store, closeStore, err := newStateStore(ctx, cfg, journal)
	if err != nil {
		return err
	}
	defer closeStore()

	tracker := state.NewTracker(store)
	if err := tracker.Load(ctx); err != nil {
		return fmt.Errorf("failed to load processed set: %w", err)
	}

	addresses, domains := policy.Size()
	logger.WithFields(logrus.Fields{
		"processed":        tracker.Len(),
		"auto_send_emails": addresses,
		"auto_send_domain": domains,
	}).Info("Triage state loaded")

	o := triage.New(triage.Options{
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
	}, mailbox, butler, tracker, policy, logger).WithJournal(journal)

	if *mode == "once" {
		stats, err := o.RunCycle(ctx)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"candidates": stats.Candidates,
			"drafted":    stats.Drafted,
			"sent":       stats.Sent,
			"failed":     stats.Failed,
		}).Info("Cycle finished")
		return nil
	}

	if cfg.MetricsAddr != "" {
		router := metrics.NewRouter(logger, func() any { return o.Status() })
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, router, logger); err != nil {
				logger.WithError(err).Error("Ops server stopped")
			}
		}()
	}

	return o.Run(ctx)
}

func saveSecret(key string) error {
	if err := credential.ValidKey(key); err != nil {
		return err
	}
	secret, err := credential.ReadSecret(os.Stdin)
	if err != nil {
		return err
	}
	return credential.Set(key, secret)
}

func newProvider(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (provider, error) {
	if cfg.Provider == config.ProviderGmail {
		c, err := gmail.NewClient(ctx, &cfg.Gmail, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gmail client: %w", err)
		}
		return c, nil
	}
	return email.NewMailbox(cfg, logger), nil
}

func newStateStore(ctx context.Context, cfg *config.Config, sqlite state.Store) (state.Store, func(), error) {
	switch cfg.StateBackend {
	case config.BackendFile:
		return state.NewFileStore(cfg.StatePath), func() {}, nil
	case config.BackendRedis:
		r, err := state.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return sqlite, func() {}, nil
	}
}
