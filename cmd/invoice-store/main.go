// Command invoice-store serves the invoice store HTTP API over SQLite or PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/application/service"
	"github.com/garyjia/invoice-manager/internal/config"
	"github.com/garyjia/invoice-manager/internal/email"
	"github.com/garyjia/invoice-manager/internal/infrastructure/external/lark"
	"github.com/garyjia/invoice-manager/internal/infrastructure/external/slack"
	"github.com/garyjia/invoice-manager/internal/infrastructure/persistence/repository"
	httpserver "github.com/garyjia/invoice-manager/internal/interfaces/http"
	"github.com/garyjia/invoice-manager/internal/render"
	"github.com/garyjia/invoice-manager/pkg/database"
	"github.com/garyjia/invoice-manager/pkg/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("INVOICE_CONFIG"), "YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Invoice store stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting invoice store",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("port", cfg.Server.Port))

	if cfg.Database.Driver == database.DriverSQLite && cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Initialize database
	db, err := database.New(database.Config{
		Driver:          cfg.Database.Driver,
		Path:            cfg.Database.Path,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := database.NewMigrator(db, logger).RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	notifiers, err := buildNotifiers(cfg.Notify, logger)
	if err != nil {
		return err
	}

	invoices := service.NewInvoiceService(
		repository.NewInvoiceRepository(db, logger),
		render.NewRenderer(logger),
		email.NewComposer(cfg.Email.From, cfg.Email.FromName),
		email.NewSender(logger, notifiers...),
		logger.Sugar(),
	)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, invoices, logger.Sugar())

	return server.Start(ctx)
}

// buildNotifiers returns the enabled chat channels that announce sent emails
func buildNotifiers(cfg config.NotifyConfig, logger *zap.Logger) ([]port.Notifier, error) {
	var notifiers []port.Notifier

	if cfg.Lark.Enabled {
		larkCfg := lark.Config{
			AppID:         cfg.Lark.AppID,
			AppSecret:     cfg.Lark.AppSecret,
			ReceiveIDType: cfg.Lark.ReceiveIDType,
			ReceiveID:     cfg.Lark.ReceiveID,
		}
		client, err := lark.NewClient(larkCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize lark client: %w", err)
		}
		messenger, err := lark.NewMessenger(client, larkCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize lark messenger: %w", err)
		}
		notifiers = append(notifiers, messenger)
	}

	if cfg.Slack.Enabled {
		notifier, err := slack.NewNotifier(slack.Config{
			BotToken: cfg.Slack.BotToken,
			Channel:  cfg.Slack.Channel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize slack notifier: %w", err)
		}
		notifiers = append(notifiers, notifier)
	}

	for _, n := range notifiers {
		logger.Info("Email notifications enabled", zap.String("channel", n.Name()))
	}
	return notifiers, nil
}
