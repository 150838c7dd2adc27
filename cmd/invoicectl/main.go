// Command invoicectl manages invoices held by a remote invoice store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-manager/internal/application/controller"
	"github.com/garyjia/invoice-manager/internal/config"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/internal/infrastructure/external/storeapi"
	"github.com/garyjia/invoice-manager/internal/infrastructure/storage"
	"github.com/garyjia/invoice-manager/internal/render"
	"github.com/garyjia/invoice-manager/pkg/utils"
)

// env is the wiring shared by every command
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	ids      *entity.IdentityGenerator
	ctrl     *controller.Controller
	renderer *render.Renderer
	output   *storage.LocalFileStorage
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{}
	app := &cli.App{
		Name:  "invoicectl",
		Usage: "create, edit, list, render and export invoices",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"INVOICE_CONFIG"}},
			&cli.StringFlag{Name: "api", Usage: "store base URL, overrides config"},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			listCommand(e),
			showCommand(e),
			byEmployeeCommand(e),
			createCommand(e),
			editCommand(e),
			deleteCommand(e),
			renderCommand(e),
			downloadCommand(e),
			emailCommand(e),
			customEmailCommand(e),
			exportCommand(e),
			previewCommand(e),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (e *env) setup(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return nil
	}

	if api := c.String("api"); api != "" {
		if err := os.Setenv("INVOICE_API_URL", api); err != nil {
			return err
		}
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := storeapi.NewClient(storeapi.Config{BaseURL: cfg.Store.BaseURL, Timeout: cfg.Store.Timeout}, nil, logger)
	if err != nil {
		return err
	}

	ids, err := entity.NewIdentityGenerator()
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	e.ids = ids
	e.ctrl = controller.New(store, ids, logger)
	e.renderer = render.NewRenderer(logger)
	e.output = storage.NewLocalFileStorage(cfg.Output.Dir, logger)
	return nil
}

func (e *env) teardown(*cli.Context) error {
	if e.ctrl != nil {
		e.ctrl.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return nil
}
