package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/app"
	authapp "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/config"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/logging"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/shutdown"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/tracing"
)

func main() {
	cliApp := &cli.App{
		Name:  "pharmacy",
		Usage: "pharmacy inventory and order service",
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			setupAdminCmd(),
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and the outbox relay",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "apply schema migrations before serving"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			ctx, cancel := shutdown.WithSignals(c.Context, log)
			defer cancel()

			tp, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint, log)
			if err != nil {
				return err
			}
			defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

			if c.Bool("migrate") {
				if err := app.Migrate(ctx, cfg, log); err != nil {
					return err
				}
			}

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.WithoutCancel(ctx)); err != nil {
					log.Error("close failed", "err", err)
				}
			}()

			if err := a.Run(ctx); err != nil {
				return err
			}
			log.Info("pharmacy shutdown complete")
			return nil
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create tables or indexes for the configured store",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return app.Migrate(c.Context, cfg, logging.New(cfg.LogLevel))
		},
	}
}

func setupAdminCmd() *cli.Command {
	return &cli.Command{
		Name:  "setup-admin",
		Usage: "create the first administrator account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{config.Prefix + "_ADMIN_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			backend, err := app.OpenBackend(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close(context.WithoutCancel(c.Context)) }()

			svc := authapp.NewService(backend.Users, authapp.NewTokens(cfg.JWTSecret, cfg.TokenTTL), cfg.BcryptCost)
			u, err := svc.SetupAdmin(c.Context, authapp.RegisterInput{
				Name:     c.String("name"),
				Email:    c.String("email"),
				Password: c.String("password"),
			})
			if err != nil {
				return err
			}
			log.Info("admin created", "user_id", u.ID, "email", u.Email)
			return nil
		},
	}
}
