package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto_dash/internal/app"
	"crypto_dash/internal/dashboard"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/fetch"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	_ "net/http/pprof" // For pprof profiling
)

// headlessTimeout bounds how long headless mode waits for the first page.
const headlessTimeout = 30 * time.Second

func main() {
	cmd := &cli.Command{
		Name:  infra.AppName,
		Usage: "terminal crypto market dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config.yaml",
			},
			&cli.StringFlag{
				Name:  "currency",
				Usage: "quote currency (usd, eur, inr); remembered for later runs",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "print one markets page and exit",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "serve pprof on this address, e.g. localhost:6060",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	headless := cmd.Bool("headless")

	// 1. Configuration (flags win over file and environment)
	path := cmd.String("config")
	if path == "" {
		path = infra.ResolveConfigPath()
	}
	cfg, cfgErr := infra.LoadConfig(path)
	if cfgErr != nil && !errors.Is(cfgErr, domain.ErrConfigNotFound) {
		return cfgErr
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.InitializeWithConfig(cfg, headless); err != nil {
		return fmt.Errorf("bootstrapping failed: %w", err)
	}
	defer bootstrap.Close()
	if cfgErr != nil {
		slog.Warn("⚠️ Config file not found, using defaults", slog.String("path", path))
	}

	if c := cmd.String("currency"); c != "" {
		cur, err := domain.ParseCurrency(c)
		if err != nil {
			return err
		}
		if err := bootstrap.Preferences.SetCurrency(cur); err != nil {
			slog.Warn("Failed to persist currency", slog.Any("error", err))
		}
	}

	// 3. Pprof Server (for performance profiling)
	if addr := cmd.String("pprof"); addr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 4. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := bootstrap.NewSession(ctx)
	defer session.Close()
	session.Start()

	if headless {
		return printMarkets(ctx, bootstrap, session)
	}

	slog.Info("✨ Dashboard running")
	p := tea.NewProgram(ui.NewModel(session), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	slog.Info("👋 Shutting down gracefully...")
	return nil
}

// printMarkets waits for the first markets page and prints it.
func printMarkets(ctx context.Context, b *app.Bootstrap, s *dashboard.Session) error {
	ctx, cancel := context.WithTimeout(ctx, headlessTimeout)
	defer cancel()

	for {
		snap := s.Markets()
		switch snap.Status {
		case fetch.Ready:
			cur := s.Currency()
			fmt.Printf("Top %d coins by market cap (%s)\n", len(snap.Data), cur.Label())
			return ui.WriteTable(os.Stdout, s.VisibleCoins(), cur, b.Favorites.Has)
		case fetch.Failed:
			return fmt.Errorf("%s: %w", snap.Message, snap.Err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for market data: %w", ctx.Err())
		case <-s.Changes():
		}
	}
}
