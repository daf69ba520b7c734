package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opencode-ai/copilot/internal/event"
	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/internal/permission"
	"github.com/opencode-ai/copilot/internal/prompt"
	"github.com/opencode-ai/copilot/internal/provider"
	"github.com/opencode-ai/copilot/internal/server"
	"github.com/opencode-ai/copilot/internal/session"
	"github.com/opencode-ai/copilot/internal/storage"
)

var (
	servePort    int
	servePrompts string
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the copilot HTTP server",
	Long: `Start the copilot HTTP API.

The caller identity is read from a header set by an upstream gateway
(X-User-ID unless configured otherwise).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&servePrompts, "prompts", "", "Prompt definition file (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if servePrompts != "" {
		cfg.Prompts.File = servePrompts
	}
	log := logging.Component("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Storage.Driver {
	case "", storage.DriverFile:
		if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
			return err
		}
	case storage.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return err
		}
	}

	bus := event.NewBus()
	defer bus.Close()

	store, err := storage.Open(ctx, storage.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		URL:    cfg.Storage.URL,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	directory := permission.NewMemoryDirectory(bus)
	if err := directory.Seed(cfg.Workspaces); err != nil {
		return fmt.Errorf("seed workspaces: %w", err)
	}

	providers, err := provider.InitializeProviders(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize providers: %w", err)
	}
	if len(providers.List()) == 0 {
		log.Warn().Msg("no providers configured, every generation will fail")
	}

	prompts := prompt.NewRegistry()
	if cfg.Prompts.File != "" {
		if err := prompts.LoadFile(ctx, cfg.Prompts.File); err != nil {
			return fmt.Errorf("load prompts: %w", err)
		}
		if cfg.Prompts.Watch {
			watcher, err := prompt.NewWatcher(prompts, cfg.Prompts.File, bus)
			if err != nil {
				return fmt.Errorf("watch prompts: %w", err)
			}
			watcher.Start()
			defer watcher.Stop()
		}
	} else {
		log.Warn().Msg("no prompt file configured, sessions cannot be created")
	}

	sessions := session.NewService(session.Options{
		Store:   store,
		Prompts: prompts,
		Gateway: permission.NewGateway(directory),
		Bus:     bus,
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Port = cfg.Server.Port
	srvCfg.UserHeader = cfg.Server.UserHeader
	if cfg.Server.EnableCORS != nil {
		srvCfg.EnableCORS = *cfg.Server.EnableCORS
	}
	srv := server.New(srvCfg, server.Deps{
		Sessions:  sessions,
		Processor: session.NewProcessor(sessions, providers),
		Prompts:   prompts,
		Providers: providers,
		Directory: directory,
		Bus:       bus,
	})

	log.Info().
		Str("version", Version).
		Str("storage", cfg.Storage.Driver).
		Int("prompts", len(prompts.List())).
		Int("providers", len(providers.List())).
		Msg("starting copilot server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
