package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wardenhq/warden/internal/agent"
	"github.com/wardenhq/warden/internal/apiserver"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/memory"
	"github.com/wardenhq/warden/internal/registry"
	"github.com/wardenhq/warden/internal/sandbox"
	"github.com/wardenhq/warden/internal/tools"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
		dataDir    string
		workspace  string
		inMemory   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Warden tool server",
		Long:  "Start the Warden API server, sandbox, and agent loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load configuration and apply CLI overrides.
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.Store.DataDir = dataDir
			}
			if cmd.Flags().Changed("workspace") {
				cfg.Sandbox.WorkspaceRoot = workspace
			}
			if inMemory {
				cfg.Store.Type = "memory"
			}

			// 2. Create logger.
			logger, err := buildLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			defer logger.Sync()

			// 3. Ensure the workspace exists and open the event log.
			if err := os.MkdirAll(cfg.Sandbox.WorkspaceRoot, 0755); err != nil {
				return fmt.Errorf("creating workspace %s: %w", cfg.Sandbox.WorkspaceRoot, err)
			}

			var log memory.Log
			switch cfg.Store.Type {
			case "memory":
				log = memory.NewMemLog()
			case "bolt":
				if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
					return fmt.Errorf("creating data directory %s: %w", cfg.Store.DataDir, err)
				}
				boltLog, err := memory.NewBoltLog(cfg.DBPath())
				if err != nil {
					return fmt.Errorf("opening event log at %s: %w", cfg.DBPath(), err)
				}
				log = boltLog
			default:
				return fmt.Errorf("unknown store type %q", cfg.Store.Type)
			}
			defer log.Close()

			// 4. Build the tool registry and sandbox.
			browser := tools.NewBrowser(cfg.Browser, logger)
			defer browser.Close()

			defaultTimeout := time.Duration(cfg.Agent.DefaultTimeout) * time.Second
			reg, err := registry.New(defaultTimeout, tools.Defaults(cfg.Sandbox.WorkspaceRoot, browser, logger)...)
			if err != nil {
				return fmt.Errorf("building tool registry: %w", err)
			}

			sb, err := sandbox.New(reg, cfg.Sandbox.WorkspaceRoot, cfg.Sandbox.ExtraBlockedPatterns, logger)
			if err != nil {
				return fmt.Errorf("building sandbox: %w", err)
			}

			// 5. Create the engine and coordinator.
			engine := agent.NewAnthropicEngine(reg, &cfg.Agent, logger)
			coordinator := agent.NewCoordinator(log, sb, reg, engine, cfg, logger)

			// 6. Create the API server.
			apiSrv := apiserver.NewServer(cfg.ServerAddress(), log, coordinator, reg, logger)

			// Print startup banner.
			banner := color.New(color.FgCyan, color.Bold)
			banner.Println("Warden Tool Server")
			fmt.Printf("   API Server: http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("   Workspace:  %s\n", cfg.Sandbox.WorkspaceRoot)
			if cfg.Store.Type == "bolt" {
				fmt.Printf("   Event Log:  %s\n", cfg.DBPath())
			} else {
				fmt.Printf("   Event Log:  in-memory\n")
			}
			fmt.Printf("   Tools:      %d registered\n", reg.Count())
			fmt.Println()

			// Start API server in a goroutine.
			errCh := make(chan error, 1)
			go func() {
				if err := apiSrv.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			// 7. Wait for interrupt signal for graceful shutdown.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			case err := <-errCh:
				logger.Error("API server error", zap.Error(err))
				return err
			}

			fmt.Println()
			logger.Info("shutting down gracefully...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := apiSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("API server shutdown error", zap.Error(err))
			}

			logger.Info("Warden tool server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: built-in defaults)")
	cmd.Flags().IntVar(&port, "port", 7411, "API server port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "API server host")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.warden/data)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace root (default: ~/.warden/workspace)")
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "Keep the event log in memory instead of BoltDB")

	return cmd
}

// buildLogger constructs a zap logger from the log section of the config.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
