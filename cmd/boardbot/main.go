package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mkallio/boardbot/internal/api"
	"github.com/mkallio/boardbot/internal/config"
	"github.com/mkallio/boardbot/internal/executor"
	"github.com/mkallio/boardbot/internal/gh"
	"github.com/mkallio/boardbot/internal/handler"
	"github.com/mkallio/boardbot/internal/models"
	"github.com/mkallio/boardbot/internal/notify"
	"github.com/mkallio/boardbot/internal/storage"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "boardbot",
		Short: "boardbot — GitHub Projects webhook bridge with scheduled status moves",
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(movesCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the boardbot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log := setupLogger(cfg.Logging)

			store, err := setupStorage(cfg.Storage, log)
			if err != nil {
				return fmt.Errorf("failed to setup storage: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("database migrations completed")

			client := gh.NewClient(cfg.GitHub.APIURL, gh.StaticTokenSource(cfg.GitHub.Token))
			notifier := notify.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel)

			projects := handler.NewProjectHandler(cfg.GitHub, client, notifier, log)
			comments := handler.NewCommentHandler(cfg.GitHub, client, store, log)

			exec := executor.New(cfg.Executor, store, client, log)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			exec.Start(ctx)

			server := api.NewServer(cfg.Server, cfg.GitHub, store, projects, comments, log)
			go func() {
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("server error")
				}
			}()

			log.Info().
				Str("version", version).
				Int("port", cfg.Server.Port).
				Str("project", cfg.GitHub.ProjectID).
				Str("repository", cfg.GitHub.Repository).
				Msg("boardbot is running")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Info().Msg("shutting down...")

			if err := server.Shutdown(10 * time.Second); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}

			exec.Stop()

			log.Info().Msg("boardbot stopped")
			return nil
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Println("migrations completed successfully")
			return nil
		},
	}
}

func movesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moves",
		Short: "Inspect pending scheduled moves",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all pending moves",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			moves, err := store.ListMoves(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list moves: %w", err)
			}

			if len(moves) == 0 {
				fmt.Println("No pending moves.")
				return nil
			}

			for _, m := range moves {
				fmt.Printf("  %s  ->  %s  on %s  (by %s)\n",
					m.ItemID, m.OptionName, m.ScheduledDate.Format(models.DateLayout), m.Actor)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete the pending move for an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("usage: boardbot moves delete <item-id>")
			}

			store, cleanup, err := storeFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.DeleteMove(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete move: %w", err)
			}

			fmt.Printf("deleted pending move for %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("boardbot v%s\n", version)
		},
	}
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func setupStorage(cfg config.StorageConfig, log zerolog.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		log.Info().Str("path", cfg.SQLite.Path).Msg("using SQLite storage")
		return storage.NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func storeFromConfig(configPath string) (storage.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.Logging)
	store, err := setupStorage(cfg.Storage, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, func() { store.Close() }, nil
}
