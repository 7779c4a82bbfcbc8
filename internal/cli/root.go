package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasktracker/internal/config"
	"github.com/BuzzLyutic/tasktracker/internal/repo"
)

var rootCmd = &cobra.Command{
	Use:           "tasktracker",
	Short:         "Task tracking REST backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute запускает корневую команду. Без аргументов поднимается HTTP-сервер.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openGateway подключает хранилище, выбранное в DATABASE_DRIVER
func openGateway(ctx context.Context, cfg config.Config) (repo.Gateway, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return repo.ConnectPostgres(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return repo.NewSQLiteGateway(cfg.SQLitePath)
	case config.DriverMemory:
		return repo.NewMemoryGateway(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}
