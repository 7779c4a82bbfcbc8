package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/tasktracker/internal/config"
	"github.com/BuzzLyutic/tasktracker/internal/service"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Inspect or reconcile the completed tasks counter",
}

var statsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the completed tasks counter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, s *service.TaskService) error {
			return showStats(ctx, s, cmd.OutOrStdout())
		})
	},
}

var resetValue int64

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set the completed tasks counter to an explicit value",
	Long:  "Set the completed tasks counter after a stats inconsistency has been reconciled against the tasks table.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, s *service.TaskService) error {
			return resetStats(ctx, s, resetValue, cmd.OutOrStdout())
		})
	},
}

func init() {
	statsResetCmd.Flags().Int64Var(&resetValue, "value", 0, "new counter value")
	statsResetCmd.MarkFlagRequired("value")
	statsCmd.AddCommand(statsShowCmd)
	statsCmd.AddCommand(statsResetCmd)
}

func showStats(ctx context.Context, s *service.TaskService, out io.Writer) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "completed_tasks: %d\n", stats.CompletedTasks)
	return err
}

func resetStats(ctx context.Context, s *service.TaskService, value int64, out io.Writer) error {
	stats, err := s.ResetStats(ctx, value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "completed_tasks reset to %d\n", stats.CompletedTasks)
	return err
}

func withService(ctx context.Context, fn func(context.Context, *service.TaskService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gw, err := openGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to %s gateway: %w", cfg.DatabaseDriver, err)
	}
	defer gw.Close()

	return fn(ctx, service.NewTaskService(gw, logger.Named("stats"), nil))
}
