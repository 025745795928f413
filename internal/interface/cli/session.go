package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vhm24/taskflow/internal/infrastructure/di"
	"github.com/vhm24/taskflow/pkg/logger"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect open sessions",
	}
	cmd.AddCommand(newSessionListCmd())
	return cmd
}

// newSessionListCmd lists open sessions. Only meaningful against the
// Redis store; the in-memory store is scoped to one serve process.
func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.NewContainer(globalConfig, logger.Nop())
			if err != nil {
				return err
			}
			defer container.Stop()

			sessions, err := container.SessionRepository().List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "no open sessions")
				return nil
			}
			now := time.Now().UTC()
			for _, s := range sessions {
				fmt.Fprintf(out, "%s  task=%s  idle=%s\n",
					s.ActorID(), s.TaskInstanceID(), now.Sub(s.LastActivityAt().Value()).Round(time.Second))
			}
			return nil
		},
	}
}
