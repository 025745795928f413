package cli

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	appconfig "github.com/vhm24/taskflow/internal/app/config"
	infraconfig "github.com/vhm24/taskflow/internal/infrastructure/config"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig appconfig.Config

// NewRoot builds the taskflow command tree
func NewRoot(version string) *cobra.Command {
	var settingsPath string

	cmd := &cobra.Command{
		Use:   "taskflow",
		Short: "Field task workflow engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := settingsPath
			if path == "" {
				path = os.Getenv("TASKFLOW_SETTINGS")
			}
			if path == "" {
				path = "taskflow.yaml"
			}
			cfg, err := infraconfig.Load(afero.NewOsFs(), path)
			if err != nil {
				return err
			}
			globalConfig = cfg
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "path to settings file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newSessionCmd())
	cmd.AddCommand(newVersionCmd(version))
	return cmd
}
