package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/tui"
)

func newUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ui",
		Aliases: []string{"watch", "dashboard"},
		Short:   "Launch the interactive terminal UI",
		Long:    "Launch a terminal UI that follows the conversation log and tool activity live.",
		Example: `  warden ui
  warden ui --server http://127.0.0.1:7411`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := tui.NewApp(serverAddr)
			if err := app.Run(); err != nil {
				return fmt.Errorf("UI error: %w", err)
			}
			return nil
		},
	}

	return cmd
}
