package cli

import (
	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/pkg/client"
)

var (
	serverAddr string
	apiClient  *client.Client
)

// NewRootCmd creates the top-level warden CLI command with all subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warden",
		Short: "Sandboxed AI agent tool server",
		Long: `Warden runs an AI agent behind a sandboxed tool server.
Every tool invocation is screened, executed, and recorded in a
persistent conversation log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Skip client init for commands that don't need the API server.
			if cmd.Name() == "serve" {
				return
			}
			apiClient = client.New(serverAddr)
		},
	}

	cmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:7411", "Warden server address")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table|json|yaml")

	cmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newMemoryCmd(),
		newToolsCmd(),
		newStatusCmd(),
		newUICmd(),
	)

	return cmd
}
