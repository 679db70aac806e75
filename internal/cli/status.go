package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func newStatusCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Display an overview of the Warden tool server.",
		Example: `  warden status
  warden status --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return statusWatch()
			}
			return statusPrint()
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Continuously refresh (every 5 seconds)")

	return cmd
}

func statusPrint() error {
	if err := apiClient.Healthz(); err != nil {
		color.Red("Warden Tool Server: UNREACHABLE")
		return fmt.Errorf("cannot reach server: %w", err)
	}

	bold := color.New(color.FgCyan, color.Bold)
	bold.Println("Warden Tool Server Status")
	fmt.Println("=========================")
	fmt.Println()

	tools, err := apiClient.Tools()
	if err != nil {
		return fmt.Errorf("listing tools: %w", err)
	}
	fmt.Printf("Tools: %d registered\n", len(tools))

	events, err := apiClient.Memory()
	if err != nil {
		return fmt.Errorf("fetching memory: %w", err)
	}
	fmt.Printf("Events: %d recorded\n", len(events))

	stats, err := apiClient.Stats()
	if err != nil {
		return fmt.Errorf("fetching stats: %w", err)
	}

	var total, errors int
	for _, ev := range events {
		if ev.Role == v1alpha1.RoleToolResult && ev.Status == v1alpha1.StatusError {
			errors++
		}
	}
	for _, c := range v1alpha1.Categories {
		total += stats.Stats[c]
	}

	fmt.Printf("Tool calls: %d total", total)
	if total > 0 {
		fmt.Printf(" (")
		first := true
		for _, c := range v1alpha1.Categories {
			if stats.Stats[c] == 0 {
				continue
			}
			if !first {
				fmt.Print(", ")
			}
			fmt.Printf("%d %s", stats.Stats[c], c)
			first = false
		}
		fmt.Print(")")
	}
	fmt.Println()

	if errors > 0 {
		fmt.Printf("Failed results: %s\n", color.RedString("%d", errors))
	}

	return nil
}

func statusWatch() error {
	fmt.Println("Watching status (Ctrl+C to stop)...")
	fmt.Println()

	for {
		// Clear screen with ANSI escape.
		fmt.Print("\033[2J\033[H")

		if err := statusPrint(); err != nil {
			fmt.Printf("\nError: %v\n", err)
		}

		fmt.Printf("\nLast updated: %s\n", time.Now().Format("15:04:05"))
		time.Sleep(5 * time.Second)
	}
}
