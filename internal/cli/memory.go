package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func newMemoryCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "memory",
		Aliases: []string{"mem", "log"},
		Short:   "Inspect the conversation log",
		Example: `  warden memory
  warden memory --category terminal
  warden memory stats
  warden memory clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				events []v1alpha1.Event
				err    error
			)
			if category != "" {
				events, err = apiClient.MemoryByCategory(v1alpha1.Category(category))
			} else {
				events, err = apiClient.Memory()
			}
			if err != nil {
				return fmt.Errorf("fetching memory: %w", err)
			}

			printEvents(events)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by tool category")

	cmd.AddCommand(newMemoryStatsCmd(), newMemoryClearCmd())
	return cmd
}

func printEvents(events []v1alpha1.Event) {
	items := make([]interface{}, 0, len(events))
	for i := range events {
		items = append(items, &events[i])
	}

	headers := []string{"SEQ", "TIME", "ROLE", "CATEGORY", "TOOL", "PAYLOAD"}
	printOutput(items, headers, func(item interface{}) []string {
		ev := item.(*v1alpha1.Event)
		payload := ev.Payload
		if ev.Status == v1alpha1.StatusError {
			payload = "! " + payload
		}
		return []string{
			fmt.Sprintf("%d", ev.Sequence),
			ev.Timestamp.Format("15:04:05"),
			string(ev.Role),
			string(ev.Category),
			ev.ToolName,
			truncate(payload, 80),
		}
	})
}

func newMemoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-category tool invocation counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient.Stats()
			if err != nil {
				return fmt.Errorf("fetching stats: %w", err)
			}

			if outputFormat != "table" {
				printOutput(resp, nil, nil)
				return nil
			}

			var rows [][]string
			var total int
			for _, c := range v1alpha1.Categories {
				count := resp.Stats[c]
				total += count
				rows = append(rows, []string{string(c), fmt.Sprintf("%d", count)})
			}
			printTable([]string{"CATEGORY", "CALLS"}, rows)
			fmt.Printf("\nTotal tool calls: %d\n", total)
			return nil
		},
	}
}

func newMemoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Wipe the conversation log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear memory without --yes")
			}

			resp, err := apiClient.ClearMemory()
			if err != nil {
				return fmt.Errorf("clearing memory: %w", err)
			}
			color.Green("%s", resp.Message)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the wipe")
	return cmd
}
