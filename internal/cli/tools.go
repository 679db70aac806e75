package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := apiClient.Tools()
			if err != nil {
				return fmt.Errorf("fetching tools: %w", err)
			}

			items := make([]interface{}, 0, len(tools))
			for i := range tools {
				items = append(items, &tools[i])
			}

			headers := []string{"NAME", "CATEGORY", "REQUIRED", "DESCRIPTION"}
			printOutput(items, headers, func(item interface{}) []string {
				t := item.(*v1alpha1.ToolInfo)
				return []string{
					t.Name,
					string(t.Category),
					strings.Join(t.Required, ","),
					truncate(t.Description, 60),
				}
			})
			return nil
		},
	}
}
