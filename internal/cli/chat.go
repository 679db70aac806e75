package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the agent",
		Long: `Send a message to the agent and print its final answer.
With no arguments an interactive session is started.`,
		Example: `  warden chat "list the files in the workspace"
  warden chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return chatOnce(strings.Join(args, " "))
			}
			return chatInteractive()
		},
	}

	return cmd
}

func chatOnce(message string) error {
	resp, err := apiClient.Chat(message)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("agent error: %s", resp.Error)
	}
	fmt.Println(resp.Response)
	return nil
}

func chatInteractive() error {
	if err := apiClient.Healthz(); err != nil {
		return fmt.Errorf("cannot reach server: %w", err)
	}

	bold := color.New(color.FgCyan, color.Bold)
	bold.Println("Warden interactive chat")
	fmt.Println("Type a message, or \"exit\" to quit.")
	fmt.Println()

	prompt := color.New(color.FgGreen, color.Bold)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		prompt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			return nil
		}

		resp, err := apiClient.Chat(message)
		if err != nil {
			color.Red("error: %v", err)
			continue
		}
		if !resp.Success {
			color.Red("agent error: %s", resp.Error)
			continue
		}

		fmt.Println()
		fmt.Println(resp.Response)
		fmt.Println()
	}
}
