package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/registry"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func terminalTools(workspaceRoot string, logger *zap.Logger) []*registry.Tool {
	return []*registry.Tool{
		{
			Name:        "run_command",
			Description: "Execute a shell command in the workspace and return stdout, stderr, and the exit code.",
			Category:    v1alpha1.CategoryTerminal,
			Schema: registry.Schema{
				Required: []string{"command"},
				Properties: map[string]registry.Property{
					"command": {Type: "string", Description: "The shell command to run.", Command: true},
					"cwd":     {Type: "string", Description: "Working directory, relative to the workspace root.", Path: true},
				},
			},
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return runCommand(ctx, workspaceRoot, args, logger)
			},
		},
	}
}

// runCommand executes the (denylist-screened) command under sh -c. The
// command context carries the per-tool timeout, so a hung process is
// killed when the bound expires.
func runCommand(ctx context.Context, workspaceRoot string, args map[string]any, logger *zap.Logger) (string, error) {
	command := args["command"].(string)

	dir := workspaceRoot
	if cwd, ok := args["cwd"].(string); ok && cwd != "" {
		dir = cwd
	}

	logger.Debug("running command",
		zap.String("dir", dir),
		zap.Int("commandLen", len(command)),
	)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			// The command never started (bad binary, killed context).
			return "", runErr
		}
	}

	out, err := json.Marshal(map[string]any{
		"stdout":   clamp(stdout.String()),
		"stderr":   clamp(stderr.String()),
		"exitCode": exitCode,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
