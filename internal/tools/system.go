package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/wardenhq/warden/internal/registry"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func systemTools() []*registry.Tool {
	return []*registry.Tool{
		{
			Name:        "system_info",
			Description: "Report basic information about the host running the server.",
			Category:    v1alpha1.CategorySystem,
			Schema:      registry.Schema{Properties: map[string]registry.Property{}},
			Execute:     systemInfo,
		},
		{
			Name:        "list_processes",
			Description: "List the processes running on the host.",
			Category:    v1alpha1.CategorySystem,
			Schema:      registry.Schema{Properties: map[string]registry.Property{}},
			Execute:     listProcesses,
		},
		{
			Name:        "kill_process",
			Description: "Terminate a process on the host by PID.",
			Category:    v1alpha1.CategorySystem,
			Schema: registry.Schema{
				Required: []string{"pid"},
				Properties: map[string]registry.Property{
					"pid": {Type: "integer", Description: "Process ID to terminate."},
				},
			},
			Execute: killProcess,
		},
		{
			Name:        "ping_host",
			Description: "Ping a remote host from the server and return the output.",
			Category:    v1alpha1.CategorySystem,
			Schema: registry.Schema{
				Required: []string{"host"},
				Properties: map[string]registry.Property{
					"host":  {Type: "string", Description: "Hostname or IP address to ping."},
					"count": {Type: "integer", Description: "Number of ping attempts.", Default: 1},
				},
			},
			Execute: pingHost,
		},
	}
}

func systemInfo(_ context.Context, _ map[string]any) (string, error) {
	hostname, _ := os.Hostname()
	cwd, _ := os.Getwd()
	out, err := json.Marshal(map[string]any{
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"cpus":     runtime.NumCPU(),
		"hostname": hostname,
		"cwd":      cwd,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func listProcesses(ctx context.Context, _ map[string]any) (string, error) {
	cmd := exec.CommandContext(ctx, "ps", "-eo", "pid,comm")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("listing processes: %w", err)
	}

	type process struct {
		PID  int    `json:"pid"`
		Name string `json:"name"`
	}

	var procs []process
	lines := strings.Split(stdout.String(), "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		procs = append(procs, process{PID: pid, Name: fields[1]})
	}

	out, err := json.Marshal(procs)
	if err != nil {
		return "", err
	}
	return clamp(string(out)), nil
}

func killProcess(_ context.Context, args map[string]any) (string, error) {
	pid := args["pid"].(int)
	if pid <= 1 {
		return "", fmt.Errorf("refusing to signal pid %d", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return "", err
	}
	if err := proc.Kill(); err != nil {
		return "", err
	}
	return fmt.Sprintf("killed process %d", pid), nil
}

func pingHost(ctx context.Context, args map[string]any) (string, error) {
	host := args["host"].(string)
	count := args["count"].(int)
	if count < 1 {
		count = 1
	}

	cmd := exec.CommandContext(ctx, "ping", "-c", strconv.Itoa(count), host)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return "", runErr
		}
	}

	out, err := json.Marshal(map[string]any{
		"stdout":   stdout.String(),
		"stderr":   stderr.String(),
		"exitCode": exitCode,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
