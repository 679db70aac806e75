package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Agent   AgentConfig   `yaml:"agent"`
	Browser BrowserConfig `yaml:"browser"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"` // default 7411
	Host string `yaml:"host"` // default "127.0.0.1"
}

type StoreConfig struct {
	Type    string `yaml:"type"`    // "bolt" or "memory"
	DataDir string `yaml:"dataDir"` // default "~/.warden/data"
}

type SandboxConfig struct {
	// WorkspaceRoot is the single directory boundary every path argument
	// must resolve within. Defaults to "~/.warden/workspace".
	WorkspaceRoot string `yaml:"workspaceRoot"`
	// ExtraBlockedPatterns extends the built-in command denylist.
	ExtraBlockedPatterns []string `yaml:"extraBlockedPatterns"`
}

type AgentConfig struct {
	Model          string `yaml:"model"`          // default "claude-sonnet-4-20250514"
	MaxTokens      int    `yaml:"maxTokens"`      // default 8192
	MaxToolTurns   int    `yaml:"maxToolTurns"`   // default 16
	DefaultTimeout int    `yaml:"defaultTimeout"` // per-tool bound in seconds, default 60
	SystemPrompt   string `yaml:"systemPrompt"`
}

type BrowserConfig struct {
	Headless bool `yaml:"headless"` // default true
	// ControlURL points at an already-running browser; when empty a
	// browser is launched on demand.
	ControlURL string `yaml:"controlURL"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // default "info"
	Format string `yaml:"format"` // default "console"
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7411,
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Type:    "bolt",
			DataDir: defaultHomeDir("data"),
		},
		Sandbox: SandboxConfig{
			WorkspaceRoot: defaultHomeDir("workspace"),
		},
		Agent: AgentConfig{
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      8192,
			MaxToolTurns:   16,
			DefaultTimeout: 60,
			SystemPrompt:   "You are a helpful assistant with access to host tools. Stay inside the workspace.",
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file and applies it on top of the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the full path to the BoltDB file (DataDir + "/warden.db").
func (c *Config) DBPath() string {
	return filepath.Join(c.Store.DataDir, "warden.db")
}

// defaultHomeDir resolves ~/.warden/<sub>, falling back to /tmp/warden/<sub>
// if the home directory cannot be determined.
func defaultHomeDir(sub string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "warden", sub)
	}
	return filepath.Join(home, ".warden", sub)
}
