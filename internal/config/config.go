// Package config layers Argus's configuration the way the teacher
// layers agentsview's: defaults < JSON file < environment < flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds every recognized Argus option (spec.md §6).
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	DataDir           string `json:"-"`
	ClaudeProjectsDir string `json:"claude_projects_dir"`
	OpenClawAgentsDir string `json:"openclaw_agents_dir"`

	FullReconcileInterval time.Duration `json:"-"`
	FastActivityInterval  time.Duration `json:"-"`
	CleanupInterval       time.Duration `json:"-"`

	ClaudeActiveThreshold   time.Duration `json:"-"`
	OpenClawActiveThreshold time.Duration `json:"-"`

	IdleTimeout         time.Duration `json:"-"`
	StaleProjectTTL     time.Duration `json:"-"`
	StaleBlockedMainTTL time.Duration `json:"-"`
	CompletedWorkCap    int           `json:"completed_work_cap"`
	CompletedWorkTTL    time.Duration `json:"-"`

	// ProtocolVersionMin/Max bound the hook protocol versions this
	// daemon accepts, compared with golang.org/x/mod/semver (§4.7).
	ProtocolVersionMin string `json:"protocol_version_min"`
	ProtocolVersionMax string `json:"protocol_version_max"`
}

// Default returns a Config with built-in defaults.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("determining home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".argus")

	return Config{
		Host:                    "127.0.0.1",
		Port:                    4242,
		DataDir:                 dataDir,
		ClaudeProjectsDir:       filepath.Join(home, ".claude", "projects"),
		OpenClawAgentsDir:       filepath.Join(home, ".openclaw", "agents"),
		FullReconcileInterval:   5 * time.Second,
		FastActivityInterval:    3 * time.Second,
		CleanupInterval:         5 * time.Minute,
		ClaudeActiveThreshold:   5 * time.Minute,
		OpenClawActiveThreshold: 30 * time.Minute,
		IdleTimeout:             2 * time.Minute,
		StaleProjectTTL:         30 * time.Minute,
		StaleBlockedMainTTL:     5 * time.Minute,
		CompletedWorkCap:        20,
		CompletedWorkTTL:        5 * time.Minute,
		ProtocolVersionMin:      "v1.0.0",
		ProtocolVersionMax:      "v1.999.999",
	}, nil
}

// Load builds a Config by layering defaults < config file < env <
// flags. fs must already be Parse'd by the caller.
func Load(fs *flag.FlagSet) (Config, error) {
	cfg, err := LoadMinimal()
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg, fs)
	return cfg, nil
}

// LoadMinimal builds a Config from defaults, the config file, and
// env (env wins over the file), without parsing CLI flags.
// ARGUS_DATA_DIR is read first because it locates the config file.
func LoadMinimal() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("ARGUS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) configPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.configPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var file struct {
		Host              string `json:"host"`
		Port              int    `json:"port"`
		ClaudeProjectsDir string `json:"claude_projects_dir"`
		OpenClawAgentsDir string `json:"openclaw_agents_dir"`
		CompletedWorkCap  int    `json:"completed_work_cap"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	if file.Host != "" {
		c.Host = file.Host
	}
	if file.Port != 0 {
		c.Port = file.Port
	}
	if file.ClaudeProjectsDir != "" {
		c.ClaudeProjectsDir = file.ClaudeProjectsDir
	}
	if file.OpenClawAgentsDir != "" {
		c.OpenClawAgentsDir = file.OpenClawAgentsDir
	}
	if file.CompletedWorkCap != 0 {
		c.CompletedWorkCap = file.CompletedWorkCap
	}
	return nil
}

func (c *Config) loadEnv() {
	if v := os.Getenv("ARGUS_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("ARGUS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("ARGUS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CLAUDE_PROJECTS_DIR"); v != "" {
		c.ClaudeProjectsDir = v
	}
	if v := os.Getenv("OPENCLAW_AGENTS_DIR"); v != "" {
		c.OpenClawAgentsDir = v
	}
}

// RegisterServeFlags registers the `argusd serve` flags on fs. The
// caller must call fs.Parse before passing fs to Load.
func RegisterServeFlags(fs *flag.FlagSet) {
	fs.String("host", "127.0.0.1", "host to bind to")
	fs.Int("port", 4242, "port for the ingress/subscribe surface")
	fs.String("claude-projects-dir", "", "override the Claude Code projects scan root")
	fs.String("openclaw-agents-dir", "", "override the OpenClaw agents scan root")
}

func applyFlags(cfg *Config, fs *flag.FlagSet) {
	if fs == nil {
		return
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = f.Value.String()
		case "port":
			cfg.Port, _ = strconv.Atoi(f.Value.String())
		case "claude-projects-dir":
			cfg.ClaudeProjectsDir = f.Value.String()
		case "openclaw-agents-dir":
			cfg.OpenClawAgentsDir = f.Value.String()
		}
	})
}

// ResolveDataDir returns the effective data directory by applying
// defaults and environment overrides, without reading any files.
func ResolveDataDir() (string, error) {
	cfg, err := Default()
	if err != nil {
		return "", err
	}
	if v := os.Getenv("ARGUS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	return cfg.DataDir, nil
}
