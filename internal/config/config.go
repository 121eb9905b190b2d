package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the assistant.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Provider ProviderConfig `json:"provider"`
	Security SecurityConfig `json:"security"`
	Executor ExecutorConfig `json:"executor"`
	History  HistoryConfig  `json:"history"`
}

type GeneralConfig struct {
	Workspace      string `json:"workspace"`
	LogLevel       string `json:"logLevel"`
	LogFile        string `json:"logFile,omitempty"` // optional log file path
	MaxFixAttempts int    `json:"maxFixAttempts"`    // follow-up queries after a failed command
}

type ProviderConfig struct {
	URL            string `json:"url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeoutSeconds"` // per chat request
	MaxRetries     int    `json:"maxRetries"`
}

type SecurityConfig struct {
	DefaultTier           string   `json:"defaultTier"` // "safe" | "privileged"
	Blocked               []string `json:"blocked"`     // extra blocked patterns
	Privileged            []string `json:"privileged"`  // extra privileged patterns
	RulesFile             string   `json:"rulesFile,omitempty"`
	SkipConfirmation      bool     `json:"skipConfirmation"`
	ConfirmTimeoutSeconds int      `json:"confirmTimeoutSeconds"`
	AuditLog              bool     `json:"auditLog"`
}

type ExecutorConfig struct {
	TimeoutSeconds int    `json:"timeoutSeconds"`
	MaxOutputBytes int    `json:"maxOutputBytes"`
	WorkingDir     string `json:"workingDir,omitempty"`
}

type HistoryConfig struct {
	Enabled                   bool   `json:"enabled"`
	DBPath                    string `json:"dbPath"`
	MaxHistoryPerConversation int    `json:"maxHistoryPerConversation"`
}

// DefaultConfigDir returns the default config directory (~/.itassist).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".itassist"
	}
	return filepath.Join(home, ".itassist")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Security.RulesFile = ExpandPath(cfg.Security.RulesFile)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.MaxFixAttempts < 0 || cfg.General.MaxFixAttempts > 10 {
		errs = append(errs, "general.maxFixAttempts must be between 0 and 10")
	}

	if cfg.Provider.URL == "" {
		errs = append(errs, "provider.url must not be empty")
	}
	if cfg.Provider.Model == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if cfg.Provider.TimeoutSeconds < 1 {
		errs = append(errs, "provider.timeoutSeconds must be >= 1")
	}
	if cfg.Provider.MaxRetries < 0 {
		errs = append(errs, "provider.maxRetries must be >= 0")
	}

	switch cfg.Security.DefaultTier {
	case "safe", "privileged":
		// valid
	default:
		errs = append(errs, "security.defaultTier must be one of: safe, privileged")
	}
	if cfg.Security.ConfirmTimeoutSeconds < 1 {
		errs = append(errs, "security.confirmTimeoutSeconds must be >= 1")
	}

	if cfg.Executor.TimeoutSeconds < 1 {
		errs = append(errs, "executor.timeoutSeconds must be >= 1")
	}
	if cfg.Executor.MaxOutputBytes < 1024 {
		errs = append(errs, "executor.maxOutputBytes must be >= 1024")
	}

	if cfg.History.MaxHistoryPerConversation < 1 {
		errs = append(errs, "history.maxHistoryPerConversation must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
