package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"itassist/internal/assist"
	"itassist/internal/classify"
	"itassist/internal/config"
	"itassist/internal/domain"
	"itassist/internal/execute"
	"itassist/internal/extract"
	"itassist/internal/gate"
	"itassist/internal/history"
	"itassist/internal/pipeline"
	"itassist/internal/provider"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	_ = godotenv.Load()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "itassist",
		Short: "ITAssist: terminal IT assistant with gated command execution",
		Long:  "ITAssist turns model responses into commands that are classified, confirmed, and executed under a timeout, with every outcome audited.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.itassist/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(auditCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			workspace := config.ExpandPath(cfg.General.Workspace)
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", workspace)
			return nil
		},
	}
}

// chatFlags are per-invocation overrides applied on top of the config
// file. Zero values mean "keep the configured value".
type chatFlags struct {
	model     string
	url       string
	timeout   int
	aiTimeout int
	noConfirm bool
}

func chatCmd() *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(flags)
		},
	}

	cmd.Flags().StringVar(&flags.model, "model", "", "override the configured model")
	cmd.Flags().StringVar(&flags.url, "url", "", "override the Ollama base URL")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 0, "command execution timeout in seconds")
	cmd.Flags().IntVar(&flags.aiTimeout, "ai-timeout", 0, "model request timeout in seconds")
	cmd.Flags().BoolVar(&flags.noConfirm, "no-confirm", false, "auto-approve privileged commands (blocked commands stay blocked)")
	return cmd
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadOrDefaults loads the config file, falling back to defaults when it
// is missing. Path fields are expanded either way.
func loadOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.General.Workspace = config.ExpandPath(cfg.General.Workspace)
		cfg.General.LogFile = config.ExpandPath(cfg.General.LogFile)
		cfg.Security.RulesFile = config.ExpandPath(cfg.Security.RulesFile)
		cfg.History.DBPath = config.ExpandPath(cfg.History.DBPath)
	}
	return cfg
}

func runChat(flags chatFlags) error {
	cfg := loadOrDefaults()

	if flags.model != "" {
		cfg.Provider.Model = flags.model
	}
	if flags.url != "" {
		cfg.Provider.URL = flags.url
	}
	if flags.timeout > 0 {
		cfg.Executor.TimeoutSeconds = flags.timeout
	}
	if flags.aiTimeout > 0 {
		cfg.Provider.TimeoutSeconds = flags.aiTimeout
	}
	if flags.noConfirm {
		cfg.Security.SkipConfirmation = true
	}

	logger = newLogger(cfg.General)

	if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
		return err
	}
	if cfg.Executor.WorkingDir == "" {
		cfg.Executor.WorkingDir = cfg.General.Workspace
	}

	// Graceful shutdown on signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *history.SQLiteStore
	if cfg.History.Enabled {
		var err error
		store, err = history.NewSQLiteStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer store.Close()
	}

	classifier, err := classify.New(cfg.Security, logger)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	confirmer := gate.NewTerminalConfirmer(gate.TerminalConfig{Logger: logger})
	permGate := gate.New(cfg.Security, confirmer, logger)
	executor := execute.New(cfg.Executor, logger)

	var sink domain.AuditSink
	if store != nil && cfg.Security.AuditLog {
		sink = store
	}
	pipe := pipeline.New(extract.New(), classifier, permGate, executor, sink, logger)

	prov := provider.NewOllama(cfg.Provider, logger)
	if err := prov.Healthy(ctx); err != nil {
		logger.Warn("provider unreachable at startup, fallback responses will be used", "url", cfg.Provider.URL, "err", err)
	}

	var hs domain.HistoryStore
	if store != nil {
		hs = store
	}
	sessionID := "cli-" + time.Now().Format("20060102-150405")
	session := assist.NewSession(ctx, sessionID, cfg.History.MaxHistoryPerConversation, cfg.Provider.Model, hs, logger)

	assistant := assist.New(assist.Config{
		Session:        session,
		Provider:       prov,
		Processor:      pipe,
		MaxFixAttempts: cfg.General.MaxFixAttempts,
		Logger:         logger,
	})
	return assistant.Run(ctx)
}

// newLogger builds the application logger from config. An unwritable log
// file falls back to stderr rather than failing startup.
func newLogger(cfg config.GeneralConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s: %v\n", cfg.LogFile, err)
		} else {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show provider and config status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			prov := provider.NewOllama(cfg.Provider, logger)
			if err := prov.Healthy(ctx); err != nil {
				logger.Info("provider", "name", prov.Name(), "url", cfg.Provider.URL, "healthy", false, "err", err)
				return nil
			}
			logger.Info("provider", "name", prov.Name(), "url", cfg.Provider.URL, "healthy", true)

			models, err := prov.Models(ctx)
			if err != nil {
				logger.Warn("cannot list models", "err", err)
				return nil
			}
			for _, m := range models {
				marker := " "
				if m == cfg.Provider.Model {
					marker = "*"
				}
				fmt.Printf("  %s %s\n", marker, m)
			}
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent command audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadOrDefaults()
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled (history.enabled)")
			}

			store, err := history.NewSQLiteStore(cfg.History.DBPath, logger)
			if err != nil {
				return fmt.Errorf("history store: %w", err)
			}
			defer store.Close()

			records, err := store.ListAuditRecords(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no audit records")
				return nil
			}
			for _, rec := range records {
				fmt.Println(formatAuditRecord(rec))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum records to show")
	return cmd
}

func formatAuditRecord(rec domain.AuditRecord) string {
	outcome := rec.Outcome
	switch {
	case outcome == "":
		outcome = "-"
	case outcome == string(domain.OutcomeCompleted):
		outcome = fmt.Sprintf("exit %d (%dms)", rec.ExitCode, rec.DurationMs)
	}
	return fmt.Sprintf("%s  %-8s %-10s %-16s %s",
		rec.CreatedAt.Format("2006-01-02 15:04:05"),
		rec.Decision, rec.Tier, outcome, rec.Command)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. provider.model)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. security.skipConfirmation true)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.ListPaths(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
