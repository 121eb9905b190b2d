package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"itassist/internal/config"
	"itassist/internal/provider"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your ITAssist installation",
		Long: `Verifies that ITAssist's configuration, Ollama endpoint, database, and
workspace are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("ITAssist Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'itassist init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Workspace directory exists
			if cfg.General.Workspace != "" {
				if info, err := os.Stat(cfg.General.Workspace); err != nil {
					printFail("Workspace", fmt.Sprintf("not found: %s", cfg.General.Workspace))
					failed++
				} else if !info.IsDir() {
					printFail("Workspace", fmt.Sprintf("not a directory: %s", cfg.General.Workspace))
					failed++
				} else {
					printPass("Workspace", cfg.General.Workspace)
					passed++
				}
			} else {
				printWarn("Workspace", "not configured (using current directory)")
				warned++
			}

			// 4. Database writable
			if cfg.History.Enabled {
				if err := checkDatabase(cfg.History.DBPath); err != nil {
					printFail("Database", err.Error())
					failed++
				} else {
					printPass("Database", cfg.History.DBPath)
					passed++
				}
			} else {
				printWarn("Database", "history disabled, no audit trail will be kept")
				warned++
			}

			// 5. Custom rules file readable
			if cfg.Security.RulesFile != "" {
				if _, err := os.Stat(cfg.Security.RulesFile); err != nil {
					printFail("Rules file", fmt.Sprintf("not found: %s", cfg.Security.RulesFile))
					failed++
				} else {
					printPass("Rules file", cfg.Security.RulesFile)
					passed++
				}
			}

			// 6. Ollama reachable and model pulled
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			prov := provider.NewOllama(cfg.Provider, logger)
			if err := prov.Healthy(ctx); err != nil {
				printWarn("Ollama", fmt.Sprintf("unreachable at %s: %v", cfg.Provider.URL, err))
				warned++
			} else {
				printPass("Ollama", cfg.Provider.URL)
				passed++

				models, err := prov.Models(ctx)
				if err != nil {
					printWarn("Model", fmt.Sprintf("cannot list models: %v", err))
					warned++
				} else if containsModel(models, cfg.Provider.Model) {
					printPass("Model", cfg.Provider.Model)
					passed++
				} else {
					printWarn("Model", fmt.Sprintf("%s not pulled (run 'ollama pull %s')", cfg.Provider.Model, cfg.Provider.Model))
					warned++
				}
			}

			// 7. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running ITAssist.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nITAssist should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! ITAssist is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func containsModel(models []string, want string) bool {
	for _, m := range models {
		if m == want {
			return true
		}
	}
	return false
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
