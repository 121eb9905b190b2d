package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"itassist/internal/config"

	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the history database and config into a .tar.gz",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			dbPath := resolveDBPath(cfgPath)

			if outputPath == "" {
				backupDir := filepath.Join(config.DefaultConfigDir(), "backups")
				if err := os.MkdirAll(backupDir, 0o755); err != nil {
					return fmt.Errorf("create backup directory: %w", err)
				}
				name := "itassist-" + time.Now().Format("20060102-150405") + ".tar.gz"
				outputPath = filepath.Join(backupDir, name)
			}

			// The database plus its WAL sidecars, and the config file.
			// Missing files are simply skipped.
			candidates := []string{dbPath, dbPath + "-wal", dbPath + "-shm", cfgPath}
			var files []string
			for _, f := range candidates {
				if _, err := os.Stat(f); err == nil {
					files = append(files, f)
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("nothing to back up (db: %s, config: %s)", dbPath, cfgPath)
			}

			if err := writeArchive(outputPath, files); err != nil {
				return fmt.Errorf("backup: %w", err)
			}

			fmt.Printf("Backup created: %s\n", outputPath)
			for _, f := range files {
				var size int64
				if info, err := os.Stat(f); err == nil {
					size = info.Size()
				}
				fmt.Printf("  - %s (%s)\n", filepath.Base(f), humanSize(size))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output archive path (default: ~/.itassist/backups/itassist-<timestamp>.tar.gz)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <file.tar.gz>",
		Short: "Restore the history database and config from a backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archivePath := args[0]
			cfgPath := resolveConfigPath()
			dbPath := resolveDBPath(cfgPath)

			if !force && (fileExists(dbPath) || fileExists(cfgPath)) {
				fmt.Printf("WARNING: this will overwrite existing data.\n")
				fmt.Printf("  Database: %s\n", dbPath)
				fmt.Printf("  Config:   %s\n", cfgPath)
				return fmt.Errorf("restore aborted (use --force to proceed)")
			}

			restored, err := readArchive(archivePath, dbPath, cfgPath)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}

			fmt.Printf("Restored %d file(s) from %s\n", len(restored), archivePath)
			for _, f := range restored {
				fmt.Printf("  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data without warning")
	return cmd
}

// resolveDBPath reads the configured database path, falling back to the
// default location next to the config file.
func resolveDBPath(cfgPath string) string {
	if cfg, err := config.Load(cfgPath); err == nil && cfg.History.DBPath != "" {
		return cfg.History.DBPath
	}
	return filepath.Join(filepath.Dir(cfgPath), "history.db")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeArchive creates a .tar.gz holding the given files, flattened to
// their base names.
func writeArchive(outputPath string, files []string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			f.Close()
			return err
		}
		hdr.Name = filepath.Base(path)
		if err := tw.WriteHeader(hdr); err != nil {
			f.Close()
			return err
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return fmt.Errorf("add %s: %w", path, err)
		}
		f.Close()
	}
	return nil
}

// readArchive extracts a backup archive, routing each entry to its target
// by name.
func readArchive(archivePath, dbPath, cfgPath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("not a gzip archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var restored []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		target := restoreTarget(filepath.Base(hdr.Name), dbPath, cfgPath)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		out, err := os.Create(target)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return nil, fmt.Errorf("extract %s: %w", target, err)
		}
		out.Close()
		restored = append(restored, target)
	}
	return restored, nil
}

func restoreTarget(name, dbPath, cfgPath string) string {
	switch {
	case name == "config.json":
		return cfgPath
	case strings.HasSuffix(name, ".db"):
		return dbPath
	case strings.HasSuffix(name, ".db-wal"):
		return dbPath + "-wal"
	case strings.HasSuffix(name, ".db-shm"):
		return dbPath + "-shm"
	default:
		return filepath.Join(filepath.Dir(cfgPath), name)
	}
}

func humanSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
