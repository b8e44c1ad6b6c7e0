package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/waskit/waskit/internal/config"
)

// newWatchCmd creates the "watch" subcommand for auto-rebuilding on source
// changes.
func newWatchCmd() *cobra.Command {
	var (
		sourceDir string
		debounce  time.Duration
		andDeploy bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-rebuild on source file changes",
		Long: `Watch monitors the source tree and rebuilds the signed artifact on each
change. Rapid edits are debounced into a single rebuild.

With --deploy, each successful build is also deployed.

Examples:
    waskit watch
    waskit watch --deploy
    waskit watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if sourceDir != "" {
					c.SourceDir = sourceDir
				}
			})
			if err != nil {
				return err
			}
			return runWatch(cmd, cfg, debounce, andDeploy)
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "Source directory (default: from config)")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().BoolVar(&andDeploy, "deploy", false, "Deploy after each successful build")

	return cmd
}

func runWatch(cmd *cobra.Command, cfg config.Config, debounce time.Duration, andDeploy bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	dir, err := filepath.Abs(cfg.SourceDir)
	if err != nil {
		return err
	}
	if err := addDirRecursive(watcher, dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Printf("Watching: %s\n", dir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Running initial build...")
	rebuild(cmd, cfg, andDeploy)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Println("\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isSourceFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Printf("\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			rebuild(cmd, cfg, andDeploy)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Println("\nStopping watch...")
			return nil
		}
	}
}

// isSourceFile reports whether a change to the file should trigger a
// rebuild. Toolchain output under target/ never does.
func isSourceFile(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "target" {
			return false
		}
	}
	switch filepath.Ext(path) {
	case ".rs", ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

// addDirRecursive adds a directory and all subdirectories to the watcher.
func addDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories and toolchain output
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			if filepath.Base(path) == "target" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// rebuild runs build (and optionally deploy), reporting errors without
// stopping the watch loop.
func rebuild(cmd *cobra.Command, cfg config.Config, andDeploy bool) {
	if err := runBuild(cmd, cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		return
	}

	if !andDeploy {
		return
	}

	if err := runDeploy(cmd, cfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "Deploy failed: %v\n", err)
	}
}
