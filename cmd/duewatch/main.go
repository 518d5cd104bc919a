package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/duewatch/internal/app"
	"github.com/MrSnakeDoc/duewatch/internal/config"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
	"github.com/MrSnakeDoc/duewatch/internal/store"
	"github.com/MrSnakeDoc/duewatch/internal/version"
)

// pageScanner runs one scan (allows faking in tests)
type pageScanner interface {
	Scan(ctx context.Context, src scanner.Source, opts scanner.Options) scanner.Result
}

var rootCmd = &cobra.Command{
	Use:           "duewatch",
	Short:         "duewatch - assignment deadlines extracted from LMS pages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the service (HTTP API, scheduled rescans, snapshot watcher)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.New().Run()
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan one page and print the result as JSON",
	RunE:  runScan,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build info",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

var (
	scanURL  string
	scanFile string
	scanSave bool
)

func init() {
	scanCmd.Flags().StringVar(&scanURL, "url", "", "page location used for classification and links")
	scanCmd.Flags().StringVar(&scanFile, "file", "", "read the page from a saved HTML file instead of fetching it")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "merge the result into the configured store")
	_ = scanCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(serveCmd, scanCmd, versionCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store.Store
	if scanSave {
		backend, err := app.OpenStore(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = backend.Close() }()
		st = backend.Store
	}

	var src scanner.Source
	if scanFile != "" {
		src = scanner.FileSource{PageURL: scanURL, Path: scanFile}
	} else {
		src = scanner.NewFetcher(cfg.FetchTimeout, cfg.UserAgent).Source(scanURL)
	}

	return scanOnce(ctx, cmd.OutOrStdout(), app.NewScanner(cfg, st, log, nil), src, scanSave)
}

// scanOnce runs a single attempt and writes the result to out.
func scanOnce(ctx context.Context, out io.Writer, sc pageScanner, src scanner.Source, save bool) error {
	res := sc.Scan(ctx, src, scanner.Options{Attempts: 1, Persist: save})

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return res.Err
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "❌ duewatch: %v\n", err)
		os.Exit(1)
	}
}
