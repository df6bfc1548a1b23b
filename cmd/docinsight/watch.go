package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docinsight/internal/async"
	"github.com/joseph-ayodele/docinsight/internal/export"
	"github.com/joseph-ayodele/docinsight/internal/ingest"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directories...]",
	Short: "Analyze documents as they appear in watched directories",
	Long: `watch processes every supported file created or rewritten under the given
directories and writes one report per document into --out-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer startGops(a.cfg.Server.Gops, a.logger)()

		f := cmd.Flags()
		outDir, _ := f.GetString("out-dir")
		name, _ := f.GetString("format")
		format, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		workers, _ := f.GetInt("workers")
		initial, _ := f.GetBool("initial-scan")
		debounce, _ := f.GetDuration("debounce")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, a, ingest.WatchConfig{
			Roots:       args,
			InitialScan: initial,
			Debounce:    debounce,
			SkipHidden:  true,
		}, outDir, format, workers)
	},
}

func init() {
	f := watchCmd.Flags()
	f.String("out-dir", "reports", "directory receiving one report per document")
	f.String("format", "json", "report format: json, yaml or xlsx")
	f.Int("workers", 2, "documents processed concurrently")
	f.Bool("initial-scan", false, "also process files already present")
	f.Duration("debounce", 500*time.Millisecond, "wait for writes to settle before processing")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, a *app, wc ingest.WatchConfig, outDir string, format export.Format, workers int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	absOut, _ := filepath.Abs(outDir)

	q := async.NewProcessorQueue(a.processor, a.logger,
		async.WithWorkers(workers),
		async.WithOutcome(func(out async.Outcome) {
			report := export.Report{
				GeneratedAt: time.Now().UTC(),
				Items:       []export.Item{export.NewItem(out.Job.Source.Path, out.Result, out.Err, out.Elapsed)},
			}
			path := filepath.Join(outDir, reportName(out.Job.Source.Path, format))
			if err := writeReport(a, path, format, report, nil); err != nil {
				a.logger.Error("report write failed", "path", path, "error", err)
			}
		}),
	)
	defer q.Shutdown(context.Background())

	events, errs, err := ingest.StartWatcher(ctx, wc, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("watching", "roots", wc.Roots, "out_dir", outDir)

	for {
		select {
		case src, ok := <-events:
			if !ok {
				return nil
			}
			// Reports written under a watched root must not loop back in.
			if abs, _ := filepath.Abs(src.Path); strings.HasPrefix(abs, absOut+string(filepath.Separator)) {
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Source: src}); err != nil {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watcher reported an error", "error", err)
		}
	}
}

// reportName derives a report file name from the source file name,
// e.g. "scan.png" -> "scan-png.json".
func reportName(source string, format export.Format) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%s.%s", strings.TrimSuffix(base, ext), strings.TrimPrefix(ext, "."), format)
}
