package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docinsight/internal/async"
	"github.com/joseph-ayodele/docinsight/internal/export"
	"github.com/joseph-ayodele/docinsight/internal/ingest"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files or directories...]",
	Short: "Analyze local documents and write a report",
	Long: `analyze runs every supported file (pdf, png, jpg, jpeg) under the given
paths through extraction and enrichment, then writes one report.

The report format comes from --format, or from the --out extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		opts, err := analyzeOptionsFrom(cmd)
		if err != nil {
			return err
		}
		return runAnalyze(cmd.Context(), a, args, opts, cmd.OutOrStdout())
	},
}

type analyzeOptions struct {
	format     export.Format
	out        string
	workers    int
	timeout    time.Duration
	skipHidden bool
}

func init() {
	f := analyzeCmd.Flags()
	f.String("format", "", "report format: json, yaml or xlsx (default from --out, else json)")
	f.StringP("out", "o", "", "write the report to this file instead of stdout")
	f.Int("workers", 4, "documents processed concurrently")
	f.Duration("timeout", 3*time.Minute, "per-document processing timeout")
	f.Bool("skip-hidden", true, "skip dot files and directories")

	rootCmd.AddCommand(analyzeCmd)
}

func analyzeOptionsFrom(cmd *cobra.Command) (analyzeOptions, error) {
	f := cmd.Flags()
	var o analyzeOptions
	o.out, _ = f.GetString("out")
	o.workers, _ = f.GetInt("workers")
	o.timeout, _ = f.GetDuration("timeout")
	o.skipHidden, _ = f.GetBool("skip-hidden")

	name, _ := f.GetString("format")
	if name == "" && o.out != "" {
		name = filepath.Ext(o.out)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return o, err
	}
	o.format = format
	if o.format == export.FormatXLSX && o.out == "" {
		return o, fmt.Errorf("xlsx reports need --out")
	}
	return o, nil
}

func runAnalyze(ctx context.Context, a *app, paths []string, o analyzeOptions, stdout io.Writer) error {
	sources, _, err := ingest.Collect(paths, ingest.CollectOptions{SkipHidden: o.skipHidden, MaxBytes: a.cfg.Upload.MaxBytes}, a.logger)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no supported documents under %v", paths)
	}

	var mu sync.Mutex
	items := make(map[string]export.Item, len(sources))
	q := async.NewProcessorQueue(a.processor, a.logger,
		async.WithWorkers(o.workers),
		async.WithProcessTimeout(o.timeout),
		async.WithOutcome(func(out async.Outcome) {
			it := export.NewItem(out.Job.Source.Path, out.Result, out.Err, out.Elapsed)
			mu.Lock()
			items[out.Job.Source.Path] = it
			mu.Unlock()
		}),
	)
	for _, src := range sources {
		if err := q.Enqueue(ctx, async.Job{Source: src}); err != nil {
			q.Shutdown(context.Background())
			return err
		}
	}
	q.Shutdown(ctx)

	report := export.Report{GeneratedAt: time.Now().UTC()}
	mu.Lock()
	for _, src := range sources {
		if it, ok := items[src.Path]; ok {
			report.Items = append(report.Items, it)
		}
	}
	mu.Unlock()
	sort.SliceStable(report.Items, func(i, j int) bool { return report.Items[i].Source < report.Items[j].Source })

	var failed int
	for _, it := range report.Items {
		if it.Error != "" {
			failed++
		}
	}
	if err := writeReport(a, o.out, o.format, report, stdout); err != nil {
		return err
	}
	a.logger.Info("batch processing complete",
		"documents", len(sources),
		"reported", len(report.Items),
		"failures", failed,
		"output", o.out,
	)
	return nil
}

func writeReport(a *app, path string, format export.Format, r export.Report, stdout io.Writer) error {
	w := export.NewWriter(a.logger)
	if path == "" {
		return w.Write(stdout, format, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.Write(f, format, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
