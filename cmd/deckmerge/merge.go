package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/tsawler/deckmerge"
	"github.com/tsawler/deckmerge/geometry"
	"github.com/tsawler/deckmerge/merge"
)

type mergeFlags struct {
	output      string
	mode        string
	concurrency int
	report      string
	metricsFile string
	quiet       bool
}

func newMergeCommand(g *globals) *cobra.Command {
	f := &mergeFlags{mode: geometry.Uniform.String()}
	cmd := &cobra.Command{
		Use:   "merge TEMPLATE SOURCE...",
		Short: "Append the slides of SOURCE decks to TEMPLATE",
		Long: `Append every slide of each SOURCE, in argument order, to the slides of TEMPLATE.
Slides keep their own layouts and masters; geometry is rescaled when the
slide sizes differ. Inputs and outputs may be local paths or any URL the
storage layer understands (file://, mem://, s3://, gs://).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, g, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Where to write the merged deck (required)")
	cmd.Flags().StringVar(&f.mode, "mode", f.mode, "How to reconcile different aspect ratios (uniform, stretch)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Sources parsed in parallel (0 uses GOMAXPROCS)")
	cmd.Flags().StringVar(&f.report, "report", "", "Write a YAML merge report to this location")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Do not print the summary line")
	return cmd
}

func runMerge(cmd *cobra.Command, g *globals, f *mergeFlags, args []string) error {
	if f.output == "" {
		return fmt.Errorf("--output is required")
	}
	mode, err := geometry.ParseMode(f.mode)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	fs := afs.New()

	template, err := download(ctx, fs, args[0])
	if err != nil {
		return err
	}
	b := deckmerge.Template(template).WithLogger(g.log).Concurrency(f.concurrency)
	if mode == geometry.Stretch {
		b = b.Stretch()
	}
	for _, arg := range args[1:] {
		data, err := download(ctx, fs, arg)
		if err != nil {
			return err
		}
		b = b.Append(data)
	}

	var registry *prometheus.Registry
	if f.metricsFile != "" {
		registry = prometheus.NewRegistry()
		metrics, err := merge.NewMetrics(registry)
		if err != nil {
			return err
		}
		b = b.WithMetrics(metrics)
	}

	res, mergeErr := b.Merge(ctx)
	if registry != nil {
		if err := prometheus.WriteToTextfile(f.metricsFile, registry); err != nil {
			g.log.Error(err, "writing metrics", "file", f.metricsFile)
		}
	}
	if mergeErr != nil {
		return mergeErr
	}

	if err := upload(ctx, fs, f.output, res.Data); err != nil {
		return err
	}
	if f.report != "" {
		data, err := res.Report.YAML()
		if err != nil {
			return errors.Wrap(err, "encoding report")
		}
		if err := upload(ctx, fs, f.report, data); err != nil {
			return err
		}
	}
	for _, w := range res.Warnings {
		g.log.Info("opaque content copied", "warning", w.String())
	}
	if !f.quiet {
		fmt.Fprintln(cmd.OutOrStdout(), res.Report.String())
	}
	return nil
}

// location turns a bare path into an absolute one; URLs pass through.
func location(arg string) string {
	if strings.Contains(arg, "://") {
		return arg
	}
	if abs, err := filepath.Abs(arg); err == nil {
		return abs
	}
	return arg
}

func download(ctx context.Context, fs afs.Service, arg string) ([]byte, error) {
	data, err := fs.DownloadWithURL(ctx, location(arg))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", arg)
	}
	return data, nil
}

func upload(ctx context.Context, fs afs.Service, arg string, data []byte) error {
	if err := fs.Upload(ctx, location(arg), 0o644, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "writing %s", arg)
	}
	return nil
}
