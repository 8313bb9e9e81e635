package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gzhole/dataclassify/internal/classify"
	"github.com/gzhole/dataclassify/internal/report"
)

var (
	scanWorkers    int
	scanReportPath string
	scanMetricsOut string
	scanShowAll    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Classify every file under a directory",
	Long: `Walk a directory tree and classify every regular text file up to
scan.max_file_bytes. Files are classified concurrently by scan.workers
workers. Prints files at confidential or above, then a compliance summary.

Examples:
  dataclassify scan ./exports
  dataclassify scan --all --report report.md ./shared
  dataclassify scan --metrics-out /var/lib/node_exporter/dataclassify.prom /data`,
	Args: cobra.ExactArgs(1),
	RunE: scanCommand,
}

func init() {
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Concurrent workers (default: scan.workers from config)")
	scanCmd.Flags().StringVar(&scanReportPath, "report", "", "Write a markdown report to this path")
	scanCmd.Flags().StringVar(&scanMetricsOut, "metrics-out", "", "Write Prometheus metrics in text format to this path")
	scanCmd.Flags().BoolVar(&scanShowAll, "all", false, "Print every classified file, not only confidential and above")
	rootCmd.AddCommand(scanCmd)
}

func scanCommand(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	runID := uuid.NewString()
	if rt.audit != nil {
		rt.audit.SetRunID(runID)
	}

	workers := rt.cfg.Scan.Workers
	if scanWorkers > 0 {
		workers = scanWorkers
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt.log.Info("scan started", zap.String("run_id", runID), zap.String("root", args[0]), zap.Int("workers", workers))
	start := time.Now()

	stats, err := scanDirectory(ctx, rt.engine, args[0], scanOptions{
		workers:  workers,
		maxBytes: rt.cfg.Scan.MaxFileBytes,
		log:      rt.log,
	})
	if err != nil {
		return err
	}

	rt.log.Info("scan finished",
		zap.String("run_id", runID),
		zap.Int("classified", stats.Classified),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	out := cmd.OutOrStdout()
	printScan(out, rt.engine, stats, scanShowAll)

	if scanReportPath != "" {
		md := report.GenerateMarkdown(rt.engine.ComplianceSummary(), rt.engine.Inventory(), time.Now())
		if err := os.WriteFile(scanReportPath, []byte(md), 0600); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(out, "\nReport written to %s\n", scanReportPath)
	}
	if scanMetricsOut != "" {
		if err := rt.metrics.WriteTextfile(scanMetricsOut); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		fmt.Fprintf(out, "Metrics written to %s\n", scanMetricsOut)
	}
	return nil
}

type scanOptions struct {
	workers  int
	maxBytes int64
	log      *zap.Logger
}

type scanStats struct {
	Classified int
	Skipped    int // too large, binary or not a regular file
	Failed     int
}

// binarySniffLen is how much of a file is checked for NUL bytes.
const binarySniffLen = 8000

// scanDirectory classifies every eligible file under root. File IDs are
// slash-separated paths relative to root. Per-file read errors are counted,
// not returned; only walk failures and cancellation abort the scan.
func scanDirectory(ctx context.Context, engine *classify.Engine, root string, opts scanOptions) (scanStats, error) {
	if opts.workers < 1 {
		opts.workers = 1
	}
	if opts.log == nil {
		opts.log = zap.NewNop()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return scanStats{}, err
	}
	if info, err := os.Stat(absRoot); err != nil {
		return scanStats{}, err
	} else if !info.IsDir() {
		return scanStats{}, fmt.Errorf("%s is not a directory", root)
	}

	var (
		mu    sync.Mutex
		stats scanStats
	)
	count := func(f func(*scanStats)) {
		mu.Lock()
		f(&stats)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			opts.log.Warn("cannot read path", zap.String("path", path), zap.Error(err))
			count(func(s *scanStats) { s.Failed++ })
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}
		if d.IsDir() {
			if path != absRoot && d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			count(func(s *scanStats) { s.Skipped++ })
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			rel = path
		}
		fileID := filepath.ToSlash(rel)

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			content, info, err := readScanFile(path, opts.maxBytes)
			switch {
			case err != nil:
				opts.log.Warn("cannot read file", zap.String("file", fileID), zap.Error(err))
				count(func(s *scanStats) { s.Failed++ })
				return nil
			case content == nil:
				opts.log.Debug("skipping file", zap.String("file", fileID))
				count(func(s *scanStats) { s.Skipped++ })
				return nil
			}

			engine.ClassifyContent(fileID, filepath.Base(path), string(content), classify.Metadata{
				"path":     path,
				"size":     info.Size(),
				"modified": info.ModTime().UTC().Format(time.RFC3339),
			})
			count(func(s *scanStats) { s.Classified++ })
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	if walkErr != nil {
		return stats, walkErr
	}
	return stats, nil
}

// readScanFile returns the file content, or nil content when the file is
// too large or looks binary.
func readScanFile(path string, maxBytes int64) ([]byte, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() > maxBytes {
		return nil, info, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, info, err
	}
	if int64(len(data)) > maxBytes {
		return nil, info, nil
	}
	if bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0 {
		return nil, info, nil
	}
	return data, info, nil
}

func printScan(w io.Writer, engine *classify.Engine, stats scanStats, all bool) {
	items := engine.Inventory()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Classification.Level() > items[j].Classification.Level()
	})

	for _, item := range items {
		if !all && item.Classification.Level() < classify.Confidential.Level() {
			continue
		}
		line := fmt.Sprintf("%s %-12s %s", levelIcon(item.Classification), item.Classification, item.ID)
		if len(item.ComplianceRequirements) > 0 {
			line += "  [" + strings.Join(item.ComplianceRequirements, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}

	summary := engine.ComplianceSummary()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  Scan Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Classified:      %d\n", stats.Classified)
	fmt.Fprintf(w, "  Skipped:         %d\n", stats.Skipped)
	fmt.Fprintf(w, "  Failed:          %d\n", stats.Failed)
	for _, c := range []classify.Classification{classify.TopSecret, classify.Restricted, classify.Confidential, classify.Internal, classify.Public} {
		fmt.Fprintf(w, "  %-16s %d\n", string(c)+":", summary.ByClassification[c])
	}
	if len(summary.ByFramework) > 0 {
		frameworks := make([]string, 0, len(summary.ByFramework))
		for fw, n := range summary.ByFramework {
			frameworks = append(frameworks, fmt.Sprintf("%s=%d", fw, n))
		}
		sort.Strings(frameworks)
		fmt.Fprintf(w, "  Compliance:      %s\n", strings.Join(frameworks, " "))
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════")
}
