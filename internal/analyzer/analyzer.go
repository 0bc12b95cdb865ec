// Package analyzer drives a repository analysis: walk the tree, extract
// entities from every accepted file under bounded parallelism, then fold
// the per-file results into one graph in a single deterministic pass.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zheng/repograph/internal/extract"
	"github.com/zheng/repograph/internal/graph"
)

// Options tunes a repository analysis run.
type Options struct {
	// Workers bounds extraction parallelism. Zero means 8.
	Workers int
	// MaxFileSize in bytes; larger files are skipped. Zero means 1MB.
	MaxFileSize int64
	// FileTimeout bounds extraction of a single file; on expiry the file
	// contributes nothing. Zero means 10s.
	FileTimeout time.Duration
	// ExcludeGlobs are extra path patterns to skip.
	ExcludeGlobs []string
}

const (
	defaultWorkers     = 8
	defaultMaxFileSize = 1024 * 1024
	defaultFileTimeout = 10 * time.Second
)

// Stats summarizes an analysis run.
type Stats struct {
	FilesScanned int           `json:"files_scanned"`
	FilesSkipped int           `json:"files_skipped"`
	Nodes        int           `json:"nodes"`
	Edges        int           `json:"edges"`
	Partial      bool          `json:"partial"`
	Duration     time.Duration `json:"duration"`
}

// Analyzer builds repository graphs.
type Analyzer struct {
	opts Options
	log  *slog.Logger
	ext  *extract.Extractor
}

// New creates an analyzer. A nil logger falls back to slog.Default.
func New(opts Options, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = defaultFileTimeout
	}
	return &Analyzer{opts: opts, log: log, ext: extract.New(log)}
}

// Analyze walks the repository and returns its structural graph.
//
// A missing root is a legitimately empty result, not an error. When ctx
// carries a deadline and it expires mid-scan, the graph assembled from
// the files finished so far is returned with Stats.Partial set.
func (a *Analyzer) Analyze(ctx context.Context, root string) (*graph.Graph, Stats, error) {
	start := time.Now()
	stats := Stats{}

	exists, err := statRoot(root)
	if err != nil {
		return nil, stats, fmt.Errorf("cannot access repository %s: %w", root, err)
	}
	if !exists {
		a.log.Warn("repository path not found, returning empty graph", "path", root)
		return graph.New(), stats, nil
	}

	w, err := newWalker(root, a.opts.MaxFileSize, a.opts.ExcludeGlobs)
	if err != nil {
		return nil, stats, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	files, err := w.walk()
	if err != nil {
		return nil, stats, fmt.Errorf("walking %s: %w", root, err)
	}

	results := make([]graph.FileResult, 0, len(files))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.opts.Workers)

	for _, f := range files {
		if egCtx.Err() != nil {
			stats.Partial = true
			break
		}
		f := f
		eg.Go(func() error {
			res, ok := a.extractOne(egCtx, f)
			if !ok {
				mu.Lock()
				stats.FilesSkipped++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			results = append(results, res)
			stats.FilesScanned++
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; the group is used for its bounded
	// scheduling and context propagation.
	_ = eg.Wait()
	if ctx.Err() != nil {
		stats.Partial = true
	}

	g := graph.Assemble(results)
	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()
	stats.Duration = time.Since(start)

	a.log.Info("analysis complete",
		"path", root,
		"files", stats.FilesScanned,
		"skipped", stats.FilesSkipped,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"partial", stats.Partial,
		"duration", stats.Duration)
	return g, stats, nil
}

// extractOne reads and scans a single file under the per-file timeout.
// Failures and timeouts skip the file rather than aborting the scan.
func (a *Analyzer) extractOne(ctx context.Context, f SourceFile) (graph.FileResult, bool) {
	fileCtx, cancel := context.WithTimeout(ctx, a.opts.FileTimeout)
	defer cancel()

	type outcome struct {
		res graph.FileResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{res: a.ext.Extract(f.RelPath, content)}
	}()

	select {
	case <-fileCtx.Done():
		a.log.Warn("file skipped", "path", f.RelPath, "reason", fileCtx.Err())
		return graph.FileResult{}, false
	case out := <-done:
		if out.err != nil {
			a.log.Warn("file unreadable, skipped", "path", f.RelPath, "error", out.err)
			return graph.FileResult{}, false
		}
		return out.res, true
	}
}
