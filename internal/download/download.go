// Package download drives the bounded worker pool that fetches a sync
// plan's DownloadTasks (spec.md §4.6): stream to a temp file, verify
// checksum, fsync-and-rename, retry with backoff, cooperative
// cancellation. The pool shape (bounded goroutines draining a shared job
// channel, one result per task) is grounded on aaravmaloo-xe's
// internal/engine/install.go download/extract pool; the backoff defaults
// New applies (1s base, factor 2, 30s cap) are literals here, equal to
// internal/config's BackoffBase/BackoffFactor/BackoffCap constants.
// Per-file progress display reuses the teacher's internal/progress the same
// way internal/actions/download.go does: wrap the destination writer in a
// progress.Writer when the response carries a content length and stdout is
// a terminal.
package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/instl-engine/instl/internal/httputil"
	"github.com/instl-engine/instl/internal/log"
	"github.com/instl-engine/instl/internal/progress"
)

// Task is one file to fetch (syncplan.DownloadTask, flattened so this
// package does not need to import syncplan).
type Task struct {
	Path             string
	URL              string
	ExpectedChecksum string
}

// FailedError is surfaced for a task that exhausted its retries
// (spec.md §7 DownloadFailed).
type FailedError struct {
	URL   string
	Cause error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Cause)
}

func (e *FailedError) Unwrap() error { return e.Cause }

// ChecksumMismatchError is returned (and wrapped into FailedError) when the
// downloaded bytes don't hash to the expected checksum.
type ChecksumMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: want %s, got %s", e.Path, e.Want, e.Got)
}

// Result records the outcome of one task.
type Result struct {
	Task Task
	Err  error
}

// Options configures the executor; zero values fall back to the defaults
// New applies, except Retries: 0 means a single attempt with no retry,
// and only a negative Retries selects the default of 3.
type Options struct {
	Workers        int
	Retries        int
	BackoffBase    time.Duration
	BackoffFactor  int
	BackoffCap     time.Duration
	Client         *http.Client
	Logger         log.Logger
	ProgressOutput io.Writer // where per-file progress bars are printed; defaults to os.Stdout
}

// Executor runs DownloadTasks against DestRoot, a directory tree mirroring
// the repo's relative paths.
type Executor struct {
	opts     Options
	destRoot string
}

// New creates an Executor rooted at destRoot, applying opts over the
// package defaults.
func New(destRoot string, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Retries < 0 {
		opts.Retries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = 2
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = 30 * time.Second
	}
	if opts.Client == nil {
		opts.Client = httputil.NewSecureClient(httputil.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ProgressOutput == nil {
		opts.ProgressOutput = os.Stdout
	}
	return &Executor{opts: opts, destRoot: destRoot}
}

// Run drains tasks through the worker pool, returning one Result per task
// (in completion order, not input order) plus the first context
// cancellation error, if any. A task that exhausts its retries produces a
// Result carrying a *FailedError but does not abort the other workers
// (spec.md §4.6: "other tasks continue").
func (e *Executor) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make(chan Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			err := e.runWithRetry(gctx, task)
			results <- Result{Task: task, Err: err}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	waitErr := g.Wait()
	close(results)

	out := make([]Result, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	return out, waitErr
}

func (e *Executor) runWithRetry(ctx context.Context, task Task) error {
	var lastErr error
	delay := e.opts.BackoffBase

	for attempt := 0; attempt <= e.opts.Retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > 0 {
			e.opts.Logger.Debug("retrying download", "path", task.Path, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= time.Duration(e.opts.BackoffFactor)
			if delay > e.opts.BackoffCap {
				delay = e.opts.BackoffCap
			}
		}

		lastErr = e.fetchOnce(ctx, task)
		if lastErr == nil {
			return nil
		}
	}

	return &FailedError{URL: task.URL, Cause: lastErr}
}

func (e *Executor) fetchOnce(ctx context.Context, task Task) error {
	targetPath := filepath.Join(e.destRoot, filepath.FromSlash(task.Path))
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("creating target directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := e.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", task.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", task.URL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(targetPath), filepath.Base(targetPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		tmp.Close()
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	hasher := sha1.New()
	var writer io.Writer = io.MultiWriter(tmp, hasher)

	if progress.ShouldShowProgress() && resp.ContentLength > 0 {
		pw := progress.NewWriter(writer, resp.ContentLength, e.opts.ProgressOutput)
		defer pw.Finish()
		writer = pw
	}

	if _, err := copyWithCancel(ctx, writer, resp.Body); err != nil {
		return fmt.Errorf("streaming %s: %w", task.URL, err)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if task.ExpectedChecksum != "" && got != task.ExpectedChecksum {
		return &ChecksumMismatchError{Path: task.Path, Want: task.ExpectedChecksum, Got: got}
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsyncing %s: %w", targetPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}
	succeeded = true
	return nil
}

// copyWithCancel streams src to dst in fixed-size chunks, checking ctx
// between chunks so cancellation aborts "at the next chunk boundary"
// (spec.md §4.6) instead of blocking on the whole body.
func copyWithCancel(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			total += int64(w)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}
