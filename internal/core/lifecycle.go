package core

// lifecycle.go moves intake files through their states:
//
//	discovered -> unrecognized            (left in intake, warned about)
//	discovered -> processing -> archived  (renamed into the archive dir)
//	discovered -> processing -> failed    (left in intake for the next run)
//
// The archive rename is what keeps a file from ever being imported twice:
// the runner only lists the intake directory, never the archive.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/canvas-etl/internal/config"
	"github.com/JonMunkholm/canvas-etl/internal/logging"
)

// FileImporter imports one classified file.
type FileImporter interface {
	ImportFile(ctx context.Context, path string, ct config.CanvasType) (*ImportResult, error)
}

// Runner processes every file of the intake directory once.
type Runner struct {
	Importer   FileImporter
	Canvas     *config.CanvasTypes
	IntakeDir  string
	ArchiveDir string
	Metrics    *Metrics
	Now        func() time.Time
}

// RunSummary reports what a run did with each intake file.
type RunSummary struct {
	Discovered   int
	Unrecognized []string
	Failed       []string
	Archived     []string // Archive paths, in processing order
	Results      []*ImportResult
}

// Imported returns the total number of imported rows.
func (s *RunSummary) Imported() int {
	n := 0
	for _, r := range s.Results {
		n += r.Imported
	}
	return n
}

// Discover lists the supported files of dir, sorted by name.
// Directories and Excel lock files (~$name.xlsx) are skipped.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !IsSupported(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Classify returns the canvas type whose key prefixes name, compared
// case-insensitively. Types are tried in configuration order and the first
// match wins.
func Classify(name string, types *config.CanvasTypes) (config.CanvasType, bool) {
	upper := strings.ToUpper(filepath.Base(name))
	for _, ct := range types.All() {
		if strings.HasPrefix(upper, strings.ToUpper(ct.Key)) {
			return ct, true
		}
	}
	return config.CanvasType{}, false
}

// ArchiveName returns {stem}_{YYYYMMDD_HHMMSS}{ext} for name.
func ArchiveName(name string, now time.Time) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", stem, now.Format("20060102_150405"), ext)
}

// Archive renames path into the archive directory under its ArchiveName.
// When that name is taken, _1, _2, ... is appended to the stem; an existing
// archive file is never overwritten.
func (r *Runner) Archive(path string) (string, error) {
	if err := os.MkdirAll(r.ArchiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	base := ArchiveName(filepath.Base(path), r.now())
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dest := filepath.Join(r.ArchiveDir, base)
	for n := 1; ; n++ {
		_, err := os.Lstat(dest)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("check archive name: %w", err)
		}
		dest = filepath.Join(r.ArchiveDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("archive %s: %w", filepath.Base(path), err)
	}
	return dest, nil
}

// Run imports every recognized intake file in name order and archives it.
//
// Unrecognized files are left in place with a warning. A file whose import
// returns an error is left in place as well. Row-level errors never block
// archiving. Run returns an error only when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	logger := logging.FromContext(ctx)
	summary := &RunSummary{}

	names, err := Discover(r.IntakeDir)
	if err != nil {
		logger.Error("cannot list intake directory", "dir", r.IntakeDir, "error", err)
		return summary, nil
	}
	summary.Discovered = len(names)

	if len(names) == 0 {
		logger.Warn("no files to import", "dir", r.IntakeDir)
		return summary, nil
	}

	type job struct {
		name string
		ct   config.CanvasType
	}
	var jobs []job

	for _, name := range names {
		ct, ok := Classify(name, r.Canvas)
		if !ok {
			summary.Unrecognized = append(summary.Unrecognized, name)
			r.Metrics.file(FileUnrecognized)
			logger.Warn("unrecognized file left in intake",
				"file", name,
				"expected_prefixes", strings.Join(r.Canvas.Keys(), ", "),
			)
			continue
		}
		jobs = append(jobs, job{name: name, ct: ct})
	}

	if len(jobs) == 0 {
		logger.Warn("no recognized files", "dir", r.IntakeDir, "unrecognized", len(summary.Unrecognized))
		return summary, nil
	}

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		path := filepath.Join(r.IntakeDir, j.name)
		res, err := r.Importer.ImportFile(ctx, path, j.ct)
		if err != nil {
			summary.Failed = append(summary.Failed, j.name)
			r.Metrics.file(FileFailed)
			logger.Error("file left in intake", "file", j.name, "error", err)
			continue
		}
		summary.Results = append(summary.Results, res)

		dest, err := r.Archive(path)
		if err != nil {
			r.Metrics.file(FileArchiveError)
			logger.Error("archive failed", "file", j.name, "error", err)
			continue
		}
		summary.Archived = append(summary.Archived, dest)
		r.Metrics.file(FileImported)
		logger.Info("file archived", "file", j.name, "archive", dest)
	}

	logger.Info("run finished",
		"discovered", summary.Discovered,
		"archived", len(summary.Archived),
		"failed", len(summary.Failed),
		"unrecognized", len(summary.Unrecognized),
		"rows_imported", summary.Imported(),
	)
	return summary, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
