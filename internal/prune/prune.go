package prune

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// DeleteError is a failure to delete one generated file.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("deleting %q: %v", e.Path, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// Result lists what a prune pass deleted.
type Result struct {
	// Deleted holds the deleted file paths, sorted.
	Deleted []string
}

// Pruner deletes excluded files from generator output directories.
type Pruner struct {
	log *slog.Logger
}

// New returns a Pruner.
func New() *Pruner {
	return &Pruner{log: slog.Default()}
}

// WithLogger sets the pruner's logger.
func (p *Pruner) WithLogger(logger *slog.Logger) *Pruner {
	p.log = logger
	return p
}

// Prune deletes every file below outputDirs whose relative path is included by
// set.
//
// An empty set deletes nothing and does not touch the file system. It is never
// treated as a match-everything filter.
func (p *Pruner) Prune(ctx context.Context, outputDirs []string, set *ExclusionSet) (*Result, error) {
	if set.IsEmpty() {
		return &Result{}, nil
	}
	log := p.log
	if log == nil {
		log = slog.Default()
	}

	match := set.Matcher()
	result := &Result{}
	var errs *multierror.Error
	for _, dir := range outputDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				log.Debug("Skipping missing output directory", "dir", dir)
				continue
			}
			return nil, fmt.Errorf("stat output dir %q: %w", dir, err)
		}

		var matches []string
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if match(filepath.ToSlash(rel)) {
				matches = append(matches, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking output dir %q: %w", dir, err)
		}

		for _, path := range matches {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				errs = multierror.Append(errs, &DeleteError{Path: path, Err: err})
				continue
			}
			result.Deleted = append(result.Deleted, path)
		}
	}

	sort.Strings(result.Deleted)
	if err := errs.ErrorOrNil(); err != nil {
		return result, err
	}
	log.Debug("Pruned generated files", "deleted", len(result.Deleted), "exclusions", set.Len())
	return result, nil
}
