// Package extract materialises schema files packaged inside dependency
// artifacts into a per-source-set staging directory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"schemadeps/internal/archive"
	"schemadeps/internal/core"
)

// Extractor copies schema entries out of dependency artifacts.
type Extractor struct {
	// SchemaExtension selects entries by name suffix, e.g. ".avsc".
	SchemaExtension string

	log *slog.Logger
}

// New returns an Extractor for entries ending with schemaExtension.
func New(schemaExtension string) *Extractor {
	return &Extractor{SchemaExtension: schemaExtension, log: slog.Default()}
}

// WithLogger sets the extractor's logger.
func (x *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	x.log = logger
	return x
}

// Result describes a populated staging directory.
type Result struct {
	// Files are the staged files, relative to the staging dir, sorted.
	Files []string
	// Duplicates are entry names skipped because an earlier artifact provided them.
	Duplicates []string
	// Digest is the content identity of the staging directory.
	Digest core.Digest
}

// Extract replaces stagingDir with the schema entries of artifacts.
//
// Entries keep their relative path. When several artifacts contain the same
// entry name the first one in artifact order wins. Directories are only
// created for files, so no empty directory is ever staged.
//
// The new content is assembled in a temporary sibling directory and swapped in
// only after every artifact was read successfully; on failure the previous
// staging directory is left as it was.
func (x *Extractor) Extract(ctx context.Context, artifacts []core.Artifact, stagingDir string) (*Result, error) {
	if x.SchemaExtension == "" {
		return nil, errors.New("schema extension is required")
	}
	if stagingDir == "" {
		return nil, errors.New("staging directory is required")
	}
	log := x.log
	if log == nil {
		log = slog.Default()
	}

	parent := filepath.Dir(stagingDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(stagingDir)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temporary staging dir: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()
	if err := os.Chmod(tmp, 0o755); err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	result := &Result{}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		staged := 0
		err := archive.Walk(a, func(e archive.Entry) error {
			if !strings.HasSuffix(e.Name, x.SchemaExtension) {
				return nil
			}
			rel, err := archive.SafePath(e.Name)
			if err != nil {
				return &archive.Error{Artifact: a, Op: "extract", Err: err}
			}
			if _, dup := seen[rel]; dup {
				result.Duplicates = append(result.Duplicates, rel)
				return nil
			}
			seen[rel] = struct{}{}
			if err := writeEntry(tmp, rel, e); err != nil {
				return &archive.Error{Artifact: a, Op: "extract " + rel, Err: err}
			}
			staged++
			return nil
		})
		if err != nil {
			return nil, err
		}
		log.Debug("Staged schemas from artifact", "artifact", a.String(), "count", staged)
	}

	if err := swapDir(tmp, stagingDir); err != nil {
		return nil, fmt.Errorf("committing staging dir %q: %w", stagingDir, err)
	}
	committed = true

	if result.Files, err = core.ListFiles(stagingDir); err != nil {
		return nil, err
	}
	if result.Digest, err = core.DigestDir(stagingDir); err != nil {
		return nil, err
	}
	return result, nil
}

func writeEntry(root, rel string, e archive.Entry) error {
	dest := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	src, err := e.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	if mod := e.Header().Modified; !mod.IsZero() {
		return os.Chtimes(dest, mod, mod)
	}
	return nil
}

// swapDir moves src to dst, replacing dst. The previous dst is restored if the
// final rename fails.
func swapDir(src, dst string) error {
	backup := ""
	if _, err := os.Stat(dst); err == nil {
		backup = dst + ".old"
		if err := os.RemoveAll(backup); err != nil {
			return err
		}
		if err := os.Rename(dst, backup); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.Rename(src, dst); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dst)
		}
		return err
	}
	if backup != "" {
		return os.RemoveAll(backup)
	}
	return nil
}
