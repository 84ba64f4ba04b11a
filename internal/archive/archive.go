// Package archive reads dependency artifacts as zip archives.
//
// Every call opens the archive, enumerates it and closes it before returning;
// no handle outlives a single pass.
package archive

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"schemadeps/internal/core"
)

// ErrUnsafeEntry reports an entry whose name would escape its destination.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// Error is a failure to read a dependency artifact. It is fatal for the build.
type Error struct {
	Artifact core.Artifact
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("artifact %s (%s): %s: %v", e.Artifact, e.Artifact.Path, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Entry is a file entry inside an artifact.
type Entry struct {
	// Name is the slash-separated entry name as stored in the archive.
	Name string
	file *zip.File
}

// Open returns a reader for the entry content.
func (e Entry) Open() (io.ReadCloser, error) { return e.file.Open() }

// Header returns the entry's zip header.
func (e Entry) Header() zip.FileHeader { return e.file.FileHeader }

// Predicate selects entries by name.
type Predicate func(name string) bool

// HasSuffix selects entries whose name ends with suffix.
func HasSuffix(suffix string) Predicate {
	return func(name string) bool { return strings.HasSuffix(name, suffix) }
}

// IsCompiledArchive reports whether an artifact is an archive of compiled
// output, detected by its file name ending with suffix (e.g. "jar").
func IsCompiledArchive(a core.Artifact, suffix string) bool {
	return suffix != "" && a.HasSuffix(suffix)
}

// Walk visits the file entries of the artifact in archive order.
// Directory entries are skipped. A non-nil error from fn stops the walk and is
// returned as is.
func Walk(a core.Artifact, fn func(Entry) error) error {
	r, err := zip.OpenReader(a.Path)
	if err != nil {
		return &Error{Artifact: a, Op: "open", Err: err}
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if err := fn(Entry{Name: f.Name, file: f}); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the names of the file entries matching pred, in archive order.
func Entries(a core.Artifact, pred Predicate) ([]string, error) {
	var names []string
	err := Walk(a, func(e Entry) error {
		if pred == nil || pred(e.Name) {
			names = append(names, e.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// SafePath validates an entry name and returns it cleaned.
// Absolute names and names that climb out with ".." are rejected.
func SafePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnsafeEntry)
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return clean, nil
}
