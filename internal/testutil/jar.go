// Package testutil builds fixtures for the pipeline tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// Entry is a zip entry fixture. Names ending with "/" become directory entries.
type Entry struct {
	Name    string
	Content string
}

// Dir returns a directory entry fixture.
func Dir(name string) Entry { return Entry{Name: strings.TrimSuffix(name, "/") + "/"} }

// File returns a file entry fixture.
func File(name, content string) Entry { return Entry{Name: name, Content: content} }

// FixedTime is the modification time stamped on every fixture entry.
var FixedTime = time.Date(2022, 3, 4, 5, 6, 8, 0, time.UTC)

// WriteJar writes a zip archive at path holding entries in order and returns path.
func WriteJar(t testing.TB, path string, entries ...Entry) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: FixedTime}
		if strings.HasSuffix(e.Name, "/") {
			hdr.Method = zip.Store
		}
		fw, err := w.CreateHeader(hdr)
		require.NoError(t, err)
		if e.Content != "" {
			_, err = fw.Write([]byte(e.Content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return path
}

// WriteFiles writes files (slash-separated relative path -> content) under root.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
