package prune

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"schemadeps/internal/archive"
	"schemadeps/internal/core"
	"schemadeps/internal/testutil"
)

var javaOpts = Options{ArchiveSuffix: "jar", CompiledSuffix: ".class", GeneratedSuffix: ".java"}

func TestFindExclusions_DerivesGeneratedNames(t *testing.T) {
	dir := t.TempDir()
	jar := testutil.WriteJar(t, filepath.Join(dir, "lib.jar"),
		testutil.Dir("a/"),
		testutil.File("a/B.class", "cafebabe"),
		testutil.File("a/C.class", "cafebabe"),
		testutil.File("a/C.avsc", "{}"),
		testutil.File("META-INF/MANIFEST.MF", "x"),
	)

	set, err := FindExclusions([]core.Artifact{core.NewArtifact(jar)}, javaOpts)
	require.NoError(t, err)
	require.Equal(t, []string{"a/B.java", "a/C.java"}, set.List())
}

func TestFindExclusions_SkipsNonCompiledArchives(t *testing.T) {
	dir := t.TempDir()
	// Not opened at all: a broken file with the wrong suffix must not fail.
	zipPath := filepath.Join(dir, "schemas.zip")
	require.NoError(t, os.WriteFile(zipPath, []byte("garbage"), 0o644))

	set, err := FindExclusions([]core.Artifact{core.NewArtifact(zipPath)}, javaOpts)
	require.NoError(t, err)
	require.True(t, set.IsEmpty())
}

func TestFindExclusions_CorruptJarIsFatal(t *testing.T) {
	jar := filepath.Join(t.TempDir(), "broken.jar")
	require.NoError(t, os.WriteFile(jar, []byte("garbage"), 0o644))

	_, err := FindExclusions([]core.Artifact{core.NewArtifact(jar)}, javaOpts)
	var aerr *archive.Error
	require.True(t, errors.As(err, &aerr))
}

func TestDeriveName_ReplacesSuffixOnlyAtEnd(t *testing.T) {
	name, ok := DeriveName("com/x.class/Y.class", ".class", ".java")
	require.True(t, ok)
	require.Equal(t, "com/x.class/Y.java", name)

	_, ok = DeriveName("com/Y.classic", ".class", ".java")
	require.False(t, ok)
}

func TestPrune_EmptyExclusionSetDeletesNothing(t *testing.T) {
	out := t.TempDir()
	testutil.WriteFiles(t, out, map[string]string{
		"com/bakdata/Record.java":            "record",
		"com/bakdata/kafka/DeadLetter.java":  "dl",
		"com/bakdata/kafka/nested/Deep.java": "deep",
	})
	before, err := core.DigestDir(out)
	require.NoError(t, err)

	for _, set := range []*ExclusionSet{nil, NewExclusionSet()} {
		res, err := New().Prune(context.Background(), []string{out}, set)
		require.NoError(t, err)
		require.Empty(t, res.Deleted)
	}

	after, err := core.DigestDir(out)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestPrune_DeletesOnlyExcludedFiles(t *testing.T) {
	outMain := t.TempDir()
	outExtra := t.TempDir()
	testutil.WriteFiles(t, outMain, map[string]string{
		"com/bakdata/Record.java":           "record",
		"com/bakdata/kafka/DeadLetter.java": "dl",
	})
	testutil.WriteFiles(t, outExtra, map[string]string{
		"com/bakdata/kafka/DeadLetter.java": "dl",
		"com/bakdata/kafka/Other.java":      "other",
	})
	missing := filepath.Join(t.TempDir(), "missing")

	set := NewExclusionSet("com/bakdata/kafka/DeadLetter.java", "com/bakdata/kafka/Absent.java")
	res, err := New().Prune(context.Background(), []string{outMain, missing, outExtra}, set)
	require.NoError(t, err)
	require.Len(t, res.Deleted, 2)

	mainFiles, err := core.ListFiles(outMain)
	require.NoError(t, err)
	require.Equal(t, []string{"com/bakdata/Record.java"}, mainFiles)
	extraFiles, err := core.ListFiles(outExtra)
	require.NoError(t, err)
	require.Equal(t, []string{"com/bakdata/kafka/Other.java"}, extraFiles)
}

func TestPrune_GlobPatterns(t *testing.T) {
	out := t.TempDir()
	testutil.WriteFiles(t, out, map[string]string{
		"a/B.java":   "b",
		"a/C.java":   "c",
		"a/d/E.java": "e",
	})

	res, err := New().Prune(context.Background(), []string{out}, NewExclusionSet("a/*.java"))
	require.NoError(t, err)
	require.Len(t, res.Deleted, 2)

	files, err := core.ListFiles(out)
	require.NoError(t, err)
	require.Equal(t, []string{"a/d/E.java"}, files)
}

func TestPrune_DeletionFailureIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	out := t.TempDir()
	testutil.WriteFiles(t, out, map[string]string{"locked/B.java": "b"})
	locked := filepath.Join(out, "locked")
	require.NoError(t, os.Chmod(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := New().Prune(context.Background(), []string{out}, NewExclusionSet("locked/B.java"))
	var derr *DeleteError
	require.True(t, errors.As(err, &derr), "got %v", err)
	require.Equal(t, filepath.Join(locked, "B.java"), derr.Path)
}
