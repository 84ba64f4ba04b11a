package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	icl "schemadeps/internal/cli"
	"schemadeps/internal/testutil"
)

const manifest = `generator:
  clean: true
  command:
    - sh
    - -c
    - |
      out="$1"; shift
      for root in "$@"; do
        (cd "$root" && find . -name '*.avsc') | while read -r f; do
          rel="${f#./}"
          mkdir -p "$out/$(dirname "$rel")"
          echo "// generated from $rel" > "$out/${rel%.avsc}.java"
        done
      done
    - generate
    - "{output}"
    - "{sources}"
dependencies:
  api:
    - libs/error-handling.jar
  avroApi:
    - libs/error-handling-schemas.jar
`

func writeProject(t *testing.T, manifestYAML string) string {
	t.Helper()
	projectDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(projectDir, "schemadeps.yaml"), []byte(manifestYAML), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	// A compiled library: its schemas are generated by the library itself.
	testutil.WriteJar(t, filepath.Join(projectDir, "libs", "error-handling-schemas.jar"),
		testutil.Dir("META-INF/"),
		testutil.File("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
		testutil.File("com/bakdata/kafka/DeadLetter.avsc", `{"name":"DeadLetter"}`),
		testutil.File("com/bakdata/kafka/DeadLetter.class", "cafebabe"),
		testutil.File("com/bakdata/kafka/ProcessingError.avsc", `{"name":"ProcessingError"}`),
	)
	testutil.WriteFiles(t, projectDir, map[string]string{
		"libs/error-handling.jar":                  "regular dependencies are never opened",
		"src/main/avro/com/example/Order.avsc":     `{"name":"Order","fields":[{"name":"error","type":"com.bakdata.kafka.DeadLetter"}]}`,
		"src/test/avro/com/example/OrderTest.avsc": `{"name":"OrderTest"}`,
	})
	return projectDir
}

func run(t *testing.T, args ...string) (icl.CLIResult, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	res, err := icl.Run(context.Background(), args, &stdout, &stderr)
	return res, stdout.String(), err
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		out[filepath.ToSlash(rel)] = string(readFile(t, p))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestDeterministicInvocation_IdenticalRunsIdenticalArtifacts(t *testing.T) {
	projectDir := writeProject(t, manifest)
	args := []string{"run", "--project-dir", projectDir, "--trace", "build/trace.json", "--parallelism", "3"}

	res1, _, err := run(t, args...)
	if err != nil {
		t.Fatalf("run1 err: %v", err)
	}
	if res1.ExitCode != icl.ExitSuccess {
		t.Fatalf("run1 exit: %d", res1.ExitCode)
	}
	build := filepath.Join(projectDir, "build")
	staged1 := tree(t, filepath.Join(build, "external-main-avro"))
	out1 := tree(t, filepath.Join(build, "generated-main-avro-java"))
	tr1 := readFile(t, filepath.Join(build, "trace.json"))

	res2, _, err := run(t, args...)
	if err != nil {
		t.Fatalf("run2 err: %v", err)
	}
	if res2.ExitCode != icl.ExitSuccess {
		t.Fatalf("run2 exit: %d", res2.ExitCode)
	}
	if res1.RunID == res2.RunID {
		t.Fatalf("expected distinct run ids")
	}

	if strings.Join(keys(staged1), ",") != "com/bakdata/kafka/DeadLetter.avsc,com/bakdata/kafka/ProcessingError.avsc" {
		t.Fatalf("unexpected staged schemas: %v", keys(staged1))
	}
	// DeadLetter ships compiled in the dependency; ProcessingError does not.
	if strings.Join(keys(out1), ",") != "com/bakdata/kafka/ProcessingError.java,com/example/Order.java" {
		t.Fatalf("unexpected generated sources: %v", keys(out1))
	}

	if !equalTrees(staged1, tree(t, filepath.Join(build, "external-main-avro"))) {
		t.Fatalf("staging differs across identical runs")
	}
	if !equalTrees(out1, tree(t, filepath.Join(build, "generated-main-avro-java"))) {
		t.Fatalf("generated sources differ across identical runs")
	}
	if string(tr1) != string(readFile(t, filepath.Join(build, "trace.json"))) {
		t.Fatalf("trace differs across identical runs")
	}
}

func equalTrees(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func TestPathResolution_RelativePathsResolveAgainstProjectDir(t *testing.T) {
	projectDir := writeProject(t, manifest)
	otherCwd := t.TempDir()

	oldCwd, _ := os.Getwd()
	_ = os.Chdir(otherCwd)
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })

	res, _, err := run(t, "run", "--project-dir", projectDir, "--trace", "traces/t.json", "--source-set", "main")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("exit: %d", res.ExitCode)
	}
	if _, err := os.Stat(filepath.Join(projectDir, "build", "generated-main-avro-java", "com", "example", "Order.java")); err != nil {
		t.Fatalf("expected output under project dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, "traces", "t.json")); err != nil {
		t.Fatalf("expected trace under project dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(otherCwd, "build")); !os.IsNotExist(err) {
		t.Fatalf("nothing may be written relative to the process cwd, stat err=%v", err)
	}
}

func TestInheritance_TestSourceSetSeesMainSchemas(t *testing.T) {
	projectDir := writeProject(t, manifest)

	res, _, err := run(t, "run", "--project-dir", projectDir)
	if err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run failed: exit=%d err=%v", res.ExitCode, err)
	}
	staged := tree(t, filepath.Join(projectDir, "build", "external-test-avro"))
	if strings.Join(keys(staged), ",") != "com/bakdata/kafka/DeadLetter.avsc,com/bakdata/kafka/ProcessingError.avsc" {
		t.Fatalf("test source set must inherit the api schemas, got %v", keys(staged))
	}
	out := tree(t, filepath.Join(projectDir, "build", "generated-test-avro-java"))
	if strings.Join(keys(out), ",") != "com/bakdata/kafka/ProcessingError.java,com/example/OrderTest.java" {
		t.Fatalf("unexpected test sources: %v", keys(out))
	}
}

func TestRemovedDependencySchemasAreUnstaged(t *testing.T) {
	projectDir := writeProject(t, manifest)
	if res, _, err := run(t, "run", "--project-dir", projectDir); err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run1 failed: exit=%d err=%v", res.ExitCode, err)
	}

	testutil.WriteJar(t, filepath.Join(projectDir, "libs", "error-handling-schemas.jar"),
		testutil.File("com/bakdata/kafka/ProcessingError.avsc", `{"name":"ProcessingError"}`),
	)
	if res, _, err := run(t, "run", "--project-dir", projectDir); err != nil || res.ExitCode != icl.ExitSuccess {
		t.Fatalf("run2 failed: exit=%d err=%v", res.ExitCode, err)
	}
	staged := tree(t, filepath.Join(projectDir, "build", "external-main-avro"))
	if strings.Join(keys(staged), ",") != "com/bakdata/kafka/ProcessingError.avsc" {
		t.Fatalf("stale schema left in staging: %v", keys(staged))
	}
}

func TestExitCodeStability_FailingGeneratorIsStable(t *testing.T) {
	projectDir := writeProject(t, "generator:\n  command: [sh, -c, 'exit 9']\n")

	args := []string{"run", "--project-dir", projectDir}
	res1, _, err1 := run(t, args...)
	res2, _, err2 := run(t, args...)
	if res1.ExitCode != icl.ExitGraphFailure || res2.ExitCode != icl.ExitGraphFailure {
		t.Fatalf("expected stable graph failure exit code; got %d and %d", res1.ExitCode, res2.ExitCode)
	}
	if err1 == nil || err2 == nil || err1.Error() != err2.Error() {
		t.Fatalf("expected identical failure errors, got %v and %v", err1, err2)
	}
	if !strings.Contains(err1.Error(), "exited with code 9") {
		t.Fatalf("expected generator exit code in error: %v", err1)
	}
}

func TestCorruptDependency_FailsWithArtifactIdentity(t *testing.T) {
	projectDir := writeProject(t, manifest)
	testutil.WriteFiles(t, projectDir, map[string]string{"libs/error-handling-schemas.jar": "truncated"})

	res, _, err := run(t, "run", "--project-dir", projectDir, "--trace", "trace.json")
	if res.ExitCode != icl.ExitGraphFailure {
		t.Fatalf("expected exit %d got %d", icl.ExitGraphFailure, res.ExitCode)
	}
	if err == nil || !strings.Contains(err.Error(), "error-handling-schemas.jar") {
		t.Fatalf("expected artifact identity in error, got %v", err)
	}

	var decoded struct {
		GraphHash string `json:"graphHash"`
		Events    []struct {
			Kind   string `json:"kind"`
			TaskID string `json:"taskId"`
			Reason string `json:"reason"`
		} `json:"events"`
	}
	if err := json.Unmarshal(readFile(t, filepath.Join(projectDir, "trace.json")), &decoded); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if decoded.GraphHash == "" {
		t.Fatalf("trace missing graphHash")
	}
	reasons := map[string]string{}
	for _, e := range decoded.Events {
		if e.Kind == "TaskFailed" {
			reasons[e.TaskID] = e.Reason
		}
	}
	if reasons["copyExternalAvroResources"] != "ArchiveReadFailed" || reasons["configureDeleteExternalJava"] != "ArchiveReadFailed" {
		t.Fatalf("unexpected failure reasons: %v", reasons)
	}
}

func TestInvalidInvocation_DeterministicAndExplainable(t *testing.T) {
	args := []string{"--project-dir", t.TempDir(), "--parallelism", "0"}
	res1, _, err1 := run(t, args...)
	res2, _, err2 := run(t, args...)

	if res1.ExitCode != icl.ExitInvalidInvocation || res2.ExitCode != icl.ExitInvalidInvocation {
		t.Fatalf("expected exit 2, got %d and %d", res1.ExitCode, res2.ExitCode)
	}
	if err1 == nil || err2 == nil {
		t.Fatalf("expected errors")
	}
	if err1.Error() != err2.Error() {
		t.Fatalf("expected deterministic error message")
	}
}

func TestHelp_PrintsUsage(t *testing.T) {
	res, stdout, err := run(t, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != icl.ExitSuccess {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	for _, want := range []string{"--project-dir", "--source-set", "--log-level"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in help:\n%s", want, stdout)
		}
	}
}
