// Package generator runs the external schema-to-code generator for a source set.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"

	"schemadeps/internal/core"
)

const (
	// SourcesPlaceholder expands to one argument per existing source root.
	SourcesPlaceholder = "{sources}"
	// OutputPlaceholder expands to the primary output directory.
	OutputPlaceholder = "{output}"
)

// Generator is the code generation step of a source set.
type Generator interface {
	Name() string
	// AddSourceRoot registers an additional directory the generator reads schemas from.
	AddSourceRoot(dir string)
	SourceRoots() []string
	// OutputDirs returns the directories the generator writes to.
	OutputDirs() []string
	Generate(ctx context.Context) error
}

// ExitError is a generator process that exited non-zero.
type ExitError struct {
	Generator string
	ExitCode  int
	Stderr    []byte
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(string(e.Stderr))
	if msg == "" {
		return fmt.Sprintf("generator %s exited with code %d", e.Generator, e.ExitCode)
	}
	return fmt.Sprintf("generator %s exited with code %d: %s", e.Generator, e.ExitCode, msg)
}

// CommandGenerator runs a configured command line.
//
// The process sees only Env plus the host PATH, never the rest of the host
// environment.
type CommandGenerator struct {
	name        string
	command     []string
	env         map[string]string
	clean       bool
	workDir     string
	sourceRoots []string
	outputDirs  []string
	normalizer  core.OutputNormalizer
	log         *slog.Logger
}

// Options configures a CommandGenerator.
type Options struct {
	// Command is the argv; it may contain SourcesPlaceholder and OutputPlaceholder.
	Command []string
	Env     map[string]string
	// Clean removes the output directories before generation.
	Clean   bool
	WorkDir string
}

// NewCommand returns a generator named name writing to outputDirs.
func NewCommand(name string, outputDirs []string, opts Options) *CommandGenerator {
	return &CommandGenerator{
		name:       name,
		command:    append([]string(nil), opts.Command...),
		env:        opts.Env,
		clean:      opts.Clean,
		workDir:    opts.WorkDir,
		outputDirs: append([]string(nil), outputDirs...),
		normalizer: core.NewStreamNormalizer(core.NewDefaultNormalizer().WithPath(opts.WorkDir, "<PROJECT>")),
		log:        slog.Default(),
	}
}

// WithLogger sets the generator's logger.
func (g *CommandGenerator) WithLogger(logger *slog.Logger) *CommandGenerator {
	g.log = logger
	return g
}

func (g *CommandGenerator) Name() string { return g.name }

func (g *CommandGenerator) AddSourceRoot(dir string) {
	for _, existing := range g.sourceRoots {
		if existing == dir {
			return
		}
	}
	g.sourceRoots = append(g.sourceRoots, dir)
}

func (g *CommandGenerator) SourceRoots() []string {
	return append([]string(nil), g.sourceRoots...)
}

func (g *CommandGenerator) OutputDirs() []string {
	return append([]string(nil), g.outputDirs...)
}

// Args returns the expanded argv. Source roots that do not exist are left out.
func (g *CommandGenerator) Args() []string {
	var roots []string
	for _, r := range g.sourceRoots {
		if info, err := os.Stat(r); err == nil && info.IsDir() {
			roots = append(roots, r)
		}
	}
	output := ""
	if len(g.outputDirs) > 0 {
		output = g.outputDirs[0]
	}

	args := make([]string, 0, len(g.command)+len(roots))
	for _, arg := range g.command {
		if arg == SourcesPlaceholder {
			args = append(args, roots...)
			continue
		}
		args = append(args, strings.ReplaceAll(arg, OutputPlaceholder, output))
	}
	return args
}

// Generate runs the command. On cancellation the whole process group is killed.
func (g *CommandGenerator) Generate(ctx context.Context) error {
	args := g.Args()
	if len(args) == 0 {
		return fmt.Errorf("generator %s: empty command", g.name)
	}
	if g.clean {
		for _, dir := range g.outputDirs {
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("generator %s: cleaning %q: %w", g.name, dir, err)
			}
		}
	}
	for _, dir := range g.outputDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("generator %s: creating %q: %w", g.name, dir, err)
		}
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = g.workDir
	cmd.Env = isolatedEnv(g.env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.log.Debug("Running generator", "generator", g.name, "args", args)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("generator %s: start: %w", g.name, err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	select {
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return fmt.Errorf("generator %s cancelled: %w", g.name, ctx.Err())
	case err = <-done:
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		g.log.Debug("Generator output", "generator", g.name, "stdout", out)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Stderr is normalized so recorded failures compare equal across runs.
			return &ExitError{Generator: g.name, ExitCode: exitErr.ExitCode(), Stderr: g.normalizer.Normalize(stderr.Bytes())}
		}
		return fmt.Errorf("generator %s: %w", g.name, err)
	}
	return nil
}

// isolatedEnv builds the process environment from env and the host PATH.
// A PATH in env takes precedence.
func isolatedEnv(env map[string]string) []string {
	out := make([]string, 0, len(env)+1)
	if _, ok := env["PATH"]; !ok {
		if p, ok := os.LookupEnv("PATH"); ok {
			out = append(out, "PATH="+p)
		}
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
