package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"

	"schemadeps/internal/config"
	"schemadeps/internal/logging"
)

const (
	ExitSuccess           = 0
	ExitGraphFailure      = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Command selects what an invocation does.
type Command string

const (
	// CommandRun executes the task graph.
	CommandRun Command = "run"
	// CommandPlan prints the configured scopes, source sets and tasks.
	CommandPlan Command = "plan"
)

// Opts are the command line options. Every option can also be set through
// its SCHEMADEPS_ environment variable.
type Opts struct {
	ProjectDir  string       `long:"project-dir" env:"SCHEMADEPS_PROJECT_DIR" description:"Project directory; relative paths resolve against it" default:"."`
	Manifest    string       `long:"manifest" env:"SCHEMADEPS_MANIFEST" description:"Project manifest" default:"schemadeps.yaml"`
	SourceSets  []string     `long:"source-set" env:"SCHEMADEPS_SOURCE_SET" env-delim:"," description:"Only run the tasks of this source set (repeatable)"`
	Parallelism int          `long:"parallelism" env:"SCHEMADEPS_PARALLELISM" description:"Maximum number of tasks running at once" default:"1"`
	Trace       string       `long:"trace" env:"SCHEMADEPS_TRACE" description:"Write the canonical execution trace to this path"`
	MetricsFile string       `long:"metrics-file" env:"SCHEMADEPS_METRICS_FILE" description:"Write prometheus textfile metrics to this path"`
	RunLog      bool         `long:"run-log" env:"SCHEMADEPS_RUN_LOG" description:"Record run metadata under <buildDir>/.schemadeps/runs"`
	Logging     logging.Opts `group:"Logging" env-namespace:"SCHEMADEPS"`
}

// Invocation is the canonical description of a run. All paths are absolute.
type Invocation struct {
	Command      Command
	ProjectDir   string
	ManifestPath string
	// ManifestOptional is set when the manifest was not named explicitly, in
	// which case a missing file yields the default project layout.
	ManifestOptional bool
	SourceSets       []string
	Parallelism      int
	TracePath        string
	MetricsPath      string
	RunLog           bool
	Logging          logging.Opts
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// errHelp is returned by ParseInvocation when help was requested.
type errHelp struct{ text string }

func (e *errHelp) Error() string { return e.text }

func newParser(opts *Opts) *flags.Parser {
	p := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	p.Name = "schemadeps"
	p.Usage = "<run|plan> [OPTIONS]"
	return p
}

// ParseInvocation parses the arguments (excluding argv[0]) into a canonical
// Invocation.
func ParseInvocation(args []string) (Invocation, error) {
	var opts Opts
	rest, err := newParser(&opts).ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return Invocation{}, &errHelp{text: flagsErr.Message}
		}
		return Invocation{}, invalidInvocationf("%v", err)
	}

	if len(rest) == 0 {
		return Invocation{}, invalidInvocationf("a command is required: run or plan")
	}
	if len(rest) > 1 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(rest[1:], " "))
	}
	cmd := Command(rest[0])
	switch cmd {
	case CommandRun, CommandPlan:
	default:
		return Invocation{}, invalidInvocationf("unknown command %q (expected run|plan)", rest[0])
	}

	if opts.Parallelism < 1 {
		return Invocation{}, invalidInvocationf("--parallelism must be at least 1 (got %d)", opts.Parallelism)
	}

	projectDir, err := filepath.Abs(filepath.Clean(opts.ProjectDir))
	if err != nil {
		return Invocation{}, invalidInvocationf("resolving --project-dir: %v", err)
	}

	inv := Invocation{
		Command:          cmd,
		ProjectDir:       projectDir,
		ManifestOptional: opts.Manifest == config.DefaultFileName,
		SourceSets:       opts.SourceSets,
		Parallelism:      opts.Parallelism,
		RunLog:           opts.RunLog,
		Logging:          opts.Logging,
	}
	if inv.ManifestPath, err = resolveUnderProjectDir(projectDir, opts.Manifest); err != nil {
		return Invocation{}, err
	}
	if strings.TrimSpace(opts.Trace) != "" {
		if inv.TracePath, err = resolveUnderProjectDir(projectDir, opts.Trace); err != nil {
			return Invocation{}, err
		}
	}
	if strings.TrimSpace(opts.MetricsFile) != "" {
		if inv.MetricsPath, err = resolveUnderProjectDir(projectDir, opts.MetricsFile); err != nil {
			return Invocation{}, err
		}
	}
	return inv, nil
}

func resolveUnderProjectDir(projectDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Join(projectDir, clean), nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
