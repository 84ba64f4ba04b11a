package cli

import (
	"context"
	"errors"
	"io"
)

// Run is a high-level CLI entrypoint suitable for black-box tests.
// It accepts the argument slice (excluding argv[0]) and returns the semantic
// exit code plus any error. Help output goes to stdout.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) (CLIResult, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		var help *errHelp
		if errors.As(err, &help) {
			_, werr := io.WriteString(stdout, help.text+"\n")
			return CLIResult{ExitCode: ExitSuccess}, werr
		}
		return CLIResult{ExitCode: ExitCode(err)}, err
	}
	return Execute(ctx, inv, stdout, stderr)
}
