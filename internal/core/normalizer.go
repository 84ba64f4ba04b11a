package core

import (
	"bytes"
	"cmp"
	"regexp"
	"slices"
)

// OutputNormalizer rewrites process output into a run-independent form.
type OutputNormalizer interface {
	Normalize(content []byte) []byte
}

// Rule replaces every match of Pattern with Replacement.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement []byte
}

// DefaultRules matches data that differs between two runs of the same
// schema compiler: timestamps, durations, pids and memory addresses.
func DefaultRules() []Rule {
	return []Rule{
		{regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?`), []byte("<TIMESTAMP>")},
		{regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}:\d{2}(\.\d+)?`), []byte("<TIMESTAMP>")},
		{regexp.MustCompile(`\b1[0-9]{9,12}\b`), []byte("<UNIX_TS>")},
		{regexp.MustCompile(`\b\d+(\.\d+)?\s*(ms|s|seconds?|minutes?|hours?)\b`), []byte("<DURATION>")},
		{regexp.MustCompile(`\b[Pp][Ii][Dd][:\s]*\d+\b`), []byte("pid <PID>")},
		{regexp.MustCompile(`0x[0-9a-fA-F]{8,16}`), []byte("<ADDR>")},
	}
}

type pathRedaction struct {
	dir         []byte
	placeholder []byte
}

// DefaultNormalizer applies path redactions, then its rules in order.
type DefaultNormalizer struct {
	paths []pathRedaction
	rules []Rule
}

// NewDefaultNormalizer returns a normalizer applying DefaultRules.
func NewDefaultNormalizer() *DefaultNormalizer {
	return &DefaultNormalizer{rules: DefaultRules()}
}

// WithPath replaces the absolute directory dir with placeholder, so that
// diagnostics naming staged schemas do not depend on where the project is
// checked out. Longer directories are replaced first.
func (n *DefaultNormalizer) WithPath(dir, placeholder string) *DefaultNormalizer {
	if dir == "" {
		return n
	}
	n.paths = append(n.paths, pathRedaction{dir: []byte(dir), placeholder: []byte(placeholder)})
	slices.SortStableFunc(n.paths, func(a, b pathRedaction) int {
		return cmp.Compare(len(b.dir), len(a.dir))
	})
	return n
}

func (n *DefaultNormalizer) Normalize(content []byte) []byte {
	result := content
	for _, p := range n.paths {
		result = bytes.ReplaceAll(result, p.dir, p.placeholder)
	}
	for _, r := range n.rules {
		result = r.Pattern.ReplaceAll(result, r.Replacement)
	}
	return result
}

// StreamNormalizer converts line endings to LF, then applies Inner.
type StreamNormalizer struct {
	Inner OutputNormalizer
}

func NewStreamNormalizer(inner OutputNormalizer) *StreamNormalizer {
	return &StreamNormalizer{Inner: inner}
}

func (n *StreamNormalizer) Normalize(content []byte) []byte {
	result := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if n.Inner != nil {
		result = n.Inner.Normalize(result)
	}
	return result
}
