// Package naming implements the scope and task naming conventions the pipeline
// shares with Gradle builds.
//
// The companion naming rule is the one wire format consumers depend on:
// "implementation" becomes "avroImplementation" and "testImplementation"
// becomes "testAvroImplementation".
package naming

import (
	"fmt"
	"strings"

	"github.com/huandu/xstrings"
)

// MainSourceSet is the source set whose scope and task names carry no prefix.
const MainSourceSet = "main"

// Error reports a name that does not follow the source set conventions.
// It indicates a misconfigured source set.
type Error struct {
	SourceSet string
	Name      string
	Reason    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("source set %q: name %q: %s", e.SourceSet, e.Name, e.Reason)
}

func namingError(sourceSet, name, reason string) error {
	return &Error{SourceSet: sourceSet, Name: name, Reason: reason}
}

// Title upper-cases the first rune of s and keeps the rest as is.
func Title(s string) string {
	return xstrings.FirstRuneToUpper(s)
}

// CompanionName derives the schema-only companion of a base scope name.
//
// When base starts with the source set name the marker is inserted right after
// that prefix, titlecased. Otherwise the lowercase marker is prepended to the
// titlecased base name.
func CompanionName(sourceSet, marker, base string) (string, error) {
	switch {
	case sourceSet == "":
		return "", namingError(sourceSet, base, "source set name is required")
	case marker == "":
		return "", namingError(sourceSet, base, "marker is required")
	case base == "":
		return "", namingError(sourceSet, base, "base name is required")
	}

	if rest, ok := strings.CutPrefix(base, sourceSet); ok {
		if rest == "" {
			return "", namingError(sourceSet, base, "base name has nothing after the source set prefix")
		}
		return sourceSet + Title(marker) + rest, nil
	}
	if sourceSet != MainSourceSet {
		return "", namingError(sourceSet, base, fmt.Sprintf("expected prefix %q", sourceSet))
	}
	return marker + Title(base), nil
}

// BaseName inverts CompanionName.
func BaseName(sourceSet, marker, companion string) (string, error) {
	if sourceSet == "" || marker == "" || companion == "" {
		return "", namingError(sourceSet, companion, "source set, marker and companion name are required")
	}

	prefixed := sourceSet + Title(marker)
	if rest, ok := strings.CutPrefix(companion, prefixed); ok && rest != "" {
		return sourceSet + rest, nil
	}
	if sourceSet == MainSourceSet {
		if rest, ok := strings.CutPrefix(companion, marker); ok && rest != "" {
			return xstrings.FirstRuneToLower(rest), nil
		}
	}
	return "", namingError(sourceSet, companion, "not a companion name")
}

// ScopeName returns the dependency scope name of kind for a source set:
// "implementation" for main, "testImplementation" for test.
func ScopeName(sourceSet, kind string) string {
	if sourceSet == MainSourceSet || sourceSet == "" {
		return kind
	}
	return sourceSet + Title(kind)
}

// TaskName returns the name of a per-source-set task.
//
// The main source set omits its name: TaskName("main", "copy",
// "externalAvroResources") is "copyExternalAvroResources" and the test source
// set gives "copyTestExternalAvroResources".
func TaskName(sourceSet, verb, target string) string {
	var b strings.Builder
	b.WriteString(verb)
	if sourceSet != MainSourceSet && sourceSet != "" {
		if b.Len() == 0 {
			b.WriteString(sourceSet)
		} else {
			b.WriteString(Title(sourceSet))
		}
	}
	if b.Len() == 0 {
		b.WriteString(target)
	} else {
		b.WriteString(Title(target))
	}
	return b.String()
}
