// Package depfile parses Make-style dependency listings emitted by the
// compile driver's "-MMD -MF" flags.
//
// Grounded on original_source/src/depfile.cc and spec.md §4.4.
package depfile

import (
	"fmt"
	"strings"
)

// MalformedDepfileError reports a depfile that didn't contain a colon, or
// whose dependency list was empty.
type MalformedDepfileError struct {
	Path   string
	Reason string
}

func (e *MalformedDepfileError) Error() string {
	return fmt.Sprintf("malformed depfile %q: %s", e.Path, e.Reason)
}

// Depfile is the parsed contract of a single Make-style rule: the object
// being built, its primary source (the first dependency), and the full
// dependency list (including that first source).
type Depfile struct {
	ObjPath    string
	SrcPath    string
	ExtraDeps  []string
}

// Parse parses the text contents of a depfile read from path (path is used
// only to annotate errors).
func Parse(path, text string) (Depfile, error) {
	// Line continuations ("\" at end-of-line) are whitespace-equivalent
	// separators: folding them away first lets the rest of the parse treat
	// the whole rule as one whitespace-separated token stream.
	joined := strings.ReplaceAll(text, "\\\r\n", " ")
	joined = strings.ReplaceAll(joined, "\\\n", " ")

	colon := strings.IndexByte(joined, ':')
	if colon < 0 {
		return Depfile{}, &MalformedDepfileError{Path: path, Reason: "no colon found"}
	}

	target := strings.TrimSpace(joined[:colon])
	depsText := strings.TrimSpace(joined[colon+1:])
	deps := strings.Fields(depsText)
	if len(deps) == 0 {
		return Depfile{}, &MalformedDepfileError{Path: path, Reason: "empty dependency list"}
	}

	return Depfile{
		ObjPath:   target,
		SrcPath:   deps[0],
		ExtraDeps: deps,
	}, nil
}
