package dicbuild

import (
	"fmt"
	"strings"
)

// ErrorKind classifies build failures.
type ErrorKind int

const (
	MatrixParse ErrorKind = iota
	LexiconParse
	UnresolvedReference
	InvalidSplit
	IoFailure
	Usage
)

func (k ErrorKind) String() string {
	switch k {
	case MatrixParse:
		return "matrix parse error"
	case LexiconParse:
		return "lexicon parse error"
	case UnresolvedReference:
		return "unresolved reference"
	case InvalidSplit:
		return "invalid split"
	case IoFailure:
		return "I/O failure"
	case Usage:
		return "usage error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// BuildError is returned by every failing builder operation. File and Line
// locate the offending source row when there is one; Entry names the entry.
type BuildError struct {
	Kind  ErrorKind
	File  string
	Line  int
	Entry string
	Err   error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.File != "" {
		fmt.Fprintf(&b, " at %s", e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.Entry != "" {
		fmt.Fprintf(&b, " (entry %q)", e.Entry)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *BuildError) Unwrap() error { return e.Err }

func usageError(format string, args ...any) error {
	return &BuildError{Kind: Usage, Err: fmt.Errorf(format, args...)}
}
