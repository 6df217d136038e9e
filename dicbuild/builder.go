// Package dicbuild compiles textual lexicons and connection matrices into
// jpmorph binary dictionaries.
//
// A Builder is used once, from one goroutine:
//
//	b := dicbuild.NewSystem()
//	b.ReadConnectionMatrix("matrix.def")
//	b.ReadLexicon("lex.csv")
//	b.Resolve()
//	b.Compile(w)
//
// User builds start from NewUser with a loaded base dictionary and skip the
// matrix step.
package dicbuild

import (
	"bytes"
	"io"
	"os"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/rs/zerolog/log"

	"jpmorph/dictionary"
	"jpmorph/model"
)

// State is the position of a Builder in its lifecycle.
type State int

const (
	Empty State = iota
	MatrixLoaded
	LexiconLoaded
	Resolved
	Compiled
)

func (s State) String() string {
	return [...]string{"empty", "matrix loaded", "lexicon loaded", "resolved", "compiled"}[s]
}

// Builder accumulates sources for one dictionary.
type Builder struct {
	state       State
	description string
	base        *dictionary.Dictionary // nil for system builds

	matrix  dict.ConnectionTable
	cats    *dictionary.Categorizer
	unkDef  []byte
	unkName string

	entries    []*entry
	maxEntries int
	timer      *timer

	// filled by Resolve
	pos       [][]string
	posIndex  map[string]uint16
	templates []dictionary.OOVTemplate
	synonyms  map[string]uint32
}

// NewSystem starts a system dictionary build.
func NewSystem() *Builder {
	return &Builder{maxEntries: model.MaxEntries, timer: newTimer(), posIndex: map[string]uint16{}}
}

// NewUser starts a user dictionary build over base. base must stay open
// until Compile returns.
func NewUser(base *dictionary.Dictionary) *Builder {
	return &Builder{state: MatrixLoaded, base: base, maxEntries: model.MaxEntries, timer: newTimer(), posIndex: map[string]uint16{}}
}

// State returns the current lifecycle state.
func (b *Builder) State() State { return b.state }

// SetDescription sets the free-text description stored in the header.
func (b *Builder) SetDescription(s string) { b.description = s }

// Report returns the parts recorded so far.
func (b *Builder) Report() Report { return b.timer.report }

func (b *Builder) user() bool { return b.base != nil }

// ReadConnectionMatrix loads the connection matrix of a system build.
func (b *Builder) ReadConnectionMatrix(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &BuildError{Kind: IoFailure, File: path, Err: err}
	}
	defer f.Close()
	return b.ReadConnectionMatrixFrom(f, path)
}

// ReadConnectionMatrixFrom is ReadConnectionMatrix over a reader; name is
// used in errors.
func (b *Builder) ReadConnectionMatrixFrom(r io.Reader, name string) error {
	if b.user() {
		return usageError("user dictionaries use the matrix of their base")
	}
	if b.state != Empty {
		return usageError("connection matrix read in state %s", b.state)
	}
	m, err := parseMatrix(r, name)
	if err != nil {
		return err
	}
	b.matrix = m
	b.state = MatrixLoaded
	b.timer.done("connection matrix", len(m.Vec), Entries)
	log.Debug().Str("component", "dicbuild").Str("file", name).
		Int64("rows", m.Row).Int64("cols", m.Col).Msg("read connection matrix")
	return nil
}

// ReadCharDefinition replaces the embedded char.def of a system build.
func (b *Builder) ReadCharDefinition(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &BuildError{Kind: IoFailure, File: path, Err: err}
	}
	return b.ReadCharDefinitionFrom(bytes.NewReader(data), path)
}

// ReadCharDefinitionFrom is ReadCharDefinition over a reader.
func (b *Builder) ReadCharDefinitionFrom(r io.Reader, name string) error {
	if b.user() || b.state >= Resolved {
		return usageError("character definition read in state %s", b.state)
	}
	c, err := dictionary.ParseCharDefinition(r)
	if err != nil {
		return &BuildError{Kind: LexiconParse, File: name, Err: err}
	}
	b.cats = c
	return nil
}

// ReadUnknownDefinition replaces the embedded unk.def of a system build. It
// is parsed by Resolve, after the character definition is final.
func (b *Builder) ReadUnknownDefinition(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &BuildError{Kind: IoFailure, File: path, Err: err}
	}
	return b.ReadUnknownDefinitionFrom(bytes.NewReader(data), path)
}

// ReadUnknownDefinitionFrom is ReadUnknownDefinition over a reader.
func (b *Builder) ReadUnknownDefinitionFrom(r io.Reader, name string) error {
	if b.user() || b.state >= Resolved {
		return usageError("unknown-word definition read in state %s", b.state)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return &BuildError{Kind: IoFailure, File: name, Err: err}
	}
	b.unkDef, b.unkName = data, name
	return nil
}

// ReadLexicon parses one lexicon file. It may be called repeatedly; entry
// ids follow the order of the rows across files.
func (b *Builder) ReadLexicon(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &BuildError{Kind: IoFailure, File: path, Err: err}
	}
	defer f.Close()
	return b.ReadLexiconFrom(f, path)
}

// ReadLexiconFrom is ReadLexicon over a reader.
func (b *Builder) ReadLexiconFrom(r io.Reader, name string) error {
	if b.state != MatrixLoaded && b.state != LexiconLoaded {
		return usageError("lexicon read in state %s", b.state)
	}
	entries, err := parseLexicon(r, name, b.user())
	if err != nil {
		return err
	}
	if room := b.maxEntries - len(b.entries); len(entries) > room {
		return entries[room].errorf(LexiconParse, "a dictionary holds at most %d entries", b.maxEntries)
	}
	b.entries = append(b.entries, entries...)
	b.state = LexiconLoaded
	b.timer.done(name, len(entries), Entries)
	log.Debug().Str("component", "dicbuild").Str("file", name).Int("entries", len(entries)).Msg("read lexicon")
	return nil
}
