// Package dictionary reads compiled jpmorph dictionaries: the grammar (POS
// table, connection matrix, character categories, unknown-word templates) and
// the lexicon of a system dictionary plus any number of user overlays.
//
// A Dictionary is immutable once built and safe for concurrent use.
package dictionary

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"jpmorph/model"
)

// Dictionary is a system dictionary with its user overlays attached.
type Dictionary struct {
	grammar  *Grammar
	lexicon  *LexiconSet
	binaries []*Binary
}

// New composes a system binary and user binaries. Users are attached in
// order and get dictionary ids 1..len(users). The Dictionary takes ownership
// of the binaries; Close releases them.
func New(system *Binary, users ...*Binary) (*Dictionary, error) {
	if system.Kind() != KindSystem {
		return nil, &LoadError{Path: system.Path(), Err: errors.Wrap(ErrKind, "want a system dictionary")}
	}
	if len(users) > model.MaxUserDictionaries {
		return nil, &LoadError{Err: fmt.Errorf("%w: %d user dictionaries, at most %d", ErrIDRange, len(users), model.MaxUserDictionaries)}
	}
	pos := append([][]string(nil), system.pos...)
	basePOS := len(system.pos)
	d := &Dictionary{
		lexicon:  newLexiconSet(system.lex, basePOS),
		binaries: []*Binary{system},
	}
	g := newGrammar(system.pos, system.conn, system.cats, system.templates)
	for _, u := range users {
		if err := checkUser(g, system.lex.size(), u); err != nil {
			return nil, &LoadError{Path: u.Path(), Err: err}
		}
		offset := len(pos) - basePOS
		if len(pos)+len(u.pos) > math.MaxUint16 {
			return nil, &LoadError{Path: u.Path(), Err: fmt.Errorf("%w: too many POS tags", ErrIDRange)}
		}
		pos = append(pos, u.pos...)
		d.lexicon.add(u.lex, uint16(offset))
		d.binaries = append(d.binaries, u)
	}
	d.grammar = newGrammar(pos, system.conn, system.cats, system.templates)
	return d, nil
}

func checkUser(g *Grammar, systemSize int, u *Binary) error {
	if u.Kind() != KindUser {
		return errors.Wrap(ErrKind, "want a user dictionary")
	}
	rows, cols := g.MatrixSize()
	h := u.Header()
	if int(h.BasePOSCount) != g.POSCount() || int(h.BaseRows) != rows || int(h.BaseCols) != cols {
		return fmt.Errorf("%w: built against %d POS tags and a %dx%d matrix, base has %d and %dx%d",
			ErrIDRange, h.BasePOSCount, h.BaseRows, h.BaseCols, g.POSCount(), rows, cols)
	}
	limit := g.POSCount() + len(u.pos)
	for i, p := range u.lex.params {
		if err := g.checkParams(Params{Left: p.Left, Right: p.Right}); err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		if int(p.POSID) >= limit {
			return errors.Wrapf(ErrIDRange, "entry %d: POS id %d, limit %d", i, p.POSID, limit)
		}
	}
	return u.lex.validate([2]int{systemSize, u.lex.size()}, true)
}

// Load opens a system dictionary and user dictionaries by path. On failure
// every file opened so far is closed.
func Load(systemPath string, userPaths ...string) (*Dictionary, error) {
	var opened []*Binary
	closeAll := func() {
		for _, b := range opened {
			_ = b.Close()
		}
	}
	for _, p := range append([]string{systemPath}, userPaths...) {
		b, err := Open(p)
		if err != nil {
			closeAll()
			return nil, err
		}
		opened = append(opened, b)
	}
	d, err := New(opened[0], opened[1:]...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return d, nil
}

// Grammar returns the POS table, connection matrix and categorizer.
func (d *Dictionary) Grammar() *Grammar { return d.grammar }

// Lexicon returns the lexicon set.
func (d *Dictionary) Lexicon() *LexiconSet { return d.lexicon }

// System returns the system binary.
func (d *Dictionary) System() *Binary { return d.binaries[0] }

// WithCategorizer returns a Dictionary that classifies characters with c.
// Both values share the mapped files; close only one of them.
func (d *Dictionary) WithCategorizer(c *Categorizer) *Dictionary {
	g := *d.grammar
	g.setCategorizer(c)
	return &Dictionary{grammar: &g, lexicon: d.lexicon, binaries: d.binaries}
}

// Close releases every mapped file.
func (d *Dictionary) Close() error {
	var first error
	for _, b := range d.binaries {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
