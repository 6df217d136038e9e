// Package tokenize segments text into morphemes with a minimum-cost path
// search over a word lattice.
package tokenize

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"jpmorph/dictionary"
	"jpmorph/model"
)

var (
	// ErrNoPath means some part of the text has no candidate that connects
	// to the rest. It points at a broken dictionary or categorizer.
	ErrNoPath = errors.New("no path through the lattice")

	// ErrEmptyDictionary means the connection matrix has no BOS/EOS ids.
	ErrEmptyDictionary = errors.New("dictionary has an empty connection matrix")
)

// Tokenizer analyzes text against one dictionary. It keeps no per-call state
// and is safe for concurrent use.
type Tokenizer struct {
	dict *dictionary.Dictionary
}

// New returns a tokenizer over d.
func New(d *dictionary.Dictionary) *Tokenizer {
	return &Tokenizer{dict: d}
}

// Dictionary returns the dictionary t analyzes with.
func (t *Tokenizer) Dictionary() *dictionary.Dictionary { return t.dict }

// Tokenize segments text and returns its morphemes at the granularity of
// mode. Empty text gives no morphemes.
func (t *Tokenizer) Tokenize(text string, mode model.Mode) ([]model.Morpheme, error) {
	nodes, err := t.bestPath(text)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return t.morphemes(text, expandPath(t.dict.Lexicon(), nodes, mode)), nil
}

// TokenizeModes resolves the best path once and returns it at every
// granularity.
func (t *Tokenizer) TokenizeModes(text string) (map[model.Mode][]model.Morpheme, error) {
	res := make(map[model.Mode][]model.Morpheme, 3)
	nodes, err := t.bestPath(text)
	if err != nil {
		return nil, err
	}
	for _, m := range []model.Mode{model.ModeA, model.ModeB, model.ModeC} {
		if len(nodes) == 0 {
			res[m] = nil
			continue
		}
		res[m] = t.morphemes(text, expandPath(t.dict.Lexicon(), nodes, m))
	}
	return res, nil
}

// TokenizeStream streams morphemes to a channel for use in pipelines.
func (t *Tokenizer) TokenizeStream(ctx context.Context, text string, mode model.Mode) (<-chan model.Morpheme, <-chan error) {
	out := make(chan model.Morpheme, 8)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		ms, err := t.Tokenize(text, mode)
		if err != nil {
			errs <- err
			return
		}
		for _, m := range ms {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case out <- m:
			}
		}
	}()
	return out, errs
}

func (t *Tokenizer) bestPath(text string) ([]*node, error) {
	if text == "" {
		return nil, nil
	}
	if rows, cols := t.dict.Grammar().MatrixSize(); rows == 0 || cols == 0 {
		return nil, ErrEmptyDictionary
	}
	eos, err := newLattice(t.dict, text).build()
	if err != nil {
		log.Debug().Str("component", "tokenize").Err(err).Int("bytes", len(text)).Msg("lattice has no path")
		return nil, err
	}
	return path(eos), nil
}

func (t *Tokenizer) morphemes(text string, units []unit) []model.Morpheme {
	g := t.dict.Grammar()
	lex := t.dict.Lexicon()
	out := make([]model.Morpheme, 0, len(units))
	for _, u := range units {
		surface := text[u.begin:u.end]
		m := model.Morpheme{
			Surface:      surface,
			Begin:        u.begin,
			End:          u.end,
			PartOfSpeech: g.POS(u.posID),
		}
		if u.oov {
			m.DictionaryForm = surface
			m.ReadingForm = surface
			m.NormalizedForm = surface
			m.DictionaryID = -1
			m.IsOOV = true
		} else {
			info := lex.WordInfo(u.wordID)
			m.DictionaryForm = info.DictionaryForm
			m.ReadingForm = info.ReadingForm
			m.NormalizedForm = info.NormalizedForm
			m.DictionaryID = u.wordID.Dic()
			m.SynonymGroupIDs = info.SynonymGroupIDs
			m.WordID = u.wordID
		}
		out = append(out, m)
	}
	return out
}
