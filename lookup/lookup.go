// Package lookup finds dictionary entries by headword. It backs the lookup
// command and the furigana output of the tokenize command.
package lookup

import (
	"context"
	"slices"

	"golang.org/x/text/unicode/norm"

	"jpmorph/dictionary"
	"jpmorph/kana"
	"jpmorph/model"
)

// Entry is a resolved lexicon entry.
type Entry struct {
	WordID          model.WordID   `json:"wordId"`
	DictionaryID    int            `json:"dictionaryId"`
	Headword        string         `json:"headword"`
	Surface         string         `json:"surface"`
	PartOfSpeech    []string       `json:"partOfSpeech"`
	ReadingForm     string         `json:"readingForm"`
	NormalizedForm  string         `json:"normalizedForm"`
	DictionaryForm  string         `json:"dictionaryForm"`
	Left            int16          `json:"left"`
	Right           int16          `json:"right"`
	Cost            int16          `json:"cost"`
	ASplit          []model.WordID `json:"aSplit,omitempty"`
	BSplit          []model.WordID `json:"bSplit,omitempty"`
	SynonymGroupIDs []uint32       `json:"synonymGroupIds,omitempty"`
}

// Lookuper searches one dictionary.
type Lookuper struct {
	dict *dictionary.Dictionary
}

func New(d *dictionary.Dictionary) *Lookuper { return &Lookuper{dict: d} }

// Lookup returns the indexed entries whose headword is exactly h, after NFC
// normalization. A kana query also matches the other kana script. User
// entries come first, as in the lattice.
func (l *Lookuper) Lookup(h string) []Entry {
	h = norm.NFC.String(h)
	queries := []string{h}
	if kana.IsKana(h) {
		for _, v := range []string{kana.KatakanaToHiragana(h), kana.HiraganaToKatakana(h)} {
			if !slices.Contains(queries, v) {
				queries = append(queries, v)
			}
		}
	}
	var out []Entry
	seen := map[model.WordID]bool{}
	for _, q := range queries {
		for _, id := range l.exact(q) {
			if !seen[id] {
				seen[id] = true
				out = append(out, l.entry(id))
			}
		}
	}
	return out
}

func (l *Lookuper) exact(h string) []model.WordID {
	var ids []model.WordID
	if h == "" {
		return nil
	}
	for _, m := range l.dict.Lexicon().EntriesStartingAt(h, 0) {
		if m.Length == len(h) {
			ids = append(ids, m.WordID)
		}
	}
	return ids
}

func (l *Lookuper) entry(id model.WordID) Entry {
	lex := l.dict.Lexicon()
	info := lex.WordInfo(id)
	p := lex.Params(id)
	return Entry{
		WordID:          id,
		DictionaryID:    id.Dic(),
		Headword:        info.Headword,
		Surface:         info.Surface,
		PartOfSpeech:    l.dict.Grammar().POS(info.POSID),
		ReadingForm:     info.ReadingForm,
		NormalizedForm:  info.NormalizedForm,
		DictionaryForm:  info.DictionaryForm,
		Left:            p.Left,
		Right:           p.Right,
		Cost:            p.Cost,
		ASplit:          info.ASplit,
		BSplit:          info.BSplit,
		SynonymGroupIDs: info.SynonymGroupIDs,
	}
}

// Readings returns the readings of the single-character entries for r. It
// is a kana.ReadingSource.
func (l *Lookuper) Readings(r rune) []string {
	var out []string
	for _, id := range l.exact(string(r)) {
		if rd := l.dict.Lexicon().WordInfo(id).ReadingForm; rd != "" && !slices.Contains(out, rd) {
			out = append(out, rd)
		}
	}
	return out
}

// Furigana aligns the reading of m to its kanji with the dictionary's own
// single-kanji readings, then the extra sources.
func (l *Lookuper) Furigana(m model.Morpheme, extra ...kana.ReadingSource) []kana.Ruby {
	return kana.Furigana(m.Surface, m.ReadingForm, kana.Sources(append([]kana.ReadingSource{l.Readings}, extra...)...))
}

// Result pairs a query with its entries.
type Result struct {
	Query   string  `json:"query"`
	Entries []Entry `json:"entries"`
}

// LookupStream looks up every headword received on in until in is closed
// or ctx is done.
func (l *Lookuper) LookupStream(ctx context.Context, in <-chan string) (<-chan Result, <-chan error) {
	out := make(chan Result, 8)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for {
			var q string
			var ok bool
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case q, ok = <-in:
				if !ok {
					return
				}
			}
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case out <- Result{Query: q, Entries: l.Lookup(q)}:
			}
		}
	}()
	return out, errs
}
