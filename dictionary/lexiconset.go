package dictionary

import (
	"cmp"
	"slices"

	"jpmorph/model"
)

// Match is a lexicon entry whose headword starts at the queried offset.
type Match struct {
	WordID model.WordID
	Length int // headword length in bytes
}

// WordInfo is the resolved annotation of an entry. Forms that refer to other
// entries are already replaced by their text.
type WordInfo struct {
	Headword        string
	Surface         string
	POSID           uint16
	NormalizedForm  string
	DictionaryForm  string
	ReadingForm     string
	ASplit          []model.WordID
	BSplit          []model.WordID
	SynonymGroupIDs []uint32
}

// LexiconSet answers lookups over the system lexicon and its user overlays.
// Slot 0 is the system lexicon, slot i the i-th attached user lexicon.
type LexiconSet struct {
	lexicons []*lexicon
	params   [][]Params // by slot, POS ids already global
	basePOS  int
}

func newLexiconSet(system *lexicon, basePOS int) *LexiconSet {
	return &LexiconSet{
		lexicons: []*lexicon{system},
		params:   [][]Params{system.params},
		basePOS:  basePOS,
	}
}

// add attaches a user lexicon. Its private POS ids (those at or above the
// base count) move up by posOffset.
func (s *LexiconSet) add(l *lexicon, posOffset uint16) {
	params := make([]Params, len(l.params))
	for i, p := range l.params {
		if int(p.POSID) >= s.basePOS {
			p.POSID += posOffset
		}
		params[i] = p
	}
	s.lexicons = append(s.lexicons, l)
	s.params = append(s.params, params)
}

// EntriesStartingAt returns every indexed entry whose headword starts at
// text[offset:]. Longer headwords come first; among equal lengths user
// dictionaries come before the system dictionary, the last attached first,
// and entries of one dictionary keep ascending index order.
func (s *LexiconSet) EntriesStartingAt(text string, offset int) []Match {
	var out []Match
	for slot, l := range s.lexicons {
		l.lookup(text, offset, func(index, length int) {
			out = append(out, Match{WordID: model.NewWordID(slot, index), Length: length})
		})
	}
	slices.SortStableFunc(out, func(a, b Match) int {
		if c := cmp.Compare(b.Length, a.Length); c != 0 {
			return c
		}
		if c := cmp.Compare(b.WordID.Dic(), a.WordID.Dic()); c != 0 {
			return c
		}
		return cmp.Compare(a.WordID.Index(), b.WordID.Index())
	})
	return out
}

// HeadwordLengths returns the distinct byte lengths of headwords starting at
// text[offset:], longest first.
func (s *LexiconSet) HeadwordLengths(text string, offset int) []int {
	var lens []int
	for _, l := range s.lexicons {
		l.lookup(text, offset, func(_, length int) {
			if !slices.Contains(lens, length) {
				lens = append(lens, length)
			}
		})
	}
	slices.SortFunc(lens, func(a, b int) int { return cmp.Compare(b, a) })
	return lens
}

// ExactMatches returns the indexed system entries whose headword is h, in
// index order.
func (s *LexiconSet) ExactMatches(h string) []model.WordID {
	var ids []model.WordID
	s.lexicons[0].lookup(h, 0, func(index, length int) {
		if length == len(h) {
			ids = append(ids, model.NewWordID(0, index))
		}
	})
	slices.Sort(ids)
	return ids
}

// FirstWithPOS returns the parameters of the first indexed system entry
// tagged posID.
func (s *LexiconSet) FirstWithPOS(posID uint16) (Params, bool) {
	for _, p := range s.lexicons[0].params {
		if p.POSID == posID && p.Left >= 0 {
			return p, true
		}
	}
	return Params{}, false
}

// Params returns the connection ids, cost and global POS id of an entry.
func (s *LexiconSet) Params(id model.WordID) Params {
	return s.params[id.Dic()][id.Index()]
}

// WordInfo returns the resolved annotation of an entry. References were
// validated at load time.
func (s *LexiconSet) WordInfo(id model.WordID) WordInfo {
	slot := id.Dic()
	raw := s.raw(id)
	w := WordInfo{
		Headword:        raw.Headword,
		Surface:         raw.Surface,
		POSID:           s.Params(id).POSID,
		NormalizedForm:  raw.Surface,
		DictionaryForm:  raw.Surface,
		ReadingForm:     raw.Reading,
		ASplit:          s.globalIDs(slot, raw.ASplit),
		BSplit:          s.globalIDs(slot, raw.BSplit),
		SynonymGroupIDs: raw.Synonyms,
	}
	if raw.Normalized != NoRef {
		w.NormalizedForm = s.raw(s.globalID(slot, raw.Normalized)).Surface
	}
	if raw.DictForm != NoRef {
		w.DictionaryForm = s.raw(s.globalID(slot, raw.DictForm)).Surface
	}
	return w
}

// Headword returns the headword of an entry without decoding the rest.
func (s *LexiconSet) Headword(id model.WordID) string {
	return s.raw(id).Headword
}

// Size returns the number of entries in each slot.
func (s *LexiconSet) Size() []int {
	sizes := make([]int, len(s.lexicons))
	for i, l := range s.lexicons {
		sizes[i] = l.size()
	}
	return sizes
}

// UserCount returns the number of attached user dictionaries.
func (s *LexiconSet) UserCount() int { return len(s.lexicons) - 1 }

func (s *LexiconSet) raw(id model.WordID) WordRecord {
	w, err := s.lexicons[id.Dic()].info(id.Index())
	if err != nil {
		// Every record was decoded during load.
		panic(err)
	}
	return w
}

// globalID maps a file-local reference of the lexicon in slot to a set-wide id.
func (s *LexiconSet) globalID(slot int, ref uint32) model.WordID {
	w := model.WordID(ref)
	if w.Dic() == 1 {
		return model.NewWordID(slot, w.Index())
	}
	return w
}

func (s *LexiconSet) globalIDs(slot int, refs []uint32) []model.WordID {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]model.WordID, len(refs))
	for i, r := range refs {
		ids[i] = s.globalID(slot, r)
	}
	return ids
}
