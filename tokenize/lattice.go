package tokenize

import (
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"

	"jpmorph/dictionary"
	"jpmorph/model"
)

// node is a lattice candidate. Its best total cost and predecessor are fixed
// when it is inserted, since every predecessor ends at begin.
type node struct {
	begin, end  int
	left, right int16
	cost        int16
	wordID      model.WordID
	oov         bool
	posID       uint16

	total int64
	prev  *node
}

// lattice holds candidates indexed by end offset. bos is the virtual start.
type lattice struct {
	text    string
	grammar *dictionary.Grammar
	lexicon *dictionary.LexiconSet
	cats    *dictionary.Categorizer

	endAt [][]*node
	bos   node

	runEnd [32]int
	runCat [32]bool
}

func newLattice(d *dictionary.Dictionary, text string) *lattice {
	return &lattice{
		text:    text,
		grammar: d.Grammar(),
		lexicon: d.Lexicon(),
		cats:    d.Grammar().Categorizer(),
		endAt:   make([][]*node, len(text)+1),
		bos:     node{right: dictionary.BOSEOSID},
	}
}

// build inserts every candidate and resolves the best path to EOS.
func (l *lattice) build() (*node, error) {
	for i := 0; i < len(l.text); {
		_, size := utf8.DecodeRuneInString(l.text[i:])
		if i == 0 || len(l.endAt[i]) > 0 {
			if err := l.expand(i); err != nil {
				return nil, err
			}
		}
		i += size
	}
	eos := &node{begin: len(l.text), end: len(l.text), left: dictionary.BOSEOSID}
	if !l.connect(eos) {
		return nil, errors.Wrapf(ErrNoPath, "end of text at byte %d is unreachable", len(l.text))
	}
	return eos, nil
}

// expand inserts the dictionary and unknown-word candidates starting at i.
func (l *lattice) expand(i int) error {
	matches := l.lexicon.EntriesStartingAt(l.text, i)
	covered := make(map[int]bool, len(matches))
	inserted := 0
	for _, m := range matches {
		p := l.lexicon.Params(m.WordID)
		n := &node{
			begin: i, end: i + m.Length,
			left: p.Left, right: p.Right, cost: p.Cost,
			wordID: m.WordID, posID: p.POSID,
		}
		covered[n.end] = true
		if l.insert(n) {
			inserted++
		}
	}

	r, _ := utf8.DecodeRuneInString(l.text[i:])
	set := l.cats.CategoryOf(r)
	set.Each(func(c int) {
		policy := l.cats.Policy(c)
		if !policy.Invoke && len(matches) > 0 {
			return
		}
		templates := l.grammar.OOVTemplates(c)
		if len(templates) == 0 {
			return
		}
		end := l.runEndOf(c, i)
		if policy.Group && !covered[end] {
			for _, t := range templates {
				if l.insert(l.unknown(i, end, t)) {
					inserted++
				}
			}
		}
		pos := i
		for k := 0; k < policy.Length && pos < end; k++ {
			_, size := utf8.DecodeRuneInString(l.text[pos:])
			pos += size
			if covered[pos] || (policy.Group && pos == end) {
				continue
			}
			for _, t := range templates {
				if l.insert(l.unknown(i, pos, t)) {
					inserted++
				}
			}
		}
	})
	if inserted > 0 {
		return nil
	}

	t, ok := l.fallback(set)
	if !ok {
		return errors.Wrapf(ErrNoPath, "no unknown-word template for %q at byte %d", r, i)
	}
	_, size := utf8.DecodeRuneInString(l.text[i:])
	if !l.insert(l.unknown(i, i+size, t)) {
		return errors.Wrapf(ErrNoPath, "unknown word %q at byte %d cannot follow its predecessors", r, i)
	}
	return nil
}

// fallback picks the first template of the character's categories, then of
// the default category.
func (l *lattice) fallback(set dictionary.CategorySet) (dictionary.Params, bool) {
	var (
		found dictionary.Params
		ok    bool
	)
	set.Each(func(c int) {
		if ts := l.grammar.OOVTemplates(c); !ok && len(ts) > 0 {
			found, ok = ts[0], true
		}
	})
	if ok {
		return found, true
	}
	if c, has := l.cats.Lookup(dictionary.DefaultCategory); has {
		if ts := l.grammar.OOVTemplates(c); len(ts) > 0 {
			return ts[0], true
		}
	}
	return dictionary.Params{}, false
}

func (l *lattice) unknown(begin, end int, t dictionary.Params) *node {
	return &node{
		begin: begin, end: end,
		left: t.Left, right: t.Right, cost: t.Cost,
		oov: true, posID: t.POSID,
	}
}

// runEndOf returns the end of the maximal run of category c containing i.
func (l *lattice) runEndOf(c, i int) int {
	if l.runCat[c] && i < l.runEnd[c] {
		return l.runEnd[c]
	}
	end := i
	for end < len(l.text) {
		r, size := utf8.DecodeRuneInString(l.text[end:])
		if !l.cats.CategoryOf(r).Has(c) {
			break
		}
		end += size
	}
	l.runEnd[c], l.runCat[c] = end, true
	return end
}

// insert connects n to its best predecessor and indexes it by end offset.
// Nodes no predecessor can connect to are dropped and reported as false.
func (l *lattice) insert(n *node) bool {
	if !l.connect(n) {
		return false
	}
	l.endAt[n.end] = append(l.endAt[n.end], n)
	return true
}

// connect picks the cheapest predecessor of n. The first candidate wins ties.
func (l *lattice) connect(n *node) bool {
	prevs := l.endAt[n.begin]
	if n.begin == 0 {
		prevs = []*node{&l.bos}
	}
	best := int64(math.MaxInt64)
	for _, p := range prevs {
		c := l.grammar.ConnectionCost(p.right, n.left)
		if c == dictionary.InhibitedConnection {
			continue
		}
		if t := p.total + int64(c); t < best {
			best, n.prev = t, p
		}
	}
	if n.prev == nil {
		return false
	}
	n.total = best + int64(n.cost)
	return true
}

// path walks back from eos and returns the selected nodes in text order.
func path(eos *node) []*node {
	var out []*node
	for n := eos.prev; n != nil && n.prev != nil; n = n.prev {
		out = append(out, n)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
