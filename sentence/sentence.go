// Package sentence splits text into sentences on punctuation and line breaks.
// Sentences keep their trailing whitespace, so concatenating them gives back
// the input.
package sentence

import (
	"iter"
	"unicode"
	"unicode/utf8"
)

// DefaultLimit is the longest sentence, in bytes, produced without a
// boundary character.
const DefaultLimit = 4096

// guardWindow is how far back, in bytes, the lexicon guard looks for an entry
// spanning a boundary.
const guardWindow = 64

// Lexicon reports the byte lengths of dictionary headwords starting at
// text[offset:]. *dictionary.LexiconSet implements it.
type Lexicon interface {
	HeadwordLengths(text string, offset int) []int
}

// Span is a half-open byte range.
type Span struct {
	Begin, End int
}

// Sentence is one sentence and its position in the input.
type Sentence struct {
	Span
	Text string
}

// Splitter finds sentence boundaries. It is stateless and safe for
// concurrent use.
type Splitter struct {
	lex   Lexicon
	limit int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithLimit sets the longest sentence emitted when no boundary is found.
// Values below 1 keep the default.
func WithLimit(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.limit = n
		}
	}
}

// New returns a splitter. lex may be nil, which disables the lexicon guard.
func New(lex Lexicon, opts ...Option) *Splitter {
	s := &Splitter{lex: lex, limit: DefaultLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// All yields the sentences of text lazily. Every range over the result scans
// text again from the start.
func (s *Splitter) All(text string) iter.Seq2[Span, string] {
	return func(yield func(Span, string) bool) {
		for begin := 0; begin < len(text); {
			end := s.next(text, begin)
			if !yield(Span{Begin: begin, End: end}, text[begin:end]) {
				return
			}
			begin = end
		}
	}
}

// Split returns all sentences of text. Empty text gives none.
func (s *Splitter) Split(text string) []Sentence {
	var out []Sentence
	for sp, t := range s.All(text) {
		out = append(out, Sentence{Span: sp, Text: t})
	}
	return out
}

// Strings returns the sentence texts only.
func (s *Splitter) Strings(text string) []string {
	var out []string
	for _, t := range s.All(text) {
		out = append(out, t)
	}
	return out
}

// next returns the end of the sentence starting at begin. The result is
// always greater than begin.
func (s *Splitter) next(text string, begin int) int {
	limit := begin + s.limit
	depth := 0
	for i := begin; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if i+size > limit && i > begin {
			return i
		}
		switch {
		case r == '\n' || r == '\r':
			return s.absorb(text, i+size, limit, isLineBreak)
		case isOpen(r):
			depth++
		case isClose(r):
			if depth > 0 {
				depth--
			}
		case isTerminal(r):
			end := s.absorb(text, i+size, limit, isTerminal)
			if depth > 0 || s.innerDot(text, i, end) || s.guarded(text, begin, i, end) {
				i = end
				continue
			}
			end = s.absorb(text, end, limit, isClose)
			return s.absorb(text, end, limit, unicode.IsSpace)
		}
		i += size
	}
	return len(text)
}

// absorb extends i over characters matching fn without passing limit.
func (s *Splitter) absorb(text string, i, limit int, fn func(rune) bool) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !fn(r) || i+size > limit {
			break
		}
		i += size
	}
	return i
}

// innerDot reports a single dot between alphanumerics, as in "3.14" or "e.g".
func (s *Splitter) innerDot(text string, i, end int) bool {
	r, size := utf8.DecodeRuneInString(text[i:])
	if (r != '.' && r != '．') || i+size != end || i == 0 || end >= len(text) {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	next, _ := utf8.DecodeRuneInString(text[end:])
	return isAlnum(prev) && isAlnum(next)
}

// guarded reports a lexicon entry that starts before the terminal cluster
// [i, end) and runs past its end.
func (s *Splitter) guarded(text string, begin, i, end int) bool {
	if s.lex == nil {
		return false
	}
	from := max(begin, i-guardWindow)
	for b := i - 1; b >= from; b-- {
		if !utf8.RuneStart(text[b]) {
			continue
		}
		for _, n := range s.lex.HeadwordLengths(text, b) {
			if b+n > end {
				return true
			}
		}
	}
	return false
}

func isTerminal(r rune) bool {
	switch r {
	case '。', '．', '.', '！', '？', '!', '?', '♪', '…', '‥':
		return true
	}
	return false
}

func isOpen(r rune) bool {
	switch r {
	case '（', '(', '「', '『', '【', '［', '[', '｛', '{', '〈', '《', '〔', '“', '‘':
		return true
	}
	return false
}

func isClose(r rune) bool {
	switch r {
	case '）', ')', '」', '』', '】', '］', ']', '｝', '}', '〉', '》', '〕', '"', '”', '’', '\'':
		return true
	}
	return false
}

func isLineBreak(r rune) bool { return r == '\n' || r == '\r' }

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) && r < 0x3000 || unicode.IsDigit(r) || ('Ａ' <= r && r <= 'ｚ')
}
