// Package kana classifies Japanese script and aligns readings to kanji.
package kana

import (
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// IsKanji reports whether r is a CJK ideograph or the iteration mark 々.
func IsKanji(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0xF900 && r <= 0xFAFF) || r == '々'
}

func IsHiragana(r rune) bool { return r >= 0x3041 && r <= 0x309F }

func IsKatakana(r rune) bool { return (r >= 0x30A1 && r <= 0x30FF) || (r >= 0x31F0 && r <= 0x31FF) }

// IsKana reports whether s is non-empty and made of kana and the long vowel mark.
func IsKana(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsHiragana(r) && !IsKatakana(r) {
			return false
		}
	}
	return true
}

// KatakanaToHiragana maps katakana ア..ヶ to hiragana; everything else is kept.
func KatakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x30A1 && r <= 0x30F6 {
			return r - 0x60
		}
		return r
	}, s)
}

// HiraganaToKatakana maps hiragana ぁ..ゖ to katakana; everything else is kept.
func HiraganaToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x3041 && r <= 0x3096 {
			return r + 0x60
		}
		return r
	}, s)
}

// NormalizeReading turns a kanji dictionary reading such as "-い.り" into
// plain hiragana: affix markers and the okurigana dot are dropped.
func NormalizeReading(s string) string {
	s = strings.Trim(s, "-")
	s = strings.ReplaceAll(s, ".", "")
	return KatakanaToHiragana(s)
}

var voiced = map[rune]rune{
	'か': 'が', 'き': 'ぎ', 'く': 'ぐ', 'け': 'げ', 'こ': 'ご',
	'さ': 'ざ', 'し': 'じ', 'す': 'ず', 'せ': 'ぜ', 'そ': 'ぞ',
	'た': 'だ', 'ち': 'ぢ', 'つ': 'づ', 'て': 'で', 'と': 'ど',
	'は': 'ば', 'ひ': 'び', 'ふ': 'ぶ', 'へ': 'べ', 'ほ': 'ぼ',
}

// RendakuForm voices the first kana of a hiragana reading, as in 川 かわ
// becoming がわ inside a compound. Readings that cannot be voiced are
// returned unchanged.
func RendakuForm(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if v, ok := voiced[r]; ok {
		return string(v) + s[size:]
	}
	return s
}

// ReadingSource returns the candidate readings of one kanji, in any script.
type ReadingSource func(r rune) []string

// Sources chains reading sources; nil sources are skipped.
func Sources(srcs ...ReadingSource) ReadingSource {
	return func(r rune) []string {
		var out []string
		for _, s := range srcs {
			if s != nil {
				out = append(out, s(r)...)
			}
		}
		return out
	}
}

// Ruby is one aligned piece of a word. Text is empty for kana and for kanji
// whose reading could not be aligned.
type Ruby struct {
	Base string `json:"base"`
	Text string `json:"text,omitempty"`
}

// Furigana aligns reading to the kanji of surface with a greedy longest
// match per kanji. Any reading left over goes to the last kanji.
func Furigana(surface, reading string, src ReadingSource) []Ruby {
	sr := []rune(surface)
	rr := []rune(KatakanaToHiragana(reading))
	out := make([]Ruby, 0, len(sr))
	pos := 0
	for i, s := range sr {
		if !IsKanji(s) {
			out = append(out, Ruby{Base: string(s)})
			if pos < len(rr) && rr[pos] == []rune(KatakanaToHiragana(string(s)))[0] {
				pos++
			}
			continue
		}
		var next rune
		if i+1 < len(sr) && !IsKanji(sr[i+1]) {
			next = []rune(KatakanaToHiragana(string(sr[i+1])))[0]
		}
		best := 0
		for _, cand := range src(s) {
			for _, v := range variants(cand, i > 0) {
				n := matchAt(rr, pos, v)
				if n <= best {
					continue
				}
				if next != 0 && (pos+n >= len(rr) || rr[pos+n] != next) {
					continue
				}
				best = n
			}
		}
		out = append(out, Ruby{Base: string(s), Text: string(rr[pos : pos+best])})
		pos += best
	}
	if pos < len(rr) {
		for i := len(out) - 1; i >= 0; i-- {
			if r, _ := utf8.DecodeRuneInString(out[i].Base); IsKanji(r) {
				out[i].Text += string(rr[pos:])
				break
			}
		}
	}
	return out
}

// FormatRuby renders kanji readings in brackets and kana as is, e.g.
// "[いり][み][ない][かわ]".
func FormatRuby(rs []Ruby) string {
	var b strings.Builder
	for _, r := range rs {
		c, _ := utf8.DecodeRuneInString(r.Base)
		if IsKanji(c) {
			b.WriteString("[" + r.Text + "]")
			continue
		}
		b.WriteString(r.Base)
	}
	return b.String()
}

func variants(cand string, inner bool) []string {
	vs := []string{NormalizeReading(cand)}
	if stem, _, ok := strings.Cut(strings.Trim(cand, "-"), "."); ok {
		vs = append(vs, KatakanaToHiragana(stem))
	}
	if inner {
		for _, v := range vs {
			if r := RendakuForm(v); r != v {
				vs = append(vs, r)
			}
		}
	}
	return vs
}

// matchAt returns the rune length of v if rr continues with v at pos.
func matchAt(rr []rune, pos int, v string) int {
	n := 0
	for _, r := range v {
		if pos+n >= len(rr) || rr[pos+n] != r {
			return 0
		}
		n++
	}
	return n
}

// Kanjidic maps kanji to their on and kun readings.
type Kanjidic map[rune][]string

// Readings implements ReadingSource.
func (k Kanjidic) Readings(r rune) []string { return k[r] }

type kanjidicCharacter struct {
	Literal        string `xml:"literal"`
	ReadingMeaning struct {
		RMGroup []struct {
			Reading []struct {
				Value string `xml:",chardata"`
				Type  string `xml:"r_type,attr"`
			} `xml:"reading"`
		} `xml:"rmgroup"`
	} `xml:"reading_meaning"`
}

// LoadKanjidic streams a KANJIDIC2 XML file and keeps the ja_on and ja_kun
// readings of every single-character literal.
func LoadKanjidic(r io.Reader) (Kanjidic, error) {
	k := Kanjidic{}
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return k, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse kanjidic")
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "character" {
			continue
		}
		var c kanjidicCharacter
		if err := d.DecodeElement(&c, &se); err != nil {
			return nil, errors.Wrap(err, "decode kanjidic character")
		}
		lit, size := utf8.DecodeRuneInString(c.Literal)
		if size != len(c.Literal) {
			continue
		}
		for _, g := range c.ReadingMeaning.RMGroup {
			for _, rd := range g.Reading {
				if rd.Type == "ja_on" || rd.Type == "ja_kun" {
					k[lit] = append(k[lit], rd.Value)
				}
			}
		}
	}
}
