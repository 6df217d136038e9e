package sentence

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// wordList is a lexicon over a fixed set of headwords.
type wordList []string

func (w wordList) HeadwordLengths(text string, offset int) []int {
	var lens []int
	for _, h := range w {
		if strings.HasPrefix(text[offset:], h) {
			lens = append(lens, len(h))
		}
	}
	return lens
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		lex  Lexicon
		in   string
		want []string
	}{
		{"empty", nil, "", nil},
		{"no boundary", nil, "今日は晴れ", []string{"今日は晴れ"}},
		{"two sentences", nil, "今日は晴れ。明日は雨。", []string{"今日は晴れ。", "明日は雨。"}},
		{"cluster absorbed", nil, "本当！？うそ", []string{"本当！？", "うそ"}},
		{"ellipsis", nil, "えっと……はい", []string{"えっと……", "はい"}},
		{"closer attached", nil, "「行く。」と言った。", []string{"「行く。」と言った。"}},
		{"closer after terminal", nil, "行く。」次", []string{"行く。」", "次"}},
		{"whitespace attached", nil, "Hi! How are you?  Fine.", []string{"Hi! ", "How are you?  ", "Fine."}},
		{"line breaks", nil, "一行目\n\n二行目\r\n三", []string{"一行目\n\n", "二行目\r\n", "三"}},
		{"line break inside brackets", nil, "（括弧\n内）", []string{"（括弧\n", "内）"}},
		{"decimal", nil, "円周率は3.14です。", []string{"円周率は3.14です。"}},
		{"lexicon guard", wordList{"Yahoo!ジャパン"}, "Yahoo!ジャパンで検索。", []string{"Yahoo!ジャパンで検索。"}},
		{"guard ends at boundary", wordList{"Mr."}, "Mr. Smith.", []string{"Mr. ", "Smith."}},
		{"no guard", nil, "Yahoo!ジャパンで検索。", []string{"Yahoo!", "ジャパンで検索。"}},
		{"abbreviation dots", nil, "U.S.A. is big.", []string{"U.S.A. ", "is big."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.lex).Strings(tt.in)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("Strings(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitSpans(t *testing.T) {
	text := "はい。いいえ。"
	got := New(nil).Split(text)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2", len(got))
	}
	for _, s := range got {
		if text[s.Begin:s.End] != s.Text {
			t.Errorf("span %v does not match %q", s.Span, s.Text)
		}
	}
	if got[1].Begin != got[0].End || got[1].End != len(text) {
		t.Errorf("spans not contiguous: %+v", got)
	}
}

func TestLimit(t *testing.T) {
	text := strings.Repeat("あ", 10) // 30 bytes
	got := New(nil, WithLimit(8)).Strings(text)
	for _, s := range got {
		if len(s) > 8 {
			t.Errorf("sentence %q longer than limit", s)
		}
		if !utf8.ValidString(s) {
			t.Errorf("sentence %q cut inside a character", s)
		}
	}
	if strings.Join(got, "") != text {
		t.Errorf("concatenation mismatch: %q", got)
	}
}

func TestAllStopsEarly(t *testing.T) {
	n := 0
	for range New(nil).All("一。二。三。") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d times, want 2", n)
	}
}

func TestAllRestartable(t *testing.T) {
	seq := New(nil).All("一。二。")
	var first, second []string
	for _, s := range seq {
		first = append(first, s)
	}
	for _, s := range seq {
		second = append(second, s)
	}
	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Errorf("second range gave %q, first %q", second, first)
	}
}

func FuzzSplitReconstructs(f *testing.F) {
	for _, s := range []string{"", "今日は晴れ。", "「あ。」い！？\n\nう", "3.14.", "a.b. c", "\r\r\n"} {
		f.Add(s)
	}
	sp := New(wordList{"3.1", "a.b"}, WithLimit(16))
	f.Fuzz(func(t *testing.T, text string) {
		got := sp.Split(text)
		var b strings.Builder
		prev := 0
		for _, s := range got {
			if s.Begin != prev || s.End <= s.Begin {
				t.Fatalf("bad span %v after %d", s.Span, prev)
			}
			b.WriteString(s.Text)
			prev = s.End
		}
		if b.String() != text {
			t.Fatalf("concatenation %q != %q", b.String(), text)
		}
		if text != "" && len(got) == 0 {
			t.Fatal("non-empty text gave no sentences")
		}
		again := sp.Split(b.String())
		if len(again) != len(got) {
			t.Fatalf("re-split gave %d sentences, want %d", len(again), len(got))
		}
	})
}
