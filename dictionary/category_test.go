package dictionary

import (
	"reflect"
	"strings"
	"testing"
)

func names(c *Categorizer, s CategorySet) []string {
	var out []string
	s.Each(func(i int) { out = append(out, c.Policy(i).Name) })
	return out
}

func TestDefaultCategorizer(t *testing.T) {
	c, err := DefaultCategorizer()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		r    rune
		want []string
	}{
		{'a', []string{"ALPHA"}},
		{'7', []string{"NUMERIC"}},
		{' ', []string{"SPACE"}},
		{'あ', []string{"HIRAGANA"}},
		{'ア', []string{"KATAKANA"}},
		{'ー', []string{"HIRAGANA", "KATAKANA"}},
		{'東', []string{"KANJI"}},
		{'三', []string{"KANJI", "KANJINUMERIC"}},
		{'〇', []string{"KANJI", "KANJINUMERIC"}},
		{'。', []string{"SYMBOL"}},
		{'α', []string{"GREEK"}},
		{'😀', []string{"DEFAULT"}},
	}
	for _, tt := range tests {
		if got := names(c, c.CategoryOf(tt.r)); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("CategoryOf(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestParseCharDefinitionOverlap(t *testing.T) {
	src := `
DEFAULT 0 1 0
UPPER   1 1 0
VOWEL   0 0 1 # trailing comment
0x0041..0x005A UPPER
0x0045 VOWEL
0x0049 UPPER VOWEL
`
	c, err := ParseCharDefinition(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	want := []CharRange{
		{Lo: 'A', Hi: 'D', Set: 1 << 1},
		{Lo: 'E', Hi: 'E', Set: 1 << 2},
		{Lo: 'F', Hi: 'H', Set: 1 << 1},
		{Lo: 'I', Hi: 'I', Set: 1<<1 | 1<<2},
		{Lo: 'J', Hi: 'Z', Set: 1 << 1},
	}
	if !reflect.DeepEqual(c.Ranges(), want) {
		t.Errorf("ranges = %+v\nwant %+v", c.Ranges(), want)
	}
	if p := c.Policy(2); p.Name != "VOWEL" || p.Invoke || p.Group || p.Length != 1 {
		t.Errorf("policy = %+v", p)
	}
	if got := c.CategoryOf('z'); got != c.Default() {
		t.Errorf("CategoryOf('z') = %b, want default", got)
	}
}

func TestParseCharDefinitionErrors(t *testing.T) {
	tests := map[string]string{
		"no default":         "KANJI 0 0 2\n",
		"undefined category": "DEFAULT 0 1 0\n0x4E00 KANJI\n",
		"short policy":       "DEFAULT 0 1\n",
		"bad range":          "DEFAULT 0 1 0\n0x9FFF..0x4E00 DEFAULT\n",
		"range without name": "DEFAULT 0 1 0\n0x4E00\n",
	}
	for name, src := range tests {
		if _, err := ParseCharDefinition(strings.NewReader(src)); err == nil {
			t.Errorf("%s: no error", name)
		}
	}
}

func TestCategoriesEncoding(t *testing.T) {
	c, err := DefaultCategorizer()
	if err != nil {
		t.Fatal(err)
	}
	templates := []OOVTemplate{{Category: 2, Params: Params{Left: 1, Right: 2, Cost: 3000, POSID: 4}}}
	d := &decoder{data: AppendCategories(nil, c, templates)}
	got, gotTemplates, err := decodeCategories(d)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Error("categorizer changed through encoding")
	}
	if !reflect.DeepEqual(gotTemplates, templates) {
		t.Errorf("templates = %+v", gotTemplates)
	}
	if d.off != len(d.data) {
		t.Errorf("decoded %d of %d bytes", d.off, len(d.data))
	}
}

func TestParseUnknownDefinition(t *testing.T) {
	c, err := DefaultCategorizer()
	if err != nil {
		t.Fatal(err)
	}
	var interned [][]string
	intern := func(pos []string) (uint16, error) {
		interned = append(interned, pos)
		return uint16(len(interned) - 1), nil
	}
	ts, err := ParseUnknownDefinition(strings.NewReader(string(DefaultUnknownDefinition())), c, POSDepth, intern)
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != c.Len() {
		t.Fatalf("%d templates for %d categories", len(ts), c.Len())
	}
	kata, _ := c.Lookup("KATAKANA")
	for _, tmpl := range ts {
		if tmpl.Category == kata && tmpl.Params.Cost != 9000 {
			t.Errorf("KATAKANA cost = %d", tmpl.Params.Cost)
		}
	}

	if _, err := ParseUnknownDefinition(strings.NewReader("NOPE,0,0,1,a,b,c,d,e,f\n"), c, POSDepth, intern); err == nil {
		t.Error("undefined category accepted")
	}
	if _, err := ParseUnknownDefinition(strings.NewReader("KANJI,0,0,1,a\n"), c, POSDepth, intern); err == nil {
		t.Error("short line accepted")
	}
}
