package analyze

import (
	"reflect"
	"testing"

	"jpmorph/model"
)

func m(surface, reading, dictForm string, pos ...string) model.Morpheme {
	for len(pos) < 6 {
		pos = append(pos, "*")
	}
	return model.Morpheme{Surface: surface, ReadingForm: reading, DictionaryForm: dictForm, PartOfSpeech: pos}
}

// place lays morphemes out one after another.
func place(ms ...model.Morpheme) []model.Morpheme {
	pos := 0
	for i := range ms {
		ms[i].Begin = pos
		pos += len(ms[i].Surface)
		ms[i].End = pos
	}
	return ms
}

func TestMergeAuxiliaries(t *testing.T) {
	ms := place(
		m("東京", "トウキョウ", "東京", "名詞", "固有名詞"),
		m("に", "ニ", "に", "助詞", "格助詞"),
		m("行き", "イキ", "行く", "動詞", "一般"),
		m("まし", "マシ", "ます", "助動詞"),
		m("た", "タ", "た", "助動詞"),
		m("。", "。", "。", "補助記号", "句点"),
		m("見", "ミ", "見る", "動詞", "一般"),
		m("て", "テ", "て", "助詞", "接続助詞"),
		m("いる", "イル", "いる", "動詞", "非自立可能"),
	)
	chunks := MergeAuxiliaries(ms)
	var got []string
	for _, c := range chunks {
		got = append(got, c.Surface)
	}
	if want := []string{"東京", "に", "行きました", "。", "見", "て", "いる"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks %q, want %q", got, want)
	}
	verb := chunks[2]
	if verb.Label != "polite past" || verb.Reading != "イキマシタ" ||
		!reflect.DeepEqual(verb.Conjugation, []string{"ます", "た"}) ||
		verb.Begin != ms[2].Begin || verb.End != ms[4].End || verb.Head.DictionaryForm != "行く" {
		t.Errorf("verb chunk %+v", verb)
	}
	if chunks[4].Label != "" || len(chunks[4].Auxiliaries) != 0 {
		t.Errorf("見 chunk %+v", chunks[4])
	}
	if chunks[0].Reading != "トウキョウ" || chunks[0].Head.Surface != "東京" {
		t.Errorf("noun chunk %+v", chunks[0])
	}
}

func TestConjugationLabel(t *testing.T) {
	tests := map[string][]string{
		"past":        {"た"},
		"polite":      {"ます"},
		"polite past": {"ます", "た"},
		"negative":    {"ない"},
		"":            {"ます", "た", "た"},
	}
	for want, auxs := range tests {
		if got := conjugationLabel(auxs); got != want {
			t.Errorf("conjugationLabel(%q) = %q, want %q", auxs, got, want)
		}
	}
	if conjugationLabel(nil) != "" {
		t.Error("empty sequence labeled")
	}
}

func TestDetectClauses(t *testing.T) {
	ms := place(
		m("雨", "アメ", "雨", "名詞"),
		m("が", "ガ", "が", "助詞", "格助詞"),
		m("降っ", "フッ", "降る", "動詞", "一般"),
		m("た", "タ", "た", "助動詞"),
		m("から", "カラ", "から", "助詞", "接続助詞"),
		m("、", "、", "、", "補助記号", "読点"),
		m("家", "イエ", "家", "名詞"),
		m("に", "ニ", "に", "助詞", "格助詞"),
		m("いる", "イル", "いる", "動詞", "一般"),
		m("。", "。", "。", "補助記号", "句点"),
	)
	got := DetectClauses(ms)
	want := []Clause{
		{Start: 0, End: 5, Type: SubordinateClause, Connective: "から", Predicate: 2},
		{Start: 6, End: 9, Type: MainClause, Predicate: 8},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}

	if got := DetectClauses(place(m("、", "、", "、", "補助記号", "読点"))); got != nil {
		t.Errorf("punctuation only: %+v", got)
	}
	noVerb := DetectClauses(place(m("東京", "トウキョウ", "東京", "名詞")))
	if len(noVerb) != 1 || noVerb[0].Predicate != -1 {
		t.Errorf("no verb: %+v", noVerb)
	}
}
