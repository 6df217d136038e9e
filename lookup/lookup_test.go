package lookup

import (
	"context"
	"reflect"
	"testing"

	"jpmorph/internal/dictest"
	"jpmorph/kana"
	"jpmorph/model"
)

func TestLookup(t *testing.T) {
	l := New(dictest.WithUser(t))
	tests := []struct {
		query string
		want  []model.WordID
	}{
		{"東京", []model.WordID{model.NewWordID(0, 0)}},
		{"東京タワー", []model.WordID{model.NewWordID(1, 0)}},
		{"スカイツリー", []model.WordID{model.NewWordID(1, 1)}},
		{"すかいつりー", []model.WordID{model.NewWordID(1, 1)}},
		{"ハロー!プロジェクト", []model.WordID{model.NewWordID(0, 14)}},
		{"東", nil},
		{"", nil},
	}
	for _, tt := range tests {
		var got []model.WordID
		for _, e := range l.Lookup(tt.query) {
			got = append(got, e.WordID)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Lookup(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestEntryFields(t *testing.T) {
	l := New(dictest.WithUser(t))
	e := l.Lookup("東京")[0]
	if e.ReadingForm != "トウキョウ" || e.Cost != 100 || e.DictionaryID != 0 ||
		!reflect.DeepEqual(e.SynonymGroupIDs, []uint32{1, 2}) || e.PartOfSpeech[2] != "地名" {
		t.Errorf("東京 = %+v", e)
	}
	if e := l.Lookup("附属")[0]; e.NormalizedForm != "付属" {
		t.Errorf("附属 normalized = %q", e.NormalizedForm)
	}
	if e := l.Lookup("行っ")[0]; e.DictionaryForm != "行く" {
		t.Errorf("行っ dictionary form = %q", e.DictionaryForm)
	}
	e = l.Lookup("東京都")[0]
	if want := []model.WordID{0, 1}; !reflect.DeepEqual(e.ASplit, want) {
		t.Errorf("東京都 A split = %v", e.ASplit)
	}
	e = l.Lookup("スカイツリー")[0]
	if e.DictionaryID != 1 || e.PartOfSpeech[2] != "ランドマーク" {
		t.Errorf("スカイツリー = %+v", e)
	}
}

func TestFurigana(t *testing.T) {
	l := New(dictest.System(t))
	if got := l.Readings('都'); !reflect.DeepEqual(got, []string{"ト"}) {
		t.Errorf("Readings(都) = %q", got)
	}
	extra := kana.Kanjidic{'東': {"トウ"}, '京': {"キョウ"}}
	m := model.Morpheme{Surface: "東京都", ReadingForm: "トウキョウト"}
	if got := kana.FormatRuby(l.Furigana(m, extra.Readings)); got != "[とう][きょう][と]" {
		t.Errorf("Furigana = %s", got)
	}
}

func TestLookupStream(t *testing.T) {
	l := New(dictest.System(t))
	in := make(chan string, 3)
	in <- "東京"
	in <- "都"
	in <- "東"
	close(in)
	out, errs := l.LookupStream(context.Background(), in)
	var counts []int
	for r := range out {
		counts = append(counts, len(r.Entries))
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(counts, []int{1, 1, 0}) {
		t.Errorf("counts = %v", counts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, errs = l.LookupStream(ctx, make(chan string))
	if err := <-errs; err != context.Canceled {
		t.Errorf("err = %v", err)
	}
}
