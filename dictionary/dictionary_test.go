package dictionary_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/ikawaha/kagome-dict/dict"

	"jpmorph/dictionary"
	"jpmorph/internal/dictest"
	"jpmorph/model"
)

func TestParseErrors(t *testing.T) {
	image := dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon)
	versioned := bytes.Clone(image)
	versioned[len(dictionary.Magic)] = 9
	flipped := bytes.Clone(image)
	flipped[len(flipped)-1] ^= 0xff

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, dictionary.ErrTruncated},
		{"bad magic", []byte("MECAB\x00\x00\x00\x01\x00\x00\x00"), dictionary.ErrBadMagic},
		{"version", versioned, dictionary.ErrVersion},
		{"truncated header", image[:20], dictionary.ErrTruncated},
		{"truncated infos", image[:len(image)-1], dictionary.ErrTruncated},
		{"trailing bytes", append(bytes.Clone(image), 0), dictionary.ErrCorrupt},
		{"checksum", flipped, dictionary.ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dictionary.Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var le *dictionary.LoadError
			if !errors.As(err, &le) {
				t.Errorf("err = %T, want *LoadError", err)
			}
		})
	}
}

// parseNoPanic fails the test if Parse panics instead of returning an error.
func parseNoPanic(t *testing.T, data []byte) (err error) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Parse panicked: %v", r)
		}
	}()
	_, err = dictionary.Parse(data)
	return err
}

func TestCorruptImages(t *testing.T) {
	image := dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon)
	var le *dictionary.LoadError
	for n := range len(image) {
		if err := parseNoPanic(t, image[:n]); !errors.As(err, &le) {
			t.Fatalf("prefix of %d bytes: err = %v", n, err)
		}
	}

	rng := rand.New(rand.NewPCG(7, 11))
	for i := range 1000 {
		data := bytes.Clone(image)
		for range 1 + rng.IntN(3) {
			data[rng.IntN(len(data))] ^= byte(1 + rng.IntN(255))
		}
		if bytes.Equal(data, image) {
			continue
		}
		if err := parseNoPanic(t, data); !errors.As(err, &le) {
			t.Fatalf("flip %d: err = %v", i, err)
		}
	}
}

// craftedImage is a sealed one-entry system image around a raw index section.
func craftedImage(t *testing.T, index []byte) []byte {
	t.Helper()
	cats, err := dictionary.DefaultCategorizer()
	if err != nil {
		t.Fatal(err)
	}
	b := dictionary.AppendHeader(nil, dictionary.Header{Kind: dictionary.KindSystem, Description: "crafted"})
	b = dictionary.AppendPOSTable(b, [][]string{{"名詞", "*", "*", "*", "*", "*"}})
	b = dictionary.AppendMatrix(b, dict.ConnectionTable{Row: 1, Col: 1, Vec: []int16{0}})
	b = dictionary.AppendCategories(b, cats, nil)
	b = dictionary.AppendLexicon(b, dictionary.LexiconSection{
		Index:    index,
		Postings: []uint32{0},
		Params:   []dictionary.Params{{}},
		Infos: [][]byte{dictionary.AppendWordInfo(nil, dictionary.WordRecord{
			Headword: "ab", Surface: "ab", Reading: "エービー",
			Normalized: dictionary.NoRef, DictForm: dictionary.NoRef,
		})},
	})
	b, err = dictionary.Seal(b)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestCorruptIndex(t *testing.T) {
	valid, err := dict.BuildIndexTable([]string{"ab"})
	if err != nil {
		t.Fatal(err)
	}
	encode := func(idx dict.IndexTable) []byte {
		var buf bytes.Buffer
		if _, err := idx.WriteTo(&buf); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	edit := func(fn func(idx dict.IndexTable)) []byte {
		idx := dict.IndexTable{Da: slices.Clone(valid.Da), Dup: map[int32]int32{}}
		fn(idx)
		return encode(idx)
	}
	child := int(valid.Da[0].Base) + 'a'

	d, err := dictionary.New(dictest.Parse(t, craftedImage(t, encode(valid))))
	if err != nil {
		t.Fatal(err)
	}
	if ms := d.Lexicon().EntriesStartingAt("abc", 0); len(ms) != 1 || ms[0].Length != 2 {
		t.Fatalf("valid index: matches %v", ms)
	}

	hugeCount := encode(valid)
	binary.LittleEndian.PutUint64(hugeCount, 1<<40)
	tests := []struct {
		name  string
		index []byte
	}{
		{"negative root base", edit(func(idx dict.IndexTable) { idx.Da[0].Base = -1 })},
		{"negative inner base", edit(func(idx dict.IndexTable) { idx.Da[child].Base = -3 })},
		{"parent out of range", edit(func(idx dict.IndexTable) { idx.Da[child].Check = int32(len(idx.Da) + 5) })},
		{"duplicates past postings", edit(func(idx dict.IndexTable) { idx.Dup[0] = 4 })},
		{"node count past section", hugeCount},
		{"trailing index bytes", append(encode(valid), 0, 0, 0, 0)},
		{"empty double array", make([]byte, 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseNoPanic(t, craftedImage(t, tt.index))
			if !errors.Is(err, dictionary.ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestKindMismatch(t *testing.T) {
	sys := dictest.System(t)
	user := dictest.Parse(t, dictest.UserImage(t, sys, dictest.UserLexicon))
	if _, err := dictionary.New(user); !errors.Is(err, dictionary.ErrKind) {
		t.Errorf("user as system: err = %v", err)
	}
	system := dictest.Parse(t, dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon))
	other := dictest.Parse(t, dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon))
	if _, err := dictionary.New(system, other); !errors.Is(err, dictionary.ErrKind) {
		t.Errorf("system as user: err = %v", err)
	}
}

func TestUserBuiltForOtherBase(t *testing.T) {
	user := dictest.Parse(t, dictest.UserImage(t, dictest.System(t), dictest.UserLexicon))
	wider := "4 4\n" + strings.TrimPrefix(dictest.Matrix, "3 3\n")
	system := dictest.Parse(t, dictest.SystemImage(t, wider, dictest.Lexicon))
	if _, err := dictionary.New(system, user); !errors.Is(err, dictionary.ErrIDRange) {
		t.Errorf("err = %v, want ErrIDRange", err)
	}
}

func TestTooManyUsers(t *testing.T) {
	sys := dictest.System(t)
	image := dictest.UserImage(t, sys, dictest.UserLexicon)
	var users []*dictionary.Binary
	for range model.MaxUserDictionaries + 1 {
		users = append(users, dictest.Parse(t, image))
	}
	system := dictest.Parse(t, dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon))
	if _, err := dictionary.New(system, users...); !errors.Is(err, dictionary.ErrIDRange) {
		t.Errorf("err = %v, want ErrIDRange", err)
	}
	d, err := dictionary.New(system, users[:model.MaxUserDictionaries]...)
	if err != nil {
		t.Fatal(err)
	}
	if d.Lexicon().UserCount() != model.MaxUserDictionaries {
		t.Errorf("user count = %d", d.Lexicon().UserCount())
	}
}

func TestEntriesStartingAtOrder(t *testing.T) {
	const overlay = "東京,1,1,50,東京,名詞,固有名詞,地名,一般,*,*,トーキョー,*,*,A,*,*,*\n" +
		"東京,1,1,60,東京,名詞,固有名詞,一般,*,*,*,ヒガシキョウ,*,*,A,*,*,*\n"
	sys := dictest.System(t)
	u1 := dictest.Parse(t, dictest.UserImage(t, sys, overlay))
	u2 := dictest.Parse(t, dictest.UserImage(t, sys, overlay))
	d, err := dictionary.New(dictest.Parse(t, dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon)), u1, u2)
	if err != nil {
		t.Fatal(err)
	}

	var got []model.WordID
	for _, m := range d.Lexicon().EntriesStartingAt("東京都庁", 0) {
		got = append(got, m.WordID)
	}
	want := []model.WordID{
		model.NewWordID(0, 2), // 東京都
		model.NewWordID(2, 0), model.NewWordID(2, 1),
		model.NewWordID(1, 0), model.NewWordID(1, 1),
		model.NewWordID(0, 0),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	if got := d.Lexicon().HeadwordLengths("東京都庁", 0); !reflect.DeepEqual(got, []int{9, 6}) {
		t.Errorf("HeadwordLengths = %v", got)
	}
	if got := d.Lexicon().EntriesStartingAt("東京都庁", 3); len(got) != 0 {
		t.Errorf("entries at 3 = %v", got)
	}
}

func TestUserPOSAcrossOverlays(t *testing.T) {
	const first = "スカイツリー,1,1,3000,スカイツリー,名詞,固有名詞,ランドマーク,*,*,*,スカイツリー,*,*,A,*,*,*\n"
	const second = "通天閣,1,1,3000,通天閣,名詞,固有名詞,塔,*,*,*,ツウテンカク,*,*,A,*,*,*\n"
	sys := dictest.System(t)
	u1 := dictest.Parse(t, dictest.UserImage(t, sys, first))
	u2 := dictest.Parse(t, dictest.UserImage(t, sys, second))
	d, err := dictionary.New(dictest.Parse(t, dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon)), u1, u2)
	if err != nil {
		t.Fatal(err)
	}
	g, lex := d.Grammar(), d.Lexicon()
	if got := g.POS(lex.Params(model.NewWordID(1, 0)).POSID)[2]; got != "ランドマーク" {
		t.Errorf("first overlay POS = %q", got)
	}
	if got := g.POS(lex.Params(model.NewWordID(2, 0)).POSID)[2]; got != "塔" {
		t.Errorf("second overlay POS = %q", got)
	}
	if g.POSCount() != sys.Grammar().POSCount()+2 {
		t.Errorf("POS count = %d", g.POSCount())
	}

	// Tags the base already has keep their base id.
	wu := dictest.WithUser(t)
	base, ok := wu.Grammar().POSID([]string{"名詞", "固有名詞", "一般", "*", "*", "*"})
	if !ok {
		t.Fatal("base POS missing")
	}
	if got := wu.Lexicon().Params(model.NewWordID(1, 0)).POSID; got != base {
		t.Errorf("user entry with a base POS has id %d, want %d", got, base)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	system, user := dictest.WriteFiles(t, dir)

	d, err := dictionary.Load(system, user)
	if err != nil {
		t.Fatal(err)
	}
	if d.System().Path() != system {
		t.Errorf("path = %q", d.System().Path())
	}
	info := d.Lexicon().WordInfo(model.NewWordID(1, 0))
	if info.Surface != "東京タワー" || info.ReadingForm != "トウキョウタワー" {
		t.Errorf("user entry = %+v", info)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	_, err = dictionary.Load(filepath.Join(dir, "missing.dic"))
	var le *dictionary.LoadError
	if !errors.As(err, &le) || le.Path != filepath.Join(dir, "missing.dic") {
		t.Errorf("missing file: err = %v", err)
	}
	if _, err := dictionary.Load(user); !errors.Is(err, dictionary.ErrKind) {
		t.Errorf("user as system: err = %v", err)
	}
}

func TestWithCategorizer(t *testing.T) {
	d := dictest.System(t)
	c, err := dictionary.ParseCharDefinition(strings.NewReader("DEFAULT 0 1 0\nKATAKANA 1 1 2\n0x3041..0x309F KATAKANA\n"))
	if err != nil {
		t.Fatal(err)
	}
	custom := d.WithCategorizer(c)
	if custom.Grammar().Categorizer() != c {
		t.Fatal("categorizer not replaced")
	}
	if d.Grammar().Categorizer() == c {
		t.Error("original dictionary changed")
	}
	kata, _ := c.Lookup("KATAKANA")
	ts := custom.Grammar().OOVTemplates(kata)
	if len(ts) != 1 || ts[0].Cost != 9000 {
		t.Errorf("KATAKANA templates = %+v", ts)
	}
}
