package dicbuild_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"jpmorph/dicbuild"
	"jpmorph/dictionary"
	"jpmorph/internal/dictest"
	"jpmorph/model"
)

func TestBuildSystem(t *testing.T) {
	bin := dictest.Parse(t, dictest.SystemImage(t, dictest.Matrix, dictest.Lexicon))
	if bin.Kind() != dictionary.KindSystem {
		t.Fatalf("kind = %v, want system", bin.Kind())
	}
	if bin.Description() != "test system" {
		t.Errorf("description = %q", bin.Description())
	}
	if bin.Size() != 15 {
		t.Errorf("size = %d, want 15", bin.Size())
	}

	d, err := dictionary.New(bin)
	if err != nil {
		t.Fatal(err)
	}
	lex := d.Lexicon()

	ms := lex.EntriesStartingAt("東京都に", 0)
	if len(ms) != 2 || ms[0].WordID != model.NewWordID(0, 2) || ms[1].WordID != model.NewWordID(0, 0) {
		t.Fatalf("EntriesStartingAt = %v", ms)
	}

	tokyo := lex.WordInfo(model.NewWordID(0, 0))
	if tokyo.ReadingForm != "トウキョウ" {
		t.Errorf("reading = %q", tokyo.ReadingForm)
	}
	if !reflect.DeepEqual(tokyo.SynonymGroupIDs, []uint32{1, 2}) {
		t.Errorf("synonyms of 東京 = %v, want [1 2]", tokyo.SynonymGroupIDs)
	}
	tokyoto := lex.WordInfo(model.NewWordID(0, 2))
	if !reflect.DeepEqual(tokyoto.SynonymGroupIDs, []uint32{2}) {
		t.Errorf("synonyms of 東京都 = %v, want [2]", tokyoto.SynonymGroupIDs)
	}
	wantA := []model.WordID{model.NewWordID(0, 0), model.NewWordID(0, 1)}
	if !reflect.DeepEqual(tokyoto.ASplit, wantA) {
		t.Errorf("A split = %v, want %v", tokyoto.ASplit, wantA)
	}
	if got := lex.WordInfo(model.NewWordID(0, 12)).NormalizedForm; got != "付属" {
		t.Errorf("normalized form of 附属 = %q", got)
	}
	if got := lex.WordInfo(model.NewWordID(0, 4)).DictionaryForm; got != "行く" {
		t.Errorf("dictionary form of 行っ = %q", got)
	}
	if got := d.Grammar().POS(lex.Params(model.NewWordID(0, 5)).POSID); !reflect.DeepEqual(got, []string{"助詞", "格助詞", "*", "*", "*", "*"}) {
		t.Errorf("POS of に = %v", got)
	}
}

func TestBuildUser(t *testing.T) {
	d := dictest.WithUser(t)
	lex := d.Lexicon()
	if lex.UserCount() != 1 {
		t.Fatalf("user count = %d", lex.UserCount())
	}

	ms := lex.EntriesStartingAt("東京タワー", 0)
	if len(ms) == 0 || ms[0].WordID != model.NewWordID(1, 0) {
		t.Fatalf("EntriesStartingAt = %v", ms)
	}
	if p := lex.Params(ms[0].WordID); p.Left != 1 || p.Right != 1 {
		t.Errorf("inherited ids = (%d, %d), want (1, 1)", p.Left, p.Right)
	}

	sky := model.NewWordID(1, 1)
	want := []string{"名詞", "固有名詞", "ランドマーク", "*", "*", "*"}
	if got := d.Grammar().POS(lex.Params(sky).POSID); !reflect.DeepEqual(got, want) {
		t.Errorf("POS = %v, want %v", got, want)
	}

	split := lex.WordInfo(model.NewWordID(1, 2)).ASplit
	if !reflect.DeepEqual(split, []model.WordID{model.NewWordID(0, 0), sky}) {
		t.Errorf("A split = %v", split)
	}
}

func TestReport(t *testing.T) {
	b := dicbuild.NewSystem()
	if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "matrix.def"); err != nil {
		t.Fatal(err)
	}
	if err := b.ReadLexiconFrom(strings.NewReader(dictest.Lexicon), "lex.csv"); err != nil {
		t.Fatal(err)
	}
	if err := b.Resolve(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	report, err := b.Compile(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b.State() != dicbuild.Compiled {
		t.Errorf("state = %v", b.State())
	}

	var names []string
	for _, p := range report {
		names = append(names, p.Name)
	}
	want := []string{
		"connection matrix", "lex.csv", "resolve",
		"header", "POS table", "connection matrix", "character categories",
		"trie index", "word parameters", "word infos",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("parts = %v\nwant %v", names, want)
	}

	line := regexp.MustCompile(`^.+ [0-9,]+ (bytes|entries) in [0-9]+\.[0-9]{3} sec$`)
	for _, l := range strings.Split(strings.TrimSuffix(report.String(), "\n"), "\n") {
		if !line.MatchString(l) {
			t.Errorf("report line %q", l)
		}
	}
	if total := report.Total(); total == 0 || total > buf.Len() {
		t.Errorf("total = %d, wrote %d", total, buf.Len())
	}
}

func TestReportString(t *testing.T) {
	r := dicbuild.Report{
		{Name: "word infos", Size: 1234567, Unit: dicbuild.Bytes, Elapsed: 1500 * time.Millisecond},
		{Name: "lex.csv", Size: 42, Unit: dicbuild.Entries, Elapsed: 2 * time.Millisecond},
	}
	want := "word infos 1,234,567 bytes in 1.500 sec\nlex.csv 42 entries in 0.002 sec\n"
	if got := r.String(); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestBuildErrors(t *testing.T) {
	const pos = "名詞,普通名詞,一般,*,*,*"
	row := func(headword, ids, split string) string {
		return headword + "," + ids + ",100," + headword + "," + pos + ",ア,*,*," + split + ",*\n"
	}
	tests := []struct {
		name    string
		lexicon string
		kind    dicbuild.ErrorKind
	}{
		{"too few columns", "東京,1,1,100\n", dicbuild.LexiconParse},
		{"bad cost", "東京,1,1,x,東京," + pos + ",ア,*,*,A,*,*,*\n", dicbuild.LexiconParse},
		{"star in system", row("東京", "*,*", "A,*,*"), dicbuild.LexiconParse},
		{"split of type A", row("東京", "1,1", "A,0,*"), dicbuild.LexiconParse},
		{"bad split type", row("東京", "1,1", "D,*,*"), dicbuild.LexiconParse},
		{"outside matrix", row("東京", "5,1", "A,*,*"), dicbuild.LexiconParse},
		{"unknown headword", row("東京都", "1,1", "B,東京/都,*"), dicbuild.UnresolvedReference},
		{"id out of range", row("東京", "1,1", "B,7,*"), dicbuild.UnresolvedReference},
		{"user ref out of range", row("東京", "1,1", "B,U3,*"), dicbuild.UnresolvedReference},
		{"split does not tile", row("東京", "1,1", "A,*,*") + row("東京都", "1,1", "B,0,*"), dicbuild.InvalidSplit},
		{"A split does not refine B split",
			row("ア", "1,1", "A,*,*") + row("イ", "1,1", "A,*,*") + row("ウ", "1,1", "A,*,*") +
				row("イウ", "1,1", "A,*,*") + row("アイウ", "1,1", "C,0/3,0/1/2"), dicbuild.InvalidSplit},
		{"long POS field", "東京,1,1,100,東京," + strings.Repeat("あ", 21846) + ",*,*,*,*,*,ア,*,*,A,*,*,*\n", dicbuild.LexiconParse},
		{"bad normalized form", "東京,1,1,100,東京," + pos + ",ア,西京,*,A,*,*,*\n", dicbuild.UnresolvedReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dicbuild.NewSystem()
			if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "matrix.def"); err != nil {
				t.Fatal(err)
			}
			err := b.ReadLexiconFrom(strings.NewReader(tt.lexicon), "lex.csv")
			if err == nil {
				err = b.Resolve()
			}
			var be *dicbuild.BuildError
			if !errors.As(err, &be) {
				t.Fatalf("err = %v, want a BuildError", err)
			}
			if be.Kind != tt.kind {
				t.Errorf("kind = %v, want %v (%v)", be.Kind, tt.kind, err)
			}
		})
	}
}

func TestErrorLocation(t *testing.T) {
	b := dicbuild.NewSystem()
	if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "matrix.def"); err != nil {
		t.Fatal(err)
	}
	lex := dictest.Lexicon + "京都,1,1,100,京都,名詞,固有名詞,地名,一般,*,*,キョウト,*,*,B,京/都,*,*\n"
	if err := b.ReadLexiconFrom(strings.NewReader(lex), "lex.csv"); err != nil {
		t.Fatal(err)
	}
	err := b.Resolve()
	var be *dicbuild.BuildError
	if !errors.As(err, &be) {
		t.Fatalf("err = %v", err)
	}
	if be.File != "lex.csv" || be.Line != 16 || be.Entry != "京都" {
		t.Errorf("location = %s:%d %q", be.File, be.Line, be.Entry)
	}
	if !strings.Contains(err.Error(), "lex.csv:16") {
		t.Errorf("message %q has no location", err)
	}
}

func TestUsageErrors(t *testing.T) {
	isUsage := func(t *testing.T, err error) {
		t.Helper()
		var be *dicbuild.BuildError
		if !errors.As(err, &be) || be.Kind != dicbuild.Usage {
			t.Errorf("err = %v, want usage error", err)
		}
	}

	t.Run("lexicon before matrix", func(t *testing.T) {
		isUsage(t, dicbuild.NewSystem().ReadLexiconFrom(strings.NewReader(""), "lex.csv"))
	})
	t.Run("compile before resolve", func(t *testing.T) {
		b := dicbuild.NewSystem()
		if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "m"); err != nil {
			t.Fatal(err)
		}
		_, err := b.Compile(&bytes.Buffer{})
		isUsage(t, err)
	})
	t.Run("matrix twice", func(t *testing.T) {
		b := dicbuild.NewSystem()
		if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "m"); err != nil {
			t.Fatal(err)
		}
		isUsage(t, b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "m"))
	})
	t.Run("resolve twice", func(t *testing.T) {
		b := dicbuild.NewSystem()
		if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "m"); err != nil {
			t.Fatal(err)
		}
		if err := b.Resolve(); err != nil {
			t.Fatal(err)
		}
		isUsage(t, b.Resolve())
	})
	t.Run("description too long", func(t *testing.T) {
		b := dicbuild.NewSystem()
		b.SetDescription(strings.Repeat("x", dictionary.MaxStringLength+1))
		if err := b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "m"); err != nil {
			t.Fatal(err)
		}
		if err := b.Resolve(); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		_, err := b.Compile(&buf)
		isUsage(t, err)
		if buf.Len() != 0 {
			t.Errorf("wrote %d bytes", buf.Len())
		}
	})
	t.Run("matrix for user", func(t *testing.T) {
		b := dicbuild.NewUser(dictest.System(t))
		isUsage(t, b.ReadConnectionMatrixFrom(strings.NewReader(dictest.Matrix), "m"))
	})
	t.Run("char.def for user", func(t *testing.T) {
		b := dicbuild.NewUser(dictest.System(t))
		isUsage(t, b.ReadCharDefinitionFrom(bytes.NewReader(dictionary.DefaultCharDefinition()), "char.def"))
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCompiler(t *testing.T) {
	dir := t.TempDir()
	c := dicbuild.NewCompiler()
	c.SetDescription("fixture")
	c.SetMatrixFile(writeFile(t, dir, "matrix.def", dictest.Matrix))
	c.AddLexiconFile(writeFile(t, dir, "lex.csv", dictest.Lexicon))
	system := filepath.Join(dir, "system.dic")
	if _, err := c.CompileSystem(system); err != nil {
		t.Fatal(err)
	}

	u := dicbuild.NewCompiler()
	u.AddLexiconFile(writeFile(t, dir, "user.csv", dictest.UserLexicon))
	user := filepath.Join(dir, "user.dic")
	report, err := u.CompileUser(system, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(report) == 0 {
		t.Error("empty report")
	}

	d, err := dictionary.Load(system, user)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if d.System().Description() != "fixture" {
		t.Errorf("description = %q", d.System().Description())
	}
	if got := d.Lexicon().Size(); !reflect.DeepEqual(got, []int{15, 3}) {
		t.Errorf("sizes = %v", got)
	}

	bad := dicbuild.NewCompiler()
	bad.SetMatrixFile(filepath.Join(dir, "matrix.def"))
	bad.AddLexiconFile(filepath.Join(dir, "user.csv"))
	_, err = bad.CompileUser(system, filepath.Join(dir, "other.dic"))
	var be *dicbuild.BuildError
	if !errors.As(err, &be) || be.Kind != dicbuild.Usage {
		t.Errorf("err = %v, want usage error", err)
	}
}

func TestCompilerFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	c := dicbuild.NewCompiler()
	c.SetMatrixFile(writeFile(t, dir, "matrix.def", dictest.Matrix))
	c.AddLexiconFile(writeFile(t, dir, "lex.csv",
		"京都,1,1,100,京都,名詞,固有名詞,地名,一般,*,*,キョウト,*,*,B,京/都,*,*\n"))
	out := filepath.Join(dir, "system.dic")

	_, err := c.CompileSystem(out)
	var be *dicbuild.BuildError
	if !errors.As(err, &be) || be.Kind != dicbuild.UnresolvedReference {
		t.Fatalf("err = %v, want unresolved reference", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output exists after failure: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("directory has %d files, want only the 2 inputs", len(entries))
	}
}

func TestCompilerMissingInput(t *testing.T) {
	dir := t.TempDir()
	c := dicbuild.NewCompiler()
	c.SetMatrixFile(filepath.Join(dir, "missing.def"))
	_, err := c.CompileSystem(filepath.Join(dir, "out.dic"))
	var be *dicbuild.BuildError
	if !errors.As(err, &be) || be.Kind != dicbuild.IoFailure {
		t.Errorf("err = %v, want I/O failure", err)
	}
}
