// Package dictest builds small dictionaries for tests.
package dictest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jpmorph/dicbuild"
	"jpmorph/dictionary"
)

// Matrix has three connection ids: 0 for BOS/EOS and unknown words, 1 for
// content words, 2 for function words.
const Matrix = `3 3
0 0 0
0 1 0
0 2 100
1 0 0
1 1 50
1 2 -100
2 0 0
2 1 0
2 2 200
`

// Lexicon is the system fixture. Entry ids are the row numbers from 0.
const Lexicon = `東京,1,1,100,東京,名詞,固有名詞,地名,一般,*,*,トウキョウ,*,*,A,*,*,*,1/tokyo
都,1,1,2000,都,名詞,普通名詞,一般,*,*,*,ト,*,*,A,*,*,*
東京都,1,1,500,東京都,名詞,固有名詞,地名,一般,*,*,トウキョウト,*,*,B,0/1,*,0/1,tokyo
行く,1,1,1000,行く,動詞,一般,*,*,五段-カ行,終止形-一般,イク,*,*,A,*,*,*
行っ,1,1,1000,行っ,動詞,一般,*,*,五段-カ行,連用形-促音便,イッ,*,3,A,*,*,*
に,2,2,300,に,助詞,格助詞,*,*,*,*,ニ,*,*,A,*,*,*
国立,1,1,1500,国立,名詞,普通名詞,一般,*,*,*,コクリツ,*,*,A,*,*,*
国会,1,1,1500,国会,名詞,普通名詞,一般,*,*,*,コッカイ,*,*,A,*,*,*
図書館,1,1,1500,図書館,名詞,普通名詞,一般,*,*,*,トショカン,*,*,A,*,*,*
国会図書館,1,1,3000,国会図書館,名詞,固有名詞,一般,*,*,*,コッカイトショカン,*,*,B,7/8,*,*
国立国会図書館,1,1,2000,国立国会図書館,名詞,固有名詞,一般,*,*,*,コクリツコッカイトショカン,*,*,C,6/7/8,6/9,*
付属,1,1,1000,付属,名詞,普通名詞,サ変可能,*,*,*,フゾク,*,*,A,*,*,*
附属,1,1,1200,附属,名詞,普通名詞,サ変可能,*,*,*,フゾク,付属,*,A,*,*,*
た,2,2,500,た,助動詞,*,*,*,助動詞-タ,終止形-一般,タ,*,*,A,*,*,*
ハロー!プロジェクト,1,1,1000,ハロー!プロジェクト,名詞,固有名詞,一般,*,*,*,ハロープロジェクト,*,*,A,*,*,*
`

// UserLexicon overlays Lexicon. Row 0 inherits its connection ids, row 1
// adds a POS tag, row 2 splits into a system and a user entry.
const UserLexicon = `東京タワー,*,*,3000,東京タワー,名詞,固有名詞,一般,*,*,*,トウキョウタワー,*,*,A,*,*,*
スカイツリー,1,1,3000,スカイツリー,名詞,固有名詞,ランドマーク,*,*,*,スカイツリー,*,*,A,*,*,*
東京スカイツリー,1,1,2000,東京スカイツリー,名詞,固有名詞,ランドマーク,*,*,*,トウキョウスカイツリー,*,*,B,0/U1,*,*
`

// SystemImage compiles a system dictionary from matrix and lexicon sources.
func SystemImage(t testing.TB, matrix, lexicon string) []byte {
	t.Helper()
	b := dicbuild.NewSystem()
	b.SetDescription("test system")
	if err := b.ReadConnectionMatrixFrom(strings.NewReader(matrix), "matrix.def"); err != nil {
		t.Fatalf("ReadConnectionMatrix: %v", err)
	}
	if err := b.ReadLexiconFrom(strings.NewReader(lexicon), "lex.csv"); err != nil {
		t.Fatalf("ReadLexicon: %v", err)
	}
	if err := b.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var buf bytes.Buffer
	if _, err := b.Compile(&buf); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return buf.Bytes()
}

// UserImage compiles a user dictionary over base.
func UserImage(t testing.TB, base *dictionary.Dictionary, lexicon string) []byte {
	t.Helper()
	b := dicbuild.NewUser(base)
	b.SetDescription("test user")
	if err := b.ReadLexiconFrom(strings.NewReader(lexicon), "user.csv"); err != nil {
		t.Fatalf("ReadLexicon: %v", err)
	}
	if err := b.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var buf bytes.Buffer
	if _, err := b.Compile(&buf); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return buf.Bytes()
}

// Parse decodes an image and fails the test on error.
func Parse(t testing.TB, image []byte) *dictionary.Binary {
	t.Helper()
	bin, err := dictionary.Parse(image)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return bin
}

// System returns the fixture system dictionary.
func System(t testing.TB) *dictionary.Dictionary {
	t.Helper()
	return compose(t, Parse(t, SystemImage(t, Matrix, Lexicon)))
}

// WithUser returns the fixture system dictionary with UserLexicon attached.
func WithUser(t testing.TB) *dictionary.Dictionary {
	t.Helper()
	sys := System(t)
	user := Parse(t, UserImage(t, sys, UserLexicon))
	return compose(t, Parse(t, SystemImage(t, Matrix, Lexicon)), user)
}

func compose(t testing.TB, sys *dictionary.Binary, users ...*dictionary.Binary) *dictionary.Dictionary {
	t.Helper()
	d, err := dictionary.New(sys, users...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// WriteFiles writes the fixture system and user dictionaries to dir and
// returns their paths.
func WriteFiles(t testing.TB, dir string) (system, user string) {
	t.Helper()
	system = filepath.Join(dir, "system.dic")
	user = filepath.Join(dir, "user.dic")
	if err := os.WriteFile(system, SystemImage(t, Matrix, Lexicon), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(user, UserImage(t, System(t), UserLexicon), 0o644); err != nil {
		t.Fatal(err)
	}
	return system, user
}
