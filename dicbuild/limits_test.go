package dicbuild

import (
	"errors"
	"strings"
	"testing"
)

func TestEntryLimit(t *testing.T) {
	b := NewSystem()
	b.maxEntries = 2
	if err := b.ReadConnectionMatrixFrom(strings.NewReader("1 1\n0 0 0\n"), "matrix.def"); err != nil {
		t.Fatal(err)
	}
	const row = ",0,0,100,*,名詞,*,*,*,*,*,*,*,*,A,*,*,*\n"
	if err := b.ReadLexiconFrom(strings.NewReader("あ"+row), "a.csv"); err != nil {
		t.Fatal(err)
	}
	err := b.ReadLexiconFrom(strings.NewReader("い"+row+"う"+row), "b.csv")
	var be *BuildError
	if !errors.As(err, &be) || be.Kind != LexiconParse || be.File != "b.csv" || be.Line != 2 || be.Entry != "う" {
		t.Fatalf("err = %v", err)
	}
	if len(b.entries) != 1 {
		t.Errorf("kept %d entries", len(b.entries))
	}
	if err := b.ReadLexiconFrom(strings.NewReader("い"+row), "c.csv"); err != nil {
		t.Errorf("entry within the limit: %v", err)
	}
}
