// Command demo compiles a small system and user dictionary into a temporary
// directory and analyzes a few sentences with them.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"jpmorph/analyze"
	"jpmorph/dicbuild"
	"jpmorph/dictionary"
	"jpmorph/kana"
	"jpmorph/logger"
	"jpmorph/lookup"
	"jpmorph/model"
)

const matrix = `3 3
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

const systemLexicon = `東京,1,1,100,東京,名詞,固有名詞,地名,一般,*,*,トウキョウ,*,*,A,*,*,*,1
都,1,1,2000,都,名詞,普通名詞,一般,*,*,*,ト,*,*,A,*,*,*
東京都,1,1,500,東京都,名詞,固有名詞,地名,一般,*,*,トウキョウト,*,*,B,0/1,*,0/1,*
行く,1,1,1000,行く,動詞,一般,*,*,五段-カ行,終止形-一般,イク,*,*,A,*,*,*
行っ,1,1,1000,行っ,動詞,一般,*,*,五段-カ行,連用形-促音便,イッ,*,3,A,*,*,*
に,2,2,300,に,助詞,格助詞,*,*,*,*,ニ,*,*,A,*,*,*
た,2,2,500,た,助動詞,*,*,*,助動詞-タ,終止形-一般,タ,*,*,A,*,*,*
国立,1,1,1500,国立,名詞,普通名詞,一般,*,*,*,コクリツ,*,*,A,*,*,*
国会,1,1,1500,国会,名詞,普通名詞,一般,*,*,*,コッカイ,*,*,A,*,*,*
図書館,1,1,1500,図書館,名詞,普通名詞,一般,*,*,*,トショカン,*,*,A,*,*,*
国会図書館,1,1,3000,国会図書館,名詞,固有名詞,一般,*,*,*,コッカイトショカン,*,*,B,8/9,*,*
国立国会図書館,1,1,2000,国立国会図書館,名詞,固有名詞,一般,*,*,*,コクリツコッカイトショカン,*,*,C,7/8/9,7/10,*
`

const userLexicon = `東京タワー,*,*,3000,東京タワー,名詞,固有名詞,ランドマーク,*,*,*,トウキョウタワー,*,*,A,*,*,*
`

const text = "国立国会図書館に行った。東京タワーに行く！東京都"

func build(dir string) (system, user string, err error) {
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err == nil {
			err = os.WriteFile(p, []byte(content), 0o644)
		}
		return p
	}
	m := write("matrix.def", matrix)
	sl := write("lex.csv", systemLexicon)
	ul := write("user.csv", userLexicon)
	if err != nil {
		return "", "", err
	}

	system = filepath.Join(dir, "system.dic")
	c := dicbuild.NewCompiler()
	c.SetDescription("demo system dictionary")
	c.SetMatrixFile(m)
	c.AddLexiconFile(sl)
	report, err := c.CompileSystem(system)
	if err != nil {
		return "", "", err
	}
	fmt.Print(report)

	user = filepath.Join(dir, "user.dic")
	c = dicbuild.NewCompiler()
	c.SetDescription("demo user dictionary")
	c.AddLexiconFile(ul)
	if report, err = c.CompileUser(system, user); err != nil {
		return "", "", err
	}
	fmt.Print(report)
	return system, user, nil
}

func main() {
	if err := logger.Setup(os.Stderr, "info", "console"); err != nil {
		panic(err)
	}
	dir, err := os.MkdirTemp("", "jpmorph-demo")
	if err != nil {
		log.Fatal().Err(err).Msg("temp dir")
	}
	defer os.RemoveAll(dir)

	system, user, err := build(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("build dictionaries")
	}
	a, err := analyze.New(system, "", "", analyze.WithUserDictionaries(user))
	if err != nil {
		log.Fatal().Err(err).Msg("open analyzer")
	}
	defer a.Close()

	sentences, err := a.SplitSentences(text)
	if err != nil {
		log.Fatal().Err(err).Msg("split")
	}
	for i, s := range sentences {
		fmt.Printf("sentence %d: %s\n", i, s)
	}
	for _, mode := range []model.Mode{model.ModeA, model.ModeB, model.ModeC} {
		s, err := a.TokenizeToString(text, mode, true, false)
		if err != nil {
			log.Fatal().Err(err).Msg("tokenize")
		}
		fmt.Printf("mode %s: %s\n", mode, s)
	}
	s, err := a.TokenizeToString(text, model.ModeC, false, true)
	if err != nil {
		log.Fatal().Err(err).Msg("tokenize")
	}
	fmt.Print(s)

	doc, err := analyze.NewDocument(text)
	if err != nil {
		log.Fatal().Err(err).Msg("document")
	}
	res, err := a.Analyze(doc, model.ModeC)
	if err != nil {
		log.Fatal().Err(err).Msg("analyze")
	}
	err = a.Do(func(d *dictionary.Dictionary) error {
		lk := lookup.New(d)
		for _, sr := range res.Sentences {
			for _, c := range sr.Chunks {
				fmt.Printf("%s\t%s\t%s\n", c.Surface, kana.FormatRuby(lk.Furigana(c.Head)), c.Label)
			}
			for _, cl := range sr.Clauses {
				fmt.Printf("clause [%d, %d) %s %s\n", cl.Start, cl.End, cl.Type, cl.Connective)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("furigana")
	}
}
