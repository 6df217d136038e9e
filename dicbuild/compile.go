package dicbuild

import (
	"bytes"
	"io"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/ikawaha/kagome-dict/dict"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"jpmorph/dictionary"
)

// Compile serializes the resolved dictionary to w and returns the report of
// the whole build.
func (b *Builder) Compile(w io.Writer) (Report, error) {
	if b.state != Resolved {
		return nil, usageError("compile in state %s", b.state)
	}
	if len(b.description) > dictionary.MaxStringLength {
		return nil, usageError("description is longer than %d bytes", dictionary.MaxStringLength)
	}
	h := dictionary.Header{Kind: dictionary.KindSystem, Description: b.description}
	if b.user() {
		rows, cols := b.base.Grammar().MatrixSize()
		h.Kind = dictionary.KindUser
		h.BasePOSCount = uint32(b.base.Grammar().POSCount())
		h.BaseRows, h.BaseCols = uint16(rows), uint16(cols)
	}
	buf := dictionary.AppendHeader(nil, h)
	b.timer.done("header", len(buf), Bytes)

	mark := len(buf)
	buf = dictionary.AppendPOSTable(buf, b.pos)
	b.timer.done("POS table", len(buf)-mark, Bytes)

	if !b.user() {
		mark = len(buf)
		buf = dictionary.AppendMatrix(buf, b.matrix)
		b.timer.done("connection matrix", len(buf)-mark, Bytes)

		mark = len(buf)
		buf = dictionary.AppendCategories(buf, b.cats, b.templates)
		b.timer.done("character categories", len(buf)-mark, Bytes)
	}

	section, err := b.lexiconSection()
	if err != nil {
		return nil, err
	}
	buf = dictionary.AppendLexicon(buf, section)
	if buf, err = dictionary.Seal(buf); err != nil {
		return nil, &BuildError{Kind: LexiconParse, Err: err}
	}

	if _, err := w.Write(buf); err != nil {
		return nil, &BuildError{Kind: IoFailure, Err: errors.Wrap(err, "write dictionary")}
	}
	b.state = Compiled
	log.Info().Str("component", "dicbuild").Str("kind", h.Kind.String()).
		Int("entries", len(b.entries)).Int("bytes", len(buf)).Msg("compiled dictionary")
	return b.timer.report, nil
}

func (b *Builder) lexiconSection() (dictionary.LexiconSection, error) {
	var s dictionary.LexiconSection

	keys := redblacktree.NewWithStringComparator()
	for i, e := range b.entries {
		if !e.indexed() {
			continue
		}
		ids, _ := keys.Get(e.headword)
		list, _ := ids.([]int)
		keys.Put(e.headword, append(list, i))
	}
	var words []string
	it := keys.Iterator()
	for it.Next() {
		k := it.Key().(string)
		for _, i := range it.Value().([]int) {
			words = append(words, k)
			s.Postings = append(s.Postings, uint32(i))
		}
	}
	if len(words) > 0 {
		idx, err := dict.BuildIndexTable(words)
		if err != nil {
			return s, &BuildError{Kind: LexiconParse, Err: errors.Wrap(err, "build index")}
		}
		var ib bytes.Buffer
		if _, err := idx.WriteTo(&ib); err != nil {
			return s, &BuildError{Kind: IoFailure, Err: errors.Wrap(err, "encode index")}
		}
		s.Index = ib.Bytes()
	}
	b.timer.done("trie index", len(s.Index)+4*len(s.Postings), Bytes)

	s.Params = make([]dictionary.Params, len(b.entries))
	for i, e := range b.entries {
		s.Params[i] = dictionary.Params{Left: e.left, Right: e.right, Cost: e.cost, POSID: e.posID}
	}
	b.timer.done("word parameters", len(s.Params), Entries)

	size := 0
	s.Infos = make([][]byte, len(b.entries))
	for i, e := range b.entries {
		s.Infos[i] = dictionary.AppendWordInfo(nil, dictionary.WordRecord{
			Headword:   e.headword,
			Surface:    e.surface,
			Normalized: e.normRef,
			DictForm:   e.dictRef,
			Reading:    e.reading,
			ASplit:     e.aIDs,
			BSplit:     e.bIDs,
			Synonyms:   e.synIDs,
		})
		size += len(s.Infos[i])
	}
	b.timer.done("word infos", size, Bytes)
	return s, nil
}
