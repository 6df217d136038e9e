package dictionary

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/pkg/errors"

	"jpmorph/model"
)

// lexicon is the word list of one dictionary file.
type lexicon struct {
	index    dict.IndexTable
	indexed  bool
	postings []uint32 // trie key id -> entry index
	params   []Params
	offsets  []uint32 // entry index -> offset into infos
	infos    []byte
}

// WordRecord is a word info record as stored. References use file-local slots:
// 0 is the system dictionary, 1 is the file itself.
type WordRecord struct {
	Headword   string
	Surface    string
	Normalized uint32
	DictForm   uint32
	Reading    string
	ASplit     []uint32
	BSplit     []uint32
	Synonyms   []uint32
}

// AppendWordInfo encodes one word info record. Surface and Reading are stored
// empty when they equal Headword and Surface respectively.
func AppendWordInfo(b []byte, w WordRecord) []byte {
	surface := w.Surface
	if surface == w.Headword {
		surface = ""
	}
	reading := w.Reading
	if reading == w.Surface {
		reading = ""
	}
	b = AppendString(b, w.Headword)
	b = AppendString(b, surface)
	b = binary.LittleEndian.AppendUint32(b, w.Normalized)
	b = binary.LittleEndian.AppendUint32(b, w.DictForm)
	b = AppendString(b, reading)
	b = AppendUint32s(b, w.ASplit)
	b = AppendUint32s(b, w.BSplit)
	b = AppendUint32s(b, w.Synonyms)
	return b
}

func decodeWordInfo(data []byte) (WordRecord, error) {
	d := &decoder{data: data}
	w := WordRecord{
		Headword:   d.str(),
		Surface:    d.str(),
		Normalized: d.u32(),
		DictForm:   d.u32(),
		Reading:    d.str(),
		ASplit:     d.uint32s(),
		BSplit:     d.uint32s(),
		Synonyms:   d.uint32s(),
	}
	if w.Surface == "" {
		w.Surface = w.Headword
	}
	if w.Reading == "" {
		w.Reading = w.Surface
	}
	return w, d.err
}

// LexiconSection carries the compiled pieces of a lexicon for encoding.
type LexiconSection struct {
	Index    []byte // serialized dict.IndexTable, empty when nothing is indexed
	Postings []uint32
	Params   []Params
	Infos    [][]byte // one encoded record per entry
}

// AppendLexicon encodes a lexicon section.
func AppendLexicon(b []byte, s LexiconSection) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Index)))
	b = append(b, s.Index...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Postings)))
	for _, p := range s.Postings {
		b = binary.LittleEndian.AppendUint32(b, p)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s.Params)))
	for _, p := range s.Params {
		b = AppendParams(b, p)
	}
	off := uint32(0)
	for _, info := range s.Infos {
		b = binary.LittleEndian.AppendUint32(b, off)
		off += uint32(len(info))
	}
	b = binary.LittleEndian.AppendUint32(b, off)
	for _, info := range s.Infos {
		b = append(b, info...)
	}
	return b
}

func decodeLexicon(d *decoder) (*lexicon, error) {
	l := &lexicon{}
	if idx := d.section(); len(idx) > 0 {
		t, err := readIndex(idx)
		if err != nil {
			return nil, errors.Wrap(err, "read index")
		}
		l.index, l.indexed = t, true
	}
	np := int(d.u32())
	if !d.need(4 * np) {
		return nil, d.err
	}
	l.postings = make([]uint32, np)
	for i := range l.postings {
		l.postings[i] = d.u32()
	}
	nw := int(d.u32())
	if !d.need((paramsSize + 4) * nw) {
		return nil, d.err
	}
	l.params = make([]Params, nw)
	for i := range l.params {
		l.params[i] = decodeParams(d)
	}
	l.offsets = make([]uint32, nw)
	for i := range l.offsets {
		l.offsets[i] = d.u32()
	}
	l.infos = d.section()
	if d.err != nil {
		return nil, d.err
	}
	if l.indexed {
		if err := checkIndex(l.index, np); err != nil {
			return nil, err
		}
	}
	for i, p := range l.postings {
		if int(p) >= nw {
			return nil, fmt.Errorf("%w: posting %d names entry %d of %d", ErrIDRange, i, p, nw)
		}
	}
	for i, off := range l.offsets {
		if int(off) >= len(l.infos) {
			return nil, fmt.Errorf("%w: entry %d info offset %d", ErrIDRange, i, off)
		}
	}
	return l, nil
}

// readIndex decodes a serialized dict.IndexTable after checking that its
// length fields agree with the section size.
func readIndex(b []byte) (t dict.IndexTable, err error) {
	nodes, ok := int64At(b, 0)
	if !ok || nodes <= 0 || nodes > int64(len(b)-8)/8 {
		return t, fmt.Errorf("%w: %d double array nodes in %d bytes", ErrCorrupt, nodes, len(b))
	}
	dupAt := 8 + 8*int(nodes)
	dups, ok := int64At(b, dupAt)
	if !ok || dups < 0 || dups != int64(len(b)-dupAt-8)/8 || (len(b)-dupAt-8)%8 != 0 {
		return t, fmt.Errorf("%w: %d duplicate counts in %d bytes", ErrCorrupt, dups, len(b)-dupAt)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: index: %v", ErrCorrupt, r)
		}
	}()
	return dict.ReadIndexTable(bytes.NewReader(b))
}

func int64At(b []byte, off int) (int64, bool) {
	if off < 0 || off+8 > len(b) {
		return 0, false
	}
	return int64(binary.LittleEndian.Uint64(b[off:])), true
}

// checkIndex rejects double arrays whose transitions leave the array and
// duplicate counts that run past the postings. Traversal starts at node 0
// and follows base+byte to a node whose check names its parent, so every
// node entered on a non-zero byte must have a non-negative base.
func checkIndex(t dict.IndexTable, postings int) error {
	da := t.Da
	if len(da) == 0 || da[0].Base < 0 {
		return fmt.Errorf("%w: double array has no root", ErrCorrupt)
	}
	for q, c := range da {
		if c.Check < 0 {
			continue
		}
		if int(c.Check) >= len(da) {
			return fmt.Errorf("%w: node %d has parent %d of %d", ErrCorrupt, q, c.Check, len(da))
		}
		label := q - int(da[c.Check].Base)
		if label >= 1 && label <= 0xff && c.Base < 0 {
			return fmt.Errorf("%w: inner node %d has base %d", ErrCorrupt, q, c.Base)
		}
	}
	for k, v := range t.Dup {
		if k < 0 || v < 0 || int(k)+int(v) >= postings {
			return fmt.Errorf("%w: %d duplicates of key %d, %d postings", ErrCorrupt, v, k, postings)
		}
	}
	return nil
}

func (l *lexicon) size() int { return len(l.params) }

func (l *lexicon) info(i int) (WordRecord, error) {
	return decodeWordInfo(l.infos[l.offsets[i]:])
}

// lookup calls fn for every indexed entry whose headword is a prefix of
// text[offset:]. Entries with the same headword come in ascending index order.
func (l *lexicon) lookup(text string, offset int, fn func(index, length int)) {
	if !l.indexed || offset >= len(text) {
		return
	}
	lens, ids := l.index.CommonPrefixSearch(text[offset:])
	for i, n := range lens {
		for _, id := range ids[i] {
			if id < 0 || id >= len(l.postings) {
				continue
			}
			fn(int(l.postings[id]), n)
		}
	}
}

// validate decodes every record once so corrupt references fail at load
// time. sizes holds the entry counts of the system dictionary and of this
// file, indexed by file-local slot.
func (l *lexicon) validate(sizes [2]int, user bool) error {
	check := func(i int, ref uint32) error {
		if ref == NoRef {
			return nil
		}
		w := model.WordID(ref)
		dic := w.Dic()
		if dic > 1 || (dic == 1 && !user) || w.Index() >= sizes[dic] {
			return fmt.Errorf("%w: entry %d references %s", ErrIDRange, i, w)
		}
		return nil
	}
	for i := range l.params {
		w, err := l.info(i)
		if err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		refs := append([]uint32{w.Normalized, w.DictForm}, w.ASplit...)
		refs = append(refs, w.BSplit...)
		for _, ref := range refs {
			if err := check(i, ref); err != nil {
				return err
			}
		}
	}
	return nil
}
