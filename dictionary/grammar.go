package dictionary

import (
	"bytes"
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ikawaha/kagome-dict/dict"
)

// POSDepth is the number of levels in every part-of-speech tag.
const POSDepth = 6

// InhibitedConnection forbids two ids from being adjacent.
const InhibitedConnection = math.MaxInt16

// BOS and EOS use connection id 0 on both sides.
const BOSEOSID = 0

//go:embed resources/char.def
var defaultCharDef []byte

//go:embed resources/unk.def
var defaultUnkDef []byte

// DefaultCharDefinition returns the embedded char.def source.
func DefaultCharDefinition() []byte { return defaultCharDef }

// DefaultUnknownDefinition returns the embedded unk.def source.
func DefaultUnknownDefinition() []byte { return defaultUnkDef }

// DefaultCategorizer parses the embedded char.def.
func DefaultCategorizer() (*Categorizer, error) {
	return ParseCharDefinition(bytes.NewReader(defaultCharDef))
}

// Params is the fixed-size part of a lexicon entry.
type Params struct {
	Left  int16
	Right int16
	Cost  int16
	POSID uint16
}

func decodeParams(d *decoder) Params {
	return Params{Left: d.i16(), Right: d.i16(), Cost: d.i16(), POSID: d.u16()}
}

// Grammar holds everything that is not a lexicon entry: POS tags, the
// connection matrix, character categories and unknown-word templates.
type Grammar struct {
	pos       [][]string
	posIndex  map[string]uint16
	conn      dict.ConnectionTable
	cats      *Categorizer
	templates []OOVTemplate // category indices refer to baseCats
	baseCats  *Categorizer
	oov       [][]Params // by category index of cats
}

func newGrammar(pos [][]string, conn dict.ConnectionTable, cats *Categorizer, templates []OOVTemplate) *Grammar {
	g := &Grammar{
		pos:       pos,
		posIndex:  make(map[string]uint16, len(pos)),
		conn:      conn,
		templates: templates,
		baseCats:  cats,
	}
	for i, p := range pos {
		key := posKey(p)
		if _, dup := g.posIndex[key]; !dup {
			g.posIndex[key] = uint16(i)
		}
	}
	g.setCategorizer(cats)
	return g
}

func (g *Grammar) setCategorizer(c *Categorizer) {
	g.cats = c
	g.oov = make([][]Params, c.Len())
	for _, t := range g.templates {
		idx, ok := c.Lookup(g.baseCats.Policy(t.Category).Name)
		if !ok {
			continue
		}
		g.oov[idx] = append(g.oov[idx], t.Params)
	}
}

func posKey(pos []string) string { return strings.Join(pos, ",") }

// POS returns a copy of the tag sequence of a POS id.
func (g *Grammar) POS(id uint16) []string {
	if int(id) >= len(g.pos) {
		return nil
	}
	return slices.Clone(g.pos[id])
}

// POSCount returns the number of POS ids, user dictionaries included.
func (g *Grammar) POSCount() int { return len(g.pos) }

// POSID finds the id of a tag sequence.
func (g *Grammar) POSID(pos []string) (uint16, bool) {
	id, ok := g.posIndex[posKey(pos)]
	return id, ok
}

// ConnectionCost returns the cost of placing a word with left id nextLeft
// after a word with right id prevRight.
func (g *Grammar) ConnectionCost(prevRight, nextLeft int16) int16 {
	return g.conn.At(int(prevRight), int(nextLeft))
}

// MatrixSize returns the number of right ids (rows) and left ids (columns).
func (g *Grammar) MatrixSize() (rows, cols int) {
	return int(g.conn.Row), int(g.conn.Col)
}

// Categorizer returns the active character categorizer.
func (g *Grammar) Categorizer() *Categorizer { return g.cats }

// OOVTemplates returns the unknown-word parameters for category index i of
// the active categorizer.
func (g *Grammar) OOVTemplates(i int) []Params {
	if i < 0 || i >= len(g.oov) {
		return nil
	}
	return g.oov[i]
}

func (g *Grammar) checkParams(p Params) error {
	if p.Left < 0 && p.Right < 0 {
		return nil // split-only entry
	}
	if p.Left < 0 || int64(p.Left) >= g.conn.Col || p.Right < 0 || int64(p.Right) >= g.conn.Row {
		return fmt.Errorf("%w: connection ids (%d, %d) outside %dx%d matrix", ErrIDRange, p.Left, p.Right, g.conn.Row, g.conn.Col)
	}
	if int(p.POSID) >= len(g.pos) {
		return fmt.Errorf("%w: POS id %d, table has %d", ErrIDRange, p.POSID, len(g.pos))
	}
	return nil
}

// AppendPOSTable encodes a POS section.
func AppendPOSTable(b []byte, pos [][]string) []byte {
	b = append(b, POSDepth)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(pos)))
	for _, p := range pos {
		for _, s := range p {
			b = AppendString(b, s)
		}
	}
	return b
}

func decodePOSTable(d *decoder) ([][]string, error) {
	depth := int(d.u8())
	n := int(d.u32())
	if d.err != nil {
		return nil, d.err
	}
	if depth != POSDepth {
		return nil, fmt.Errorf("%w: POS depth %d, want %d", ErrVersion, depth, POSDepth)
	}
	if !d.need(n * depth * 2) {
		return nil, d.err
	}
	pos := make([][]string, n)
	for i := range pos {
		p := make([]string, depth)
		for j := range p {
			p[j] = d.str()
		}
		pos[i] = p
	}
	return pos, d.err
}

// AppendMatrix encodes a connection matrix section.
func AppendMatrix(b []byte, m dict.ConnectionTable) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(m.Row))
	b = binary.LittleEndian.AppendUint16(b, uint16(m.Col))
	for _, v := range m.Vec {
		b = binary.LittleEndian.AppendUint16(b, uint16(v))
	}
	return b
}

func decodeMatrix(d *decoder) (dict.ConnectionTable, error) {
	rows, cols := int(d.u16()), int(d.u16())
	raw := d.bytes(2 * rows * cols)
	if d.err != nil {
		return dict.ConnectionTable{}, d.err
	}
	vec := make([]int16, rows*cols)
	for i := range vec {
		vec[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return dict.ConnectionTable{Row: int64(rows), Col: int64(cols), Vec: vec}, nil
}
