package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// DefaultCategory must be defined by every character definition; it applies to
// characters no range covers.
const DefaultCategory = "DEFAULT"

// maxCategories is bounded by the width of CategorySet.
const maxCategories = 32

// CategorySet is a set of character categories, one bit per category index.
type CategorySet uint32

// Has reports whether category index i is in s.
func (s CategorySet) Has(i int) bool { return s&(1<<uint(i)) != 0 }

// Each calls fn for every category index in s, in ascending order.
func (s CategorySet) Each(fn func(i int)) {
	for s != 0 {
		i := bits.TrailingZeros32(uint32(s))
		fn(i)
		s &^= 1 << uint(i)
	}
}

// CategoryPolicy controls unknown-word synthesis for one category.
//   - Invoke: synthesize even when a dictionary word starts at the position.
//   - Group: add one node spanning the whole run of the category.
//   - Length: add nodes of 1..Length characters.
type CategoryPolicy struct {
	Name   string
	Invoke bool
	Group  bool
	Length int
}

// CharRange maps the closed rune interval [Lo, Hi] to a category set.
type CharRange struct {
	Lo, Hi rune
	Set    CategorySet
}

// Categorizer classifies characters. It is immutable and safe for concurrent use.
type Categorizer struct {
	policies []CategoryPolicy
	ranges   []CharRange // sorted, disjoint
	def      CategorySet
}

// NewCategorizer validates policies and ranges. Ranges must be sorted and
// disjoint; ParseCharDefinition produces such ranges from overlapping input.
func NewCategorizer(policies []CategoryPolicy, ranges []CharRange) (*Categorizer, error) {
	if len(policies) > maxCategories {
		return nil, fmt.Errorf("too many character categories: %d > %d", len(policies), maxCategories)
	}
	c := &Categorizer{policies: policies, ranges: ranges}
	idx, ok := c.Lookup(DefaultCategory)
	if !ok {
		return nil, fmt.Errorf("character category %s is not defined", DefaultCategory)
	}
	c.def = 1 << uint(idx)
	for i, r := range ranges {
		if r.Lo > r.Hi {
			return nil, fmt.Errorf("character range %#x..%#x is empty", r.Lo, r.Hi)
		}
		if i > 0 && ranges[i-1].Hi >= r.Lo {
			return nil, fmt.Errorf("character range %#x..%#x overlaps or is unsorted", r.Lo, r.Hi)
		}
		if uint64(r.Set)>>uint(len(policies)) != 0 {
			return nil, fmt.Errorf("character range %#x..%#x references an undefined category", r.Lo, r.Hi)
		}
	}
	return c, nil
}

// CategoryOf returns the categories of r, or the default category.
func (c *Categorizer) CategoryOf(r rune) CategorySet {
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].Hi >= r })
	if i < len(c.ranges) && c.ranges[i].Lo <= r {
		return c.ranges[i].Set
	}
	return c.def
}

// Default returns the set holding only the default category.
func (c *Categorizer) Default() CategorySet { return c.def }

// Policy returns the policy of category index i.
func (c *Categorizer) Policy(i int) CategoryPolicy { return c.policies[i] }

// Len returns the number of categories.
func (c *Categorizer) Len() int { return len(c.policies) }

// Lookup finds a category index by name.
func (c *Categorizer) Lookup(name string) (int, bool) {
	for i, p := range c.policies {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Ranges returns the range table. The slice must not be modified.
func (c *Categorizer) Ranges() []CharRange { return c.ranges }

// ParseCharDefinition reads a MeCab style char.def:
//
//	# NAME INVOKE GROUP LENGTH
//	DEFAULT 0 1 0
//	KANJI   0 0 2
//	# CODE[..CODE] CATEGORY...
//	0x4E00..0x9FFF KANJI
//
// Category lines may appear anywhere. When range lines overlap, the later line
// wins for the code points it covers.
func ParseCharDefinition(r io.Reader) (*Categorizer, error) {
	type rangeLine struct {
		line   int
		fields []string
	}
	var (
		policies []CategoryPolicy
		pending  []rangeLine
	)
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "0x") || strings.HasPrefix(fields[0], "0X") {
			if len(fields) < 2 {
				return nil, fmt.Errorf("char.def line %d: range without category", n)
			}
			pending = append(pending, rangeLine{line: n, fields: fields})
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("char.def line %d: want NAME INVOKE GROUP LENGTH", n)
		}
		length, err := strconv.Atoi(fields[3])
		if err != nil || length < 0 {
			return nil, fmt.Errorf("char.def line %d: invalid length %q", n, fields[3])
		}
		p := CategoryPolicy{
			Name:   fields[0],
			Invoke: fields[1] == "1",
			Group:  fields[2] == "1",
			Length: length,
		}
		replaced := false
		for i := range policies {
			if policies[i].Name == p.Name {
				policies[i] = p
				replaced = true
			}
		}
		if !replaced {
			policies = append(policies, p)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(policies))
	for i, p := range policies {
		index[p.Name] = i
	}
	var ranges []CharRange
	for _, pl := range pending {
		lo, hi, err := parseCodeRange(pl.fields[0])
		if err != nil {
			return nil, fmt.Errorf("char.def line %d: %v", pl.line, err)
		}
		var set CategorySet
		for _, name := range pl.fields[1:] {
			i, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("char.def line %d: undefined category %s", pl.line, name)
			}
			set |= 1 << uint(i)
		}
		ranges = assignRange(ranges, CharRange{Lo: lo, Hi: hi, Set: set})
	}
	return NewCategorizer(policies, ranges)
}

func parseCodeRange(s string) (rune, rune, error) {
	loS, hiS, isRange := strings.Cut(s, "..")
	lo, err := strconv.ParseUint(loS, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid code point %q", loS)
	}
	hi := lo
	if isRange {
		if hi, err = strconv.ParseUint(hiS, 0, 32); err != nil {
			return 0, 0, fmt.Errorf("invalid code point %q", hiS)
		}
	}
	if hi < lo || hi > 0x10FFFF {
		return 0, 0, fmt.Errorf("invalid code range %q", s)
	}
	return rune(lo), rune(hi), nil
}

// assignRange overwrites [nr.Lo, nr.Hi] in the sorted disjoint table and
// merges neighbours that end up with the same set.
func assignRange(ranges []CharRange, nr CharRange) []CharRange {
	out := make([]CharRange, 0, len(ranges)+2)
	for _, r := range ranges {
		if r.Hi < nr.Lo || r.Lo > nr.Hi {
			out = append(out, r)
			continue
		}
		if r.Lo < nr.Lo {
			out = append(out, CharRange{Lo: r.Lo, Hi: nr.Lo - 1, Set: r.Set})
		}
		if r.Hi > nr.Hi {
			out = append(out, CharRange{Lo: nr.Hi + 1, Hi: r.Hi, Set: r.Set})
		}
	}
	out = append(out, nr)
	sort.Slice(out, func(i, j int) bool { return out[i].Lo < out[j].Lo })

	merged := out[:0]
	for _, r := range out {
		if k := len(merged) - 1; k >= 0 && merged[k].Set == r.Set && merged[k].Hi+1 == r.Lo {
			merged[k].Hi = r.Hi
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// AppendCategories encodes the categorizer and the unknown-word templates.
func AppendCategories(b []byte, c *Categorizer, templates []OOVTemplate) []byte {
	b = append(b, byte(len(c.policies)))
	for _, p := range c.policies {
		b = AppendString(b, p.Name)
		b = append(b, boolByte(p.Invoke), boolByte(p.Group))
		b = binary.LittleEndian.AppendUint32(b, uint32(p.Length))
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(c.ranges)))
	for _, r := range c.ranges {
		b = binary.LittleEndian.AppendUint32(b, uint32(r.Lo))
		b = binary.LittleEndian.AppendUint32(b, uint32(r.Hi))
		b = binary.LittleEndian.AppendUint32(b, uint32(r.Set))
	}
	b = binary.LittleEndian.AppendUint16(b, uint16(len(templates)))
	for _, t := range templates {
		b = append(b, byte(t.Category))
		b = AppendParams(b, t.Params)
	}
	return b
}

func decodeCategories(d *decoder) (*Categorizer, []OOVTemplate, error) {
	policies := make([]CategoryPolicy, d.u8())
	for i := range policies {
		policies[i].Name = d.str()
		policies[i].Invoke = d.u8() != 0
		policies[i].Group = d.u8() != 0
		policies[i].Length = int(d.u32())
	}
	nr := int(d.u32())
	if !d.need(12 * nr) {
		return nil, nil, d.err
	}
	ranges := make([]CharRange, nr)
	for i := range ranges {
		ranges[i] = CharRange{Lo: rune(d.u32()), Hi: rune(d.u32()), Set: CategorySet(d.u32())}
	}
	templates := make([]OOVTemplate, d.u16())
	for i := range templates {
		templates[i].Category = int(d.u8())
		templates[i].Params = decodeParams(d)
	}
	if d.err != nil {
		return nil, nil, d.err
	}
	c, err := NewCategorizer(policies, ranges)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range templates {
		if t.Category >= len(policies) {
			return nil, nil, fmt.Errorf("%w: unknown-word template category %d", ErrIDRange, t.Category)
		}
	}
	return c, templates, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
