package dicbuild

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"jpmorph/dictionary"
	"jpmorph/model"
)

// Resolve interns POS tags, checks connection ids and turns every textual
// reference into an entry id. Any unresolved reference fails the build.
func (b *Builder) Resolve() error {
	if b.state != MatrixLoaded && b.state != LexiconLoaded {
		return usageError("resolve in state %s", b.state)
	}
	for _, e := range b.entries {
		id, err := b.internPOS(e.pos)
		if err != nil {
			return e.errorf(LexiconParse, "%v", err)
		}
		e.posID = id
	}
	if !b.user() {
		if err := b.loadUnknown(); err != nil {
			return err
		}
	}
	if err := b.resolveIDs(); err != nil {
		return err
	}

	own := make(map[string]int, len(b.entries))
	for i, e := range b.entries {
		if _, ok := own[e.headword]; !ok {
			own[e.headword] = i
		}
	}
	r := &resolver{b: b, own: own}
	for _, e := range b.entries {
		if err := r.entry(e); err != nil {
			return err
		}
	}
	r.internSynonyms()

	b.state = Resolved
	b.timer.done("resolve", len(b.entries), Entries)
	log.Debug().Str("component", "dicbuild").Int("entries", len(b.entries)).Int("pos", len(b.pos)).Msg("resolved lexicon")
	return nil
}

func (b *Builder) internPOS(pos []string) (uint16, error) {
	if b.user() {
		if id, ok := b.base.Grammar().POSID(pos); ok {
			return id, nil
		}
	}
	key := strings.Join(pos, ",")
	if id, ok := b.posIndex[key]; ok {
		return id, nil
	}
	for _, p := range pos {
		if len(p) > dictionary.MaxStringLength {
			return 0, fmt.Errorf("POS field is longer than %d bytes", dictionary.MaxStringLength)
		}
	}
	id := len(b.pos)
	if b.user() {
		id += b.base.Grammar().POSCount()
	}
	if id > math.MaxUint16 {
		return 0, fmt.Errorf("too many POS tags")
	}
	b.pos = append(b.pos, append([]string(nil), pos...))
	b.posIndex[key] = uint16(id)
	return uint16(id), nil
}

func (b *Builder) lookupPOS(pos []string) (uint16, bool) {
	if b.user() {
		if id, ok := b.base.Grammar().POSID(pos); ok {
			return id, true
		}
	}
	id, ok := b.posIndex[strings.Join(pos, ",")]
	return id, ok
}

func (b *Builder) loadUnknown() error {
	if b.cats == nil {
		c, err := dictionary.DefaultCategorizer()
		if err != nil {
			return &BuildError{Kind: LexiconParse, File: "char.def", Err: err}
		}
		b.cats = c
	}
	data, name := b.unkDef, b.unkName
	if data == nil {
		data, name = dictionary.DefaultUnknownDefinition(), "unk.def"
	}
	ts, err := dictionary.ParseUnknownDefinition(bytes.NewReader(data), b.cats, dictionary.POSDepth, b.internPOS)
	if err != nil {
		return &BuildError{Kind: LexiconParse, File: name, Err: err}
	}
	rows, cols := b.matrixSize()
	for _, t := range ts {
		if !inMatrix(t.Params.Left, t.Params.Right, rows, cols) {
			return &BuildError{Kind: LexiconParse, File: name, Entry: b.cats.Policy(t.Category).Name,
				Err: fmt.Errorf("connection ids (%d, %d) outside %dx%d matrix", t.Params.Left, t.Params.Right, rows, cols)}
		}
	}
	b.templates = ts
	return nil
}

func (b *Builder) matrixSize() (rows, cols int) {
	if b.user() {
		return b.base.Grammar().MatrixSize()
	}
	return int(b.matrix.Row), int(b.matrix.Col)
}

func inMatrix(left, right int16, rows, cols int) bool {
	return left >= 0 && int(left) < cols && right >= 0 && int(right) < rows
}

// resolveIDs fills inherited connection ids and checks them against the matrix.
func (b *Builder) resolveIDs() error {
	rows, cols := b.matrixSize()
	for _, e := range b.entries {
		if e.inheritLeft || e.inheritRight {
			p, ok := b.base.Lexicon().FirstWithPOS(e.posID)
			if !ok {
				return e.errorf(UnresolvedReference, "no base entry with POS %s to inherit connection ids from", strings.Join(e.pos, ","))
			}
			if e.inheritLeft {
				e.left = p.Left
			}
			if e.inheritRight {
				e.right = p.Right
			}
		}
		if e.indexed() && !inMatrix(e.left, e.right, rows, cols) {
			return e.errorf(LexiconParse, "connection ids (%d, %d) outside %dx%d matrix", e.left, e.right, rows, cols)
		}
	}
	return nil
}

// resolver turns reference text into file-local ids: slot 0 is the system
// dictionary, slot 1 the user dictionary being built.
type resolver struct {
	b        *Builder
	own      map[string]int
	symbolic []*entry // entries with symbolic synonym names, in order
	maxSyn   int64
}

func (r *resolver) selfSlot() int {
	if r.b.user() {
		return 1
	}
	return 0
}

func (r *resolver) entry(e *entry) error {
	var err error
	e.normRef = dictionary.NoRef
	if n := strings.TrimSpace(e.normalized); n != "" && n != "*" && n != e.surface && n != e.headword {
		ref, ok := r.byHeadword(norm.NFC.String(n))
		if !ok {
			return e.errorf(UnresolvedReference, "normalized form %q names no entry", n)
		}
		e.normRef = ref
	}
	e.dictRef = dictionary.NoRef
	if !isNone(e.dictForm) {
		if e.dictRef, err = r.ref(e.dictForm); err != nil {
			return e.errorf(UnresolvedReference, "dictionary form: %v", err)
		}
	}
	if e.aIDs, err = r.split(e, e.aSplit, "A"); err != nil {
		return err
	}
	if e.bIDs, err = r.split(e, e.bSplit, "B"); err != nil {
		return err
	}
	if err := r.refines(e); err != nil {
		return err
	}
	if e.structIDs, err = r.refs(e.structure); err != nil {
		return e.errorf(UnresolvedReference, "word structure: %v", err)
	}
	return r.synonyms(e)
}

func (r *resolver) split(e *entry, col, unit string) ([]uint32, error) {
	ids, err := r.refs(col)
	if err != nil {
		return nil, e.errorf(UnresolvedReference, "%s split: %v", unit, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	total := 0
	for _, id := range ids {
		total += len(r.headwordOf(id))
	}
	if total != len(e.headword) {
		return nil, e.errorf(InvalidSplit, "%s split covers %d bytes, headword has %d", unit, total, len(e.headword))
	}
	return ids, nil
}

// refines checks that every B boundary is also an A boundary, so mode A
// never yields fewer units than mode B.
func (r *resolver) refines(e *entry) error {
	if len(e.aIDs) == 0 || len(e.bIDs) == 0 {
		return nil
	}
	bounds := make(map[int]bool, len(e.aIDs))
	off := 0
	for _, id := range e.aIDs {
		off += len(r.headwordOf(id))
		bounds[off] = true
	}
	off = 0
	for _, id := range e.bIDs {
		off += len(r.headwordOf(id))
		if !bounds[off] {
			return e.errorf(InvalidSplit, "B split boundary at byte %d is not an A split boundary", off)
		}
	}
	return nil
}

func (r *resolver) refs(col string) ([]uint32, error) {
	if isNone(col) {
		return nil, nil
	}
	parts := strings.Split(col, "/")
	ids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		id, err := r.ref(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ref resolves one reference: "U<n>" (entry of the dictionary being built),
// "<n>" (system entry), "headword,pos1,...,pos6,reading" or a bare headword.
func (r *resolver) ref(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "U"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			if n < 0 || n >= len(r.b.entries) {
				return 0, fmt.Errorf("entry %s out of range", s)
			}
			return uint32(model.NewWordID(r.selfSlot(), n)), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		limit := len(r.b.entries)
		if r.b.user() {
			limit = r.b.base.Lexicon().Size()[0]
		}
		if n < 0 || n >= limit {
			return 0, fmt.Errorf("entry %d out of range", n)
		}
		return uint32(model.NewWordID(0, n)), nil
	}
	if strings.Contains(s, ",") {
		return r.inline(s)
	}
	if id, ok := r.byHeadword(norm.NFC.String(s)); ok {
		return id, nil
	}
	return 0, fmt.Errorf("no entry %q", s)
}

func (r *resolver) inline(s string) (uint32, error) {
	f := strings.Split(s, ",")
	if len(f) != 2+dictionary.POSDepth {
		return 0, fmt.Errorf("inline reference %q: want headword, %d POS fields and reading", s, dictionary.POSDepth)
	}
	headword := norm.NFC.String(f[0])
	reading := f[len(f)-1]
	posID, ok := r.b.lookupPOS(f[1 : 1+dictionary.POSDepth])
	if !ok {
		return 0, fmt.Errorf("inline reference %q: unknown POS", s)
	}
	for i, e := range r.b.entries {
		er := e.reading
		if er == "" {
			er = e.surface
		}
		if e.headword == headword && e.posID == posID && er == reading {
			return uint32(model.NewWordID(r.selfSlot(), i)), nil
		}
	}
	if r.b.user() {
		lex := r.b.base.Lexicon()
		for _, id := range lex.ExactMatches(headword) {
			w := lex.WordInfo(id)
			if w.POSID == posID && w.ReadingForm == reading {
				return uint32(id), nil
			}
		}
	}
	return 0, fmt.Errorf("no entry %q", s)
}

func (r *resolver) byHeadword(h string) (uint32, bool) {
	if i, ok := r.own[h]; ok {
		return uint32(model.NewWordID(r.selfSlot(), i)), true
	}
	if r.b.user() {
		if ids := r.b.base.Lexicon().ExactMatches(h); len(ids) > 0 {
			return uint32(ids[0]), true
		}
	}
	return 0, false
}

func (r *resolver) headwordOf(ref uint32) string {
	w := model.WordID(ref)
	if w.Dic() == r.selfSlot() {
		return r.b.entries[w.Index()].headword
	}
	return r.b.base.Lexicon().Headword(w)
}

// synonyms records numeric group ids and defers symbolic names until every
// numeric id is known.
func (r *resolver) synonyms(e *entry) error {
	if isNone(e.synonyms) {
		return nil
	}
	symbolic := false
	for _, s := range strings.Split(e.synonyms, "/") {
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseUint(s, 10, 32); err == nil {
			r.maxSyn = max(r.maxSyn, int64(n))
			continue
		}
		if s == "" {
			return e.errorf(LexiconParse, "empty synonym group")
		}
		symbolic = true
	}
	if symbolic {
		r.symbolic = append(r.symbolic, e)
	}
	for _, s := range strings.Split(e.synonyms, "/") {
		if n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32); err == nil {
			e.synIDs = append(e.synIDs, uint32(n))
		}
	}
	return nil
}

// internSynonyms numbers symbolic group names after the largest numeric id,
// in order of first appearance.
func (r *resolver) internSynonyms() {
	names := map[string]uint32{}
	next := uint32(r.maxSyn + 1)
	for _, e := range r.symbolic {
		e.synIDs = e.synIDs[:0]
		for _, s := range strings.Split(e.synonyms, "/") {
			s = strings.TrimSpace(s)
			if n, err := strconv.ParseUint(s, 10, 32); err == nil {
				e.synIDs = append(e.synIDs, uint32(n))
				continue
			}
			id, ok := names[s]
			if !ok {
				id = next
				names[s] = id
				next++
			}
			e.synIDs = append(e.synIDs, id)
		}
	}
	r.b.synonyms = names
}
