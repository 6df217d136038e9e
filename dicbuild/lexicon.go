package dicbuild

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"jpmorph/dictionary"
)

const (
	minColumns = 18
	maxColumns = 19
)

// entry is one lexicon row. Reference columns are kept as text until Resolve.
type entry struct {
	file string
	line int

	headword     string
	left, right  int16
	inheritLeft  bool
	inheritRight bool
	cost         int16
	surface      string
	pos          []string
	reading      string

	normalized string
	dictForm   string
	splitType  string
	aSplit     string
	bSplit     string
	structure  string
	synonyms   string

	// filled by Resolve
	posID     uint16
	normRef   uint32
	dictRef   uint32
	aIDs      []uint32
	bIDs      []uint32
	structIDs []uint32
	synIDs    []uint32
}

func (e *entry) indexed() bool { return e.left >= 0 }

func (e *entry) errorf(kind ErrorKind, format string, args ...any) error {
	return &BuildError{Kind: kind, File: e.file, Line: e.line, Entry: e.headword, Err: fmt.Errorf(format, args...)}
}

// parseLexicon reads Sudachi style CSV rows:
//
//	headword,left,right,cost,surface,pos1,...,pos6,reading,normalized,
//	dictionary form,split type,A split,B split,word structure[,synonyms]
//
// left and right may be "*" when user is set. A left id of -1 stores the
// entry without indexing it.
func parseLexicon(r io.Reader, name string, user bool) ([]*entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	var out []*entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &BuildError{Kind: LexiconParse, File: name, Line: pe.Line, Err: pe.Err}
			}
			return nil, &BuildError{Kind: IoFailure, File: name, Err: err}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		e, err := parseRow(rec, name, line, user)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

func parseRow(rec []string, name string, line int, user bool) (*entry, error) {
	e := &entry{file: name, line: line}
	if len(rec) < minColumns || len(rec) > maxColumns {
		return nil, e.errorf(LexiconParse, "want %d or %d columns, got %d", minColumns, maxColumns, len(rec))
	}
	e.headword = norm.NFC.String(rec[0])
	if e.headword == "" {
		return nil, e.errorf(LexiconParse, "empty headword")
	}
	for i, s := range []string{e.headword, rec[4], rec[11]} {
		if len(s) > dictionary.MaxStringLength {
			return nil, e.errorf(LexiconParse, "column %d is longer than %d bytes", []int{0, 4, 11}[i], dictionary.MaxStringLength)
		}
	}

	var err error
	if e.left, e.inheritLeft, err = parseID(rec[1], user); err != nil {
		return nil, e.errorf(LexiconParse, "left id: %v", err)
	}
	if e.right, e.inheritRight, err = parseID(rec[2], user); err != nil {
		return nil, e.errorf(LexiconParse, "right id: %v", err)
	}
	cost, err := strconv.ParseInt(strings.TrimSpace(rec[3]), 10, 16)
	if err != nil {
		return nil, e.errorf(LexiconParse, "cost: %v", err)
	}
	e.cost = int16(cost)
	if e.left == -1 {
		// Split-only entries are never connected.
		e.right = -1
	}

	e.surface = rec[4]
	if e.surface == "" || e.surface == "*" {
		e.surface = e.headword
	}
	e.pos = make([]string, dictionary.POSDepth)
	copy(e.pos, rec[5:5+dictionary.POSDepth])
	e.reading = rec[11]
	if e.reading == "*" {
		e.reading = ""
	}
	e.normalized = rec[12]
	e.dictForm = rec[13]
	e.splitType = strings.TrimSpace(rec[14])
	e.aSplit = rec[15]
	e.bSplit = rec[16]
	e.structure = rec[17]
	if len(rec) == maxColumns {
		e.synonyms = rec[18]
	}

	switch e.splitType {
	case "A":
		if !isNone(e.aSplit) || !isNone(e.bSplit) {
			return nil, e.errorf(LexiconParse, "type A entries cannot be split")
		}
	case "B", "C":
	default:
		return nil, e.errorf(LexiconParse, "invalid split type %q", e.splitType)
	}
	for _, col := range []string{e.aSplit, e.bSplit, e.structure, e.synonyms} {
		if !isNone(col) && strings.Count(col, "/")+1 > dictionary.MaxArrayLength {
			return nil, e.errorf(LexiconParse, "more than %d units", dictionary.MaxArrayLength)
		}
	}
	return e, nil
}

func parseID(s string, user bool) (id int16, inherit bool, err error) {
	s = strings.TrimSpace(s)
	if s == "*" {
		if !user {
			return 0, false, fmt.Errorf("\"*\" is only allowed in user dictionaries")
		}
		return 0, true, nil
	}
	n, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return 0, false, err
	}
	if n < -1 {
		return 0, false, fmt.Errorf("negative id %d", n)
	}
	return int16(n), false, nil
}

func isNone(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "*"
}
