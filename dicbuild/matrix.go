package dicbuild

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ikawaha/kagome-dict/dict"
)

// parseMatrix reads a MeCab style matrix.def:
//
//	leftSize rightSize
//	left right cost
//	...
//
// left indexes the right id of the preceding word, right the left id of the
// following one. Unlisted pairs cost 0.
func parseMatrix(r io.Reader, name string) (dict.ConnectionTable, error) {
	fail := func(line int, format string, args ...any) error {
		return &BuildError{Kind: MatrixParse, File: name, Line: line, Err: fmt.Errorf(format, args...)}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var (
		m      dict.ConnectionTable
		header bool
		line   int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if !header {
			if len(fields) != 2 {
				return m, fail(line, "want header \"leftSize rightSize\", got %q", text)
			}
			rows, err1 := strconv.ParseUint(fields[0], 10, 16)
			cols, err2 := strconv.ParseUint(fields[1], 10, 16)
			if err1 != nil || err2 != nil {
				return m, fail(line, "invalid matrix size %q", text)
			}
			m = dict.ConnectionTable{Row: int64(rows), Col: int64(cols), Vec: make([]int16, rows*cols)}
			header = true
			continue
		}
		if len(fields) != 3 {
			return m, fail(line, "want \"left right cost\", got %q", text)
		}
		var v [3]int64
		for i, f := range fields {
			n, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return m, fail(line, "invalid number %q", f)
			}
			v[i] = n
		}
		if v[0] < 0 || v[0] >= m.Row || v[1] < 0 || v[1] >= m.Col {
			return m, fail(line, "id pair (%d, %d) outside %dx%d", v[0], v[1], m.Row, m.Col)
		}
		if v[2] < math.MinInt16 || v[2] > math.MaxInt16 {
			return m, fail(line, "cost %d does not fit in 16 bits", v[2])
		}
		m.Vec[v[0]*m.Col+v[1]] = int16(v[2])
	}
	if err := sc.Err(); err != nil {
		return m, &BuildError{Kind: IoFailure, File: name, Err: err}
	}
	if !header {
		return m, fail(0, "missing header")
	}
	return m, nil
}
