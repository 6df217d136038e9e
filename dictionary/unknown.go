package dictionary

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OOVTemplate describes the unknown word synthesized for a character category.
type OOVTemplate struct {
	Category int
	Params   Params
}

// POSInterner maps a POS tag sequence to an id, creating it if needed.
type POSInterner func(pos []string) (uint16, error)

// ParseUnknownDefinition reads unk.def lines of the form
//
//	CATEGORY,left,right,cost,pos1,...,posN
//
// where N is posDepth. A category may have several templates.
func ParseUnknownDefinition(r io.Reader, cats *Categorizer, posDepth int, intern POSInterner) ([]OOVTemplate, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	var out []OOVTemplate
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unk.def: %v", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != 4+posDepth {
			return nil, fmt.Errorf("unk.def line %d: want %d fields, got %d", line, 4+posDepth, len(rec))
		}
		cat, ok := cats.Lookup(strings.TrimSpace(rec[0]))
		if !ok {
			return nil, fmt.Errorf("unk.def line %d: undefined category %s", line, rec[0])
		}
		var nums [3]int16
		for i := range nums {
			v, err := strconv.ParseInt(strings.TrimSpace(rec[1+i]), 10, 16)
			if err != nil {
				return nil, fmt.Errorf("unk.def line %d: %v", line, err)
			}
			nums[i] = int16(v)
		}
		pos, err := intern(rec[4:])
		if err != nil {
			return nil, fmt.Errorf("unk.def line %d: %v", line, err)
		}
		out = append(out, OOVTemplate{
			Category: cat,
			Params:   Params{Left: nums[0], Right: nums[1], Cost: nums[2], POSID: pos},
		})
	}
	return out, nil
}
