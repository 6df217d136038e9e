package tokenize

import (
	"jpmorph/dictionary"
	"jpmorph/model"
)

// unit is one piece of the selected path after mode expansion.
type unit struct {
	begin, end int
	wordID     model.WordID
	oov        bool
	posID      uint16
}

// expandPath applies the granularity of mode to the best path.
func expandPath(lex *dictionary.LexiconSet, nodes []*node, mode model.Mode) []unit {
	out := make([]unit, 0, len(nodes))
	for _, n := range nodes {
		u := unit{begin: n.begin, end: n.end, wordID: n.wordID, oov: n.oov, posID: n.posID}
		if n.oov || mode == model.ModeC {
			out = append(out, u)
			continue
		}
		out = append(out, splitUnit(lex, u, mode)...)
	}
	return out
}

func splitUnit(lex *dictionary.LexiconSet, u unit, mode model.Mode) []unit {
	info := lex.WordInfo(u.wordID)
	var ids []model.WordID
	switch mode {
	case model.ModeB:
		ids = info.BSplit
	case model.ModeA:
		ids = info.ASplit
		if len(ids) == 0 && len(info.BSplit) > 0 {
			for _, b := range info.BSplit {
				if a := lex.WordInfo(b).ASplit; len(a) > 0 {
					ids = append(ids, a...)
				} else {
					ids = append(ids, b)
				}
			}
		}
	}
	if len(ids) == 0 {
		return []unit{u}
	}
	out := make([]unit, 0, len(ids))
	pos := u.begin
	for _, id := range ids {
		end := pos + len(lex.Headword(id))
		out = append(out, unit{begin: pos, end: end, wordID: id, posID: lex.Params(id).POSID})
		pos = end
	}
	if pos != u.end {
		// Tilings are checked by the compiler; a mismatch means the split
		// does not belong to this span.
		return []unit{u}
	}
	return out
}
