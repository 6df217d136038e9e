package analyze

import "jpmorph/model"

type ClauseType string

const (
	MainClause        ClauseType = "main"
	SubordinateClause ClauseType = "subordinate"
)

// Clause is a run of morphemes ended by a comma, a full stop or the end of
// the sentence. Start and End index the morpheme slice; End excludes the
// punctuation.
type Clause struct {
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Type       ClauseType `json:"type"`
	Connective string     `json:"connective,omitempty"`
	Predicate  int        `json:"predicate"` // last verb or adjective, -1 if none
}

var connectives = map[string]bool{
	"が": true, "ので": true, "から": true, "けど": true, "けれど": true,
	"そして": true, "と": true, "ば": true, "て": true, "のに": true,
}

func isClauseBreak(m model.Morpheme) bool {
	switch m.Surface {
	case "。", "、", "．", "，", "！", "？", "!", "?":
		return true
	}
	return len(m.PartOfSpeech) > 1 && m.PartOfSpeech[0] == "補助記号" &&
		(m.PartOfSpeech[1] == "句点" || m.PartOfSpeech[1] == "読点")
}

func isPredicate(m model.Morpheme) bool {
	if len(m.PartOfSpeech) == 0 {
		return false
	}
	switch m.PartOfSpeech[0] {
	case "動詞", "形容詞":
		return true
	}
	return false
}

// DetectClauses splits a sentence's morphemes into clauses. A clause whose
// last word is a conjunctive particle is subordinate to the next one.
func DetectClauses(ms []model.Morpheme) []Clause {
	var clauses []Clause
	start := 0
	emit := func(end int) {
		if end <= start {
			return
		}
		c := Clause{Start: start, End: end, Type: MainClause, Predicate: -1}
		for i := start; i < end; i++ {
			if isPredicate(ms[i]) {
				c.Predicate = i
			}
		}
		last := ms[end-1]
		if connectives[last.Surface] && !last.IsOOV {
			c.Connective = last.Surface
			c.Type = SubordinateClause
		}
		clauses = append(clauses, c)
	}
	for i, m := range ms {
		if isClauseBreak(m) {
			emit(i)
			start = i + 1
		}
	}
	emit(len(ms))
	return clauses
}
