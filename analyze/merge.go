package analyze

import (
	"strings"

	"jpmorph/model"
)

// Chunk is a verb or adjective together with the auxiliaries that inflect
// it, or a single other morpheme. Surface and the offsets cover the whole
// chunk.
type Chunk struct {
	Surface     string           `json:"surface"`
	Begin       int              `json:"begin"`
	End         int              `json:"end"`
	Reading     string           `json:"reading"`
	Head        model.Morpheme   `json:"head"`
	Auxiliaries []model.Morpheme `json:"auxiliaries,omitempty"`
	Conjugation []string         `json:"conjugation,omitempty"`
	Label       string           `json:"label,omitempty"`
}

func pos(m model.Morpheme, i int) string {
	if i < len(m.PartOfSpeech) {
		return m.PartOfSpeech[i]
	}
	return ""
}

func isAuxiliary(m model.Morpheme) bool {
	switch pos(m, 0) {
	case "助動詞":
		return true
	case "動詞":
		return pos(m, 1) == "非自立可能" || pos(m, 1) == "非自立"
	case "接尾辞":
		return pos(m, 1) == "動詞的" || pos(m, 1) == "形容詞的"
	}
	return false
}

// MergeAuxiliaries groups each verb or adjective with the auxiliaries that
// follow it.
func MergeAuxiliaries(ms []model.Morpheme) []Chunk {
	out := make([]Chunk, 0, len(ms))
	for i := 0; i < len(ms); {
		head := ms[i]
		c := Chunk{Surface: head.Surface, Begin: head.Begin, End: head.End, Reading: head.ReadingForm, Head: head}
		j := i + 1
		if isPredicate(head) {
			var surf, read strings.Builder
			surf.WriteString(head.Surface)
			read.WriteString(head.ReadingForm)
			for ; j < len(ms) && isAuxiliary(ms[j]); j++ {
				aux := ms[j]
				c.Auxiliaries = append(c.Auxiliaries, aux)
				c.Conjugation = append(c.Conjugation, aux.DictionaryForm)
				surf.WriteString(aux.Surface)
				read.WriteString(aux.ReadingForm)
				c.End = aux.End
			}
			c.Surface = surf.String()
			c.Reading = read.String()
			c.Label = conjugationLabel(c.Conjugation)
		}
		out = append(out, c)
		i = j
	}
	return out
}

var conjugationLabels = map[string]string{
	"ます":    "polite",
	"た":     "past",
	"ます,た":  "polite past",
	"ない":    "negative",
	"ない,た":  "negative past",
	"ます,ん":  "polite negative",
	"たい":    "desiderative",
	"れる":    "passive",
	"られる":   "passive",
	"せる":    "causative",
	"させる":   "causative",
	"ます,う":  "volitional",
	"てる":    "progressive",
	"ちゃう":   "completive",
	"られる,た": "passive past",
}

// conjugationLabel names a sequence of auxiliary dictionary forms, or
// returns "" when the sequence has no name.
func conjugationLabel(auxs []string) string {
	if len(auxs) == 0 {
		return ""
	}
	return conjugationLabels[strings.Join(auxs, ",")]
}
