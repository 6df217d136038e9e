package analyze

import (
	"strconv"
	"strings"

	"jpmorph/model"
)

// FormatMorphemes renders morphemes as text. With wakati the surfaces are
// joined by spaces. Otherwise each morpheme is a line of
//
//	surface<TAB>pos,...<TAB>normalized
//
// and printAll appends dictionary form, reading, dictionary id, synonym
// groups such as [1, 2] and a final (OOV) column for unknown words. The
// line listing ends with "EOS\n".
func FormatMorphemes(ms []model.Morpheme, wakati, printAll bool) string {
	var b strings.Builder
	if wakati {
		for i, m := range ms {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(m.Surface)
		}
		return b.String()
	}
	for _, m := range ms {
		b.WriteString(m.Surface)
		b.WriteByte('\t')
		b.WriteString(strings.Join(m.PartOfSpeech, ","))
		b.WriteByte('\t')
		b.WriteString(m.NormalizedForm)
		if printAll {
			b.WriteByte('\t')
			b.WriteString(m.DictionaryForm)
			b.WriteByte('\t')
			b.WriteString(m.ReadingForm)
			b.WriteByte('\t')
			b.WriteString(strconv.Itoa(m.DictionaryID))
			b.WriteString("\t[")
			for i, id := range m.SynonymGroupIDs {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(strconv.FormatUint(uint64(id), 10))
			}
			b.WriteByte(']')
			if m.IsOOV {
				b.WriteString("\t(OOV)")
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("EOS\n")
	return b.String()
}
