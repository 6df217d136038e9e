package model

import (
	"fmt"
	"slices"
)

// Mode selects the segmentation granularity applied after the best path is found.
type Mode int

const (
	ModeA Mode = iota // shortest units
	ModeB             // middle units
	ModeC             // longest units, as selected by the path search
)

func (m Mode) String() string {
	switch m {
	case ModeA:
		return "A"
	case ModeB:
		return "B"
	case ModeC:
		return "C"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "A", "B", "C" (any case) or "0", "1", "2".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "A", "a", "0":
		return ModeA, nil
	case "B", "b", "1":
		return ModeB, nil
	case "C", "c", "2":
		return ModeC, nil
	}
	return 0, fmt.Errorf("invalid mode %q", s)
}

// WordID packs a dictionary slot and an entry index. Slot 0 is the system
// dictionary; user dictionaries occupy slots 1..MaxUserDictionaries.
type WordID uint32

const (
	wordIndexBits = 28
	wordIndexMask = 1<<wordIndexBits - 1

	// MaxUserDictionaries is the number of user slots a WordID can address.
	MaxUserDictionaries = 14

	// MaxEntries is the number of entries one dictionary can hold.
	MaxEntries = 1 << wordIndexBits
)

// NewWordID builds an id from a dictionary slot and an entry index.
func NewWordID(dic, index int) WordID {
	return WordID(uint32(dic)<<wordIndexBits | uint32(index)&wordIndexMask)
}

// Dic returns the dictionary slot.
func (w WordID) Dic() int { return int(uint32(w) >> wordIndexBits) }

// Index returns the entry index inside its dictionary.
func (w WordID) Index() int { return int(uint32(w) & wordIndexMask) }

func (w WordID) String() string {
	if w.Dic() == 0 {
		return fmt.Sprintf("%d", w.Index())
	}
	return fmt.Sprintf("%d:%d", w.Dic(), w.Index())
}

// Morpheme is one annotated unit of a segmentation. Begin and End are byte
// offsets into the analyzed text; text[Begin:End] == Surface.
type Morpheme struct {
	Surface         string   `json:"surface"`
	Begin           int      `json:"begin"`
	End             int      `json:"end"`
	DictionaryForm  string   `json:"dictionaryForm"`
	ReadingForm     string   `json:"readingForm"`
	PartOfSpeech    []string `json:"partOfSpeech"`
	NormalizedForm  string   `json:"normalizedForm"`
	DictionaryID    int      `json:"dictionaryId"`
	SynonymGroupIDs []uint32 `json:"synonymGroupIds"`
	IsOOV           bool     `json:"isOov"`
	WordID          WordID   `json:"wordId,omitempty"`
}

// CloneMorphemes copies ms along with the slices each morpheme holds.
func CloneMorphemes(ms []Morpheme) []Morpheme {
	if ms == nil {
		return nil
	}
	out := make([]Morpheme, len(ms))
	for i, m := range ms {
		m.PartOfSpeech = slices.Clone(m.PartOfSpeech)
		m.SynonymGroupIDs = slices.Clone(m.SynonymGroupIDs)
		out[i] = m
	}
	return out
}
