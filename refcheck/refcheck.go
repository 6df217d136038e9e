// Package refcheck measures how well a segmentation agrees with kagome's
// IPA and UniDic segmenters. It is a sanity check for dictionaries under
// development, not a gold standard.
package refcheck

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome-dict/uni"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/pkg/errors"

	"jpmorph/model"
)

// Token is a reference morpheme. Begin and End are byte offsets.
type Token struct {
	Surface  string   `json:"surface"`
	Begin    int      `json:"begin"`
	End      int      `json:"end"`
	POS      []string `json:"pos,omitempty"`
	BaseForm string   `json:"baseForm,omitempty"`
	Reading  string   `json:"reading,omitempty"`
}

// Reference segments text with one kagome dictionary.
type Reference struct {
	name string
	tok  *tokenizer.Tokenizer
}

// New returns the reference named "ipa" or "uni".
func New(name string) (*Reference, error) {
	var (
		t   *tokenizer.Tokenizer
		err error
	)
	switch strings.ToLower(name) {
	case "ipa", "":
		name = "ipa"
		t, err = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	case "uni", "unidic":
		name = "uni"
		t, err = tokenizer.New(uni.Dict(), tokenizer.OmitBosEos())
	default:
		return nil, fmt.Errorf("unknown reference dictionary %q, want ipa or uni", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "kagome %s", name)
	}
	return &Reference{name: name, tok: t}, nil
}

func (r *Reference) Name() string { return r.name }

// ParseMode maps normal, search and extended to kagome modes.
func ParseMode(s string) (tokenizer.TokenizeMode, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return tokenizer.Normal, nil
	case "search":
		return tokenizer.Search, nil
	case "extended":
		return tokenizer.Extended, nil
	}
	return tokenizer.Normal, fmt.Errorf("unknown kagome mode %q", s)
}

// Segment tokenizes text.
func (r *Reference) Segment(text string, mode tokenizer.TokenizeMode) []Token {
	if text == "" {
		return nil
	}
	return convert(r.tok.Analyze(text, mode))
}

// SegmentModes runs every kagome mode over text.
func (r *Reference) SegmentModes(text string) map[string][]Token {
	return map[string][]Token{
		"normal":   r.Segment(text, tokenizer.Normal),
		"search":   r.Segment(text, tokenizer.Search),
		"extended": r.Segment(text, tokenizer.Extended),
	}
}

func convert(ks []tokenizer.Token) []Token {
	out := make([]Token, 0, len(ks))
	for _, k := range ks {
		if k.Class == tokenizer.DUMMY {
			continue
		}
		t := Token{
			Surface: k.Surface,
			Begin:   k.Position,
			End:     k.Position + len(k.Surface),
			POS:     k.POS(),
		}
		if b, ok := k.BaseForm(); ok && b != "*" {
			t.BaseForm = b
		}
		if rd, ok := k.Reading(); ok && rd != "*" {
			t.Reading = rd
		}
		out = append(out, t)
	}
	return out
}

// Span is a byte range present in only one of the two segmentations.
type Span struct {
	Begin   int    `json:"begin"`
	End     int    `json:"end"`
	Surface string `json:"surface"`
	Ours    bool   `json:"ours"`
}

// Agreement counts the spans both segmentations produce.
type Agreement struct {
	Ours      int     `json:"ours"`
	Theirs    int     `json:"theirs"`
	Shared    int     `json:"shared"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Diff      []Span  `json:"diff,omitempty"`
}

func (a Agreement) String() string {
	return fmt.Sprintf("P=%.3f R=%.3f F1=%.3f (%d shared, %d ours, %d reference)",
		a.Precision, a.Recall, a.F1, a.Shared, a.Ours, a.Theirs)
}

// Compare matches morphemes and reference tokens by exact span. Both must
// be ordered by offset.
func Compare(ours []model.Morpheme, theirs []Token) Agreement {
	a := Agreement{Ours: len(ours), Theirs: len(theirs)}
	i, j := 0, 0
	for i < len(ours) || j < len(theirs) {
		switch {
		case j == len(theirs) || (i < len(ours) && ours[i].Begin < theirs[j].Begin):
			a.Diff = append(a.Diff, Span{ours[i].Begin, ours[i].End, ours[i].Surface, true})
			i++
		case i == len(ours) || theirs[j].Begin < ours[i].Begin:
			a.Diff = append(a.Diff, Span{theirs[j].Begin, theirs[j].End, theirs[j].Surface, false})
			j++
		case ours[i].End == theirs[j].End:
			a.Shared++
			i++
			j++
		default:
			a.Diff = append(a.Diff,
				Span{ours[i].Begin, ours[i].End, ours[i].Surface, true},
				Span{theirs[j].Begin, theirs[j].End, theirs[j].Surface, false})
			i++
			j++
		}
	}
	if a.Ours > 0 {
		a.Precision = float64(a.Shared) / float64(a.Ours)
	}
	if a.Theirs > 0 {
		a.Recall = float64(a.Shared) / float64(a.Theirs)
	}
	if a.Precision+a.Recall > 0 {
		a.F1 = 2 * a.Precision * a.Recall / (a.Precision + a.Recall)
	}
	return a
}
