package analyze

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"jpmorph/model"
	"jpmorph/sentence"
)

// ErrEmptyDocument is returned by NewDocument for blank text.
var ErrEmptyDocument = errors.New("empty document")

// Document is a text submitted for analysis.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocument trims text and gives it a random id.
func NewDocument(text string) (Document, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Document{}, ErrEmptyDocument
	}
	return Document{ID: newID(), Text: trimmed, CreatedAt: time.Now().UTC()}, nil
}

// newID returns 16 hex digits, or a timestamp if the random source fails.
func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(b)
}

// SentenceResult is one analyzed sentence. Morpheme offsets index the
// document text.
type SentenceResult struct {
	sentence.Span
	Text      string           `json:"text"`
	Morphemes []model.Morpheme `json:"morphemes"`
	Chunks    []Chunk          `json:"chunks"`
	Clauses   []Clause         `json:"clauses"`
}

// Result is the analysis of one document. Err is set when it failed; the
// sentences analyzed before the failure are kept.
type Result struct {
	Document  Document         `json:"document"`
	Mode      string           `json:"mode"`
	Sentences []SentenceResult `json:"sentences"`
	Err       error            `json:"-"`
}

// MorphemeCount returns the number of morphemes over all sentences.
func (r Result) MorphemeCount() int {
	n := 0
	for _, s := range r.Sentences {
		n += len(s.Morphemes)
	}
	return n
}

// Analyze splits doc into sentences and tokenizes each one.
func (a *Analyzer) Analyze(doc Document, mode model.Mode) (Result, error) {
	res := Result{Document: doc, Mode: mode.String()}
	for sp, text := range a.Sentences(doc.Text) {
		ms, err := a.Tokenize(text, mode)
		if err != nil {
			res.Err = errors.Wrapf(err, "document %s, bytes %d-%d", doc.ID, sp.Begin, sp.End)
			return res, res.Err
		}
		for i := range ms {
			ms[i].Begin += sp.Begin
			ms[i].End += sp.Begin
		}
		res.Sentences = append(res.Sentences, SentenceResult{
			Span:      sp,
			Text:      text,
			Morphemes: ms,
			Chunks:    MergeAuxiliaries(ms),
			Clauses:   DetectClauses(ms),
		})
	}
	if a.cur.Load() == nil {
		res.Err = ErrClosed
		return res, ErrClosed
	}
	return res, nil
}

// Pipeline analyzes documents from in with workers goroutines and sends a
// Result for each. Results arrive in completion order. The returned channel
// is closed when in is closed and drained, or when ctx is done.
func (a *Analyzer) Pipeline(ctx context.Context, in <-chan Document, mode model.Mode, workers int) <-chan Result {
	if workers < 1 {
		workers = 1
	}
	out := make(chan Result, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				var doc Document
				var ok bool
				select {
				case <-ctx.Done():
					return
				case doc, ok = <-in:
					if !ok {
						return
					}
				}
				res, err := a.Analyze(doc, mode)
				if err != nil {
					log.Warn().Str("component", "pipeline").Int("worker", w).
						Str("document", doc.ID).Err(err).Msg("analysis failed")
				}
				select {
				case <-ctx.Done():
					return
				case out <- res:
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
