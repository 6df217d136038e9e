// Package analyze is the entry point for applications: it owns a loaded
// dictionary, caches tokenizations and runs documents through sentence
// splitting and tokenization.
package analyze

import (
	"iter"
	"os"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"jpmorph/config"
	"jpmorph/dictionary"
	"jpmorph/model"
	"jpmorph/sentence"
	"jpmorph/tokenize"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("analyzer is closed")

// Option adjusts an Analyzer over its configuration file.
type Option func(*config.Config)

// WithUserDictionaries replaces the configured user dictionaries.
func WithUserDictionaries(paths ...string) Option {
	return func(c *config.Config) { c.UserDict = paths }
}

// WithCacheSize sets the number of cached tokenizations; 0 disables the cache.
func WithCacheSize(n int) Option {
	return func(c *config.Config) { c.CacheSize = n }
}

// WithSentenceLimit sets the longest sentence emitted without a boundary.
func WithSentenceLimit(n int) Option {
	return func(c *config.Config) { c.SentenceLimit = n }
}

// handle is one loaded dictionary and the workers bound to it. The analyzer
// holds one reference; every call holds another while it runs.
type handle struct {
	dict  *dictionary.Dictionary
	tok   *tokenize.Tokenizer
	split *sentence.Splitter
	refs  atomic.Int64
}

func (h *handle) acquire() bool {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (h *handle) release() {
	if h.refs.Add(-1) != 0 {
		return
	}
	if err := h.dict.Close(); err != nil {
		log.Warn().Str("component", "analyze").Err(err).Msg("closing dictionary")
	}
}

type cacheKey struct {
	mode model.Mode
	text string
}

// Analyzer tokenizes and splits text with one dictionary. It is safe for
// concurrent use; Reload swaps the dictionary without blocking callers.
type Analyzer struct {
	conf  config.Config
	cur   atomic.Pointer[handle]
	mu    sync.Mutex // serializes Reload and Close
	cache *lru.Cache[cacheKey, []model.Morpheme]
}

// New loads the configuration at configPath (defaults when empty), lets a
// non-empty dictionaryPath override its system dictionary and opens the
// dictionaries. Relative paths are looked up in resourceDir first.
// Failures are *config.ConfigError or *dictionary.LoadError.
func New(dictionaryPath, resourceDir, configPath string, opts ...Option) (*Analyzer, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dictionaryPath != "" {
		conf.SystemDict = dictionaryPath
	}
	for _, o := range opts {
		o(&conf)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if conf, err = conf.Resolve(resourceDir); err != nil {
		return nil, err
	}
	h, err := open(conf)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{conf: conf}
	if conf.CacheSize > 0 {
		if a.cache, err = lru.New[cacheKey, []model.Morpheme](conf.CacheSize); err != nil {
			_ = h.dict.Close()
			return nil, &config.ConfigError{Field: "cacheSize", Err: err}
		}
	}
	a.cur.Store(h)
	log.Info().Str("component", "analyze").
		Str("system", conf.SystemDict).
		Strs("user", conf.UserDict).
		Int("cache", conf.CacheSize).
		Msg("analyzer ready")
	return a, nil
}

func open(conf config.Config) (*handle, error) {
	d, err := dictionary.Load(conf.SystemDict, conf.UserDict...)
	if err != nil {
		return nil, err
	}
	if conf.CharacterDefinitionFile != "" {
		f, err := os.Open(conf.CharacterDefinitionFile)
		if err != nil {
			_ = d.Close()
			return nil, &config.ConfigError{Field: "characterDefinitionFile", Path: conf.CharacterDefinitionFile, Err: err}
		}
		cats, err := dictionary.ParseCharDefinition(f)
		f.Close()
		if err != nil {
			_ = d.Close()
			return nil, &config.ConfigError{Field: "characterDefinitionFile", Path: conf.CharacterDefinitionFile, Err: err}
		}
		d = d.WithCategorizer(cats)
	}
	h := &handle{
		dict:  d,
		tok:   tokenize.New(d),
		split: sentence.New(d.Lexicon(), sentence.WithLimit(conf.SentenceLimit)),
	}
	h.refs.Store(1)
	return h, nil
}

func (a *Analyzer) acquire() (*handle, error) {
	for {
		h := a.cur.Load()
		if h == nil {
			return nil, ErrClosed
		}
		if h.acquire() {
			return h, nil
		}
		// h was swapped out and drained; load again.
	}
}

// Config returns the resolved configuration.
func (a *Analyzer) Config() config.Config { return a.conf }

// Tokenize segments text at the granularity of mode. The result is owned by
// the caller.
func (a *Analyzer) Tokenize(text string, mode model.Mode) ([]model.Morpheme, error) {
	key := cacheKey{mode, text}
	if a.cur.Load() == nil {
		return nil, ErrClosed
	}
	if a.cache != nil {
		if ms, ok := a.cache.Get(key); ok {
			return model.CloneMorphemes(ms), nil
		}
	}
	h, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer h.release()
	ms, err := h.tok.Tokenize(text, mode)
	if err != nil {
		return nil, err
	}
	if a.cache != nil && a.cur.Load() == h {
		a.cache.Add(key, model.CloneMorphemes(ms))
	}
	return ms, nil
}

// TokenizeToString renders the tokenization of text. See FormatMorphemes.
func (a *Analyzer) TokenizeToString(text string, mode model.Mode, wakati, printAll bool) (string, error) {
	ms, err := a.Tokenize(text, mode)
	if err != nil {
		return "", err
	}
	return FormatMorphemes(ms, wakati, printAll), nil
}

// SplitSentences returns the sentences of text; their concatenation is text.
func (a *Analyzer) SplitSentences(text string) ([]string, error) {
	h, err := a.acquire()
	if err != nil {
		return nil, err
	}
	defer h.release()
	return h.split.Strings(text), nil
}

// Sentences yields the sentences of text lazily. The dictionary is held
// until the loop ends. Nothing is yielded after Close.
func (a *Analyzer) Sentences(text string) iter.Seq2[sentence.Span, string] {
	return func(yield func(sentence.Span, string) bool) {
		h, err := a.acquire()
		if err != nil {
			return
		}
		defer h.release()
		for sp, s := range h.split.All(text) {
			if !yield(sp, s) {
				return
			}
		}
	}
}

// Do runs fn with the current dictionary, which stays open until fn
// returns even if Reload or Close is called meanwhile.
func (a *Analyzer) Do(fn func(d *dictionary.Dictionary) error) error {
	h, err := a.acquire()
	if err != nil {
		return err
	}
	defer h.release()
	return fn(h.dict)
}

// Reload opens the configured dictionaries again and swaps them in. Calls
// already running finish on the old dictionary, which is closed when the
// last of them returns. On failure the current dictionary stays in use.
func (a *Analyzer) Reload() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur.Load() == nil {
		return ErrClosed
	}
	h, err := open(a.conf)
	if err != nil {
		return err
	}
	old := a.cur.Swap(h)
	if a.cache != nil {
		a.cache.Purge()
	}
	old.release()
	log.Info().Str("component", "analyze").Str("system", a.conf.SystemDict).Msg("dictionary reloaded")
	return nil
}

// Close releases the dictionary once running calls return. It is safe to
// call more than once.
func (a *Analyzer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.cur.Swap(nil)
	if h == nil {
		return nil
	}
	if a.cache != nil {
		a.cache.Purge()
	}
	h.release()
	return nil
}
