package dictionary

import (
	"fmt"
	"hash/crc32"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ikawaha/kagome-dict/dict"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Binary is one parsed dictionary file. System binaries carry a grammar;
// user binaries carry only their private POS tags and a lexicon.
type Binary struct {
	header    Header
	pos       [][]string
	conn      dict.ConnectionTable
	cats      *Categorizer
	templates []OOVTemplate
	lex       *lexicon

	path string
	mm   mmap.MMap
}

// Parse decodes an in-memory dictionary image. Word infos are read lazily
// from data, which must stay valid while the Binary is used.
func Parse(data []byte) (*Binary, error) {
	b, err := parse(data)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return b, nil
}

func parse(data []byte) (*Binary, error) {
	d := &decoder{data: data}
	if magic := d.bytes(len(Magic)); d.err != nil || string(magic) != Magic {
		if d.err != nil {
			return nil, d.err
		}
		return nil, ErrBadMagic
	}
	if v := d.u32(); d.err == nil && v != Version {
		return nil, errors.Wrapf(ErrVersion, "version %d", v)
	}
	size, sum := d.u32(), d.u32()
	if d.err != nil {
		return nil, d.err
	}
	switch payload := data[d.off:]; {
	case uint64(len(payload)) < uint64(size):
		return nil, errors.Wrapf(ErrTruncated, "payload has %d of %d bytes", len(payload), size)
	case uint64(len(payload)) > uint64(size):
		return nil, errors.Wrapf(ErrCorrupt, "%d bytes after the %d byte payload", uint64(len(payload))-uint64(size), size)
	case crc32.ChecksumIEEE(payload) != sum:
		return nil, errors.Wrap(ErrCorrupt, "checksum mismatch")
	}
	b := &Binary{}
	b.header = Header{
		Kind:         Kind(d.u32()),
		Description:  d.str(),
		BasePOSCount: d.u32(),
		BaseRows:     d.u16(),
		BaseCols:     d.u16(),
	}
	if d.err != nil {
		return nil, d.err
	}
	if b.header.Kind != KindSystem && b.header.Kind != KindUser {
		return nil, errors.Wrapf(ErrKind, "kind %d", b.header.Kind)
	}

	var err error
	if b.pos, err = decodePOSTable(d); err != nil {
		return nil, errors.Wrap(err, "POS table")
	}
	if b.header.Kind == KindSystem {
		if b.conn, err = decodeMatrix(d); err != nil {
			return nil, errors.Wrap(err, "connection matrix")
		}
		if b.cats, b.templates, err = decodeCategories(d); err != nil {
			return nil, errors.Wrap(err, "character categories")
		}
	}
	if b.lex, err = decodeLexicon(d); err != nil {
		return nil, errors.Wrap(err, "lexicon")
	}
	if b.header.Kind == KindSystem {
		g := newGrammar(b.pos, b.conn, b.cats, b.templates)
		for i, p := range b.lex.params {
			if err := g.checkParams(p); err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
		}
		for _, t := range b.templates {
			if err := g.checkParams(t.Params); err != nil {
				return nil, errors.Wrapf(err, "unknown-word template %s", b.cats.Policy(t.Category).Name)
			}
		}
		if err := b.lex.validate([2]int{b.lex.size()}, false); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Open maps the file at path read-only and parses it.
func Open(path string) (*Binary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if fi.Size() == 0 {
		return nil, &LoadError{Path: path, Err: errors.Wrap(ErrTruncated, "empty file")}
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, &LoadError{Path: path, Err: errors.Wrap(err, "mmap")}
	}
	b, err := parse(mm)
	if err != nil {
		_ = mm.Unmap()
		return nil, &LoadError{Path: path, Err: err}
	}
	b.path, b.mm = path, mm
	log.Debug().Str("component", "dictionary").Str("path", path).
		Str("kind", b.header.Kind.String()).Int("entries", b.lex.size()).Msg("mapped dictionary")
	return b, nil
}

// Header returns the file header.
func (b *Binary) Header() Header { return b.header }

// Kind reports whether b is a system or a user dictionary.
func (b *Binary) Kind() Kind { return b.header.Kind }

// Description returns the free-text description stored by the compiler.
func (b *Binary) Description() string { return b.header.Description }

// Path returns the file b was opened from, or "" for parsed images.
func (b *Binary) Path() string { return b.path }

// Size returns the number of lexicon entries.
func (b *Binary) Size() int { return b.lex.size() }

// Close releases the mapping. Close on a parsed image is a no-op.
func (b *Binary) Close() error {
	if b.mm == nil {
		return nil
	}
	err := b.mm.Unmap()
	b.mm = nil
	if err != nil {
		return errors.Wrapf(err, "unmap %s", b.path)
	}
	return nil
}

func (b *Binary) String() string {
	return fmt.Sprintf("%s dictionary %q (%d entries)", b.header.Kind, b.header.Description, b.lex.size())
}
