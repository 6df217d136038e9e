package dicbuild

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"jpmorph/dictionary"
)

// Compiler collects source paths and runs a complete build into a file. The
// output appears only after the dictionary is fully written and synced.
type Compiler struct {
	description string
	matrix      string
	charDef     string
	unkDef      string
	lexicons    []string
}

// NewCompiler returns an empty compiler.
func NewCompiler() *Compiler { return &Compiler{} }

// SetDescription sets the header description of the output.
func (c *Compiler) SetDescription(s string) { c.description = s }
func (c *Compiler) SetMatrixFile(path string) { c.matrix = path }
func (c *Compiler) SetCharDefinitionFile(path string) { c.charDef = path }
func (c *Compiler) SetUnknownDefinitionFile(path string) { c.unkDef = path }
func (c *Compiler) AddLexiconFile(path string) { c.lexicons = append(c.lexicons, path) }

// CompileSystem builds a system dictionary at outputPath.
func (c *Compiler) CompileSystem(outputPath string) (Report, error) {
	if c.matrix == "" {
		return nil, usageError("system dictionaries need a connection matrix")
	}
	b := NewSystem()
	b.SetDescription(c.description)
	if err := b.ReadConnectionMatrix(c.matrix); err != nil {
		return nil, err
	}
	if c.charDef != "" {
		if err := b.ReadCharDefinition(c.charDef); err != nil {
			return nil, err
		}
	}
	if c.unkDef != "" {
		if err := b.ReadUnknownDefinition(c.unkDef); err != nil {
			return nil, err
		}
	}
	return c.run(b, outputPath)
}

// CompileUser builds a user dictionary at outputPath over the system
// dictionary at basePath.
func (c *Compiler) CompileUser(basePath, outputPath string) (Report, error) {
	if c.matrix != "" || c.charDef != "" || c.unkDef != "" {
		return nil, usageError("user dictionaries take only lexicon files")
	}
	base, err := dictionary.Load(basePath)
	if err != nil {
		return nil, &BuildError{Kind: IoFailure, File: basePath, Err: err}
	}
	defer base.Close()
	b := NewUser(base)
	b.SetDescription(c.description)
	return c.run(b, outputPath)
}

func (c *Compiler) run(b *Builder, outputPath string) (Report, error) {
	for _, p := range c.lexicons {
		if err := b.ReadLexicon(p); err != nil {
			return nil, err
		}
	}
	if err := b.Resolve(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return nil, &BuildError{Kind: IoFailure, File: outputPath, Err: err}
	}
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	w := bufio.NewWriter(tmp)
	report, err := b.Compile(w)
	if err != nil {
		return nil, err
	}
	ioErr := func(err error) error { return &BuildError{Kind: IoFailure, File: outputPath, Err: err} }
	if err := w.Flush(); err != nil {
		return nil, ioErr(err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, ioErr(err)
	}
	if err := tmp.Close(); err != nil {
		return nil, ioErr(err)
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return nil, ioErr(err)
	}
	ok = true
	log.Info().Str("component", "dicbuild").Str("output", outputPath).Int("bytes", report.Total()).Msg("dictionary written")
	return report, nil
}
