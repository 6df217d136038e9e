package dictionary

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated = errors.New("dictionary is truncated")
	ErrBadMagic  = errors.New("not a jpmorph dictionary")
	ErrVersion   = errors.New("unsupported dictionary version")
	ErrIDRange   = errors.New("id out of range")
	ErrKind      = errors.New("wrong dictionary kind")
	ErrCorrupt   = errors.New("dictionary is corrupt")
)

// LoadError reports a dictionary that cannot be used. It is fatal for the
// analyzer being constructed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load dictionary: %v", e.Err)
	}
	return fmt.Sprintf("load dictionary %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
