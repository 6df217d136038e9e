package dicbuild

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unit is the unit of a report part's size.
type Unit string

const (
	Bytes   Unit = "bytes"
	Entries Unit = "entries"
)

// Part describes one written or processed section.
type Part struct {
	Name    string
	Size    int
	Unit    Unit
	Elapsed time.Duration
}

// Report lists the parts of a build in the order they were produced.
type Report []Part

// String prints one line per part with grouped digits.
func (r Report) String() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	for _, part := range r {
		p.Fprintf(&b, "%s %d %s in %.3f sec\n", part.Name, part.Size, part.Unit, part.Elapsed.Seconds())
	}
	return b.String()
}

// Total returns the sum of the byte-sized parts.
func (r Report) Total() int {
	n := 0
	for _, part := range r {
		if part.Unit == Bytes {
			n += part.Size
		}
	}
	return n
}

// timer records parts as they complete.
type timer struct {
	report Report
	start  time.Time
}

func newTimer() *timer { return &timer{start: time.Now()} }

func (t *timer) done(name string, size int, unit Unit) {
	now := time.Now()
	t.report = append(t.report, Part{Name: name, Size: size, Unit: unit, Elapsed: now.Sub(t.start)})
	t.start = now
}
