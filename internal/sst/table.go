// Package sst implements the lazy shared string table.
//
// The sharedStrings part is scanned once to record the byte window of
// every <si> entry. Strings are materialised only when a cell asks
// for them; resolved values sit in a bounded LRU so a 500k-string
// part never lives on the heap at once.
package sst

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fuabioo/sheetq/internal/cache"
	"github.com/fuabioo/sheetq/internal/sax"
)

// ErrIndexRange reports a cell pointing past the end of the table.
var ErrIndexRange = errors.New("shared string index out of range")

type span struct {
	start, end int64
}

// Table resolves shared string indices on demand. Resolve is safe for
// concurrent use; Add is not and belongs to the single-writer save
// path.
type Table struct {
	data  []byte
	spans []span
	cache *cache.LRU

	mu       sync.Mutex
	lookup   map[string]int // built on first Add
	appended []string
}

// New returns an empty table, used when the container has no
// sharedStrings part.
func New() *Table {
	return &Table{cache: cache.New(cache.DefaultCapacity)}
}

// Parse indexes a sharedStrings part without materialising its
// strings. cacheSize bounds the resolution cache; values below 1 fall
// back to the default.
func Parse(data []byte, cacheSize int) (*Table, error) {
	if cacheSize < 1 {
		cacheSize = cache.DefaultCapacity
	}
	t := &Table{data: data, cache: cache.New(cacheSize)}

	p := sax.NewBytes("xl/sharedStrings.xml", data)
	depth := 0
	var start int64
	prev := int64(0)
	for {
		ev, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case sax.Start:
			depth++
			if depth == 2 && ev.Name == "si" {
				// prev points just past the previous token, so the
				// window may begin with whitespace. The window
				// reparse tolerates that.
				start = prev
			}
		case sax.End:
			if depth == 2 && ev.Name == "si" {
				t.spans = append(t.spans, span{start: start, end: p.Offset()})
			}
			depth--
		}
		prev = p.Offset()
	}
	return t, nil
}

// Count returns the number of entries, indexed and appended, without
// resolving any of them.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans) + len(t.appended)
}

// CacheCap reports the capacity of the resolution cache.
func (t *Table) CacheCap() int {
	return t.cache.Cap()
}

// Resolve returns the string at index i, parsing its byte window on a
// cache miss. Rich text runs are concatenated.
func (t *Table) Resolve(i int) (string, error) {
	if i < 0 {
		return "", fmt.Errorf("%w: %d", ErrIndexRange, i)
	}
	if i >= len(t.spans) {
		t.mu.Lock()
		defer t.mu.Unlock()
		j := i - len(t.spans)
		if j >= len(t.appended) {
			return "", fmt.Errorf("%w: %d of %d", ErrIndexRange, i, len(t.spans)+len(t.appended))
		}
		return t.appended[j], nil
	}

	if s, ok := t.cache.Get(i); ok {
		return s, nil
	}
	s, err := t.parseEntry(i)
	if err != nil {
		return "", err
	}
	t.cache.Set(i, s)
	return s, nil
}

// parseEntry reparses one <si> window and concatenates its <t> text,
// covering both plain and rich-text entries.
func (t *Table) parseEntry(i int) (string, error) {
	sp := t.spans[i]
	p := sax.NewBytes("xl/sharedStrings.xml", t.data[sp.start:sp.end])
	var sb strings.Builder
	inT := false
	for {
		ev, err := p.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		switch ev.Kind {
		case sax.Start:
			if ev.Name == "t" {
				inT = true
			}
		case sax.End:
			if ev.Name == "t" {
				inT = false
			}
		case sax.Text:
			if inT {
				sb.WriteString(ev.Text)
			}
		}
	}
}

// Add returns the index of s, appending it when unseen. The first
// call resolves every existing entry once to build the dedup lookup.
func (t *Table) Add(s string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lookup == nil {
		t.lookup = make(map[string]int, len(t.spans)+len(t.appended))
		for i := len(t.spans) - 1; i >= 0; i-- {
			v, err := t.parseEntry(i)
			if err != nil {
				t.lookup = nil
				return 0, err
			}
			// Reverse order so the first occurrence wins.
			t.lookup[v] = i
		}
		for j, v := range t.appended {
			if _, ok := t.lookup[v]; !ok {
				t.lookup[v] = len(t.spans) + j
			}
		}
	}

	if i, ok := t.lookup[s]; ok {
		return i, nil
	}
	i := len(t.spans) + len(t.appended)
	t.appended = append(t.appended, s)
	t.lookup[s] = i
	return i, nil
}

// Dirty reports whether any string was appended since load.
func (t *Table) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.appended) > 0
}

// WriteXML serialises the full table as a sharedStrings part.
func (t *Table) WriteXML(w io.Writer) error {
	t.mu.Lock()
	total := len(t.spans) + len(t.appended)
	t.mu.Unlock()

	if _, err := fmt.Fprintf(w,
		"<?xml version=\"1.0\" encoding=\"UTF-8\" standalone=\"yes\"?>\n"+
			"<sst xmlns=\"http://schemas.openxmlformats.org/spreadsheetml/2006/main\" count=\"%d\" uniqueCount=\"%d\">",
		total, total); err != nil {
		return err
	}
	for i := 0; i < total; i++ {
		s, err := t.Resolve(i)
		if err != nil {
			return err
		}
		if err := writeEntry(w, s); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</sst>")
	return err
}

func writeEntry(w io.Writer, s string) error {
	preserve := ""
	if s != strings.TrimSpace(s) {
		preserve = ` xml:space="preserve"`
	}
	if _, err := fmt.Fprintf(w, "<si><t%s>", preserve); err != nil {
		return err
	}
	if err := xml.EscapeText(w, []byte(s)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "</t></si>")
	return err
}
