// Package sax exposes xlsx part XML as a forward-only event stream.
// Parts are read token by token; no tree is ever built, so memory
// stays proportional to the current element rather than the part.
package sax

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// ErrParse is the identity of all XML parse failures.
var ErrParse = errors.New("xml parse error")

// ParseError reports a malformed part together with the byte offset
// at which decoding stopped.
type ParseError struct {
	Part   string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("xml parse error in %s at byte %d: %v", e.Part, e.Offset, e.Err)
	}
	return fmt.Sprintf("xml parse error at byte %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Kind discriminates events.
type Kind int

const (
	Start Kind = iota // element start, Name and Attrs set
	End               // element end, Name set
	Text              // character data, Text set
)

// Event is one step of the stream. Names are local names; xlsx parts
// are matched without namespace prefixes.
type Event struct {
	Kind  Kind
	Name  string
	Attrs []xml.Attr
	Text  string
}

// Attr returns the value of the named attribute. The lookup ignores
// namespace prefixes, so "id" matches both id and r:id.
func (e Event) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Parser is a pull cursor over one XML part.
type Parser struct {
	part string
	dec  *xml.Decoder
}

// New creates a parser reading from r. part names the source in
// errors and may be empty.
func New(part string, r io.Reader) *Parser {
	return &Parser{part: part, dec: xml.NewDecoder(r)}
}

// NewBytes creates a parser over an in-memory part.
func NewBytes(part string, data []byte) *Parser {
	return New(part, bytes.NewReader(data))
}

// Next returns the next event, io.EOF once the part is exhausted, or
// a *ParseError on malformed input. Comments, processing instructions
// and directives are skipped.
func (p *Parser) Next() (Event, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, &ParseError{Part: p.part, Offset: p.dec.InputOffset(), Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return Event{Kind: Start, Name: t.Name.Local, Attrs: t.Attr}, nil
		case xml.EndElement:
			return Event{Kind: End, Name: t.Name.Local}, nil
		case xml.CharData:
			return Event{Kind: Text, Text: string(t)}, nil
		}
	}
}

// Skip consumes the remainder of the element whose Start was just
// returned, including nested elements.
func (p *Parser) Skip() error {
	if err := p.dec.Skip(); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return &ParseError{Part: p.part, Offset: p.dec.InputOffset(), Err: err}
	}
	return nil
}

// Offset reports the byte offset just past the most recent token.
func (p *Parser) Offset() int64 {
	return p.dec.InputOffset()
}
