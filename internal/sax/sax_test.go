package sax

import (
	"errors"
	"io"
	"testing"
)

func collect(t *testing.T, doc string) []Event {
	t.Helper()
	p := NewBytes("test.xml", []byte(doc))
	var events []Event
	for {
		ev, err := p.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func TestEventStream(t *testing.T) {
	doc := `<?xml version="1.0"?><row r="2"><c r="A2" t="s"><v>17</v></c></row>`
	events := collect(t, doc)

	want := []struct {
		kind Kind
		name string
		text string
	}{
		{Start, "row", ""},
		{Start, "c", ""},
		{Start, "v", ""},
		{Text, "", "17"},
		{End, "v", ""},
		{End, "c", ""},
		{End, "row", ""},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events; want %d", len(events), len(want))
	}
	for i, w := range want {
		ev := events[i]
		if ev.Kind != w.kind || ev.Name != w.name || ev.Text != w.text {
			t.Errorf("event %d = %+v; want %+v", i, ev, w)
		}
	}

	if v, ok := events[1].Attr("r"); !ok || v != "A2" {
		t.Errorf("Attr(r) = %q, %v", v, ok)
	}
	if v, ok := events[1].Attr("t"); !ok || v != "s" {
		t.Errorf("Attr(t) = %q, %v", v, ok)
	}
	if _, ok := events[1].Attr("missing"); ok {
		t.Error("Attr(missing) should not be found")
	}
}

func TestEntityDecoding(t *testing.T) {
	events := collect(t, `<t>a &amp; b &lt;c&gt; &#169;</t>`)
	if len(events) != 3 {
		t.Fatalf("got %d events", len(events))
	}
	if got := events[1].Text; got != "a & b <c> ©" {
		t.Errorf("decoded text = %q", got)
	}
}

func TestNamespacedAttr(t *testing.T) {
	doc := `<sheet xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" name="Data" r:id="rId1"/>`
	events := collect(t, doc)
	if v, ok := events[0].Attr("id"); !ok || v != "rId1" {
		t.Errorf("Attr(id) = %q, %v; want rId1", v, ok)
	}
}

func TestParseErrorOffset(t *testing.T) {
	p := NewBytes("bad.xml", []byte(`<a><b></a>`))
	var err error
	for err == nil {
		_, err = p.Next()
	}
	if err == io.EOF {
		t.Fatal("expected parse error, got EOF")
	}
	if !errors.Is(err, ErrParse) {
		t.Fatalf("error %v does not match ErrParse", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not *ParseError", err)
	}
	if pe.Offset <= 0 {
		t.Errorf("Offset = %d; want positive", pe.Offset)
	}
	if pe.Part != "bad.xml" {
		t.Errorf("Part = %q", pe.Part)
	}
}

func TestSkip(t *testing.T) {
	p := NewBytes("", []byte(`<root><junk><deep><deeper/></deep></junk><keep/></root>`))

	// root start
	if _, err := p.Next(); err != nil {
		t.Fatal(err)
	}
	// junk start, then skip its subtree
	ev, err := p.Next()
	if err != nil || ev.Name != "junk" {
		t.Fatalf("got %+v, %v", ev, err)
	}
	if err := p.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	ev, err = p.Next()
	if err != nil || ev.Kind != Start || ev.Name != "keep" {
		t.Fatalf("after Skip got %+v, %v; want keep", ev, err)
	}
}
