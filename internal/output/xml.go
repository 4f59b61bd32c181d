// internal/output/xml.go
package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// XMLWriter buffers records and renders one <records> document on
// Close. Field names land in name attributes rather than element names
// because scraped field names are rarely valid XML identifiers.
type XMLWriter struct {
	w      io.Writer
	closer io.Closer
	buf    []types.Record
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlLink struct {
	Text string `xml:"text,attr,omitempty"`
	Href string `xml:"href,attr"`
}

type xmlImage struct {
	Src string `xml:"src,attr"`
	Alt string `xml:"alt,attr,omitempty"`
}

type xmlRecord struct {
	XMLName xml.Name   `xml:"record"`
	Path    string     `xml:"path,attr,omitempty"`
	Depth   int        `xml:"depth,attr,omitempty"`
	Fields  []xmlField `xml:"field"`
	Links   []xmlLink  `xml:"link,omitempty"`
	Images  []xmlImage `xml:"image,omitempty"`
}

type xmlDocument struct {
	XMLName xml.Name    `xml:"records"`
	Count   int         `xml:"count,attr"`
	Records []xmlRecord `xml:"record"`
}

// NewXMLWriter writes to an existing stream. The stream is not closed
// by Close.
func NewXMLWriter(w io.Writer) *XMLWriter {
	return &XMLWriter{w: w}
}

// NewXMLFileWriter creates (truncating) the named file.
func NewXMLFileWriter(path string) (*XMLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create XML output: %w", err)
	}
	return &XMLWriter{w: file, closer: file}, nil
}

func (w *XMLWriter) Write(records []types.Record) error {
	w.buf = append(w.buf, records...)
	return nil
}

func (w *XMLWriter) Close() error {
	err := w.flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}

func (w *XMLWriter) flush() error {
	doc := xmlDocument{Count: len(w.buf)}
	for i := range w.buf {
		doc.Records = append(doc.Records, toXMLRecord(&w.buf[i]))
	}
	w.buf = nil

	if _, err := io.WriteString(w.w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	enc := xml.NewEncoder(w.w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode XML document: %w", err)
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return err
	}
	return nil
}

func toXMLRecord(record *types.Record) xmlRecord {
	out := xmlRecord{Path: record.Path, Depth: record.Depth}

	names := record.FieldNames()
	sort.Strings(names)
	for _, name := range names {
		out.Fields = append(out.Fields, xmlField{Name: name, Value: record.Get(name)})
	}
	for _, link := range record.Links {
		out.Links = append(out.Links, xmlLink{Text: link.Text, Href: link.Href})
	}
	for _, img := range record.Images {
		out.Images = append(out.Images, xmlImage{Src: img.Src, Alt: img.Alt})
	}
	return out
}
