package codec

import (
	"encoding/xml"
	"fmt"
	"io"

	"eventregistry/internal/domain"
)

type xmlRegistry struct {
	XMLName xml.Name        `xml:"events"`
	Events  []eventDocument `xml:"event"`
}

type xmlCodec struct{}

// NewXMLCodec returns the codec for the alternate events.xml document.
func NewXMLCodec() domain.EventCodec {
	return xmlCodec{}
}

func (xmlCodec) Extension() string { return "xml" }

func (xmlCodec) Encode(w io.Writer, events []*domain.Event) error {
	docs, err := toDocuments(events)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(xmlRegistry{Events: docs}); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func (xmlCodec) Decode(r io.Reader) ([]*domain.Event, error) {
	var doc xmlRegistry
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	return fromDocuments(doc.Events)
}
