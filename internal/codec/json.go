package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"eventregistry/internal/domain"
)

type jsonCodec struct{}

// NewJSONCodec returns the codec for the primary events.json document.
func NewJSONCodec() domain.EventCodec {
	return jsonCodec{}
}

func (jsonCodec) Extension() string { return "json" }

func (jsonCodec) Encode(w io.Writer, events []*domain.Event) error {
	docs, err := toDocuments(events)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func (jsonCodec) Decode(r io.Reader) ([]*domain.Event, error) {
	var docs []eventDocument
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return fromDocuments(docs)
}
