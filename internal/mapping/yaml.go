package mapping

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the top-level shape of a mapping file.
type Document struct {
	Entities []Entity `yaml:"entities"`
}

// LoadYAML reads a mapping document and builds a validated Registry from it.
//
//	entities:
//	  - name: SalesOrder
//	    fields:
//	      - {name: id, type: bigint}
//	      - {name: status, type: "enum('NEW','APPROVED')"}
//	    associations:
//	      - {name: customer, kind: many-to-one, target: Customer}
func LoadYAML(r io.Reader, opts ...Option) (*Registry, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("%w: mapping declares no entities", ErrInvalidMapping)
	}
	return NewRegistry(doc.Entities, opts...)
}

// WriteYAML writes reg as a mapping document that LoadYAML reads back.
// Implicit names are written out explicitly.
func WriteYAML(w io.Writer, reg *Registry) error {
	doc := Document{Entities: make([]Entity, 0, len(reg.entities))}
	for _, e := range reg.entities {
		doc.Entities = append(doc.Entities, Entity{
			Name:         e.Name,
			Table:        e.Table,
			PrimaryKey:   e.PrimaryKey,
			Fields:       e.Fields,
			Associations: e.Associations,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	return enc.Close()
}
