// Package codec renders finished topologies into export formats and
// writes them next to each other in an output directory.
package codec

import (
	"fmt"
	"io"
)

// Exporter renders a topology document in one format
type Exporter interface {
	Export(doc *Document, w io.Writer) error
	Format() string
	// Extension is appended to ib-<subnet>. to name the output file
	Extension() string
}

// NewExporter returns the exporter for a format name
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONCodec(), nil
	case "yaml":
		return NewYAMLCodec(), nil
	case "ansible-inventory":
		return NewAnsibleCodec(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// NewExporters resolves every format, failing on the first unknown one
func NewExporters(formats []string) ([]Exporter, error) {
	exporters := make([]Exporter, 0, len(formats))
	for _, f := range formats {
		e, err := NewExporter(f)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, e)
	}
	return exporters, nil
}
