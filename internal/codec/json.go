package codec

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONCodec handles JSON export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Extension returns the output file extension
func (c *JSONCodec) Extension() string {
	return "json"
}

// Export writes the document as indented JSON
func (c *JSONCodec) Export(doc *Document, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
