package codec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ibtopo/internal/domain"
)

// FileSink writes one file per exporter and subnet into a directory
type FileSink struct {
	dir       string
	exporters []Exporter
}

// NewFileSink creates a sink writing into dir
func NewFileSink(dir string, exporters ...Exporter) *FileSink {
	return &FileSink{dir: dir, exporters: exporters}
}

// Name identifies the sink in logs and metrics
func (s *FileSink) Name() string {
	return "files"
}

// FileName returns the output file name of a subnet for an exporter
func FileName(subnet string, e Exporter) string {
	return "ib-" + subnet + "." + e.Extension()
}

// Write exports the topology with every exporter. Files are written to a
// temporary name and renamed into place.
func (s *FileSink) Write(ctx context.Context, t *domain.Topology) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	doc := NewDocument(t)
	for _, e := range s.exporters {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeOne(doc, e); err != nil {
			return fmt.Errorf("export %s: %w", e.Format(), err)
		}
	}
	return nil
}

func (s *FileSink) writeOne(doc *Document, e Exporter) error {
	path := filepath.Join(s.dir, FileName(doc.Subnet, e))

	f, err := os.CreateTemp(s.dir, ".ib-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := e.Export(doc, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
