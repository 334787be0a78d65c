// Package zip bundles generated documents into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// Entry is one file in the archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive writes entries in order with a fixed modification time. Duplicate
// names are rejected.
func Archive(entries []Entry, modified time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("zip: entry without a name")
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("zip: duplicate entry %q", e.Name)
		}
		seen[e.Name] = struct{}{}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
