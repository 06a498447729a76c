// Package receipt writes operation receipts as uniquely timestamped text
// files. Pure side-effect reporting; it never influences ledger state.
package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer exports receipts into a directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a Writer. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write joins the lines into a text file named <title>_<timestamp>.txt and
// returns the filename.
func (w *Writer) Write(title string, lines []string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt directory: %w", err)
	}
	name := fmt.Sprintf("%s_%s.txt", title, w.now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return name, nil
}
