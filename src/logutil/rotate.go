package logutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RotatingWriter appends to a file and, once the next write would push it past
// maxSize, renames it to <name>_<yyyyMMddHHmmss><ext> and starts a fresh file.
// Write never fails: diagnostics must not break a capture.
type RotatingWriter struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	f       *os.File
	now     func() time.Time
}

func NewRotatingWriter(path string, maxSize int64) *RotatingWriter {
	if maxSize <= 0 {
		maxSize = DefaultMaxSizeBytes
	}
	return &RotatingWriter{path: path, maxSize: maxSize, now: time.Now}
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		w.rotateIfNeeded(0)
		w.open()
	} else if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > w.maxSize {
		_ = w.f.Close()
		w.f = nil
		w.rotateIfNeeded(int64(len(p)))
		w.open()
	}
	if w.f != nil {
		_, _ = w.f.Write(p)
	}
	return len(p), nil
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *RotatingWriter) open() {
	if dir := filepath.Dir(w.path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	w.f = f
}

func (w *RotatingWriter) rotateIfNeeded(incoming int64) {
	st, err := os.Stat(w.path)
	if err != nil || st.Size() == 0 || st.Size()+incoming <= w.maxSize {
		return
	}
	_ = os.Rename(w.path, w.archiveName())
}

func (w *RotatingWriter) archiveName() string {
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	return fmt.Sprintf("%s_%s%s", base, w.now().Format("20060102150405"), ext)
}
