package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const utf8BOM = "\ufeff"

// RotatingFile is an append-only file that rolls over to path.1 .. path.N
// once it would exceed maxBytes. Every new file starts with the header line.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	header   string
	maxBytes int64
	backups  int
	file     *os.File
	size     int64
}

func OpenRotating(path, header string, maxBytes int64, backups int) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	r := &RotatingFile{
		path:     path,
		header:   header,
		maxBytes: maxBytes,
		backups:  backups,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat %s: %w", r.path, err)
	}

	r.file = file
	r.size = info.Size()

	if r.size == 0 && r.header != "" {
		n, err := file.WriteString(utf8BOM + r.header + "\n")
		r.size += int64(n)
		if err != nil {
			return fmt.Errorf("failed to write header to %s: %w", r.path, err)
		}
	}
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}

	if r.maxBytes > 0 && r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", r.path, err)
	}
	r.file = nil

	if r.backups > 0 {
		os.Remove(r.backupName(r.backups))
		for i := r.backups - 1; i >= 1; i-- {
			if _, err := os.Stat(r.backupName(i)); err == nil {
				if err := os.Rename(r.backupName(i), r.backupName(i+1)); err != nil {
					return fmt.Errorf("failed to shift backup: %w", err)
				}
			}
		}
		if err := os.Rename(r.path, r.backupName(1)); err != nil {
			return fmt.Errorf("failed to rotate %s: %w", r.path, err)
		}
	} else if err := os.Remove(r.path); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", r.path, err)
	}

	return r.open()
}

func (r *RotatingFile) backupName(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
