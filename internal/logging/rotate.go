package logging

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFile is an append-only file that is renamed to file.1 once it
// grows past MaxSize. Older generations shift up to file.<MaxFiles-1>;
// the oldest one is overwritten.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxSize  int64
	maxFiles int
	file     *os.File
	size     int64
}

// OpenRotatingFile opens path for appending.
func OpenRotatingFile(path string, maxSize int64, maxFiles int) (*RotatingFile, error) {
	if maxFiles < 1 {
		maxFiles = 1
	}
	r := &RotatingFile{
		path:     path,
		maxSize:  maxSize,
		maxFiles: maxFiles,
	}
	if err := r.openLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openLocked(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	if err != nil {
		return n, err
	}

	if r.maxSize > 0 && r.size > r.maxSize {
		if err := r.rotateLocked(); err != nil {
			return n, fmt.Errorf("failed to rotate %s: %w", r.path, err)
		}
	}
	return n, nil
}

// Rotate forces a rotation regardless of size.
func (r *RotatingFile) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotateLocked()
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

// Tail returns up to count of the most recent lines of the current file.
func (r *RotatingFile) Tail(count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, count)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == count {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	return ring, scanner.Err()
}

func (r *RotatingFile) openLocked() error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", r.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	r.file = f
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) rotateLocked() error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	if r.maxFiles > 1 {
		for i := r.maxFiles - 1; i > 1; i-- {
			older := r.generation(i - 1)
			if _, err := os.Stat(older); err == nil {
				if err := os.Rename(older, r.generation(i)); err != nil {
					return err
				}
			}
		}
		if err := os.Rename(r.path, r.generation(1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	} else if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return r.openLocked()
}

func (r *RotatingFile) generation(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}
