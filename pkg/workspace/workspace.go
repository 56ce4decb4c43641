package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

// MaxBytes caps the total size of all files held in a workspace.
const MaxBytes = 64 << 20

// validFilename accepts any flat host file name with a toolchain
// extension. Dots and spaces in the stem are fine; path separators and
// NUL are not.
var validFilename = regexp.MustCompile(`^[^/\\\x00]{1,250}\.(asm|hack|vm|jack|xml)$`)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("workspace quota exceeded")
	ErrNoSources       = errors.New("no source files")
)

type FileEntry struct {
	Data     []byte
	Modified time.Time
}

// Workspace is an in-memory set of named files. Sources are loaded from
// the host once, the pipeline reads and writes entries by name, and only
// entries written since the load are persisted back.
type Workspace struct {
	mu        sync.RWMutex
	files     map[string]*FileEntry
	dirty     map[string]bool
	usedBytes int
}

func New() *Workspace {
	return &Workspace{
		files: make(map[string]*FileEntry),
		dirty: make(map[string]bool),
	}
}

// Write stores a copy of data under filename, replacing any previous
// entry, and marks it for persistence.
func (w *Workspace) Write(filename string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !validFilename.MatchString(filename) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	oldSize := 0
	if existing, ok := w.files[filename]; ok {
		oldSize = len(existing.Data)
	}
	if w.usedBytes-oldSize+len(data) > MaxBytes {
		return ErrQuotaExceeded
	}

	w.files[filename] = &FileEntry{
		Data:     append([]byte(nil), data...),
		Modified: time.Now(),
	}
	w.dirty[filename] = true
	w.usedBytes += len(data) - oldSize
	return nil
}

func (w *Workspace) Read(filename string) ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !validFilename.MatchString(filename) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	entry, ok := w.files[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	return entry.Data, nil
}

func (w *Workspace) Delete(filename string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.files[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, filename)
	}
	w.usedBytes -= len(entry.Data)
	delete(w.files, filename)
	delete(w.dirty, filename)
	return nil
}

// List returns the sorted names of all files with the given extension.
// An empty ext lists everything.
func (w *Workspace) List(ext string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.files))
	for name := range w.files {
		if ext == "" || filepath.Ext(name) == ext {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Dirty returns the sorted names of files written since the last persist.
func (w *Workspace) Dirty() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.dirty))
	for name := range w.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *Workspace) UsedBytes() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.usedBytes
}

// LoadFrom reads sources with the given extension from path. A file path
// loads that single file; a directory loads every matching file directly
// inside it. Loaded files are not dirty. ErrNoSources is returned when
// nothing matched.
func (w *Workspace) LoadFrom(path, ext string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ext {
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
	} else {
		if filepath.Ext(path) != ext {
			return fmt.Errorf("%w: %s is not a %s file", ErrInvalidFilename, path, ext)
		}
		paths = []string{path}
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: no %s files in %s", ErrNoSources, ext, path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range paths {
		name := filepath.Base(p)
		if !validFilename.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		modified := time.Now()
		if st, err := os.Stat(p); err == nil {
			modified = st.ModTime()
		}
		if old, ok := w.files[name]; ok {
			w.usedBytes -= len(old.Data)
		}
		w.files[name] = &FileEntry{Data: raw, Modified: modified}
		w.usedBytes += len(raw)
	}
	return nil
}

// PersistTo writes every dirty file into dir, creating it if needed, and
// returns the host paths written. Files that fail to write stay dirty.
func (w *Workspace) PersistTo(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	// Snapshot under the lock, write without it.
	w.mu.Lock()
	snapshot := make(map[string][]byte, len(w.dirty))
	for name := range w.dirty {
		if entry, ok := w.files[name]; ok {
			snapshot[name] = entry.Data
		}
		delete(w.dirty, name)
	}
	w.mu.Unlock()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		written  []string
		firstErr error
	)
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, snapshot[name], 0o644); err != nil {
			w.mu.Lock()
			w.dirty[name] = true
			w.mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written = append(written, target)
	}
	return written, firstErr
}
