package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Manifest records which source files have been ingested and at what
// modification time. A file is re-parsed iff it has no entry or its
// stored time differs from the filesystem's current value.
type Manifest struct {
	entries map[string]int64 // filename -> epoch seconds
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]int64)}
}

// LoadManifest reads the two-column manifest CSV. A missing or malformed
// file yields an empty manifest: affected exports simply reprocess, and
// the keep-last merge makes that idempotent (the ledger is canonical).
func LoadManifest(path string) *Manifest {
	m := NewManifest()

	f, err := os.Open(path)
	if err != nil {
		return m
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil || len(rows) == 0 {
		return m
	}
	if len(rows[0]) != 2 || rows[0][0] != "archivo" || rows[0][1] != "mod_time" {
		return m
	}
	for _, row := range rows[1:] {
		if len(row) != 2 {
			continue
		}
		mt, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			continue
		}
		m.entries[row[0]] = mt
	}
	return m
}

// Save writes the manifest atomically (temp file + rename).
func (m *Manifest) Save(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"archivo", "mod_time"}); err != nil {
		f.Close()
		return fmt.Errorf("write manifest header: %w", err)
	}
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writer.Write([]string{name, strconv.FormatInt(m.entries[name], 10)}); err != nil {
			f.Close()
			return fmt.Errorf("write manifest row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// Record inserts or replaces the entry for one ingested file.
func (m *Manifest) Record(filename string, modTime int64) {
	m.entries[filename] = modTime
}

// Len reports the number of tracked files.
func (m *Manifest) Len() int { return len(m.entries) }

// PendingFile is one source file selected for (re)processing.
type PendingFile struct {
	Path    string
	Name    string
	ModTime int64 // epoch seconds at detection time
}

// PendingFiles compares the candidate directory against the manifest and
// returns the files to process, sorted lexically by name so the
// keep-last dedup rule is deterministic across runs.
func PendingFiles(dir string, m *Manifest) ([]PendingFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source dir: %w", err)
	}

	var pending []PendingFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		mt := info.ModTime().Unix()
		known, ok := m.entries[e.Name()]
		if ok && known == mt {
			continue
		}
		pending = append(pending, PendingFile{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			ModTime: mt,
		})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].Name < pending[j].Name })
	return pending, nil
}
