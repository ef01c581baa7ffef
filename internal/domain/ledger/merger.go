package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLedgerMissing is fatal for the run: there is no persisted ledger and
// no valid new files arrived to bootstrap one, so nothing can be reported.
var ErrLedgerMissing = errors.New("no master ledger exists and no valid source files were found")

// Batch is one parsed source file ready to merge, carrying the manifest
// bookkeeping that must be persisted together with the ledger.
type Batch struct {
	File    string // source filename (manifest key)
	Path    string // current on-disk location
	ModTime int64  // epoch seconds recorded in the manifest
	Records []Transaction
}

// MergeResult summarises one merge.
type MergeResult struct {
	Total    int // rows in the ledger after the merge
	Added    int // net new rows
	Replaced int // rows overwritten by a newer copy of the same id

	// ArchiveErrs lists source files that merged fine but could not be
	// moved to the archive. Non-fatal: the records are persisted and
	// the manifest entry keeps the stale file from reprocessing.
	ArchiveErrs []error
}

// Merger owns all mutation of the master ledger and manifest.
type Merger struct {
	store      *Store
	archiveDir string // processed files move here, partitioned by month
}

// NewMerger returns a merger writing through the given store. archiveDir
// may be empty to leave processed files in place (tests).
func NewMerger(store *Store, archiveDir string) *Merger {
	return &Merger{store: store, archiveDir: archiveDir}
}

// Merge appends the batches to the persisted ledger, deduplicating by
// transaction id with the newest copy winning: batches are applied in
// order, so records from later files replace earlier ones, and every
// batch replaces whatever the stored ledger had. Ledger and manifest are
// persisted as a unit, then processed files are archived.
//
// Batches must already be in the deterministic (lexical) processing
// order produced by PendingFiles.
func (m *Merger) Merge(batches []Batch, manifest *Manifest, manifestPath string) (*MergeResult, error) {
	existing, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		if len(existing) == 0 && !m.store.Exists() {
			return nil, ErrLedgerMissing
		}
		return &MergeResult{Total: len(existing)}, nil
	}

	index := make(map[string]int, len(existing))
	merged := make([]Transaction, 0, len(existing))
	for _, tx := range existing {
		if at, ok := index[tx.ID]; ok {
			// A stored snapshot should already be unique; on a
			// duplicate the last copy wins, same as the merge rule.
			merged[at] = tx
			continue
		}
		index[tx.ID] = len(merged)
		merged = append(merged, tx)
	}

	result := &MergeResult{}
	for _, batch := range batches {
		for _, tx := range batch.Records {
			if at, ok := index[tx.ID]; ok {
				merged[at] = tx
				result.Replaced++
				continue
			}
			index[tx.ID] = len(merged)
			merged = append(merged, tx)
			result.Added++
		}
	}
	result.Total = len(merged)

	if err := m.store.Save(merged); err != nil {
		return nil, err
	}
	for _, batch := range batches {
		manifest.Record(batch.File, batch.ModTime)
	}
	if err := manifest.Save(manifestPath); err != nil {
		return nil, fmt.Errorf("ledger saved but manifest write failed: %w", err)
	}

	if m.archiveDir != "" {
		for _, batch := range batches {
			if err := m.archive(batch); err != nil {
				// The batch is already merged and recorded, so the file
				// just stays in the inbound dir, inert under its
				// manifest entry.
				result.ArchiveErrs = append(result.ArchiveErrs, fmt.Errorf("archiving %s: %w", batch.File, err))
			}
		}
	}
	return result, nil
}

// archive moves a processed source file into archiveDir/YYYY-MM, keyed
// by the month of the file's first dated record.
func (m *Merger) archive(batch Batch) error {
	month := "unknown"
	for _, tx := range batch.Records {
		if mo := tx.Month(); mo != "" {
			month = mo
			break
		}
	}
	dir := filepath.Join(m.archiveDir, month)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, batch.File)
	if _, err := os.Stat(dest); err == nil {
		// A stale copy already archived; replace it.
		if err := os.Remove(dest); err != nil {
			return err
		}
	}
	return os.Rename(batch.Path, dest)
}
