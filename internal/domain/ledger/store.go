package ledger

import (
	"fmt"
	"os"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// snapshotRow is the on-disk shape of one ledger row. Timestamps are
// epoch milliseconds; 0 marks an unparseable export timestamp.
type snapshotRow struct {
	ID            string `parquet:"name=transaction_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	TimestampMs   int64  `parquet:"name=ts, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	MovementType  string `parquet:"name=movement_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	AccountID     int64  `parquet:"name=account_id, type=INT64"`
	MovementLabel string `parquet:"name=movement_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	AmountCents   int64  `parquet:"name=amount_cents, type=INT64"`
}

// Store persists the master ledger as a single parquet snapshot.
type Store struct {
	path string
}

// NewStore returns a store backed by the given snapshot path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot location.
func (s *Store) Path() string { return s.path }

// Exists reports whether a snapshot has been written before.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the full ledger snapshot. A store that does not exist yet
// yields an empty ledger without error; bootstrap policy is the
// merger's concern.
func (s *Store) Load() ([]Transaction, error) {
	if !s.Exists() {
		return nil, nil
	}

	fr, err := local.NewLocalFileReader(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger snapshot: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(snapshotRow), 1)
	if err != nil {
		return nil, fmt.Errorf("read ledger schema: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]snapshotRow, num)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read ledger rows: %w", err)
	}

	txs := make([]Transaction, 0, num)
	for _, row := range rows {
		var ts time.Time
		if row.TimestampMs != 0 {
			ts = time.UnixMilli(row.TimestampMs).UTC()
		}
		txs = append(txs, Transaction{
			ID:            row.ID,
			Timestamp:     ts,
			MovementType:  row.MovementType,
			AccountID:     row.AccountID,
			MovementLabel: row.MovementLabel,
			AmountCents:   row.AmountCents,
		})
	}
	return txs, nil
}

// Save writes the full snapshot atomically (temp file + rename), so a
// crash mid-write leaves the previous snapshot intact.
func (s *Store) Save(txs []Transaction) error {
	tmp := s.path + ".tmp"

	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("create ledger snapshot: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(snapshotRow), 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("ledger parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, tx := range txs {
		var ms int64
		if !tx.Timestamp.IsZero() {
			ms = tx.Timestamp.UnixMilli()
		}
		row := snapshotRow{
			ID:            tx.ID,
			TimestampMs:   ms,
			MovementType:  tx.MovementType,
			AccountID:     tx.AccountID,
			MovementLabel: tx.MovementLabel,
			AmountCents:   tx.AmountCents,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			fw.Close()
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("flush ledger snapshot: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close ledger snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}
