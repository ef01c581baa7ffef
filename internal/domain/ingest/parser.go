package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/loteria-digital/walletledger/internal/domain/ledger"
)

var (
	ErrMissingColumn = errors.New("required column not found")
	ErrInvalidAmount = errors.New("invalid amount format")
)

// FileStatus tags the outcome of parsing one source file.
type FileStatus int

const (
	// StatusParsed means the file produced records for the merge.
	StatusParsed FileStatus = iota
	// StatusSkipped means the file was left for a later run (e.g. no
	// recognizable header); its manifest entry is not written.
	StatusSkipped
	// StatusFailed means the file is malformed (missing column, bad
	// amount) and its whole contribution was dropped.
	StatusFailed
)

// FileResult is the tagged per-file outcome threaded through the batch
// loop, so skip/fail handling is a caller decision rather than a side
// effect of a broad error catch.
type FileResult struct {
	File    string
	Status  FileStatus
	Reason  string // populated for StatusSkipped
	Err     error  // populated for StatusFailed
	Records []ledger.Transaction
}

// columnMap holds the indices of the six required export columns.
type columnMap struct {
	id, date, movType, account, label, amount int
}

// ParseFile reads one raw export from disk and returns its tagged result.
// I/O errors surface as StatusFailed; a missing header row is a skip.
func ParseFile(path string) *FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return &FileResult{File: path, Status: StatusFailed, Err: err}
	}
	return Parse(path, data)
}

// Parse converts one raw export into normalized ledger records.
func Parse(name string, data []byte) *FileResult {
	shape, err := DetectShape(data)
	if err != nil {
		if errors.Is(err, ErrHeaderNotFound) || errors.Is(err, ErrEmptyFile) {
			return &FileResult{File: name, Status: StatusSkipped, Reason: err.Error()}
		}
		return &FileResult{File: name, Status: StatusFailed, Err: err}
	}

	cols, err := mapColumns(shape.Headers)
	if err != nil {
		return &FileResult{File: name, Status: StatusFailed, Err: err}
	}

	// Cut the metadata preamble and the header row off by line before
	// handing the body to the CSV reader: the reader silently skips
	// blank lines, so record counting cannot be used to skip the
	// preamble.
	lines := strings.Split(string(data), "\n")
	body := strings.Join(lines[shape.SkipLines+1:], "\n")

	reader := csv.NewReader(strings.NewReader(body))
	reader.Comma = shape.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records []ledger.Transaction
	lineNum := shape.SkipLines + 2 // 1-indexed, first data row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &FileResult{File: name, Status: StatusFailed, Err: fmt.Errorf("line %d: %w", lineNum, err)}
		}
		if isBlankRecord(record) {
			lineNum++
			continue
		}

		tx, err := parseRow(record, cols)
		if err != nil {
			// A malformed value means the export format regressed;
			// the whole file's contribution is dropped.
			return &FileResult{File: name, Status: StatusFailed, Err: fmt.Errorf("line %d: %w", lineNum, err)}
		}
		records = append(records, tx)
		lineNum++
	}

	return &FileResult{File: name, Status: StatusParsed, Records: records}
}

// mapColumns matches the six required columns by normalized header text,
// so accent and punctuation drift between export revisions doesn't break
// ingestion.
func mapColumns(headers []string) (columnMap, error) {
	cols := columnMap{id: -1, date: -1, movType: -1, account: -1, label: -1, amount: -1}
	for i, h := range headers {
		n := Normalize(h)
		switch {
		case cols.id < 0 && strings.Contains(n, "transac"):
			cols.id = i
		case cols.movType < 0 && strings.Contains(n, "tipo mov"):
			cols.movType = i
		case cols.date < 0 && strings.HasPrefix(n, "fecha"):
			cols.date = i
		case cols.account < 0 && strings.Contains(n, "documento"):
			cols.account = i
		case cols.label < 0 && strings.HasPrefix(n, "movimiento"):
			cols.label = i
		case cols.amount < 0 && strings.Contains(n, "importe"):
			cols.amount = i
		}
	}

	missing := map[string]int{
		"transaction id": cols.id,
		"date":           cols.date,
		"movement type":  cols.movType,
		"document":       cols.account,
		"movement":       cols.label,
		"amount":         cols.amount,
	}
	for name, idx := range missing {
		if idx < 0 {
			return cols, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func parseRow(record []string, cols columnMap) (ledger.Transaction, error) {
	maxCol := len(record) - 1
	for _, idx := range []int{cols.id, cols.date, cols.movType, cols.account, cols.label, cols.amount} {
		if idx > maxCol {
			return ledger.Transaction{}, fmt.Errorf("%w: row has %d fields", ErrMissingColumn, len(record))
		}
	}

	id := strings.TrimSpace(record[cols.id])
	if id == "" {
		return ledger.Transaction{}, fmt.Errorf("empty transaction id")
	}

	account, err := ParseAccountID(record[cols.account])
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid document %q: %w", record[cols.account], err)
	}

	amount, err := ParseAmountCents(record[cols.amount])
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid amount %q: %w", record[cols.amount], err)
	}

	// Unparseable timestamps become the zero time rather than an error;
	// downstream date rollups skip them.
	ts, _ := ParseDayFirstTime(record[cols.date])

	return ledger.Transaction{
		ID:            id,
		Timestamp:     ts,
		MovementType:  strings.TrimSpace(record[cols.movType]),
		AccountID:     account,
		MovementLabel: cleanLabel(record[cols.label]),
		AmountCents:   amount,
	}, nil
}

// ParseAmountCents parses an export-locale amount ('.' thousands
// separator, ',' decimal separator) into cents.
func ParseAmountCents(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return 0, ErrInvalidAmount
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := int64(val*100 + 0.5)
	if negative {
		cents = -cents
	}
	return cents, nil
}

// ParseAccountID extracts the numeric document id, tolerating stray
// punctuation and leading zeros in the export.
func ParseAccountID(raw string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		if strings.ContainsRune(raw, '0') {
			return 0, nil
		}
		return 0, fmt.Errorf("no digits in document id")
	}
	return strconv.ParseInt(digits, 10, 64)
}

// Export timestamps are day-first; most files carry a time-of-day
// component, a few only the date.
var dayFirstLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"2/1/2006 15:04",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDayFirstTime parses a day-first export timestamp. It returns the
// zero time with an error for unparseable values; callers that follow the
// coerce-to-null convention ignore the error.
func ParseDayFirstTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func cleanLabel(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
