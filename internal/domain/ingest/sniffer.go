package ingest

import (
	"encoding/csv"
	"errors"
	"strings"
)

// The wallet platform prepends a variable number of banner/metadata rows
// before the real table. The header row is recognized by the movement-type
// column label, which survives every export revision.
const headerMarker = "tipo mov"

// maxHeaderScan bounds the search for the header row.
const maxHeaderScan = 50

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrHeaderNotFound = errors.New("could not find export header row")
)

// FileShape holds the detected layout of one raw export file.
type FileShape struct {
	Delimiter rune     // field delimiter (';', '\t', ',', '|')
	SkipLines int      // metadata lines before the header row
	Headers   []string // header names as written in the file
}

// DetectShape locates the header row of a raw export and its delimiter.
// Files without a recognizable header return ErrHeaderNotFound; callers
// treat that as a per-file skip, not a batch failure.
func DetectShape(data []byte) (*FileShape, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")
	delimiter, skipLines, err := findHeaderRow(lines)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(lines[skipLines]))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileShape{
		Delimiter: delimiter,
		SkipLines: skipLines,
		Headers:   headers,
	}, nil
}

// findHeaderRow returns the delimiter and index of the first row whose
// normalized text contains the movement-type marker.
func findHeaderRow(lines []string) (rune, int, error) {
	delimiters := []rune{';', '\t', ',', '|'}

	for i, line := range lines {
		if i > maxHeaderScan {
			break
		}
		if !strings.Contains(Normalize(line), headerMarker) {
			continue
		}

		for _, d := range delimiters {
			count := strings.Count(line, string(d))
			if count >= 5 { // six required columns
				return d, i, nil
			}
		}
		// Marker present but too few separators: keep scanning, the
		// marker may also appear in a banner line.
	}

	return 0, 0, ErrHeaderNotFound
}
