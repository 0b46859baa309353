package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one loosely-typed spreadsheet row, keyed by canonical column name.
type Row map[string]string

// Canonical column names. Spreadsheet headers are matched case-insensitively
// and through a small alias set ("Option A" / "optionA" / "option_a").
const (
	ColLevel         = "level"
	ColQuestion      = "question"
	ColOptionA       = "option_a"
	ColOptionB       = "option_b"
	ColOptionC       = "option_c"
	ColOptionD       = "option_d"
	ColCorrectAnswer = "correct_answer"
	ColExplanation   = "explanation"
)

// columnAliases maps normalized header text (lowercased, spaces and
// underscores stripped) to canonical column names. Unknown headers are
// ignored rather than rejected.
var columnAliases = map[string]string{
	"level":         ColLevel,
	"question":      ColQuestion,
	"questiontext":  ColQuestion,
	"optiona":       ColOptionA,
	"optionb":       ColOptionB,
	"optionc":       ColOptionC,
	"optiond":       ColOptionD,
	"correctanswer": ColCorrectAnswer,
	"answer":        ColCorrectAnswer,
	"explanation":   ColExplanation,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

func resolveColumns(header []string) map[int]string {
	cols := make(map[int]string)
	for i, h := range header {
		if canonical, ok := columnAliases[normalizeHeader(h)]; ok {
			cols[i] = canonical
		}
	}
	return cols
}

// RowParser converts a spreadsheet byte buffer into an ordered sequence of
// raw rows. The first row is the header; data rows keep file order.
type RowParser interface {
	Parse(data []byte) ([]Row, error)
}

// ParserFor selects a parser by file extension. Format detection stays
// separate from row validation so new formats only touch this function.
func ParserFor(fileName string) (RowParser, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return csvParser{}, nil
	case ".xlsx", ".xls":
		return excelParser{}, nil
	default:
		return nil, fmt.Errorf("no parser for file %q", fileName)
	}
}

// ── Delimited Text ──────────────────────────────────────

type csvParser struct{}

func (csvParser) Parse(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := resolveColumns(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, recordToRow(record, cols))
	}
	return rows, nil
}

// ── Binary Tabular (Excel) ──────────────────────────────

type excelParser struct{}

func (excelParser) Parse(data []byte) ([]Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := resolveColumns(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, recordToRow(record, cols))
	}
	return rows, nil
}

func recordToRow(record []string, cols map[int]string) Row {
	row := make(Row, len(cols))
	for i, name := range cols {
		if i < len(record) {
			row[name] = record[i]
		} else {
			row[name] = ""
		}
	}
	return row
}

// CountDataRows is the cheap pre-pass used at intake to populate totalRows
// before any row is processed. It counts data rows without building row maps.
func CountDataRows(fileName string, data []byte) (int, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return countCSVRows(data)
	case ".xlsx", ".xls":
		return countExcelRows(data)
	default:
		return 0, fmt.Errorf("no parser for file %q", fileName)
	}
}

func countCSVRows(data []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan csv: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	return count - 1, nil // minus header
}

func countExcelRows(data []byte) (int, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, nil
	}

	iter, err := f.Rows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("iterate sheet %q: %w", sheets[0], err)
	}
	defer iter.Close()

	count := 0
	for iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate rows: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	return count - 1, nil
}
