package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor Excel.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedExtensions lists the intake file extensions, lowercase.
var SupportedExtensions = []string{".xlsx", ".xls", ".csv"}

// IsSupported reports whether name has a supported extension (any case).
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadDataset reads a CSV or Excel file into memory.
//
// Every cell is read as text. Rows whose cells are all blank are dropped.
// Columns without a header get a generated "Unnamed: N" name. Workbooks are
// read from their first sheet; the format is chosen from the content, not
// the extension.
func ReadDataset(path string) (*Dataset, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readCSV(path)
	case ".xlsx", ".xls":
		legacy, err := isLegacyWorkbook(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		if legacy {
			return readLegacyWorkbook(path)
		}
		return readWorkbook(path)
	default:
		return nil, fmt.Errorf("%w %q: use .xlsx, .xls or .csv", ErrUnsupportedFormat, ext)
	}
}

func readCSV(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	text, _, err := transform.Bytes(textDecoder(data), data)
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, errors.New("empty file")
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	return buildDataset(records, lines)
}

// textDecoder picks the decoder for a CSV file. UTF-8 (with or without BOM)
// is the norm; files that are not valid UTF-8 are Windows-1252 exports from
// Excel.
func textDecoder(data []byte) *encoding.Decoder {
	if utf8.Valid(data) {
		return unicode.UTF8BOM.NewDecoder()
	}
	return charmap.Windows1252.NewDecoder()
}

// sniffDelimiter returns ';' when the header line holds more semicolons than
// commas, as in CSV files saved by Excel under French locales.
func sniffDelimiter(text []byte) rune {
	first := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	if bytes.Count(first, []byte{';'}) > bytes.Count(first, []byte{','}) {
		return ';'
	}
	return ','
}

func readWorkbook(path string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("empty file: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return buildDataset(rows, lines)
}

// oleSignature starts every BIFF (Excel 97-2003) workbook. Partners still
// send those under both .xls and .xlsx names.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// maxLegacyColumns is the BIFF8 sheet width.
const maxLegacyColumns = 256

func isLegacyWorkbook(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(oleSignature))
	if _, err := io.ReadFull(f, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, oleSignature), nil
}

// readLegacyWorkbook reads the first sheet of a BIFF workbook. The xls
// parser indexes records without bounds checks, so a corrupt file panics;
// that is reported as an open error.
func readLegacyWorkbook(path string) (ds *Dataset, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("open workbook: corrupt xls file: %v", r)
		}
	}()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, errors.New("empty file: workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	records := make([][]string, 0, int(sheet.MaxRow)+1)
	lines := make([]int, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		records = append(records, legacyRowCells(sheet, i))
		lines = append(lines, i+1)
	}
	return buildDataset(records, lines)
}

// legacyRowCells returns the text of row i with trailing blanks trimmed.
// Rows holding no cell are not stored by the parser and come back nil.
func legacyRowCells(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := sheet.Row(i)
	cells = make([]string, maxLegacyColumns)
	last := -1
	for j := range cells {
		cells[j] = row.Col(j)
		if cells[j] != "" {
			last = j
		}
	}
	return cells[:last+1]
}

// buildDataset takes the first non-blank record as the header.
func buildDataset(records [][]string, lines []int) (*Dataset, error) {
	start := 0
	for start < len(records) && isEmptyRow(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, errors.New("empty file")
	}

	header := records[start]
	body := records[start+1:]

	width := len(header)
	for _, rec := range body {
		if len(rec) > width {
			width = len(rec)
		}
	}

	ds := &Dataset{Header: make([]string, width)}
	for i := range ds.Header {
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			ds.Header[i] = header[i]
		} else {
			ds.Header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	for i, rec := range body {
		if isEmptyRow(rec) {
			continue
		}
		cells := make([]string, width)
		copy(cells, rec)
		ds.Rows = append(ds.Rows, Row{Line: lines[start+1+i], Cells: cells})
	}

	return ds, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
