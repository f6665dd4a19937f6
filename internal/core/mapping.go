package core

// mapping.go renames partner columns to canonical field names.
//
// Header matching ignores surrounding whitespace, Excel artifacts, case and
// Unicode normalization form, since partner files often come from different
// spreadsheet tools than the one the mapping was written against.

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// naMarkers are cell values read as "no value". Spreadsheet and CSV exports
// use them for blank cells.
var naMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

// HeaderIndex maps normalized column names to their position in a row.
type HeaderIndex map[string]int

// Row is one data row with the source line it was read from.
type Row struct {
	Line  int
	Cells []string
}

// Dataset is a table read from a source file. Every row has exactly
// len(Header) cells.
type Dataset struct {
	Header []string
	Rows   []Row

	mapped map[string]int // canonical field -> renamed column, set by ApplyMapping
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Records returns the rows addressed by column name.
// A canonical field reads the column ApplyMapping renamed to it, even when
// an unmapped column carries the same name in another case.
func (d *Dataset) Records() []Record {
	idx := MakeHeaderIndex(d.Header)
	for field, pos := range d.mapped {
		idx[headerKey(field)] = pos
	}
	records := make([]Record, len(d.Rows))
	for i, row := range d.Rows {
		records[i] = Record{Line: row.Line, Index: i, header: idx, cells: row.Cells}
	}
	return records
}

// Record is a data row addressed by column name.
type Record struct {
	Line  int // 1-indexed line in the source file
	Index int // 0-indexed data row

	header HeaderIndex
	cells  []string
}

// Get returns the value of the named column, or "" when the column is absent.
func (r Record) Get(field string) string {
	pos, ok := r.header[headerKey(field)]
	if !ok || pos >= len(r.cells) {
		return ""
	}
	return r.cells[pos]
}

// ApplyMapping renames the columns of ds according to mapping
// (canonical field -> source column) and returns the renamed copy.
//
// Columns that no mapping entry names keep their header. Mapping entries
// naming a column the file does not have are ignored, so reading that field
// later yields "". Missing cells and NA markers become "".
//
// order lists the mapping's fields in declaration order. When several
// fields name the same source column, the last of them in order gets it.
// Fields missing from order follow it alphabetically; a nil order is fully
// alphabetical.
func ApplyMapping(ds *Dataset, mapping map[string]string, order []string) *Dataset {
	inverse := make(map[string]string, len(mapping))
	for _, field := range mappingOrder(mapping, order) {
		inverse[headerKey(mapping[field])] = field
	}

	out := &Dataset{
		Header: make([]string, len(ds.Header)),
		Rows:   make([]Row, len(ds.Rows)),
		mapped: make(map[string]int, len(inverse)),
	}
	for i, h := range ds.Header {
		field, ok := inverse[headerKey(h)]
		if !ok {
			out.Header[i] = h
			continue
		}
		out.Header[i] = field
		if _, seen := out.mapped[field]; !seen {
			out.mapped[field] = i
		}
	}

	for i, row := range ds.Rows {
		cells := make([]string, len(ds.Header))
		for j := range cells {
			if j < len(row.Cells) {
				cells[j] = blankNA(row.Cells[j])
			}
		}
		out.Rows[i] = Row{Line: row.Line, Cells: cells}
	}

	return out
}

// mappingOrder returns every field of mapping once: the fields of order
// first, then the rest sorted.
func mappingOrder(mapping map[string]string, order []string) []string {
	fields := make([]string, 0, len(mapping))
	seen := make(map[string]bool, len(mapping))
	for _, f := range order {
		if _, ok := mapping[f]; ok && !seen[f] {
			seen[f] = true
			fields = append(fields, f)
		}
	}

	rest := make([]string, 0, len(mapping)-len(fields))
	for f := range mapping {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(fields, rest...)
}

// blankNA returns "" for NA markers and whitespace-only values.
func blankNA(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if _, ok := naMarkers[trimmed]; ok {
		return ""
	}
	return s
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// When a name repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = i
	}
	return idx
}

func headerKey(h string) string {
	return strings.ToLower(norm.NFC.String(CleanCell(h)))
}

// CleanCell removes common spreadsheet artifacts from a header cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
