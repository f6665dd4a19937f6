package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ============================================================================
// Conversion Benchmarks
// ============================================================================

// BenchmarkNormalizeDate benchmarks date parsing.
// Every row parses two company dates.
func BenchmarkNormalizeDate(b *testing.B) {
	testCases := []any{
		"2024-01-15",          // ISO format
		"2024-01-15 00:00:00", // pandas export
		"01/15/2024",          // US format
		"15/01/2024",          // Day first
		"Jan 15, 2024",        // Text month
		"1/5/24",              // 2-digit year
		45306.0,               // Excel serial
		"",                    // Absent
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			NormalizeDate(tc)
		}
	}
}

// BenchmarkNormalizeDate_DayFirst benchmarks the slowest successful path.
func BenchmarkNormalizeDate_DayFirst(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NormalizeDate("31.12.2023")
	}
}

// BenchmarkMakeHeaderIndex benchmarks header index creation.
// Called once per file to build the column lookup map.
func BenchmarkMakeHeaderIndex(b *testing.B) {
	headers := []string{
		"Raison sociale", "N° affiliation", "Date adhésion", "Date affiliation",
		"Type adhérent", "Mandataire", "N° mandataire", "CIN", "Nom",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MakeHeaderIndex(headers)
	}
}

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// BenchmarkApplyMapping benchmarks column renaming of a 1000 row dataset.
func BenchmarkApplyMapping(b *testing.B) {
	ds := &Dataset{Header: []string{"Nom", "CIN", "Ville"}}
	for i := 0; i < 1000; i++ {
		ds.Rows = append(ds.Rows, Row{Line: i + 2, Cells: []string{"Acme", fmt.Sprintf("C%d", i), "NA"}})
	}
	mapping := map[string]string{FieldCompanyName: "Nom", FieldCIN: "CIN"}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ApplyMapping(ds, mapping, nil)
	}
}

// BenchmarkImportFile benchmarks a 1000 row CSV import against the fake store.
func BenchmarkImportFile(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "PARTTYPE_bench.csv")
	if err := os.WriteFile(path, generateTestCSV(1000), 0o644); err != nil {
		b.Fatal(err)
	}
	ct := partTypeCanvas()
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		im := NewImporter(newFakeDB())
		im.Ledger = false
		if _, err := im.ImportFile(ctx, path, ct); err != nil {
			b.Fatal(err)
		}
	}
}

func generateTestCSV(rows int) []byte {
	var sb strings.Builder
	sb.WriteString("Nom,CIN,Ville\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "Company %d,CIN%06d,Rabat\n", i%50, i)
	}
	return []byte(sb.String())
}
