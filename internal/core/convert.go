package core

// convert.go turns spreadsheet and CSV cell values into PostgreSQL dates.
//
// Partner files carry dates in whatever shape their tooling produced:
//   - ISO dates and datetimes written by databases and pandas
//   - US and European day/month orders
//   - Two-digit years
//   - Raw Excel serial numbers
//
// NormalizeDate never fails: anything it cannot read is an absent date
// (Valid=false), which the database stores as NULL.

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xuri/excelize/v2"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Month-first layouts are tried before day-first ones, so 03/04/2024 is
// March 4 while 15/04/2024 still reads as April 15.
var (
	dateTimeLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"1/2/2006 15:04:05",
		"1/2/2006 15:04",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
		"20060102",
	}
	dayFirstLayouts = []string{
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
		"2/1/06", "2-1-06", "2.1.06",
	}
)

// NormalizeDate converts a cell value to pgtype.Date.
//
// Strings are parsed with the layouts above; time.Time values keep their
// calendar date; numbers are read as Excel serial dates. Empty values, NA
// markers, and anything unparsable return an invalid date.
func NormalizeDate(v any) pgtype.Date {
	switch val := v.(type) {
	case nil:
		return pgtype.Date{Valid: false}
	case pgtype.Date:
		return val
	case time.Time:
		return dateOf(val)
	case *time.Time:
		if val == nil {
			return pgtype.Date{Valid: false}
		}
		return dateOf(*val)
	case string:
		return parseDate(val)
	case float64:
		return excelSerialDate(val)
	case float32:
		return excelSerialDate(float64(val))
	case int:
		return excelSerialDate(float64(val))
	case int64:
		return excelSerialDate(float64(val))
	case int32:
		return excelSerialDate(float64(val))
	case fmt.Stringer:
		return parseDate(val.String())
	default:
		return pgtype.Date{Valid: false}
	}
}

func parseDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}
	if _, ok := naMarkers[s]; ok {
		return pgtype.Date{Valid: false}
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t)
		}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t)
		}
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t)
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return dateOf(t)
		}
	}

	return pgtype.Date{Valid: false}
}

// excelSerialDate converts an Excel serial day number (1900 date system).
func excelSerialDate(f float64) pgtype.Date {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return pgtype.Date{Valid: false}
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return pgtype.Date{Valid: false}
	}
	return dateOf(t)
}

// dateOf drops the time of day and the location.
func dateOf(t time.Time) pgtype.Date {
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}
