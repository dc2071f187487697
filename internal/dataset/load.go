package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTimestampColumn = "timestamp"
	DefaultIntervalColumn  = "interval"
)

var defaultTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

type LoadOptions struct {
	Name string
	// TimestampColumn defaults to "timestamp". A CSV without it loads fine,
	// it just cannot serve time-series windows.
	TimestampColumn string
	// IntervalColumn defaults to "interval".
	IntervalColumn string
	TimeLayouts    []string
}

func LoadCSVFile(path string, opts LoadOptions) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	table, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return table, nil
}

// LoadCSV reads a header row followed by records. Every column other than the
// timestamp and interval columns becomes a feature: numerical when every
// non-empty cell parses as a float, categorical otherwise.
func LoadCSV(in io.Reader, opts LoadOptions) (*Table, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	tsColumn := strings.TrimSpace(opts.TimestampColumn)
	if tsColumn == "" {
		tsColumn = DefaultTimestampColumn
	}
	ivColumn := strings.TrimSpace(opts.IntervalColumn)
	if ivColumn == "" {
		ivColumn = DefaultIntervalColumn
	}
	layouts := opts.TimeLayouts
	if len(layouts) == 0 {
		layouts = defaultTimeLayouts
	}

	header, err := reader.Read()
	if err == io.EOF {
		return NewTable(Columns{Name: opts.Name, TimestampColumn: tsColumn})
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([][]string, 0, 1024)
	rowIndex := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rowIndex, err)
		}
		rowIndex++
		if blankRecord(record) {
			continue
		}
		records = append(records, record)
	}

	cols := Columns{
		Name:            opts.Name,
		TimestampColumn: tsColumn,
		Numeric:     make(map[string][]float64),
		Categorical: make(map[string][]string),
	}
	for col, name := range header {
		switch name {
		case tsColumn:
			timestamps := make([]time.Time, len(records))
			for row, record := range records {
				raw := cell(record, col)
				ts, err := parseTime(raw, layouts)
				if err != nil {
					return nil, fmt.Errorf("parse %s at row %d: %w", name, row+1, err)
				}
				timestamps[row] = ts
			}
			cols.Timestamps = timestamps
		case ivColumn:
			intervals := make([]float64, len(records))
			for row, record := range records {
				v, err := strconv.ParseFloat(cell(record, col), 64)
				if err != nil {
					return nil, fmt.Errorf("parse %s at row %d: %w", name, row+1, err)
				}
				intervals[row] = v
			}
			cols.Intervals = intervals
		default:
			if name == "" {
				continue
			}
			cols.Order = append(cols.Order, name)
			if values, ok := numericColumn(records, col); ok {
				cols.Numeric[name] = values
				continue
			}
			values := make([]string, len(records))
			for row, record := range records {
				values[row] = cell(record, col)
			}
			cols.Categorical[name] = values
		}
	}
	return NewTable(cols)
}

func numericColumn(records [][]string, col int) ([]float64, bool) {
	values := make([]float64, len(records))
	filled := 0
	for row, record := range records {
		raw := cell(record, col)
		if raw == "" {
			values[row] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		values[row] = v
		filled++
	}
	return values, filled > 0
}

func parseTime(raw string, layouts []string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, lastErr
}

func cell(record []string, col int) string {
	if col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
