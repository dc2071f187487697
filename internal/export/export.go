package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"armts/internal/archive"
)

const (
	CSVFile  = "rules.csv"
	JSONFile = "rules.json"
)

// WriteCSV writes a header line followed by one line per rule.
func WriteCSV(w io.Writer, rows []archive.Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(archive.RowColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			formatFloat(row.Fitness),
			formatFloat(row.Support),
			formatFloat(row.Confidence),
			formatFloat(row.Inclusion),
			formatFloat(row.Amplitude),
			formatFloat(row.TSM),
			row.Antecedent,
			row.Consequent,
			row.Start,
			row.End,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the rows as an indented JSON array. A nil slice is
// written as an empty array.
func WriteJSON(w io.Writer, rows []archive.Row) error {
	if rows == nil {
		rows = []archive.Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteFiles writes rules.csv and rules.json into dir, creating it when
// needed, and returns the paths written.
func WriteFiles(dir string, rows []archive.Row) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	csvPath := filepath.Join(dir, CSVFile)
	if err := writeFile(csvPath, func(w io.Writer) error { return WriteCSV(w, rows) }); err != nil {
		return nil, fmt.Errorf("write %s: %w", CSVFile, err)
	}
	jsonPath := filepath.Join(dir, JSONFile)
	if err := writeFile(jsonPath, func(w io.Writer) error { return WriteJSON(w, rows) }); err != nil {
		return nil, fmt.Errorf("write %s: %w", JSONFile, err)
	}
	return []string{csvPath, jsonPath}, nil
}

// ReadJSON reads rows previously written by WriteJSON.
func ReadJSON(r io.Reader) ([]archive.Row, error) {
	var rows []archive.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
