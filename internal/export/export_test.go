package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armts/internal/archive"
)

var sampleRows = []archive.Row{
	{
		Fitness:    0.52,
		Support:    0.2,
		Confidence: 0.8,
		Amplitude:  0.6,
		TSM:        0.98,
		Antecedent: "humidity(62.5865, 65.8921) AND weather(sun)",
		Consequent: "temperature(20, 24.5)",
		Start:      "2024-09-08 20:16:21",
		End:        "2024-09-08 20:17:51",
	},
	{
		Fitness:    0.1,
		Support:    0.1,
		Confidence: 0.4,
		Antecedent: "weather(rain)",
		Consequent: "light(0, 12.5)",
		Start:      "3",
		End:        "3",
	},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, archive.RowColumns, records[0])
	assert.Equal(t, []string{
		"0.52", "0.2", "0.8", "0", "0.6", "0.98",
		"humidity(62.5865, 65.8921) AND weather(sun)", "temperature(20, 24.5)",
		"2024-09-08 20:16:21", "2024-09-08 20:17:51",
	}, records[1])
	assert.Equal(t, "3", records[2][8])
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(archive.RowColumns, ",")+"\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRows))
	assert.Contains(t, buf.String(), `"antecedent": "weather(rain)"`)

	rows, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleRows, rows)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "run-1")
	paths, err := WriteFiles(dir, sampleRows)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, CSVFile), filepath.Join(dir, JSONFile)}, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	_, err = WriteFiles("", sampleRows)
	assert.Error(t, err)
}
