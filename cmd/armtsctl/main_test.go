package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armts/internal/archive"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,temperature,humidity,weather\n")
	base := time.Date(2024, 9, 8, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "%s,%d,%d,%s\n",
			base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339),
			20+i%6, 50+(i*3)%15, []string{"sun", "fog"}[i%2])
	}
	path := filepath.Join(t.TempDir(), "weather.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// execute runs one command line against the shared app.
func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func newTestApp(t *testing.T) *app {
	a := &app{}
	t.Cleanup(func() { _ = a.close() })
	return a
}

func TestDescribe(t *testing.T) {
	path := writeCSV(t)
	out, err := execute(t, newTestApp(t), "describe", "--data", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dataset=weather rows=30")
	assert.Regexp(t, `temperature\s+Numerical\s+30\s+20\.0000\s+25\.0000`, out)
	assert.Regexp(t, `weather\s+Categorical\s+30\s+.*fog,sun`, out)

	out, err = execute(t, newTestApp(t), "describe", "--data", path, "--json")
	require.NoError(t, err)
	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	assert.Len(t, summaries, 4)
	assert.Equal(t, "Datetime", summaries[0]["type"])
}

func TestDimension(t *testing.T) {
	path := writeCSV(t)
	out, err := execute(t, newTestApp(t), "dimension", "--data", path)
	require.NoError(t, err)
	assert.Equal(t, "mode=timeseries dimension=14\n", out)

	_, err = execute(t, newTestApp(t), "dimension", "--data", path, "--mode", "weekly")
	assert.Error(t, err)
}

func TestMineShowRunsExplain(t *testing.T) {
	path := writeCSV(t)
	outDir := t.TempDir()
	metricsPath := filepath.Join(outDir, "armts.prom")
	a := newTestApp(t)

	out, err := execute(t, a, "mine", "--data", path, "--population", "8", "--iterations", "4",
		"--seed", "7", "--top", "2", "--out", outDir, "--metrics-out", metricsPath)
	require.NoError(t, err)
	m := regexp.MustCompile(`run_id=(\S+) dataset=weather rows=30 dimension=14 evaluations=32`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	runID := m[1]
	assert.Contains(t, out, "exported "+filepath.Join(outDir, runID, "rules.csv"))
	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "armts_evaluations_total")
	assert.Contains(t, string(metrics), "armts_archive_offers_total{result=\"accepted\"}")

	out, err = execute(t, a, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "weather")

	out, err = execute(t, a, "show", runID, "--json")
	require.NoError(t, err)
	var rows []archive.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.NotEmpty(t, rows)

	out, err = execute(t, a, "show", "--latest")
	require.NoError(t, err)
	assert.Contains(t, out, "run_id="+runID)

	out, err = execute(t, a, "explain", "--latest", "--data", path, "--shift", "60")
	require.NoError(t, err)
	assert.Contains(t, out, rows[0].Antecedent)
	assert.Contains(t, out, "antecedent")
	assert.Contains(t, out, "stability=")
}

func TestConfigFileAndFlagOverrides(t *testing.T) {
	path := writeCSV(t)
	cfgPath := filepath.Join(t.TempDir(), "armts.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("dataset:\n  path: %s\nproblem:\n  mode: interval\n", path)), 0o644))

	out, err := execute(t, newTestApp(t), "dimension", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "mode=interval dimension=13\n", out)

	out, err = execute(t, newTestApp(t), "dimension", "--config", cfgPath, "--mode", "timeseries")
	require.NoError(t, err)
	assert.Contains(t, out, "dimension=14")

	_, err = execute(t, newTestApp(t), "runs", "--store", "postgres")
	assert.Error(t, err)
}

func TestShowWithoutRuns(t *testing.T) {
	_, err := execute(t, newTestApp(t), "show", "--latest")
	assert.Error(t, err)
}
