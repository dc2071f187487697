package rule

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"armts/internal/dataset"
	"armts/internal/model"
)

var ErrEmptyTable = errors.New("transaction table is empty")

// IntervalMapping decides how the single interval gene becomes a window.
type IntervalMapping string

const (
	// SegmentMapping picks one interval segment proportionally to the gene.
	SegmentMapping IntervalMapping = "segment"
	// GlobalMapping always spans the whole interval column; the gene is
	// ignored.
	GlobalMapping IntervalMapping = "global"
)

func ParseIntervalMapping(raw string) (IntervalMapping, error) {
	switch IntervalMapping(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SegmentMapping:
		return SegmentMapping, nil
	case GlobalMapping:
		return GlobalMapping, nil
	default:
		return "", fmt.Errorf("unsupported interval mapping: %s", raw)
	}
}

// SelectWindow turns the mode genes into a window over the table. Time-series
// mode expects the lower and upper genes, interval mode a single gene.
func SelectWindow(genes []float64, mode model.Mode, table *dataset.Table, mapping IntervalMapping) (model.Window, error) {
	if len(genes) != mode.ModeGenes() {
		return model.Window{}, fmt.Errorf("%w: %s mode takes %d window genes, got %d",
			ErrInvalidVectorLength, mode, mode.ModeGenes(), len(genes))
	}
	if table.Len() == 0 {
		return model.Window{}, ErrEmptyTable
	}

	if mode == model.IntervalMode {
		return intervalWindow(genes[0], table, mapping)
	}
	if !table.HasTimestamps() {
		return model.Window{}, dataset.ErrNoTimestampColumn
	}
	lo, hi := TimeSeriesIndices(genes[0], genes[1], table.Len())
	return model.TimeWindow(table.Timestamp(lo), table.Timestamp(hi)), nil
}

// TimeSeriesIndices maps the lower and upper genes onto row indices of a
// table with the given number of rows, lowest first.
func TimeSeriesIndices(lower, upper float64, rows int) (int, int) {
	last := rows - 1
	lo := clampIndex(int(float64(last)*lower), last)
	hi := clampIndex(int(float64(last)*upper), last)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

func intervalWindow(gene float64, table *dataset.Table, mapping IntervalMapping) (model.Window, error) {
	if mapping == GlobalMapping {
		lo, hi, err := table.IntervalBounds()
		if err != nil {
			return model.Window{}, err
		}
		return model.IntervalRange(lo, hi), nil
	}

	segments, err := table.Segments()
	if err != nil {
		return model.Window{}, err
	}
	if len(segments) == 0 {
		return model.Window{}, ErrEmptyTable
	}
	idx := clampIndex(int(math.Floor(gene*float64(len(segments)-1))), len(segments)-1)
	return model.IntervalRange(segments[idx], segments[idx]), nil
}

func clampIndex(i, last int) int {
	if i < 0 {
		return 0
	}
	if i > last {
		return last
	}
	return i
}
