package metrics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armts/internal/dataset"
	"armts/internal/model"
)

var base = time.Date(2024, 9, 8, 20, 16, 0, 0, time.UTC)

// weatherTable has 14 rows one minute apart. Rows 2..11 form the test window:
// all cloudy, two of them at exactly 28.5 degrees, humidity outside the
// 60.23-65.89 band.
func weatherTable(t *testing.T) (*dataset.Table, model.Window) {
	t.Helper()
	const rows = 14
	ts := make([]time.Time, rows)
	temperature := make([]float64, rows)
	humidity := make([]float64, rows)
	weather := make([]string, rows)
	for i := 0; i < rows; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Minute)
		temperature[i] = 28.4
		humidity[i] = 58.0
		weather[i] = "clouds"
		if i < 2 || i > 11 {
			temperature[i] = 28.5
			humidity[i] = 62.0
			weather[i] = "sun"
		}
	}
	temperature[3] = 28.5
	temperature[7] = 28.5

	table, err := dataset.NewTable(dataset.Columns{
		Timestamps:  ts,
		Numeric:     map[string][]float64{"temperature": temperature, "humidity": humidity},
		Categorical: map[string][]string{"weather": weather},
		Order:       []string{"temperature", "humidity", "weather"},
	})
	require.NoError(t, err)
	return table, model.TimeWindow(ts[2], ts[11])
}

func TestSupportAndConfidenceScenario(t *testing.T) {
	table, w := weatherTable(t)

	clouds := model.Rule{model.CategoricalCondition("weather", "clouds")}
	cloudsHumid := model.Rule{
		model.CategoricalCondition("weather", "clouds"),
		model.NumericalCondition("humidity", 60.23, 65.8921),
	}
	exact := model.Rule{model.NumericalCondition("temperature", 28.5, 28.5)}
	wide := model.Rule{model.NumericalCondition("temperature", 0, 100)}

	assert.InDelta(t, 0.2, Support(table, clouds, exact, w), 1e-12)
	assert.InDelta(t, 0.2, Confidence(table, clouds, exact, w), 1e-12)

	assert.Equal(t, 0.0, Support(table, cloudsHumid, exact, w))
	assert.Equal(t, 0.0, Confidence(table, cloudsHumid, exact, w))

	assert.Equal(t, 1.0, Support(table, clouds, wide, w))
	assert.Equal(t, 1.0, Confidence(table, clouds, wide, w))

	assert.InDelta(t, 1.0, Coverage(table, clouds[0], w), 1e-12)
	assert.InDelta(t, 0.2, Coverage(table, exact[0], w), 1e-12)
}

func TestEmptyWindowAndUnknownFeature(t *testing.T) {
	table, _ := weatherTable(t)
	empty := model.TimeWindow(base.Add(-time.Hour), base.Add(-time.Minute))
	clouds := model.Rule{model.CategoricalCondition("weather", "clouds")}

	assert.Equal(t, 0.0, Support(table, clouds, nil, empty))
	assert.Equal(t, 0.0, Confidence(table, clouds, nil, empty))

	all := model.TimeWindow(base, base.Add(time.Hour))
	missing := model.Rule{model.NumericalCondition("pressure", 0, 1e9)}
	assert.Equal(t, 0.0, Support(table, missing, nil, all))
	assert.Equal(t, 0.0, Confidence(table, missing, clouds, all))
}

func TestScorerMatchesStandaloneFunctions(t *testing.T) {
	table, w := weatherTable(t)
	ant := model.Rule{model.CategoricalCondition("weather", "clouds")}
	con := model.Rule{model.NumericalCondition("temperature", 28.45, 30)}

	s := NewScorer(table, w)
	assert.Equal(t, 10, s.WindowSize())
	assert.Equal(t, Support(table, ant, con, w), s.Support(ant, con))
	assert.Equal(t, Confidence(table, ant, con, w), s.Confidence(ant, con))
	assert.Equal(t, 2, s.Count(ant, con))
}

func TestInclusion(t *testing.T) {
	a := model.NumericalCondition("a", 0, 1)
	b := model.NumericalCondition("b", 0, 1)
	c := model.CategoricalCondition("c", "x")

	assert.Equal(t, 0.0, Inclusion(nil, nil))
	assert.Equal(t, 0.0, Inclusion(model.Rule{a}, model.Rule{b}))
	assert.Equal(t, 1.0, Inclusion(model.Rule{a, b}, model.Rule{b, a}))
	assert.InDelta(t, 1.0/3.0, Inclusion(model.Rule{a, b}, model.Rule{b, c}), 1e-12)
}

func amplitudeTable(t *testing.T) (*dataset.Table, *model.Catalog, model.Window) {
	t.Helper()
	ts := make([]time.Time, 11)
	x := make([]float64, 11)
	y := make([]float64, 11)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Second)
		x[i] = float64(i)
		y[i] = float64(i % 5)
	}
	table, err := dataset.NewTable(dataset.Columns{
		Timestamps: ts,
		Numeric:    map[string][]float64{"x": x, "y": y},
	})
	require.NoError(t, err)
	catalog, err := model.NewCatalog(
		model.NumericalFeature("x", 0, 20),
		model.NumericalFeature("y", 0, 4),
		model.CategoricalFeature("z", "p", "q"),
	)
	require.NoError(t, err)
	return table, catalog, model.TimeWindow(ts[0], ts[10])
}

func TestAmplitude(t *testing.T) {
	table, catalog, w := amplitudeTable(t)
	x := model.NumericalCondition("x", 2, 4)
	y := model.NumericalCondition("y", 0, 1)
	z := model.CategoricalCondition("z", "p")

	assert.InDelta(t, 0.8, Amplitude(table, catalog, model.Rule{x}, nil, w, WindowScope), 1e-12)
	assert.InDelta(t, 0.775, Amplitude(table, catalog, model.Rule{x, z}, model.Rule{y}, w, WindowScope), 1e-12)
	assert.InDelta(t, 0.9, Amplitude(table, catalog, model.Rule{x}, nil, w, GlobalScope), 1e-12)
	assert.Equal(t, 0.0, Amplitude(table, catalog, model.Rule{z}, nil, w, WindowScope))

	// A single-row window has a degenerate span: zero width, full amplitude.
	point := model.TimeWindow(base, base)
	assert.Equal(t, 1.0, Amplitude(table, catalog, model.Rule{x}, nil, point, WindowScope))

	assert.InDelta(t, 0.8, ConditionAmplitude(table, x, w), 1e-12)
	assert.Equal(t, 0.0, ConditionAmplitude(table, z, w))
	assert.Equal(t, 1.0, ConditionAmplitude(table, x, point))
}

func TestTSMTimestampWindow(t *testing.T) {
	ts := make([]time.Time, 11)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i*100) * time.Second)
	}
	table, err := dataset.NewTable(dataset.Columns{Timestamps: ts})
	require.NoError(t, err)

	t0 := ts[0]
	span := ts[10].Sub(t0)
	start := t0.Add(span / 5)
	tenPercent := model.TimeWindow(start, start.Add(span/10))
	tsm := TSM(table, tenPercent)
	assert.GreaterOrEqual(t, tsm, 0.0)
	assert.LessOrEqual(t, tsm, 1.0)
	assert.InDelta(t, 0.9, tsm, 1e-12)

	assert.Equal(t, 0.0, TSM(table, model.TimeWindow(ts[0], ts[10])))
	assert.Equal(t, 1.0, TSM(table, model.TimeWindow(ts[3], ts[3])))
	assert.Equal(t, 0.0, TSM(table, model.TimeWindow(t0.Add(-span), ts[10])))
}

func TestTSMIntervalWindow(t *testing.T) {
	table, err := dataset.NewTable(dataset.Columns{
		Intervals: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, TSM(table, model.IntervalRange(2, 4)), 1e-12)

	noTime, err := dataset.NewTable(dataset.Columns{Numeric: map[string][]float64{"x": {1}}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, TSM(noTime, model.TimeWindow(base, base)))
}

func TestMetricBounds(t *testing.T) {
	table, w := weatherTable(t)
	rng := rand.New(rand.NewSource(11))
	conditions := func() model.Rule {
		var r model.Rule
		if rng.Intn(2) == 0 {
			r = append(r, model.CategoricalCondition("weather", []string{"clouds", "sun"}[rng.Intn(2)]))
		}
		lo := 28 + rng.Float64()
		r = append(r, model.NumericalCondition("temperature", lo, lo+rng.Float64()))
		if rng.Intn(2) == 0 {
			lo := 55 + 10*rng.Float64()
			r = append(r, model.NumericalCondition("humidity", lo, lo+5*rng.Float64()))
		}
		return r
	}
	for i := 0; i < 300; i++ {
		ant, con := conditions(), conditions()
		s := NewScorer(table, w)
		support := s.Support(ant, con)
		confidence := s.Confidence(ant, con)
		assert.GreaterOrEqual(t, support, 0.0)
		assert.LessOrEqual(t, support, 1.0)
		assert.GreaterOrEqual(t, confidence, 0.0)
		assert.LessOrEqual(t, confidence, 1.0)
		assert.LessOrEqual(t, support, confidence+1e-12)

		inclusion := Inclusion(ant, con)
		assert.GreaterOrEqual(t, inclusion, 0.0)
		assert.LessOrEqual(t, inclusion, 1.0)
	}
}
