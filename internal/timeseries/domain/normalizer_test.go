package timeseries

import (
	"errors"
	"math"
	"testing"
	"time"
)

var day = time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)

func hourlyObservations(values ...float64) []RawObservation {
	out := make([]RawObservation, 0, len(values))
	for i, v := range values {
		out = append(out, RawObservation{At: day.Add(time.Duration(i) * time.Hour), Value: v})
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizeUpsamplePriceHoldsValue(t *testing.T) {
	n := NewNormalizer()
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Observations: hourlyObservations(40, 50)}
	window := Window{From: day, Until: day.Add(2 * time.Hour)}

	series, err := n.Normalize(raw, window, Target{Resolution: 15 * time.Minute})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Len() != 8 {
		t.Fatalf("expected 8 points, got %d", series.Len())
	}
	for i, p := range series.Points {
		want := 40.0
		if i >= 4 {
			want = 50
		}
		if !p.Valid || !approx(p.Value, want) {
			t.Fatalf("point %d: expected %v, got %+v", i, want, p)
		}
	}
	if err := series.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !series.End().Equal(window.Until) {
		t.Fatalf("expected series to end at %s, got %s", window.Until, series.End())
	}
}

func TestNormalizeHourlyPricesToQuarterHours(t *testing.T) {
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Observations: hourlyObservations(10, 12, 14, 11)}
	window := Window{From: day, Until: day.Add(4 * time.Hour)}

	series, err := NewNormalizer().Normalize(raw, window, Target{Resolution: 15 * time.Minute})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := []float64{10, 10, 10, 10, 12, 12, 12, 12, 14, 14, 14, 14, 11, 11, 11, 11}
	if series.Len() != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), series.Len())
	}
	for i, p := range series.Points {
		if !approx(p.Value, want[i]) {
			t.Fatalf("point %d: expected %v, got %v", i, want[i], p.Value)
		}
		if !p.At.Equal(day.Add(time.Duration(i) * 15 * time.Minute)) {
			t.Fatalf("point %d starts at %s", i, p.At)
		}
	}
}

func TestNormalizeTenMinutesToHour(t *testing.T) {
	obs := make([]RawObservation, 0, 6)
	for i, v := range []float64{10, 20, 30, 40, 50, 60} {
		obs = append(obs, RawObservation{At: day.Add(time.Duration(i) * 10 * time.Minute), Value: v})
	}
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Observations: obs}

	series, err := NewNormalizer().Normalize(raw, Window{From: day, Until: day.Add(time.Hour)}, Target{Resolution: time.Hour})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Len() != 1 || !approx(series.Points[0].Value, 35) {
		t.Fatalf("expected single mean of 35, got %+v", series.Points)
	}
}

func TestNormalizeSameResolutionKeepsValues(t *testing.T) {
	raw := RawSeries{Kind: KindGenerationPower, Unit: "MW", Resolution: time.Hour, Observations: hourlyObservations(100, 0, 250)}

	series, err := NewNormalizer().Normalize(raw, Window{From: day, Until: day.Add(3 * time.Hour)}, Target{Resolution: time.Hour})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for i, want := range []float64{100, 0, 250} {
		if p := series.Points[i]; !p.Valid || !approx(p.Value, want) {
			t.Fatalf("point %d: expected %v, got %+v", i, want, p)
		}
	}
}

func TestNormalizeDownsamplePriceAverages(t *testing.T) {
	n := NewNormalizer()
	obs := make([]RawObservation, 0, 4)
	for i, v := range []float64{10, 20, 30, 40} {
		obs = append(obs, RawObservation{At: day.Add(time.Duration(i) * 15 * time.Minute), Value: v})
	}
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: 15 * time.Minute, Observations: obs}

	series, err := n.Normalize(raw, Window{From: day, Until: day.Add(time.Hour)}, Target{Resolution: time.Hour})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Len() != 1 || !approx(series.Points[0].Value, 25) {
		t.Fatalf("expected single mean of 25, got %+v", series.Points)
	}
}

func TestNormalizeEnergySumsAndHolds(t *testing.T) {
	n := NewNormalizer()
	obs := make([]RawObservation, 0, 4)
	for i := 0; i < 4; i++ {
		obs = append(obs, RawObservation{At: day.Add(time.Duration(i) * 15 * time.Minute), Value: 5})
	}
	raw := RawSeries{Kind: KindGenerationEnergy, Unit: "MWh", Observations: obs}
	window := Window{From: day, Until: day.Add(time.Hour)}

	hourly, err := n.Normalize(raw, window, Target{Resolution: time.Hour})
	if err != nil {
		t.Fatalf("normalize down: %v", err)
	}
	if !approx(hourly.Points[0].Value, 20) {
		t.Fatalf("expected sum of 20, got %v", hourly.Points[0].Value)
	}

	coarse := RawSeries{Kind: KindGenerationEnergy, Unit: "MWh", Observations: []RawObservation{{At: day, Value: 20}}, Resolution: time.Hour}
	fine, err := n.Normalize(coarse, window, Target{Resolution: 15 * time.Minute})
	if err != nil {
		t.Fatalf("normalize up: %v", err)
	}
	if fine.Len() != 4 {
		t.Fatalf("expected 4 points, got %d", fine.Len())
	}
	for i, p := range fine.Points {
		if !p.Valid || !approx(p.Value, 20) {
			t.Fatalf("point %d: expected held value 20, got %+v", i, p)
		}
	}
}

func TestNormalizeConstantInputStaysConstant(t *testing.T) {
	const c = 7.3
	for _, kind := range []SeriesKind{KindPrice, KindGenerationPower} {
		obs := make([]RawObservation, 0, 8)
		for i := 0; i < 8; i++ {
			obs = append(obs, RawObservation{At: day.Add(time.Duration(i) * 15 * time.Minute), Value: c})
		}
		raw := RawSeries{Kind: kind, Unit: "MW", Observations: obs}
		if kind == KindPrice {
			raw.Unit = "EUR/MWh"
		}
		window := Window{From: day, Until: day.Add(2 * time.Hour)}

		for _, res := range []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute, time.Hour, 2 * time.Hour} {
			series, err := NewNormalizer().Normalize(raw, window, Target{Resolution: res})
			if err != nil {
				t.Fatalf("%s to %s: %v", kind, res, err)
			}
			for i, p := range series.Points {
				if !p.Valid || !approx(p.Value, c) {
					t.Fatalf("%s to %s point %d: expected %v, got %+v", kind, res, i, c, p)
				}
			}
		}
	}
}

func TestNormalizeAcrossQuarterHourSwitch(t *testing.T) {
	// The first day was published hourly and is held on the quarter-hour grid.
	obs := make([]RawObservation, 0, 192)
	for i := 0; i < 192; i++ {
		v := float64(i % 4)
		if i < 96 {
			v = float64(100 + i/4)
		}
		obs = append(obs, RawObservation{At: day.Add(time.Duration(i) * 15 * time.Minute), Value: v})
	}
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: 15 * time.Minute, Observations: obs}
	window := Window{From: day, Until: day.Add(48 * time.Hour)}

	quarters, err := NewNormalizer().Normalize(raw, window, Target{Resolution: 15 * time.Minute})
	if err != nil {
		t.Fatalf("normalize to quarter hours: %v", err)
	}
	if quarters.ValidCount() != 192 {
		t.Fatalf("expected 192 valid points, got %d", quarters.ValidCount())
	}

	hours, err := NewNormalizer().Normalize(raw, window, Target{Resolution: time.Hour})
	if err != nil {
		t.Fatalf("normalize to hours: %v", err)
	}
	if hours.Len() != 48 || !approx(hours.Points[0].Value, 100) || !approx(hours.Points[24].Value, 1.5) {
		t.Fatalf("unexpected hourly series: len=%d first=%v after switch=%v", hours.Len(), hours.Points[0].Value, hours.Points[24].Value)
	}
}

func TestNormalizeConvertsUnits(t *testing.T) {
	n := NewNormalizer()
	raw := RawSeries{Kind: KindGenerationPower, Unit: "MAW", Observations: hourlyObservations(1.5, 2)}

	series, err := n.Normalize(raw, Window{From: day, Until: day.Add(2 * time.Hour)}, Target{Resolution: time.Hour, Unit: "kW"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Unit != "kW" || !approx(series.Points[0].Value, 1500) {
		t.Fatalf("expected 1500 kW, got %v %s", series.Points[0].Value, series.Unit)
	}
}

func TestNormalizeRejectsIncompatibleResolution(t *testing.T) {
	n := NewNormalizer()
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: 15 * time.Minute, Observations: hourlyObservations(1, 2)}

	_, err := n.Normalize(raw, Window{From: day, Until: day.Add(2 * time.Hour)}, Target{Resolution: 7 * time.Minute})
	if !errors.Is(err, ErrResolutionMismatch) {
		t.Fatalf("expected resolution mismatch, got %v", err)
	}
}

func TestNormalizeRejectsGapsWithoutTolerance(t *testing.T) {
	obs := hourlyObservations(1, 2, 3, 4)
	obs = append(obs[:1], obs[2:]...)
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: time.Hour, Observations: obs}
	window := Window{From: day, Until: day.Add(4 * time.Hour)}

	_, err := NewNormalizer().Normalize(raw, window, Target{Resolution: time.Hour})
	if !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("expected incomplete data, got %v", err)
	}

	series, err := NewNormalizer(WithGapTolerance(time.Hour)).Normalize(raw, window, Target{Resolution: 15 * time.Minute})
	if err != nil {
		t.Fatalf("normalize with tolerance: %v", err)
	}
	if series.Len() != 16 || series.ValidCount() != 12 {
		t.Fatalf("expected 16 points with 12 valid, got %d/%d", series.Len(), series.ValidCount())
	}
	for _, p := range series.Points[4:8] {
		if p.Valid {
			t.Fatalf("expected gap to stay undefined, got %+v", p)
		}
	}
}

func TestNormalizeDownsampleWithGapIsUndefined(t *testing.T) {
	obs := make([]RawObservation, 0, 3)
	for _, i := range []int{0, 1, 3} {
		obs = append(obs, RawObservation{At: day.Add(time.Duration(i) * 15 * time.Minute), Value: 10})
	}
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: 15 * time.Minute, Observations: obs}

	series, err := NewNormalizer(WithGapTolerance(15*time.Minute)).Normalize(raw, Window{From: day, Until: day.Add(time.Hour)}, Target{Resolution: time.Hour})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Points[0].Valid {
		t.Fatalf("expected undefined hour, got %+v", series.Points[0])
	}
}

func TestNormalizeEmptyWindow(t *testing.T) {
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Observations: hourlyObservations(1, 2)}
	later := day.Add(48 * time.Hour)

	_, err := NewNormalizer().Normalize(raw, Window{From: later, Until: later.Add(time.Hour)}, Target{Resolution: time.Hour})
	if !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("expected incomplete data, got %v", err)
	}
}

func TestNormalizeOffGrid(t *testing.T) {
	obs := hourlyObservations(1, 2, 3)
	obs[1].At = obs[1].At.Add(10 * time.Minute)
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: time.Hour, Observations: obs}

	_, err := NewNormalizer().Normalize(raw, Window{From: day, Until: day.Add(3 * time.Hour)}, Target{Resolution: time.Hour})
	if !errors.Is(err, ErrUnevenSpacing) {
		t.Fatalf("expected uneven spacing, got %v", err)
	}
}

func TestNormalizeUnknownKind(t *testing.T) {
	raw := RawSeries{Kind: "VOLTAGE", Observations: hourlyObservations(1)}
	_, err := NewNormalizer().Normalize(raw, Window{From: day, Until: day.Add(time.Hour)}, Target{Resolution: time.Hour})
	if !errors.Is(err, ErrUnknownSeriesKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestNormalizeDSTShortDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	from := time.Date(2024, 3, 31, 0, 0, 0, 0, loc)
	until := time.Date(2024, 4, 1, 0, 0, 0, 0, loc)
	values := make([]float64, 23)
	raw := RawSeries{Kind: KindPrice, Unit: "EUR/MWh", Resolution: time.Hour}
	for i := range values {
		raw.Observations = append(raw.Observations, RawObservation{At: from.Add(time.Duration(i) * time.Hour), Value: float64(i)})
	}

	series, err := NewNormalizer().Normalize(raw, Window{From: from, Until: until}, Target{Resolution: 15 * time.Minute})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if series.Len() != 92 {
		t.Fatalf("expected 92 quarter hours on a 23h day, got %d", series.Len())
	}
}

func TestParseResolution(t *testing.T) {
	cases := map[string]time.Duration{
		"PT15M": 15 * time.Minute,
		"PT60M": time.Hour,
		"PT1H":  time.Hour,
		"P1D":   24 * time.Hour,
		"15m":   15 * time.Minute,
	}
	for input, want := range cases {
		got, err := ParseResolution(input)
		if err != nil {
			t.Fatalf("parse %s: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %s: expected %s, got %s", input, want, got)
		}
	}
	for _, bad := range []string{"", "P1M", "PT", "-5m", "abc"} {
		if _, err := ParseResolution(bad); !errors.Is(err, ErrInvalidResolution) {
			t.Fatalf("parse %q: expected invalid resolution, got %v", bad, err)
		}
	}
	if got := FormatResolution(15 * time.Minute); got != "PT15M" {
		t.Fatalf("format: expected PT15M, got %s", got)
	}
	if got := FormatResolution(time.Hour); got != "PT1H" {
		t.Fatalf("format: expected PT1H, got %s", got)
	}
}
