package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoForecast is returned when the inputs or the weekday baseline cannot
// support an estimate.
var ErrNoForecast = errors.New("no forecast")

const (
	pacingThreshold     = 0.05
	trafficThreshold    = 0.08
	efficiencyThreshold = 0.10
)

// Pacing is the verdict comparing revenue so far with the weekday baseline.
type Pacing string

const (
	PacingAhead  Pacing = "ahead"
	PacingOnPace Pacing = "on pace"
	PacingBehind Pacing = "behind"
)

// Tone is the display sentiment attached to verdicts and warnings.
type Tone string

const (
	ToneGood    Tone = "good"
	ToneNeutral Tone = "neutral"
	ToneBad     Tone = "bad"
)

// Tone maps the verdict to its display sentiment.
func (p Pacing) Tone() Tone {
	switch p {
	case PacingAhead:
		return ToneGood
	case PacingBehind:
		return ToneBad
	default:
		return ToneNeutral
	}
}

// Label is the human readable verdict.
func (p Pacing) Label() string {
	switch p {
	case PacingAhead:
		return "Ahead of pace"
	case PacingBehind:
		return "Behind pace"
	default:
		return "On pace"
	}
}

// ClassifyPacing turns a relative delta into a verdict. The bounds are
// strict: exactly +5% is still on pace. Non-finite input is on pace.
func ClassifyPacing(deltaPct float64) Pacing {
	switch {
	case !isFinite(deltaPct):
		return PacingOnPace
	case deltaPct > pacingThreshold:
		return PacingAhead
	case deltaPct < -pacingThreshold:
		return PacingBehind
	default:
		return PacingOnPace
	}
}

// EffectiveHour is the last hour whose data counts as complete.
func EffectiveHour(checkpointHour int, includeCurrentHour bool) int {
	if includeCurrentHour {
		return checkpointHour
	}
	return max(0, checkpointHour-1)
}

// Query is a forecast request. SoFar.Revenue must be positive; the traffic
// fields are optional and ignored unless positive and finite.
type Query struct {
	CheckpointHour     int
	IncludeCurrentHour bool
	SoFar              HourlyMetrics
}

// Direction labels which side of the baseline an observation falls on.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// WarningKind separates traffic volume checks from efficiency checks.
type WarningKind string

const (
	WarningTraffic    WarningKind = "traffic"
	WarningEfficiency WarningKind = "efficiency"
)

// Warning is an advisory anomaly; it never changes the estimate.
type Warning struct {
	Kind WarningKind
	// Metric is the traffic metric checked, or the denominator of the
	// efficiency ratio (Sessions for revenue per session, Clicks for
	// revenue per click).
	Metric       MetricKind
	Direction    Direction
	DeviationPct float64
	Observed     float64
	Expected     float64
	Message      string
}

// Tone is bad for shortfalls and good for surpluses.
func (w Warning) Tone() Tone {
	if w.Direction == Below {
		return ToneBad
	}
	return ToneGood
}

// HourExpectation is one row of the full-day expectation table.
type HourExpectation struct {
	Hour int

	CumulativeRevenue float64
	HourlyRevenue     float64
	CumulativeLow     float64
	CumulativeHigh    float64
	HourlyLow         float64
	HourlyHigh        float64

	CumulativeImpressions float64
	CumulativeClicks      float64
	CumulativeSessions    float64

	// Past marks hours at or before the effective hour, Current the effective hour itself.
	Past    bool
	Current bool
}

// Result is a single end-of-day projection.
type Result struct {
	Weekday        time.Weekday
	CheckpointHour int
	EffectiveHour  int

	RevenueSoFar float64
	EOD          float64
	Low          float64
	High         float64

	ExpectedByNow float64
	Delta         float64
	DeltaPct      float64
	Pacing        Pacing

	Warnings []Warning
	Hours    [HoursPerDay]HourExpectation
}

// Forecast projects end-of-day revenue for the weekday described by ws.
// It returns ErrNoForecast when revenue so far is not a positive finite
// number or when the weekday has no usable completion median at the
// effective hour.
func Forecast(ws *WeekdayStatistics, q Query) (*Result, error) {
	if ws == nil {
		return nil, fmt.Errorf("%w: no statistics", ErrNoForecast)
	}
	if !provided(q.SoFar.Revenue) {
		return nil, fmt.Errorf("%w: revenue so far must be a positive number", ErrNoForecast)
	}

	checkpoint := min(max(q.CheckpointHour, 0), HoursPerDay-1)
	h := EffectiveHour(checkpoint, q.IncludeCurrentHour)

	rev := ws.Metric(Revenue)
	cr := rev.Completion[h]
	if !isFinite(cr.P50) || cr.P50 <= 0 {
		return nil, fmt.Errorf("%w: no completion baseline for %s at hour %d", ErrNoForecast, ws.Weekday, h)
	}

	soFar := q.SoFar.Revenue
	res := &Result{
		Weekday:        ws.Weekday,
		CheckpointHour: checkpoint,
		EffectiveHour:  h,
		RevenueSoFar:   soFar,
		EOD:            soFar / cr.P50,
		// A higher completion fraction means a smaller projected total, so
		// the upper quartile bounds the low end and vice versa.
		Low:  soFar / cr.P75,
		High: soFar / cr.P25,
	}

	res.ExpectedByNow = rev.Daily.Mean * cr.P50
	res.Delta = soFar - res.ExpectedByNow
	res.DeltaPct = safeDiv(res.Delta, res.ExpectedByNow)
	res.Pacing = ClassifyPacing(res.DeltaPct)

	res.Warnings = warnings(ws, q.SoFar, h)
	res.Hours = expectationTable(ws, res.EOD, h)
	return res, nil
}

func provided(v float64) bool {
	return isFinite(v) && v > 0
}

func warnings(ws *WeekdayStatistics, soFar HourlyMetrics, h int) []Warning {
	var out []Warning

	for _, k := range TrafficMetrics {
		observed := soFar.Get(k)
		if !provided(observed) {
			continue
		}
		ms := ws.Metric(k)
		expected := ms.Daily.Mean * ms.Completion[h].P50
		dev := safeDiv(observed-expected, expected)
		if !isFinite(dev) || math.Abs(dev) < trafficThreshold {
			continue
		}
		dir := direction(dev)
		out = append(out, Warning{
			Kind:         WarningTraffic,
			Metric:       k,
			Direction:    dir,
			DeviationPct: dev,
			Observed:     observed,
			Expected:     expected,
			Message: fmt.Sprintf("%s are %s normal by %.1f%% for this weekday at hour %d.",
				k, dir, math.Abs(dev*100), h),
		})
	}

	revMean := ws.Metric(Revenue).Daily.Mean
	for _, eff := range [...]struct {
		denom MetricKind
		label string
	}{
		{Sessions, "session"},
		{Clicks, "click"},
	} {
		denom := soFar.Get(eff.denom)
		if !provided(denom) {
			continue
		}
		observed := soFar.Revenue / denom
		expected := safeDiv(revMean, ws.Metric(eff.denom).Daily.Mean)
		diff := safeDiv(observed-expected, expected)
		if !isFinite(diff) || math.Abs(diff) < efficiencyThreshold {
			continue
		}
		dir := direction(diff)
		word := "higher"
		if dir == Below {
			word = "lower"
		}
		out = append(out, Warning{
			Kind:         WarningEfficiency,
			Metric:       eff.denom,
			Direction:    dir,
			DeviationPct: diff,
			Observed:     observed,
			Expected:     expected,
			Message: fmt.Sprintf("Revenue per %s is %s than this weekday's average by %.1f%%.",
				eff.label, word, math.Abs(diff*100)),
		})
	}
	return out
}

func direction(dev float64) Direction {
	if dev < 0 {
		return Below
	}
	return Above
}

func expectationTable(ws *WeekdayStatistics, eod float64, effective int) [HoursPerDay]HourExpectation {
	var rows [HoursPerDay]HourExpectation
	rev := ws.Metric(Revenue)
	var cumImpr, cumClicks, cumSessions float64

	for hh := 0; hh < HoursPerDay; hh++ {
		cum := rev.Completion[hh]
		share := rev.Share[hh]

		cumImpr += finiteOrZero(ws.Metric(Impressions).Hourly[hh].Mean)
		cumClicks += finiteOrZero(ws.Metric(Clicks).Hourly[hh].Mean)
		cumSessions += finiteOrZero(ws.Metric(Sessions).Hourly[hh].Mean)

		rows[hh] = HourExpectation{
			Hour:              hh,
			CumulativeRevenue: eod * cum.P50,
			HourlyRevenue:     eod * share.P50,
			// ±1σ bands are clamped to [0,1] after the offset is applied.
			CumulativeLow:         eod * clamp01(cum.Mean-finiteOrZero(cum.Std)),
			CumulativeHigh:        eod * clamp01(cum.Mean+finiteOrZero(cum.Std)),
			HourlyLow:             eod * clamp01(share.Mean-finiteOrZero(share.Std)),
			HourlyHigh:            eod * clamp01(share.Mean+finiteOrZero(share.Std)),
			CumulativeImpressions: cumImpr,
			CumulativeClicks:      cumClicks,
			CumulativeSessions:    cumSessions,
			Past:                  hh <= effective,
			Current:               hh == effective,
		}
	}
	return rows
}

// clamp01 keeps NaN as NaN.
func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func finiteOrZero(x float64) float64 {
	if isFinite(x) {
		return x
	}
	return 0
}
