package forecast

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientData is returned when a weekday has too little history to
// backtest.
var ErrInsufficientData = errors.New("insufficient data")

// MinBacktestDays is the number of days with positive revenue a weekday
// needs before any backtest is reported.
const MinBacktestDays = 3

// BacktestCheckpoints are the checkpoint hours replayed by Backtest.
var BacktestCheckpoints = [...]int{6, 9, 12, 15, 18, 21}

// BacktestRow is the realized error of the completion-ratio estimate at one
// checkpoint hour.
type BacktestRow struct {
	CheckpointHour int
	EffectiveHour  int
	SampleCount    int
	// MAPE is the mean absolute relative error.
	MAPE float64
	// Bias is the signed mean relative error; positive means over-forecast.
	Bias float64
}

// Backtest replays the end-of-day estimate against every historical day of
// ws.Weekday found in days, using the same baseline ws (in-sample).
func Backtest(days []DayProfile, ws *WeekdayStatistics, includeCurrentHour bool) ([]BacktestRow, error) {
	if ws == nil {
		return nil, fmt.Errorf("%w: no statistics", ErrInsufficientData)
	}

	var eligible []*DayProfile
	for i := range days {
		if days[i].Weekday == ws.Weekday && days[i].Total(Revenue) > 0 {
			eligible = append(eligible, &days[i])
		}
	}
	if len(eligible) < MinBacktestDays {
		return nil, fmt.Errorf("%w: %d %s(s) with revenue, need %d",
			ErrInsufficientData, len(eligible), ws.Weekday, MinBacktestDays)
	}

	rev := ws.Metric(Revenue)
	rows := make([]BacktestRow, 0, len(BacktestCheckpoints))
	for _, checkpoint := range BacktestCheckpoints {
		h := EffectiveHour(checkpoint, includeCurrentHour)
		cr50 := rev.Completion[h].P50
		if !isFinite(cr50) || cr50 <= 0 {
			continue
		}

		var absSum, sum float64
		n := 0
		for _, d := range eligible {
			soFar := d.SumThrough(Revenue, h)
			if soFar <= 0 {
				continue
			}
			actual := d.Total(Revenue)
			relErr := safeDiv(soFar/cr50-actual, actual)
			if !isFinite(relErr) {
				continue
			}
			absSum += math.Abs(relErr)
			sum += relErr
			n++
		}
		if n == 0 {
			continue
		}
		rows = append(rows, BacktestRow{
			CheckpointHour: checkpoint,
			EffectiveHour:  h,
			SampleCount:    n,
			MAPE:           absSum / float64(n),
			Bias:           sum / float64(n),
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no checkpoint produced a sample for %s", ErrInsufficientData, ws.Weekday)
	}
	return rows, nil
}
