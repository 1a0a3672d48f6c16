package analytics

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Point は日時つきの数量です。
type Point struct {
	At       time.Time
	Quantity decimal.Decimal
}

// Period は月単位の集計値です。
type Period struct {
	Start    time.Time
	Quantity float64
}

// Forecast は需要予測の結果です。
type Forecast struct {
	History   []Period
	Slope     float64
	Intercept float64
	Values    []Period
}

// BucketMonthly は from から to までの各月に数量を集計します。該当のない月は 0 です。
func BucketMonthly(points []Point, from, to time.Time) []Period {
	start := monthStart(from)
	end := monthStart(to)
	if end.Before(start) {
		return nil
	}

	var periods []Period
	index := make(map[time.Time]int)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		index[m] = len(periods)
		periods = append(periods, Period{Start: m})
	}
	for _, p := range points {
		i, ok := index[monthStart(p.At)]
		if !ok {
			continue
		}
		periods[i].Quantity += p.Quantity.InexactFloat64()
	}
	return periods
}

// ForecastLinear は最小二乗法の直線で次の periods か月を予測します。
// 予測値は 0 未満になりません。2 点未満の履歴では平均値を横ばいで返します。
func ForecastLinear(history []Period, periods int) *Forecast {
	f := &Forecast{History: history}
	n := len(history)

	if n < 2 {
		mean := 0.0
		if n == 1 {
			mean = history[0].Quantity
		}
		f.Intercept = mean
	} else {
		var sumX, sumY, sumXY, sumXX float64
		for i, p := range history {
			x := float64(i)
			sumX += x
			sumY += p.Quantity
			sumXY += x * p.Quantity
			sumXX += x * x
		}
		nf := float64(n)
		f.Slope = (nf*sumXY - sumX*sumY) / (nf*sumXX - sumX*sumX)
		f.Intercept = (sumY - f.Slope*sumX) / nf
	}

	var next time.Time
	if n > 0 {
		next = history[n-1].Start.AddDate(0, 1, 0)
	}
	for i := 0; i < periods; i++ {
		value := f.Intercept + f.Slope*float64(n+i)
		f.Values = append(f.Values, Period{
			Start:    next.AddDate(0, i, 0),
			Quantity: math.Max(0, value),
		})
	}
	return f
}

func monthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
