package utils

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// SortDates sorts a slice of time.Time in ascending order.
func SortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}

// IsSortedDates reports whether dates are strictly increasing.
func IsSortedDates(dates []time.Time) bool {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return false
		}
	}
	return true
}

// ParseDate converts YYYY-MM-DD to time.Time in UTC.
func ParseDate(strDate string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %w", err)
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Days returns the number of calendar days between two dates as a float.
func Days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// AddMonth behaves like Excel's EDATE, avoiding Go's month normalization surprises.
func AddMonth(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	if target.Month() == t.AddDate(0, months, 0).Month() {
		return t.AddDate(0, months, 0)
	}

	d := t.AddDate(0, months, 0)
	origMonth := d.Month()
	for d.Month() == origMonth {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// RoundTo rounds a float to the specified decimal places.
func RoundTo(val float64, decimals uint32) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}

// BracketIndex returns i such that xs[i] <= x <= xs[i+1] for a sorted slice of at least
// two abscissae. Targets outside the range return the nearest boundary pair.
func BracketIndex(xs []float64, x float64) int {
	if len(xs) < 2 {
		panic("BracketIndex: need at least 2 points")
	}
	i := sort.SearchFloat64s(xs, x)
	if i <= 0 {
		return 0
	}
	if i >= len(xs) {
		return len(xs) - 2
	}
	return i - 1
}
