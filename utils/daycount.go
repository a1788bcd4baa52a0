package utils

import (
	"math"
	"time"
)

// DayCount names a year-fraction convention.
type DayCount string

const (
	Act360  DayCount = "ACT/360"
	Act365F DayCount = "ACT/365F"
	Thirty  DayCount = "30/360"
	ThirtyE DayCount = "30E/360"
)

// YearFraction computes the year fraction between two dates using the specified day count convention.
// Unknown conventions fall back to ACT/365F, which is also the time basis of every vol surface.
func YearFraction(start, end time.Time, convention DayCount) float64 {
	switch convention {
	case Act360:
		return Days(start, end) / 360.0
	case Act365F:
		return Days(start, end) / 365.0
	case ThirtyE, Thirty:
		// D1 and D2 are capped at 30
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return Days(start, end) / 365.0
	}
}

// DateFromYearFraction inverts an ACT-based year fraction back to a calendar date,
// rounding to the nearest whole day. 30/360 bases are treated as ACT/365F.
func DateFromYearFraction(origin time.Time, t float64, convention DayCount) time.Time {
	basis := 365.0
	if convention == Act360 {
		basis = 360.0
	}
	days := int(math.Round(t * basis))
	return origin.AddDate(0, 0, days)
}
