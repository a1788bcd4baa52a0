package calendar

import "time"

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	TARGET CalendarID = "TARGET"
	JPN    CalendarID = "JPN"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
	GBP    CalendarID = "GBP"
	// WeekendsOnly treats every weekday as a business day.
	WeekendsOnly CalendarID = "WEEKENDS"
)

// ForCurrency returns the settlement calendar of an ISO currency code.
func ForCurrency(ccy string) CalendarID {
	switch ccy {
	case "EUR":
		return TARGET
	case "JPY":
		return JPN
	case "USD":
		return USD
	case "KRW":
		return KRW
	case "GBP":
		return GBP
	default:
		return WeekendsOnly
	}
}

func isHoliday(cal CalendarID, t time.Time) bool {
	if _, ok := extraHolidays[cal][t.Format("2006-01-02")]; ok {
		return true
	}
	rules, ok := fixedHolidays[cal]
	if !ok {
		return false
	}
	for _, r := range rules {
		if t.Month() == r.month && t.Day() == r.day {
			return true
		}
	}
	return false
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// IsJointBusinessDay reports whether t is a business day in every calendar.
func IsJointBusinessDay(t time.Time, cals ...CalendarID) bool {
	for _, c := range cals {
		if !IsBusinessDay(c, t) {
			return false
		}
	}
	return true
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month preservation).
func AdjustFollowing(cal CalendarID, t time.Time) time.Time {
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// AddJointBusinessDays advances n days that are business days in every calendar, then rolls
// forward to the next joint business day if the start itself is not one.
func AddJointBusinessDays(t time.Time, n int, cals ...CalendarID) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if IsJointBusinessDay(t, cals...) {
			n--
		}
	}
	for !IsJointBusinessDay(t, cals...) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
