package calendar

import "time"

type monthDay struct {
	month time.Month
	day   int
}

// fixedHolidays are holidays falling on the same calendar date every year.
var fixedHolidays = map[CalendarID][]monthDay{
	TARGET: {{time.January, 1}, {time.May, 1}, {time.December, 25}, {time.December, 26}},
	USD:    {{time.January, 1}, {time.June, 19}, {time.July, 4}, {time.November, 11}, {time.December, 25}},
	GBP:    {{time.January, 1}, {time.December, 25}, {time.December, 26}},
	JPN: {
		{time.January, 1}, {time.January, 2}, {time.January, 3}, {time.February, 11}, {time.February, 23},
		{time.April, 29}, {time.May, 3}, {time.May, 4}, {time.May, 5}, {time.November, 3},
		{time.November, 23}, {time.December, 31},
	},
	KRW: {
		{time.January, 1}, {time.March, 1}, {time.May, 5}, {time.June, 6}, {time.August, 15},
		{time.October, 3}, {time.October, 9}, {time.December, 25}, {time.December, 31},
	},
}

// extraHolidays are moveable feasts and one-off closures keyed by YYYY-MM-DD.
var extraHolidays = map[CalendarID]map[string]struct{}{
	TARGET: set("2025-04-18", "2025-04-21", "2026-04-03", "2026-04-06", "2027-03-26", "2027-03-29"),
	USD: set(
		"2025-01-20", "2025-02-17", "2025-05-26", "2025-09-01", "2025-10-13", "2025-11-27",
		"2026-01-19", "2026-02-16", "2026-05-25", "2026-09-07", "2026-10-12", "2026-11-26",
		"2027-01-18", "2027-02-15", "2027-05-31", "2027-09-06", "2027-10-11", "2027-11-25",
	),
	GBP: set(
		"2025-04-18", "2025-04-21", "2025-05-05", "2025-05-26", "2025-08-25",
		"2026-04-03", "2026-04-06", "2026-05-04", "2026-05-25", "2026-08-31",
		"2027-03-26", "2027-03-29", "2027-05-03", "2027-05-31", "2027-08-30",
	),
	JPN: set(
		"2025-01-13", "2025-03-20", "2025-07-21", "2025-09-15", "2025-09-23", "2025-10-13",
		"2026-01-12", "2026-03-20", "2026-07-20", "2026-09-21", "2026-09-23", "2026-10-12",
	),
	KRW: set(
		"2025-01-28", "2025-01-29", "2025-01-30", "2025-05-06", "2025-10-06", "2025-10-07", "2025-10-08",
		"2026-02-16", "2026-02-17", "2026-02-18", "2026-05-25", "2026-09-24", "2026-09-25",
	),
}

func set(dates ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		m[d] = struct{}{}
	}
	return m
}
