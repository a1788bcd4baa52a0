package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TenorToYears converts tenor strings like "1W", "3M", "10Y" to ACT/365F year fractions.
func TenorToYears(tenor string) (float64, error) {
	n, unit, err := splitTenor(tenor)
	if err != nil {
		return 0, err
	}
	switch unit {
	case 'D':
		return float64(n) / 365.0, nil
	case 'W':
		return float64(n) * 7.0 / 365.0, nil
	case 'M':
		return float64(n) / 12.0, nil
	default:
		return float64(n), nil
	}
}

// TenorToDate rolls origin forward by a tenor. Month and year tenors use EDATE semantics.
func TenorToDate(origin time.Time, tenor string) (time.Time, error) {
	n, unit, err := splitTenor(tenor)
	if err != nil {
		return time.Time{}, err
	}
	switch unit {
	case 'D':
		return origin.AddDate(0, 0, n), nil
	case 'W':
		return origin.AddDate(0, 0, 7*n), nil
	case 'M':
		return AddMonth(origin, n), nil
	default:
		return AddMonth(origin, 12*n), nil
	}
}

func splitTenor(tenor string) (int, byte, error) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	if len(t) < 2 {
		return 0, 0, fmt.Errorf("TenorToYears: invalid tenor %q", tenor)
	}
	unit := t[len(t)-1]
	switch unit {
	case 'D', 'W', 'M', 'Y':
	default:
		return 0, 0, fmt.Errorf("TenorToYears: unknown tenor unit in %q", tenor)
	}
	n, err := strconv.Atoi(t[:len(t)-1])
	if err != nil {
		return 0, 0, fmt.Errorf("TenorToYears: invalid tenor %q: %w", tenor, err)
	}
	return n, unit, nil
}
