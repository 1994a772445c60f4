package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// formats is the ordered list of accepted date layouts. The first layout
// that parses wins; ties break on position in this list, never on numeric
// plausibility.
var formats = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
}

// Parse turns a textual date into a canonical calendar date (midnight UTC,
// no time component), applying century correction and the future-date rule.
func Parse(text string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(text)
	for _, layout := range formats {
		d, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return Normalize(d, now)
	}
	return time.Time{}, fmt.Errorf("dates: %q: %w", text, domain.ErrInvalidDateFormat)
}

// Normalize applies century correction and the future-date rule to an
// already-typed date. Two-digit-year parses centred on the wrong century
// come out below 1900 and get bumped into the 2000s.
func Normalize(d time.Time, now time.Time) (time.Time, error) {
	year := d.Year()
	if year < 1900 {
		year += 2000
	}
	day := time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.After(today) {
		return time.Time{}, fmt.Errorf("dates: %s is after today: %w",
			day.Format("2006-01-02"), domain.ErrFutureDate)
	}
	return day, nil
}
