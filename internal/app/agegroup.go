package app

import (
	"fmt"
	"time"

	"github.com/topspinj/find-my-daycare/internal/domain"
)

// Licensing band boundaries in whole months. Lower bound inclusive, upper
// exclusive: a child exactly 18 months old is a toddler, not an infant.
const (
	toddlerMinMonths      = 18
	preschoolMinMonths    = 30
	kindergartenMinMonths = 48
	schoolAgeMinMonths    = 72
)

// AgeInMonths returns the age in whole calendar months between birthdate and
// reference date. A month only counts once the day-of-month has been reached,
// so a child born on the 15th turns one month old on the 15th of the next
// month. Time-of-day and timezone are ignored.
func AgeInMonths(birthdate, reference time.Time) (int, error) {
	b := dateOnly(birthdate)
	r := dateOnly(reference)
	if b.After(r) {
		return 0, fmt.Errorf("%w: birthdate %s is in the future", domain.ErrInvalidInput, b.Format("2006-01-02"))
	}
	months := (r.Year()-b.Year())*12 + int(r.Month()) - int(b.Month())
	if r.Day() < b.Day() {
		months--
	}
	return months, nil
}

// MapAgeGroup derives the licensing age group for a child as of the reference
// date. Pure function of its arguments.
func MapAgeGroup(birthdate, reference time.Time) (domain.AgeGroup, error) {
	months, err := AgeInMonths(birthdate, reference)
	if err != nil {
		return 0, err
	}
	switch {
	case months < toddlerMinMonths:
		return domain.Infant, nil
	case months < preschoolMinMonths:
		return domain.Toddler, nil
	case months < kindergartenMinMonths:
		return domain.Preschool, nil
	case months < schoolAgeMinMonths:
		return domain.Kindergarten, nil
	default:
		return domain.SchoolAge, nil
	}
}

// FormatAge renders an age in months for display, e.g. "2 years, 3 months".
func FormatAge(months int) string {
	if months < 12 {
		return fmt.Sprintf("%d months", months)
	}
	return fmt.Sprintf("%d years, %d months", months/12, months%12)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
