package features

import (
	"time"

	"github.com/jorge-redcloud/demand-planning/internal/contracts"
)

// CalendarFlags are derived from the ISO week alone, never from the target
type CalendarFlags struct {
	WeekOfYear      int
	IsMonthEnd      bool
	IsQuarterEnd    bool
	IsPromoWeek     bool
	IsHolidaySeason bool
}

// Calendar computes the flags of one ISO week.
// A week is month-end (quarter-end) when one of its days is the last day of a month (quarter).
func Calendar(yw contracts.YearWeek, promoWeek int) CalendarFlags {
	flags := CalendarFlags{
		WeekOfYear:      yw.Week,
		IsPromoWeek:     yw.Week == promoWeek,
		IsHolidaySeason: yw.Week >= 45 || yw.Week <= 2,
	}

	day := yw.Monday()
	for i := 0; i < 7; i++ {
		if lastDayOfMonth(day) {
			flags.IsMonthEnd = true
			if day.Month()%3 == 0 {
				flags.IsQuarterEnd = true
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return flags
}

func lastDayOfMonth(d time.Time) bool {
	return d.AddDate(0, 0, 1).Day() == 1
}
