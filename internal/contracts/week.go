package contracts

import (
	"fmt"
	"time"
)

// YearWeek is an ISO-8601 week (YYYY-Www)
// ⭐ SSOT: 주 단위 키는 항상 ISO year를 사용 (달력 year 아님)
type YearWeek struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// YearWeekOf returns the ISO week containing t
func YearWeekOf(t time.Time) YearWeek {
	y, w := t.ISOWeek()
	return YearWeek{Year: y, Week: w}
}

// ParseYearWeek parses "2024-W05"
func ParseYearWeek(s string) (YearWeek, error) {
	var yw YearWeek
	if _, err := fmt.Sscanf(s, "%d-W%d", &yw.Year, &yw.Week); err != nil {
		return YearWeek{}, fmt.Errorf("invalid year_week %q: %w", s, err)
	}
	if yw.Week < 1 || yw.Week > 53 {
		return YearWeek{}, fmt.Errorf("invalid year_week %q: week out of range", s)
	}
	// week 53 only exists in long years
	if YearWeekOf(yw.Monday()) != yw {
		return YearWeek{}, fmt.Errorf("invalid year_week %q: no such ISO week", s)
	}
	return yw, nil
}

// String formats as YYYY-Www
func (yw YearWeek) String() string {
	return fmt.Sprintf("%04d-W%02d", yw.Year, yw.Week)
}

// IsZero reports whether the week is unset
func (yw YearWeek) IsZero() bool {
	return yw.Year == 0 && yw.Week == 0
}

// Monday returns the first day of the ISO week (UTC)
func (yw YearWeek) Monday() time.Time {
	// Jan 4th is always in week 1
	jan4 := time.Date(yw.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := int(jan4.Weekday()+6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (yw.Week-1)*7)
}

// Sunday returns the last day of the ISO week (UTC)
func (yw YearWeek) Sunday() time.Time {
	return yw.Monday().AddDate(0, 0, 6)
}

// Add moves k weeks forward (negative k moves back)
func (yw YearWeek) Add(k int) YearWeek {
	return YearWeekOf(yw.Monday().AddDate(0, 0, 7*k))
}

// Prev returns the week k weeks earlier
func (yw YearWeek) Prev(k int) YearWeek {
	return yw.Add(-k)
}

// Less orders weeks chronologically
func (yw YearWeek) Less(other YearWeek) bool {
	if yw.Year != other.Year {
		return yw.Year < other.Year
	}
	return yw.Week < other.Week
}

// After reports whether yw is strictly later than other
func (yw YearWeek) After(other YearWeek) bool {
	return other.Less(yw)
}

// WeeksBetween returns the number of weeks from yw to other (other - yw)
func (yw YearWeek) WeeksBetween(other YearWeek) int {
	days := other.Monday().Sub(yw.Monday()).Hours() / 24
	return int(days / 7)
}

// MarshalText implements encoding.TextMarshaler. The zero week encodes as "".
func (yw YearWeek) MarshalText() ([]byte, error) {
	if yw.IsZero() {
		return []byte{}, nil
	}
	return []byte(yw.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (yw *YearWeek) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*yw = YearWeek{}
		return nil
	}
	parsed, err := ParseYearWeek(string(b))
	if err != nil {
		return err
	}
	*yw = parsed
	return nil
}
