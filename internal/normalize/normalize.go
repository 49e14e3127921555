// Package normalize converts loosely formatted dates, times and cabin
// classes into the canonical forms carried by models.TravelRequest.
//
// Every function is total: input that cannot be understood is returned
// unchanged (or mapped to a default) instead of producing an error.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/steveharianto/Flightly/internal/models"
)

// monthsByName maps full month names and their three-letter abbreviations.
var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 25)
	for month := time.January; month <= time.December; month++ {
		name := strings.ToLower(month.String())
		m[name] = month
		m[name[:3]] = month
	}
	m["sept"] = time.September
	return m
}()

const monthAlternation = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	isoDateRE   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	slashDateRE = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
	dashDateRE  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{2}|\d{4})$`)

	// "June 15", "Jun 15th", "June 15, 2026", "June 15th 2026"
	monthDayRE = regexp.MustCompile(`^(` + monthAlternation + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	// "15 June", "15th of June", "15 June 2026"
	dayMonthRE = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlternation + `)\.?(?:,?\s+(\d{4}))?$`)

	clockRE    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	meridiemRE = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
	bareHourRE = regexp.MustCompile(`^(\d{1,2})$`)

	hoursRE   = regexp.MustCompile(`(\d+)\s*hours?`)
	minutesRE = regexp.MustCompile(`(\d+)\s*minutes?`)
)

// MonthByName resolves a full or abbreviated English month name.
func MonthByName(name string) (time.Month, bool) {
	m, ok := monthsByName[strings.ToLower(strings.TrimSuffix(name, "."))]
	return m, ok
}

// FormatDate renders t as "D Month YYYY".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), t.Month(), t.Year())
}

// Date normalizes s into "D Month YYYY". Dates without a year use the year
// of now and move to the following year when they fall before today.
func Date(s string, now time.Time) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	lower := strings.ToLower(trimmed)

	if m := isoDateRE.FindStringSubmatch(lower); m != nil {
		return formatOr(s, atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := slashDateRE.FindStringSubmatch(lower); m != nil {
		// US convention: month/day/year
		return formatOr(s, expandYear(m[3]), atoi(m[1]), atoi(m[2]))
	}
	if m := dashDateRE.FindStringSubmatch(lower); m != nil {
		// day-month-year
		return formatOr(s, expandYear(m[3]), atoi(m[2]), atoi(m[1]))
	}

	var monthName, dayText, yearText string
	if m := monthDayRE.FindStringSubmatch(lower); m != nil {
		monthName, dayText, yearText = m[1], m[2], m[3]
	} else if m := dayMonthRE.FindStringSubmatch(lower); m != nil {
		monthName, dayText, yearText = m[2], m[1], m[3]
	} else {
		return s
	}

	month, ok := MonthByName(monthName)
	if !ok {
		return s
	}
	day := atoi(dayText)
	if yearText != "" {
		return formatOr(s, atoi(yearText), int(month), day)
	}

	t, ok := calendarDate(now.Year(), int(month), day, now.Location())
	if !ok {
		return s
	}
	if t.Before(startOfDay(now)) {
		t = t.AddDate(1, 0, 0)
		if t.Day() != day {
			// 29 February rolled into a non-leap year
			return s
		}
	}
	return FormatDate(t)
}

// Time normalizes s into 24-hour "HH:MM". Unknown formats pass through.
func Time(s string) string {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return s
	}

	if m := clockRE.FindStringSubmatch(trimmed); m != nil {
		return fmt.Sprintf("%02d:%02d", atoi(m[1]), atoi(m[2]))
	}
	if m := meridiemRE.FindStringSubmatch(trimmed); m != nil {
		minutes := 0
		if m[2] != "" {
			minutes = atoi(m[2])
		}
		return fmt.Sprintf("%02d:%02d", To24Hour(atoi(m[1]), m[3]), minutes)
	}
	if m := bareHourRE.FindStringSubmatch(trimmed); m != nil {
		return fmt.Sprintf("%02d:00", atoi(m[1]))
	}
	return s
}

// To24Hour converts a 12-hour clock hour with an "am"/"pm" marker.
// An empty marker leaves the hour untouched.
func To24Hour(hour int, meridiem string) int {
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

// Class maps free text onto the closed set of cabin classes.
func Class(s string) models.Class {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case lower == "":
		return models.ClassEconomy
	case strings.Contains(lower, "business"):
		return models.ClassBusiness
	case strings.Contains(lower, "first"):
		return models.ClassFirst
	case strings.Contains(lower, "premium"), strings.Contains(lower, "econ+"),
		strings.Contains(lower, "economy plus"):
		return models.ClassPremiumEconomy
	default:
		return models.ClassEconomy
	}
}

// ArrivalTime adds a "N hours M minutes" duration to a departure time.
// Missing hour or minute parts default to 2 hours and 30 minutes.
func ArrivalTime(departure, duration string) string {
	if strings.TrimSpace(departure) == "" {
		return ""
	}
	m := clockRE.FindStringSubmatch(Time(departure))
	if m == nil {
		return ""
	}
	hours, minutes := atoi(m[1]), atoi(m[2])

	durHours, durMinutes := 2, 30
	if dm := hoursRE.FindStringSubmatch(duration); dm != nil {
		durHours = atoi(dm[1])
	}
	if dm := minutesRE.FindStringSubmatch(duration); dm != nil {
		durMinutes = atoi(dm[1])
	}

	total := (hours*60 + minutes + durHours*60 + durMinutes) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// TitleCase capitalises every word of s.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}

func formatOr(orig string, year, month, day int) string {
	t, ok := calendarDate(year, month, day, time.UTC)
	if !ok {
		return orig
	}
	return FormatDate(t)
}

// calendarDate builds a date and rejects values time.Date would roll over.
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func expandYear(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		return 2000 + y
	}
	return y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
