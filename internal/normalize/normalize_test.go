package normalize

import (
	"testing"
	"time"

	"github.com/steveharianto/Flightly/internal/models"
)

var refNow = time.Date(2026, time.October, 17, 15, 4, 0, 0, time.UTC)

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"iso", "2025-03-01", "1 March 2025"},
		{"iso single digits", "2025-3-1", "1 March 2025"},
		{"us slash two digit year", "1/3/25", "3 January 2025"},
		{"us slash four digit year", "12/25/2026", "25 December 2026"},
		{"dash day month year", "1-3-25", "1 March 2025"},
		{"month day future this year", "December 5th", "5 December 2026"},
		{"month day past rolls forward", "June 15", "15 June 2027"},
		{"abbreviated month", "Feb 28th", "28 February 2027"},
		{"four letter september", "Sept 3 2026", "3 September 2026"},
		{"may has no abbreviation", "May 1st, 2026", "1 May 2026"},
		{"today does not roll", "October 17", "17 October 2026"},
		{"month day with year", "June 15, 2025", "15 June 2025"},
		{"day of month", "15th of November", "15 November 2026"},
		{"canonical form is stable", "15 June 2027", "15 June 2027"},
		{"invalid calendar date", "2025-02-30", "2025-02-30"},
		{"unparseable", "sometime soon", "sometime soon"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Date(tt.in, refNow); got != tt.want {
				t.Errorf("Date(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5pm", "17:00"},
		{"12am", "00:00"},
		{"12pm", "12:00"},
		{"2:30 PM", "14:30"},
		{"9:05am", "09:05"},
		{"7:15", "07:15"},
		{"14:45", "14:45"},
		{"7", "07:00"},
		{"noon", "noon"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Time(tt.in); got != tt.want {
			t.Errorf("Time(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClass(t *testing.T) {
	tests := []struct {
		in   string
		want models.Class
	}{
		{"business", models.ClassBusiness},
		{"Business Class", models.ClassBusiness},
		{"FIRST", models.ClassFirst},
		{"premium economy", models.ClassPremiumEconomy},
		{"econ+", models.ClassPremiumEconomy},
		{"Economy Plus", models.ClassPremiumEconomy},
		{"coach", models.ClassEconomy},
		{"", models.ClassEconomy},
	}
	for _, tt := range tests {
		if got := Class(tt.in); got != tt.want {
			t.Errorf("Class(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArrivalTime(t *testing.T) {
	tests := []struct {
		name      string
		departure string
		duration  string
		want      string
	}{
		{"default duration", "10:00", "", "12:30"},
		{"minute carry", "10:45", "1 hour 30 minutes", "12:15"},
		{"wraps midnight", "23:00", "2 hours 45 minutes", "01:45"},
		{"meridiem departure", "5pm", "3 hours 30 minutes", "20:30"},
		{"hours only keeps default minutes", "08:00", "4 hours", "12:30"},
		{"empty departure", "", "1 hour 30 minutes", ""},
		{"unparseable departure", "soon", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArrivalTime(tt.departure, tt.duration); got != tt.want {
				t.Errorf("ArrivalTime(%q, %q) = %q, want %q", tt.departure, tt.duration, got, tt.want)
			}
		})
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("new  york city"); got != "New York City" {
		t.Errorf("TitleCase = %q", got)
	}
}
