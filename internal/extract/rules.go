package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/normalize"
)

// Field names a TravelRequest field a rule fills.
type Field string

const (
	FieldFrom       Field = "from"
	FieldTo         Field = "to"
	FieldDate       Field = "date"
	FieldTime       Field = "time"
	FieldName       Field = "name"
	FieldPassengers Field = "passengers"
	FieldClass      Field = "class"
	FieldReturnDate Field = "returnDate"
	FieldReturnTime Field = "returnTime"
)

// Scope selects which part of the input a rule searches.
type Scope string

const (
	// ScopeOutbound is the input with the return clause blanked out.
	ScopeOutbound Scope = "outbound"
	// ScopeReturn is the clause following "return(ing) on".
	ScopeReturn Scope = "return"
)

// Rule is one row of the extraction table. Rules for the same field are
// tried in table order and the first one that applies wins.
type Rule struct {
	Field   Field
	Name    string
	Scope   Scope
	Pattern *regexp.Regexp

	apply func(x *extraction, text string, re *regexp.Regexp) bool
}

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december`

// phraseTail ends a place or name phrase: the next marker word,
// punctuation, or the end of the input.
const phraseTail = `\s*(?:\b(?:to|from|and|on|at|in the|tomorrow|next|for|returning|return|with|departing|leaving|starting|origin|destination|arriving|going|flying|by|via)\b|[,.!?;@]|$)`

var (
	returnClauseRE = regexp.MustCompile(`\breturn(?:ing)?\s+on\s+([^,.!?;]*)`)
	phraseRE       = regexp.MustCompile(`^(\p{L}[\p{L}\s]*?)` + phraseTail)
	articleRE      = regexp.MustCompile(`^(?:the|a|an)\s+`)
	spacesRE       = regexp.MustCompile(`\s+`)
)

var (
	fromMarkerRE = regexp.MustCompile(`\b(?:departing\s+from|leaving\s+from|starting\s+from|from|origin(?:\s+is)?)\s+`)
	toMarkerRE   = regexp.MustCompile(`\b(?:destination(?:\s+is)?|arriving\s+(?:at|in)|going\s+to|flying\s+to|to)\s+`)

	monthDayRE = regexp.MustCompile(`\b(` + monthNames + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRE = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthNames + `)\b`)
	tomorrowRE = regexp.MustCompile(`\btomorrow\b`)
	nextWeekRE = regexp.MustCompile(`\bnext\s+week\b`)

	timeRE = regexp.MustCompile(`(?:\bat|@)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

	myNameRE        = regexp.MustCompile(`\bmy\s+name\s+is\s+(\p{L}[\p{L}\s]*?)` + phraseTail)
	forNameRE       = regexp.MustCompile(`\bfor\s+(\p{L}[\p{L}\s]*?)` + phraseTail)
	passengerNameRE = regexp.MustCompile(`\b(?:passenger|traveler|traveller|customer)\s+name\s*(?:is\s+|:\s*)(\p{L}[\p{L}\s]*?)` + phraseTail)

	passengersRE = regexp.MustCompile(`\b(\d+|one|two|three|four|five|six|seven|eight|nine)\s+(?:passengers?|persons?|people|travell?ers?|adults?)\b`)

	businessRE = regexp.MustCompile(`\bbusiness\s+(?:class|cabin)\b|\b(?:fly|flying|in)\s+business\b`)
	firstRE    = regexp.MustCompile(`\bfirst\s+class\b`)
	premiumRE  = regexp.MustCompile(`\bpremium(?:\s+economy)?\b|\beconomy\s+plus\b|\becon\+`)
	economyRE  = regexp.MustCompile(`\beconomy\b|\bcoach\b`)
)

var spelledNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9,
}

// travelVerbs are dropped from the front of a destination phrase so
// "want to visit paris" resolves to Paris and "want to fly from" to nothing.
var travelVerbs = map[string]bool{
	"fly": true, "go": true, "travel": true, "book": true, "get": true,
	"leave": true, "head": true, "visit": true, "see": true, "be": true,
	"take": true, "make": true, "catch": true, "reserve": true, "return": true,
}

// notPlaceOrName rejects phrases that are plainly not a location or a name.
var notPlaceOrName = map[string]bool{
	"business": true, "first": true, "economy": true, "premium": true, "class": true,
	"me": true, "us": true, "my": true, "our": true, "this": true, "that": true,
	"next": true, "tomorrow": true, "today": true, "tonight": true, "week": true,
	"one": true, "two": true, "three": true, "four": true, "five": true,
	"six": true, "seven": true, "eight": true, "nine": true, "a": true,
	"the": true, "an": true, "some": true, "flight": true, "flights": true,
	"to": true, "from": true, "and": true, "on": true, "at": true, "for": true,
	"in": true, "with": true, "by": true, "via": true,
}

func defaultRules() []Rule {
	return []Rule{
		{Field: FieldFrom, Name: "origin marker", Scope: ScopeOutbound, Pattern: fromMarkerRE, apply: applyFrom},
		{Field: FieldTo, Name: "destination marker", Scope: ScopeOutbound, Pattern: toMarkerRE, apply: applyTo},

		{Field: FieldDate, Name: "month day", Scope: ScopeOutbound, Pattern: monthDayRE, apply: monthDay(FieldDate)},
		{Field: FieldDate, Name: "day of month", Scope: ScopeOutbound, Pattern: dayMonthRE, apply: dayMonth(FieldDate)},
		{Field: FieldDate, Name: "tomorrow", Scope: ScopeOutbound, Pattern: tomorrowRE, apply: relativeDay(1)},
		{Field: FieldDate, Name: "next week", Scope: ScopeOutbound, Pattern: nextWeekRE, apply: relativeDay(7)},

		{Field: FieldTime, Name: "at clock", Scope: ScopeOutbound, Pattern: timeRE, apply: clock(FieldTime)},

		{Field: FieldName, Name: "my name is", Scope: ScopeOutbound, Pattern: myNameRE, apply: applyName},
		{Field: FieldName, Name: "for", Scope: ScopeOutbound, Pattern: forNameRE, apply: applyName},
		{Field: FieldName, Name: "passenger name is", Scope: ScopeOutbound, Pattern: passengerNameRE, apply: applyName},

		{Field: FieldPassengers, Name: "passenger count", Scope: ScopeOutbound, Pattern: passengersRE, apply: applyPassengers},

		{Field: FieldClass, Name: "business", Scope: ScopeOutbound, Pattern: businessRE, apply: cabin(models.ClassBusiness)},
		{Field: FieldClass, Name: "first", Scope: ScopeOutbound, Pattern: firstRE, apply: cabin(models.ClassFirst)},
		{Field: FieldClass, Name: "premium economy", Scope: ScopeOutbound, Pattern: premiumRE, apply: cabin(models.ClassPremiumEconomy)},
		{Field: FieldClass, Name: "economy", Scope: ScopeOutbound, Pattern: economyRE, apply: cabin(models.ClassEconomy)},

		{Field: FieldReturnDate, Name: "return month day", Scope: ScopeReturn, Pattern: monthDayRE, apply: monthDay(FieldReturnDate)},
		{Field: FieldReturnDate, Name: "return day of month", Scope: ScopeReturn, Pattern: dayMonthRE, apply: dayMonth(FieldReturnDate)},
		{Field: FieldReturnTime, Name: "return at clock", Scope: ScopeReturn, Pattern: timeRE, apply: clock(FieldReturnTime)},
	}
}

// phrase is a candidate place or name following a marker.
type phrase struct {
	start, end int
	value      string
}

// phrasesAfter returns the phrase following every marker match in text.
func phrasesAfter(marker *regexp.Regexp, text string) []phrase {
	var out []phrase
	for _, loc := range marker.FindAllStringIndex(text, -1) {
		m := phraseRE.FindStringSubmatchIndex(text[loc[1]:])
		if m == nil {
			continue
		}
		value := cleanPhrase(text[loc[1]+m[2] : loc[1]+m[3]])
		out = append(out, phrase{start: loc[1] + m[2], end: loc[1] + m[3], value: value})
	}
	return out
}

func cleanPhrase(s string) string {
	s = strings.TrimSpace(spacesRE.ReplaceAllString(s, " "))
	return strings.TrimSpace(articleRE.ReplaceAllString(s, ""))
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func applyFrom(x *extraction, text string, re *regexp.Regexp) bool {
	for _, p := range phrasesAfter(re, text) {
		if p.value == "" || notPlaceOrName[firstWord(p.value)] {
			continue
		}
		x.req.From = normalize.TitleCase(p.value)
		x.fromEnd = p.end
		return true
	}
	return false
}

func applyTo(x *extraction, text string, re *regexp.Regexp) bool {
	var candidates []phrase
	for _, p := range phrasesAfter(re, text) {
		value := p.value
		if travelVerbs[firstWord(value)] {
			value = cleanPhrase(strings.TrimPrefix(value, firstWord(value)))
		}
		if value == "" || notPlaceOrName[firstWord(value)] {
			continue
		}
		p.value = value
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return false
	}

	chosen := candidates[0]
	if x.fromEnd >= 0 {
		for _, c := range candidates {
			if c.start >= x.fromEnd {
				chosen = c
				break
			}
		}
	}
	x.req.To = normalize.TitleCase(chosen.value)
	return true
}

func monthDay(field Field) func(*extraction, string, *regexp.Regexp) bool {
	return func(x *extraction, text string, re *regexp.Regexp) bool {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return false
		}
		return x.setDate(field, m[1], m[2])
	}
}

func dayMonth(field Field) func(*extraction, string, *regexp.Regexp) bool {
	return func(x *extraction, text string, re *regexp.Regexp) bool {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return false
		}
		return x.setDate(field, m[2], m[1])
	}
}

func relativeDay(days int) func(*extraction, string, *regexp.Regexp) bool {
	return func(x *extraction, text string, re *regexp.Regexp) bool {
		if !re.MatchString(text) {
			return false
		}
		x.req.Date = normalize.FormatDate(x.now.AddDate(0, 0, days))
		return true
	}
}

func clock(field Field) func(*extraction, string, *regexp.Regexp) bool {
	return func(x *extraction, text string, re *regexp.Regexp) bool {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return false
		}
		hour, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		minutes := 0
		if m[2] != "" {
			minutes, _ = strconv.Atoi(m[2])
		}
		if m[3] != "" && (hour < 1 || hour > 12) {
			return false
		}
		hour = normalize.To24Hour(hour, m[3])
		if hour > 23 || minutes > 59 {
			return false
		}
		value := normalize.Time(strconv.Itoa(hour) + ":" + twoDigits(minutes))
		if field == FieldReturnTime {
			x.req.ReturnTime = value
		} else {
			x.req.Time = value
		}
		return true
	}
}

func applyName(x *extraction, text string, re *regexp.Regexp) bool {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	value := cleanPhrase(m[1])
	if value == "" || notPlaceOrName[firstWord(value)] {
		return false
	}
	if _, isMonth := normalize.MonthByName(firstWord(value)); isMonth {
		return false
	}
	x.req.Name = normalize.TitleCase(value)
	return true
}

func applyPassengers(x *extraction, text string, re *regexp.Regexp) bool {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	n, ok := spelledNumbers[m[1]]
	if !ok {
		var err error
		if n, err = strconv.Atoi(m[1]); err != nil {
			return false
		}
	}
	if n < 1 {
		return false
	}
	x.req.Passengers = n
	return true
}

func cabin(class models.Class) func(*extraction, string, *regexp.Regexp) bool {
	return func(x *extraction, text string, re *regexp.Regexp) bool {
		if !re.MatchString(text) {
			return false
		}
		x.req.Class = class
		return true
	}
}

// setDate formats a month/day pair in the current year.
func (x *extraction) setDate(field Field, monthName, dayText string) bool {
	month, ok := normalize.MonthByName(monthName)
	if !ok {
		return false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 {
		return false
	}
	t := time.Date(x.now.Year(), month, day, 0, 0, 0, 0, x.now.Location())
	if t.Month() != month {
		return false
	}
	if field == FieldReturnDate {
		x.req.ReturnDate = normalize.FormatDate(t)
	} else {
		x.req.Date = normalize.FormatDate(t)
	}
	return true
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
