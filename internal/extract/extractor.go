// Package extract is the deterministic, pattern-based extractor used when
// the remote model is unavailable or fails. It never returns an error: any
// input yields a fully defaulted models.TravelRequest.
package extract

import (
	"strings"
	"time"

	"github.com/steveharianto/Flightly/internal/models"
)

// Extractor applies the rule table to free text.
type Extractor struct {
	now   func() time.Time
	rules []Rule
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the clock used for relative dates and the current year.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New creates an Extractor over the default rule table.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		now:   time.Now,
		rules: defaultRules(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns a copy of the default rule table in evaluation order.
func Rules() []Rule {
	return defaultRules()
}

type extraction struct {
	req     models.TravelRequest
	now     time.Time
	fromEnd int
}

// Extract runs every rule against text and returns the populated request.
// Fields no rule matched keep their defaults.
func (e *Extractor) Extract(text string) models.TravelRequest {
	x := &extraction{
		req:     models.NewTravelRequest(),
		now:     e.now(),
		fromEnd: -1,
	}

	lower := strings.ToLower(text)
	outbound, returnClause := splitReturn(lower)

	done := make(map[Field]bool, 9)
	for _, r := range e.rules {
		if done[r.Field] {
			continue
		}
		scoped := outbound
		if r.Scope == ScopeReturn {
			scoped = returnClause
		}
		if scoped == "" {
			continue
		}
		if r.apply(x, scoped, r.Pattern) {
			done[r.Field] = true
		}
	}

	x.req.Normalize()
	return x.req
}

// splitReturn blanks out the "return(ing) on ..." clause so outbound date
// and time rules cannot match it, and returns the clause separately.
func splitReturn(text string) (outbound, clause string) {
	loc := returnClauseRE.FindStringSubmatchIndex(text)
	if loc == nil {
		return text, ""
	}
	clause = text[loc[2]:loc[3]]
	outbound = text[:loc[0]] + strings.Repeat(" ", loc[1]-loc[0]) + text[loc[1]:]
	return outbound, clause
}
