// Package preview builds the display-only flight card shown next to the
// booking form. Flight numbers and durations are derived from the route so
// the same route always renders the same way.
package preview

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/normalize"
)

// DefaultDuration is used when a route is incomplete.
const DefaultDuration = "2 hours 30 minutes"

type route struct {
	flightNumber string
	duration     string
}

// Generator memoizes per-route display data. Each session owns one.
type Generator struct {
	mu     sync.Mutex
	routes map[string]route
}

func NewGenerator() *Generator {
	return &Generator{routes: make(map[string]route)}
}

// Build returns the preview for req. The outbound leg needs origin,
// destination and a date or time; the return leg needs a return date or time.
func (g *Generator) Build(req models.TravelRequest) models.Preview {
	p := models.Preview{
		Passengers: req.Passengers,
		Class:      req.Class,
		Passenger:  req.Name,
	}
	if req.From != "" && req.To != "" && (req.Date != "" || req.Time != "") {
		p.Outbound = g.leg(req.From, req.To, req.Date, req.Time)
	}
	if !req.IsOneWay() {
		p.Return = g.leg(req.To, req.From, req.ReturnDate, req.ReturnTime)
	}
	return p
}

func (g *Generator) leg(from, to, date, departure string) *models.FlightLeg {
	r := g.lookup(from, to)
	return &models.FlightLeg{
		FlightNumber:  r.flightNumber,
		From:          from,
		To:            to,
		Date:          date,
		DepartureTime: departure,
		ArrivalTime:   normalize.ArrivalTime(departure, r.duration),
		Duration:      r.duration,
	}
}

func (g *Generator) lookup(from, to string) route {
	if from == "" || to == "" {
		return route{duration: DefaultDuration}
	}
	key := strings.ToLower(from) + "-" + strings.ToLower(to)

	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.routes[key]; ok {
		return r
	}
	r := route{
		flightNumber: FlightNumber(key),
		duration:     Duration(key),
	}
	g.routes[key] = r
	return r
}

// FlightNumber maps a route key onto AC100 through AC1099.
func FlightNumber(routeKey string) string {
	return fmt.Sprintf("AC%d", xxhash.Sum64String(routeKey)%1000+100)
}

// Duration derives a 1 to 4 hour flight time from the route's character sum.
func Duration(routeKey string) string {
	sum := 0
	for _, r := range routeKey {
		sum += int(r)
	}
	hours := 1 + (sum%7)/2
	minutes := 30
	if sum%2 != 0 {
		minutes = 45
	}
	unit := "hours"
	if hours == 1 {
		unit = "hour"
	}
	return fmt.Sprintf("%d %s %d minutes", hours, unit, minutes)
}
