package models

import (
	"strings"
	"time"
)

// Class is the closed set of cabin classes a TravelRequest can carry.
type Class string

const (
	ClassEconomy        Class = "Economy"
	ClassPremiumEconomy Class = "Premium Economy"
	ClassBusiness       Class = "Business"
	ClassFirst          Class = "First"
)

// Classes lists every valid cabin class.
var Classes = []Class{ClassEconomy, ClassPremiumEconomy, ClassBusiness, ClassFirst}

// Valid reports whether c is one of the four canonical labels.
func (c Class) Valid() bool {
	for _, known := range Classes {
		if c == known {
			return true
		}
	}
	return false
}

// TravelRequest is the nine-field booking record produced by extraction
// and accumulated per session.
type TravelRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Name       string `json:"name"`
	Passengers int    `json:"passengers"`
	Class      Class  `json:"class"`
	ReturnDate string `json:"returnDate"`
	ReturnTime string `json:"returnTime"`
}

// NewTravelRequest returns a fully defaulted record.
func NewTravelRequest() TravelRequest {
	return TravelRequest{
		Passengers: 1,
		Class:      ClassEconomy,
	}
}

// Normalize restores the defaults for passengers and class.
func (r *TravelRequest) Normalize() {
	if r.Passengers < 1 {
		r.Passengers = 1
	}
	if !r.Class.Valid() {
		r.Class = ClassEconomy
	}
}

// Merge copies every non-empty field of update into r. Empty strings and
// non-positive passenger counts never clear a populated field.
func (r *TravelRequest) Merge(update TravelRequest) {
	mergeString(&r.From, update.From)
	mergeString(&r.To, update.To)
	mergeString(&r.Date, update.Date)
	mergeString(&r.Time, update.Time)
	mergeString(&r.Name, update.Name)
	mergeString(&r.ReturnDate, update.ReturnDate)
	mergeString(&r.ReturnTime, update.ReturnTime)
	if update.Passengers > 0 {
		r.Passengers = update.Passengers
	}
	if update.Class.Valid() {
		r.Class = update.Class
	}
	r.Normalize()
}

func mergeString(dst *string, src string) {
	if strings.TrimSpace(src) != "" {
		*dst = src
	}
}

// IsOneWay reports whether no return leg has been captured.
func (r TravelRequest) IsOneWay() bool {
	return r.ReturnDate == "" && r.ReturnTime == ""
}

// NATS/HTTP request from a speech-capture or typing front-end
type TranscriptUpdate struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Listening bool   `json:"listening"`
	Error     string `json:"error,omitempty"` // capture error: permission denied, no device, ...
}

// ParseRequest asks for an immediate extraction ("parse now").
type ParseRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text,omitempty"`
}

// StateRequest asks for the current session snapshot or history.
type StateRequest struct {
	SessionID string `json:"session_id"`
}

// FlightLeg is one leg of the display-only flight preview.
type FlightLeg struct {
	FlightNumber  string `json:"flight_number"`
	From          string `json:"from"`
	To            string `json:"to"`
	Date          string `json:"date"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Duration      string `json:"duration"`
}

// Preview is the flight card rendered next to the form.
type Preview struct {
	Outbound   *FlightLeg `json:"outbound,omitempty"`
	Return     *FlightLeg `json:"return,omitempty"`
	Passengers int        `json:"passengers"`
	Class      Class      `json:"class"`
	Passenger  string     `json:"passenger,omitempty"`
}

// SessionState is the read-only snapshot handed to display collaborators.
type SessionState struct {
	SessionID     string        `json:"session_id"`
	Request       TravelRequest `json:"request"`
	State         string        `json:"state"`
	Processing    bool          `json:"processing"`
	Error         *string       `json:"error"`
	Source        string        `json:"source,omitempty"`
	Transcript    string        `json:"transcript"`
	LastExtracted string        `json:"last_extracted"`
	Listening     bool          `json:"listening"`
	CaptureError  *string       `json:"capture_error,omitempty"`
	Preview       Preview       `json:"preview"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// HistoryMessage is one journal entry returned to callers.
type HistoryMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned by transports when a request cannot be served.
type ErrorResponse struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// Error codes
const (
	ErrorInvalidRequest  = "INVALID_REQUEST"
	ErrorSessionNotFound = "SESSION_NOT_FOUND"
	ErrorExtractionBusy  = "EXTRACTION_BUSY"
)
