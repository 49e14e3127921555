package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/steveharianto/Flightly/internal/models"
	"github.com/steveharianto/Flightly/internal/normalize"
)

const SystemPrompt = `You are a travel booking assistant. Extract flight booking details from the user's spoken or typed request.

Today's date is %s. Resolve relative dates such as "tomorrow" or "next Friday" against it.

IMPORTANT RULES:
1. Only use information stated in the request. Never guess a city, date or name.
2. Use null for any field that is not mentioned.
3. Dates use the format "D Month YYYY", for example "15 June 2026".
4. Times use 24-hour "HH:MM", for example "14:00".
5. Class is one of: %s.
6. Passengers is a whole number, 1 when not mentioned.

RESPONSE FORMAT:
You must respond with a single valid JSON object and nothing else:
{
  "from": "departure city or null",
  "to": "destination city or null",
  "date": "outbound date or null",
  "time": "outbound departure time or null",
  "name": "passenger name or null",
  "passengers": 1,
  "class": "Economy",
  "returnDate": "return date or null",
  "returnTime": "return departure time or null"
}`

// User-facing messages. Raw error text is never shown.
const (
	FallbackMessage  = "Unable to understand travel request. Please try different wording or check network connection."
	AuthMessage      = "API authentication error. Please contact support."
	RateLimitMessage = "Too many requests. Please try again later."
)

// ErrNoJSON is returned when no strategy finds a JSON object in a reply.
var ErrNoJSON = errors.New("no valid JSON found in response")

// BuildExtractionPrompt returns the system instruction for the given day.
func BuildExtractionPrompt(now time.Time) string {
	classes := make([]string, 0, len(models.Classes))
	for _, c := range models.Classes {
		classes = append(classes, `"`+string(c)+`"`)
	}
	return fmt.Sprintf(SystemPrompt, now.Format("Monday, 2 January 2006"), strings.Join(classes, ", "))
}

// Strategy pulls a JSON candidate out of a model reply.
type Strategy struct {
	Name    string
	Extract func(content string) (string, bool)
}

var fencedRE = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Strategies are tried in order; the first candidate that decodes into a
// JSON object wins.
var Strategies = []Strategy{
	{Name: "direct", Extract: directJSON},
	{Name: "fenced", Extract: fencedJSON},
	{Name: "braces", Extract: extractJSON},
}

// ParseLLMResponse decodes a model reply into a fully defaulted request.
func ParseLLMResponse(content string, now time.Time) (*models.TravelRequest, error) {
	var lastErr error
	for _, s := range Strategies {
		candidate, ok := s.Extract(content)
		if !ok {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
			lastErr = fmt.Errorf("%s strategy: %w", s.Name, err)
			continue
		}
		if fields == nil {
			continue
		}
		req := coerce(fields, now)
		return &req, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
	}
	return nil, ErrNoJSON
}

func directJSON(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	return trimmed, strings.HasPrefix(trimmed, "{")
}

func fencedJSON(content string) (string, bool) {
	m := fencedRE.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func extractJSON(content string) (string, bool) {
	// Look for JSON object in the content
	start := strings.Index(content, "{")
	if start == -1 {
		return "", false
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return "", false
	}

	return content[start : end+1], true
}

func coerce(fields map[string]any, now time.Time) models.TravelRequest {
	req := models.NewTravelRequest()
	req.From = stringField(fields, "from")
	req.To = stringField(fields, "to")
	req.Name = stringField(fields, "name")
	req.Date = normalize.Date(stringField(fields, "date"), now)
	req.Time = normalize.Time(stringField(fields, "time"))
	req.ReturnDate = normalize.Date(stringField(fields, "returnDate"), now)
	req.ReturnTime = normalize.Time(stringField(fields, "returnTime"))
	req.Passengers = passengers(fields["passengers"])
	if class := stringField(fields, "class"); class != "" {
		req.Class = normalize.Class(class)
	}
	req.Normalize()
	return req
}

func stringField(fields map[string]any, key string) string {
	var s string
	switch v := fields[key].(type) {
	case string:
		s = strings.TrimSpace(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
	switch strings.ToLower(s) {
	case "null", "none", "n/a", "unknown":
		return ""
	}
	return s
}

func passengers(v any) int {
	switch n := v.(type) {
	case float64:
		if n >= 1 {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && i >= 1 {
			return i
		}
	}
	return 1
}
