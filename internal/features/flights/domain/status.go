package domain

import "strings"

// Status is the canonical journey status derived from the feed's free text.
type Status string

const (
	// StatusScheduled indicates the journey has not yet left the gate.
	StatusScheduled Status = "scheduled"
	// StatusTaxiing indicates the journey is moving on the ground.
	StatusTaxiing Status = "taxiing"
	// StatusActive indicates the journey is airborne.
	StatusActive Status = "active"
	// StatusCompleted indicates the journey has ended.
	StatusCompleted Status = "completed"
	// StatusUnknown is the fallback for unrecognized or absent feed statuses.
	StatusUnknown Status = "unknown"
)

// statusTable maps lower-cased feed status prefixes to canonical statuses.
var statusTable = map[string]Status{
	"landed":       StatusCompleted,
	"arrived":      StatusCompleted,
	"en route":     StatusActive,
	"departed":     StatusActive,
	"in-air":       StatusActive,
	"in air":       StatusActive,
	"taxi":         StatusTaxiing,
	"taxiing":      StatusTaxiing,
	"scheduled":    StatusScheduled,
	"not departed": StatusScheduled,
}

// StandardizeStatus maps a raw feed status string to a canonical Status.
// The feed reports compound phrases like "En Route / On Time"; only the
// prefix before the separator is significant. The mapping is total: any
// input, including the empty string, yields one of the five canonical
// values.
func StandardizeStatus(raw string) Status {
	head := raw
	if i := strings.Index(raw, "/"); i >= 0 {
		head = raw[:i]
	}
	head = strings.ToLower(strings.TrimSpace(head))

	if s, ok := statusTable[head]; ok {
		return s
	}
	return StatusUnknown
}
