package domain

import "errors"

var (
	// ErrFlightNotFound is returned when a flight is unknown to both the store and the feed.
	ErrFlightNotFound = errors.New("flight not found")
	// ErrAlreadyTracking is returned when a start is attempted while another flight is tracked.
	ErrAlreadyTracking = errors.New("another flight is already being tracked")
	// ErrAlreadyStarted is returned when a start is attempted for the flight already tracked.
	// Callers treat it as a soft outcome, not a failure.
	ErrAlreadyStarted = errors.New("flight is already being tracked")
	// ErrNotTracking is returned when a stop is attempted for a flight that is not the active one.
	ErrNotTracking = errors.New("flight is not being tracked")
	// ErrFeedUnavailable wraps transient feed failures.
	ErrFeedUnavailable = errors.New("flight feed unavailable")
	// ErrTrackingActive is returned when a delete is attempted on the tracked flight.
	ErrTrackingActive = errors.New("flight cannot be deleted while tracking is active")
)
