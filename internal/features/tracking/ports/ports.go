package ports

// Event names carried in the subscriber envelope.
const (
	// EventInitialState carries the full current state to one new subscriber.
	EventInitialState = "initial_state"
	// EventClientAdded announces an updated subscriber count after a join.
	EventClientAdded = "client_added"
	// EventClientRemoved announces an updated subscriber count after a leave.
	EventClientRemoved = "client_removed"
	// EventStart announces tracking has started for a journey.
	EventStart = "start"
	// EventStartFlight is the legacy alias of EventStart, kept for older clients.
	EventStartFlight = "start_flight"
	// EventPositionUpdate carries a fresh position sample.
	EventPositionUpdate = "position_update"
	// EventFlightStatusUpdate announces the taxiing to active transition.
	EventFlightStatusUpdate = "flight_status_update"
	// EventFlightCompleted announces the end of tracking.
	EventFlightCompleted = "flight_completed"
)

// Delivery is the per-recipient outcome of one broadcast.
type Delivery struct {
	// SubscriberID identifies the recipient connection.
	SubscriberID string
	// Err is nil when the send succeeded.
	Err error
}

// Broadcaster defines the primary port to the live subscriber fan-out.
// A failed recipient never blocks the others; failures are reported in
// the returned outcomes.
type Broadcaster interface {
	// Broadcast serializes the event once and sends it to every
	// setup-complete connection.
	Broadcast(event string, data interface{}) []Delivery
	// ActiveCount returns the number of setup-complete connections.
	ActiveCount() int
}
