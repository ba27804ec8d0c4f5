package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"flight-tracker/internal/core/logger"
	"flight-tracker/internal/core/metrics"
	"flight-tracker/internal/features/tracking/ports"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the narrow transport surface the registry needs. It is satisfied
// by *websocket.Conn and by test fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Envelope is the JSON frame sent to subscribers.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// CountPayload is the data carried by client_added / client_removed events.
type CountPayload struct {
	Count int `json:"count"`
}

// Options holds the connection lifecycle timings.
type Options struct {
	// SetupDelay is the stabilization window before a new connection is
	// counted. A transport may report open before it can actually receive;
	// the snapshot is only sent once the connection survives this window.
	SetupDelay time.Duration
	// SetupTimeout is the deadline for completing setup; connections still
	// pending when it fires are closed and never counted.
	SetupTimeout time.Duration
	// SweepInterval is the period of the stale-connection sweep.
	SweepInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.SetupDelay <= 0 {
		o.SetupDelay = time.Second
	}
	if o.SetupTimeout <= 0 {
		o.SetupTimeout = 5 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 30 * time.Second
	}
	return o
}

// subscriber is one live transport session. Lifecycle: registered on open,
// setupComplete after the stabilization window, removed on close or sweep.
type subscriber struct {
	id            string
	conn          Conn
	setupComplete bool
	connected     bool

	// wmu serializes writes to the underlying transport.
	wmu sync.Mutex
}

// Registry owns the set of live subscriber connections and performs the
// two-phase handshake, stale sweeping and fan-out with per-recipient
// failure isolation.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*subscriber

	// state produces the initial_state payload for new subscribers.
	state func() interface{}

	opts    Options
	log     *zap.Logger
	metrics *metrics.Collector
}

// NewRegistry creates a subscriber registry. Zero-valued timings in opts
// fall back to the defaults (1s setup delay, 5s setup timeout, 30s sweep).
func NewRegistry(opts Options, m *metrics.Collector) *Registry {
	return &Registry{
		subs:    make(map[string]*subscriber),
		opts:    opts.withDefaults(),
		log:     logger.Get(),
		metrics: m,
	}
}

// SetStateFunc wires the provider of the initial_state snapshot. Must be
// called before the first connection opens.
func (r *Registry) SetStateFunc(f func() interface{}) {
	r.state = f
}

// Run drives the periodic stale sweep until ctx is canceled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepStale()
		}
	}
}

// OnOpen registers a new connection and arms its setup timers. The
// returned id is handed back to OnClose when the transport closes.
func (r *Registry) OnOpen(conn Conn) string {
	sub := &subscriber{
		id:        uuid.NewString(),
		conn:      conn,
		connected: true,
	}

	r.mu.Lock()
	r.subs[sub.id] = sub
	r.mu.Unlock()

	r.log.Debug("subscriber connected", zap.String("subscriber_id", sub.id))

	time.AfterFunc(r.opts.SetupDelay, func() { r.completeSetup(sub.id) })
	time.AfterFunc(r.opts.SetupTimeout, func() { r.enforceSetup(sub.id) })

	return sub.id
}

// OnClose removes a connection. Only connections that had completed setup
// are announced in a client_removed broadcast.
func (r *Registry) OnClose(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	r.log.Debug("subscriber disconnected", zap.String("subscriber_id", id))
	r.updateGauge()

	if sub.setupComplete {
		r.Broadcast(ports.EventClientRemoved, CountPayload{Count: r.ActiveCount()})
	}
}

// completeSetup runs after the stabilization window: if the connection is
// still live it becomes eligible for broadcasts, receives the full state
// snapshot, and its arrival is announced to everyone.
func (r *Registry) completeSetup(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if !ok || !sub.connected || sub.setupComplete {
		r.mu.Unlock()
		return
	}
	sub.setupComplete = true
	r.mu.Unlock()

	var snapshot interface{}
	if r.state != nil {
		snapshot = r.state()
	}
	if err := r.send(sub, Envelope{Event: ports.EventInitialState, Data: snapshot}); err != nil {
		r.log.Warn("failed to deliver initial state",
			zap.String("subscriber_id", id),
			zap.Error(err),
		)
		r.OnClose(id)
		return
	}

	r.updateGauge()
	r.Broadcast(ports.EventClientAdded, CountPayload{Count: r.ActiveCount()})
}

// enforceSetup runs at the setup deadline: a connection still pending is
// closed and dropped without ever being counted.
func (r *Registry) enforceSetup(id string) {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if !ok || sub.setupComplete {
		r.mu.Unlock()
		return
	}
	delete(r.subs, id)
	r.mu.Unlock()

	r.log.Debug("subscriber setup timed out", zap.String("subscriber_id", id))
	sub.conn.Close()
}

// Broadcast serializes the event once and sends it to every setup-complete
// connection. A recipient whose send fails is flagged disconnected and
// pruned afterwards; it never blocks the other recipients.
func (r *Registry) Broadcast(event string, data interface{}) []ports.Delivery {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		r.log.Error("failed to marshal broadcast", zap.String("event", event), zap.Error(err))
		return nil
	}

	r.mu.Lock()
	recipients := make([]*subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.connected && sub.setupComplete {
			recipients = append(recipients, sub)
		}
	}
	r.mu.Unlock()

	outcomes := make([]ports.Delivery, 0, len(recipients))
	for _, sub := range recipients {
		err := r.write(sub, websocket.TextMessage, payload)
		if err != nil {
			r.markDisconnected(sub.id)
			r.log.Warn("broadcast delivery failed",
				zap.String("event", event),
				zap.String("subscriber_id", sub.id),
				zap.Error(err),
			)
		}
		outcomes = append(outcomes, ports.Delivery{SubscriberID: sub.id, Err: err})
	}

	r.prune()

	if r.metrics != nil {
		r.metrics.Broadcasts.WithLabelValues(event).Inc()
	}
	return outcomes
}

// SweepStale pings every setup-complete connection and removes those whose
// transport no longer accepts writes. Connections still mid-setup are left
// alone. Removals are announced with a single client_removed broadcast.
func (r *Registry) SweepStale() {
	r.mu.Lock()
	candidates := make([]*subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		if sub.setupComplete {
			candidates = append(candidates, sub)
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, sub := range candidates {
		if err := r.write(sub, websocket.PingMessage, nil); err != nil {
			r.mu.Lock()
			delete(r.subs, sub.id)
			r.mu.Unlock()
			sub.conn.Close()
			removed++
			r.log.Debug("swept stale subscriber", zap.String("subscriber_id", sub.id))
		}
	}

	if removed > 0 {
		r.updateGauge()
		r.Broadcast(ports.EventClientRemoved, CountPayload{Count: r.ActiveCount()})
	}
}

// ActiveCount returns the number of setup-complete live connections.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, sub := range r.subs {
		if sub.connected && sub.setupComplete {
			n++
		}
	}
	return n
}

// CloseAll closes every connection. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := make([]*subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[string]*subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
	r.updateGauge()
}

// send delivers an envelope to a single subscriber.
func (r *Registry) send(sub *subscriber, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.write(sub, websocket.TextMessage, payload)
}

func (r *Registry) write(sub *subscriber, messageType int, payload []byte) error {
	sub.wmu.Lock()
	defer sub.wmu.Unlock()
	return sub.conn.WriteMessage(messageType, payload)
}

func (r *Registry) markDisconnected(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[id]; ok {
		sub.connected = false
	}
}

// prune drops connections flagged disconnected after a failed delivery.
func (r *Registry) prune() {
	r.mu.Lock()
	for id, sub := range r.subs {
		if !sub.connected && sub.setupComplete {
			delete(r.subs, id)
		}
	}
	r.mu.Unlock()
	r.updateGauge()
}

func (r *Registry) updateGauge() {
	if r.metrics != nil {
		r.metrics.Subscribers.Set(float64(r.ActiveCount()))
	}
}
