package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"flight-tracker/internal/core/metrics"
	"flight-tracker/internal/features/tracking/ports"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn recording every delivered frame.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	pings      int
	failWrites bool
	closed     bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	if messageType == websocket.PingMessage {
		f.pings++
		return nil
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events(t *testing.T) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

func (f *fakeConn) eventNames(t *testing.T) []string {
	t.Helper()
	names := []string{}
	for _, e := range f.events(t) {
		names = append(names, e.Event)
	}
	return names
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestRegistry() *Registry {
	reg := NewRegistry(Options{
		SetupDelay:   10 * time.Millisecond,
		SetupTimeout: 60 * time.Millisecond,
	}, metrics.NewCollector())
	reg.SetStateFunc(func() interface{} {
		return map[string]interface{}{"tracking": false}
	})
	return reg
}

func waitSetup() { time.Sleep(30 * time.Millisecond) }

// TestRegistry_Handshake verifies the two-phase setup: snapshot to the new
// connection, count announcement to everyone.
func TestRegistry_Handshake(t *testing.T) {
	reg := newTestRegistry()

	conn := &fakeConn{}
	reg.OnOpen(conn)

	assert.Equal(t, 0, reg.ActiveCount())

	waitSetup()

	require.Equal(t, 1, reg.ActiveCount())
	names := conn.eventNames(t)
	require.GreaterOrEqual(t, len(names), 2)
	assert.Equal(t, ports.EventInitialState, names[0])
	assert.Contains(t, names, ports.EventClientAdded)

	// The snapshot carried the state provider's payload.
	events := conn.events(t)
	snap, ok := events[0].Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, snap["tracking"])
}

// TestRegistry_CloseBeforeSetup verifies a connection that drops inside the
// stabilization window is never counted.
func TestRegistry_CloseBeforeSetup(t *testing.T) {
	reg := newTestRegistry()

	witness := &fakeConn{}
	reg.OnOpen(witness)
	waitSetup()
	witnessBaseline := len(witness.eventNames(t))

	early := &fakeConn{}
	id := reg.OnOpen(early)
	reg.OnClose(id)

	waitSetup()

	assert.Equal(t, 1, reg.ActiveCount())
	assert.Empty(t, early.events(t))

	// The witness saw no client_added/client_removed for the early leaver.
	assert.Len(t, witness.eventNames(t), witnessBaseline)
}

// TestRegistry_SetupTimeout verifies a connection never completing setup is
// closed at the deadline.
func TestRegistry_SetupTimeout(t *testing.T) {
	reg := NewRegistry(Options{
		SetupDelay:   200 * time.Millisecond, // deliberately after the timeout
		SetupTimeout: 20 * time.Millisecond,
	}, nil)

	conn := &fakeConn{}
	reg.OnOpen(conn)

	time.Sleep(50 * time.Millisecond)

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, reg.ActiveCount())
}

// TestRegistry_BroadcastIsolation verifies one failing recipient never
// blocks the rest and is pruned afterwards.
func TestRegistry_BroadcastIsolation(t *testing.T) {
	reg := newTestRegistry()

	good := &fakeConn{}
	bad := &fakeConn{}
	reg.OnOpen(good)
	reg.OnOpen(bad)
	waitSetup()
	require.Equal(t, 2, reg.ActiveCount())

	bad.mu.Lock()
	bad.failWrites = true
	bad.mu.Unlock()

	outcomes := reg.Broadcast(ports.EventPositionUpdate, map[string]interface{}{"latitude": 40.9})

	require.Len(t, outcomes, 2)
	failures := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	assert.Contains(t, good.eventNames(t), ports.EventPositionUpdate)
	assert.Equal(t, 1, reg.ActiveCount())
}

// TestRegistry_SweepStale verifies dead setup-complete connections are
// removed while pending ones are left alone.
func TestRegistry_SweepStale(t *testing.T) {
	reg := newTestRegistry()

	alive := &fakeConn{}
	dead := &fakeConn{}
	reg.OnOpen(alive)
	reg.OnOpen(dead)
	waitSetup()
	require.Equal(t, 2, reg.ActiveCount())

	dead.mu.Lock()
	dead.failWrites = true
	dead.mu.Unlock()

	// A fresh connection is still inside its stabilization window.
	pending := &fakeConn{}
	pending.mu.Lock()
	pending.failWrites = true
	pending.mu.Unlock()
	reg.OnOpen(pending)

	reg.SweepStale()

	assert.Equal(t, 1, reg.ActiveCount())
	assert.True(t, dead.isClosed())
	assert.False(t, pending.isClosed())
	assert.Contains(t, alive.eventNames(t), ports.EventClientRemoved)
}

// TestRegistry_OnClose verifies departures of counted connections are announced.
func TestRegistry_OnClose(t *testing.T) {
	reg := newTestRegistry()

	staying := &fakeConn{}
	leaving := &fakeConn{}
	reg.OnOpen(staying)
	id := reg.OnOpen(leaving)
	waitSetup()
	require.Equal(t, 2, reg.ActiveCount())

	reg.OnClose(id)

	assert.Equal(t, 1, reg.ActiveCount())
	names := staying.eventNames(t)
	assert.Contains(t, names, ports.EventClientRemoved)

	var last Envelope
	events := staying.events(t)
	last = events[len(events)-1]
	payload, ok := last.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), payload["count"])
}

// TestRegistry_CloseAll verifies shutdown closes every transport.
func TestRegistry_CloseAll(t *testing.T) {
	reg := newTestRegistry()

	a := &fakeConn{}
	b := &fakeConn{}
	reg.OnOpen(a)
	reg.OnOpen(b)
	waitSetup()

	reg.CloseAll()

	assert.Equal(t, 0, reg.ActiveCount())
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
}
