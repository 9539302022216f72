package livefeed

import (
	"context"
	"sync"
)

// SimProvider is a development stand-in for the real protocol client.
// Connections succeed immediately and deliver no events until events are
// injected via Emit or the connection is closed.
type SimProvider struct{}

// NewSimProvider creates a simulated live-feed provider.
func NewSimProvider() *SimProvider {
	return &SimProvider{}
}

// Connect establishes a simulated connection.
func (p *SimProvider) Connect(ctx context.Context, handle string) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewSimConnection(), nil
}

// SimConnection is a scriptable connection used by the sim provider and
// by tests.
type SimConnection struct {
	events    chan Event
	closeOnce sync.Once
}

// NewSimConnection creates an open simulated connection.
func NewSimConnection() *SimConnection {
	return &SimConnection{events: make(chan Event, 64)}
}

// Emit injects an event into the connection's stream.
func (c *SimConnection) Emit(ev Event) {
	c.events <- ev
}

// Events returns the connection's event stream.
func (c *SimConnection) Events() <-chan Event {
	return c.events
}

// Disconnect closes the event stream. Idempotent.
func (c *SimConnection) Disconnect(ctx context.Context) error {
	c.closeOnce.Do(func() { close(c.events) })
	return nil
}

var (
	_ Provider   = (*SimProvider)(nil)
	_ Connection = (*SimConnection)(nil)
)
