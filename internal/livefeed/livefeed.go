// Package livefeed defines the contract between the pipeline and the
// third-party live-streaming protocol client. The real client is an
// external collaborator; this package only fixes the event shapes the
// pipeline consumes.
//
// Events arrive as typed variants on a single channel per connection, so
// "one handler at a time per connection" is a structural guarantee of the
// dispatch loop rather than an assumption about callback scheduling.
package livefeed

import "context"

// Event is a variant of the live-feed event stream.
type Event interface {
	isEvent()
}

// GiftEvent is emitted when a viewer sends a gift.
type GiftEvent struct {
	Viewer   string
	GiftName string
}

// ChatEvent is emitted for every chat message.
type ChatEvent struct {
	Viewer  string
	Comment string
}

// StreamEndEvent is emitted when the broadcaster ends the stream.
// The connection may still deliver trailing events after it.
type StreamEndEvent struct{}

// DisconnectEvent is emitted when the underlying transport drops.
type DisconnectEvent struct {
	Reason string
}

func (GiftEvent) isEvent()       {}
func (ChatEvent) isEvent()       {}
func (StreamEndEvent) isEvent()  {}
func (DisconnectEvent) isEvent() {}

// Connection is an established live connection to one stream.
type Connection interface {
	// Events returns the connection's event stream. The channel is closed
	// when the connection is torn down; no events follow the close.
	Events() <-chan Event

	// Disconnect tears the connection down. Idempotent.
	Disconnect(ctx context.Context) error
}

// Provider establishes live connections by stream handle.
type Provider interface {
	Connect(ctx context.Context, handle string) (Connection, error)
}
