package ws

import (
	"fmt"
	"sync"
)

const defaultOutboxSize = 64

// Outbox buffers the frames queued for one websocket connection.
type Outbox struct {
	id       string
	playerID string
	frames   chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewOutbox creates an Outbox for connection id of playerID.
//
// Precondition: id and playerID must be non-empty.
// Postcondition: Returns an Outbox with an open frames channel.
func NewOutbox(id, playerID string, size int) *Outbox {
	if size <= 0 {
		size = defaultOutboxSize
	}
	return &Outbox{id: id, playerID: playerID, frames: make(chan []byte, size)}
}

// ID returns the connection id.
func (o *Outbox) ID() string { return o.id }

// PlayerID returns the player the connection belongs to.
func (o *Outbox) PlayerID() string { return o.playerID }

// Push queues a frame without blocking.
//
// Postcondition: returns an error when the outbox is closed or full; the
// frame is dropped in that case.
func (o *Outbox) Push(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.id)
	}
	select {
	case o.frames <- frame:
		return nil
	default:
		return fmt.Errorf("outbox %s is full", o.id)
	}
}

// Frames returns the channel the connection writer drains.
func (o *Outbox) Frames() <-chan []byte { return o.frames }

// Close closes the frames channel. Further pushes fail.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.frames)
	}
}
