// Package channels defines the contract between the execution engine and
// the chat platforms that deliver instructions to it. Each platform
// implements the Channel interface; the engine only ever sees session keys
// and report strings.
package channels

import (
	"context"
	"fmt"
	"time"
)

// Channel is the transport every chat platform implements.
type Channel interface {
	// Name returns the channel identifier (e.g. "discord").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send delivers a report string to the given platform chat ID,
	// chunked to the platform's message-size limit.
	Send(ctx context.Context, to string, content string) error

	// IsConnected reports whether the channel is connected.
	IsConnected() bool

	// Health returns the channel health status.
	Health() HealthStatus
}

// HealthStatus represents the health state of a channel.
type HealthStatus struct {
	Connected     bool
	LastMessageAt time.Time
	ErrorCount    int
}

// ErrChannelDisconnected marks a send attempted before Connect or after
// Disconnect.
var ErrChannelDisconnected = fmt.Errorf("channel is not connected")
