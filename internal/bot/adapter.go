// Package bot routes inbound chat traffic between the menu, the dialog
// engine, and the request lifecycle.
package bot

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and message
// sending/receiving for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
// Adapters normalize platform user identifiers to the numeric ids the
// core works with.
type InboundMessage struct {
	Platform  string // e.g. "slack", "discord"
	UserID    int64  // normalized numeric user identifier
	UserName  string // human-readable username
	Text      string // raw message text
	Callback  string // button callback token, e.g. "approve:12"; empty for plain text
	Timestamp time.Time
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	UserID  int64    // recipient; adapters resolve this to a DM or channel
	Text    string   // message text
	Actions []string // callback tokens rendered as buttons where the platform supports them
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() int64
}
