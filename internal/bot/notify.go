package bot

import (
	"context"
	"log"
)

// AdapterNotifier bridges the request lifecycle's fire-and-forget
// notifications onto a chat Adapter. Delivery failures are logged and
// swallowed so a dead chat connection never fails a state transition.
type AdapterNotifier struct {
	adapter Adapter
}

// NewAdapterNotifier creates an AdapterNotifier.
func NewAdapterNotifier(adapter Adapter) *AdapterNotifier {
	return &AdapterNotifier{adapter: adapter}
}

// Notify sends text to a user, rendering actions as buttons where the
// platform supports them.
func (n *AdapterNotifier) Notify(userID int64, text string, actions ...string) {
	if err := n.adapter.Send(context.Background(), OutboundMessage{
		UserID:  userID,
		Text:    text,
		Actions: actions,
	}); err != nil {
		log.Printf("bot: notify user %d: %v", userID, err)
	}
}
