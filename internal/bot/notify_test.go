package bot

import (
	"context"
	"testing"
)

func TestAdapterNotifier_Delivers(t *testing.T) {
	adapter := NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	n := NewAdapterNotifier(adapter)
	n.Notify(7, "Request #1 approved", "approve:1", "reject:1")

	msg, ok := adapter.LastSent()
	if !ok {
		t.Fatal("nothing sent")
	}
	if msg.UserID != 7 || msg.Text != "Request #1 approved" || len(msg.Actions) != 2 {
		t.Errorf("sent = %+v", msg)
	}
}

func TestAdapterNotifier_SwallowsSendErrors(t *testing.T) {
	// Not connected: Send fails. Notify must not panic or propagate.
	n := NewAdapterNotifier(NewMockAdapter())
	n.Notify(7, "hello")
}
