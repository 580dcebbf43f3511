package bot

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/shiftline/internal/config"
	"github.com/zulandar/shiftline/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
timezone: UTC
platform:
  kind: slack
  slack:
    app_token: xapp-test
    bot_token: xoxb-test
locations:
  - id: loc-1
    name: Main street
`))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestNewDaemon_Validation(t *testing.T) {
	db := openTestDB(t)
	cfg := testConfig(t)
	adapter := NewMockAdapter()

	if _, err := NewDaemon(DaemonOpts{Config: cfg, Adapter: adapter}); err == nil {
		t.Error("expected error for missing db")
	}
	if _, err := NewDaemon(DaemonOpts{DB: db, Adapter: adapter}); err == nil {
		t.Error("expected error for missing config")
	}
	if _, err := NewDaemon(DaemonOpts{DB: db, Config: cfg}); err == nil {
		t.Error("expected error for missing adapter")
	}
	if _, err := NewDaemon(DaemonOpts{DB: db, Config: cfg, Adapter: adapter}); err != nil {
		t.Errorf("NewDaemon: %v", err)
	}
}

func TestDaemon_RunHandlesMessageAndShutsDown(t *testing.T) {
	db := openTestDB(t)
	db.Create(&models.User{ID: 1, DisplayName: "Anya", Role: models.RoleSeller, Status: models.AccountApproved})

	adapter := NewMockAdapter()
	daemon, err := NewDaemon(DaemonOpts{
		DB:      db,
		Config:  testConfig(t),
		Adapter: adapter,
		Out:     io.Discard,
	})
	if err != nil {
		t.Fatalf("NewDaemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	adapter.SimulateInbound(InboundMessage{Platform: "mock", UserID: 1, Text: "menu"})

	// The router replies asynchronously; poll briefly.
	deadline := time.After(2 * time.Second)
	for {
		if msgs := adapter.SentTo(1); len(msgs) > 0 {
			if !strings.Contains(msgs[0].Text, "What would you like to do?") {
				t.Errorf("reply = %q, want the menu", msgs[0].Text)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("no reply before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}
