package main

import (
	"strings"
	"testing"

	"github.com/zulandar/shiftline/internal/config"
)

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestCreateAdapter_Slack(t *testing.T) {
	cfg := parseConfig(t, `
platform:
  kind: slack
  slack:
    app_token: xapp-test
    bot_token: xoxb-test
`)
	adapter, err := createAdapter(cfg)
	if err != nil {
		t.Fatalf("createAdapter: %v", err)
	}
	if adapter == nil {
		t.Fatal("adapter is nil")
	}
}

func TestCreateAdapter_Discord(t *testing.T) {
	cfg := parseConfig(t, `
platform:
  kind: discord
  discord:
    bot_token: test-token
`)
	adapter, err := createAdapter(cfg)
	if err != nil {
		t.Fatalf("createAdapter: %v", err)
	}
	if adapter == nil {
		t.Fatal("adapter is nil")
	}
}

func TestCreateAdapter_UnsupportedKind(t *testing.T) {
	cfg := parseConfig(t, "timezone: UTC")
	_, err := createAdapter(cfg)
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("err = %v, want unsupported platform error", err)
	}
}
