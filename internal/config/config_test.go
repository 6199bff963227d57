package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	c := Load()

	if c.Port != "8080" {
		t.Fatalf("port=%s", c.Port)
	}
	if c.HeartbeatSeconds != 30 {
		t.Fatalf("heartbeat=%d", c.HeartbeatSeconds)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("origins=%v", c.AllowedOrigins)
	}
	if c.DevMode {
		t.Fatalf("dev mode should default off")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WS_HEARTBEAT_SECONDS", "10")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("DEV_MODE", "true")

	c := Load()

	if c.Port != "9090" {
		t.Fatalf("port=%s", c.Port)
	}
	if c.HeartbeatSeconds != 10 {
		t.Fatalf("heartbeat=%d", c.HeartbeatSeconds)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins=%v", c.AllowedOrigins)
	}
	if !c.DevMode {
		t.Fatalf("dev mode not enabled")
	}
}

func TestLoad_BadHeartbeatFallsBack(t *testing.T) {
	t.Setenv("WS_HEARTBEAT_SECONDS", "-5")
	if c := Load(); c.HeartbeatSeconds != 30 {
		t.Fatalf("heartbeat=%d", c.HeartbeatSeconds)
	}
}
