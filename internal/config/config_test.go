package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected default addr %q", cfg.Server.Addr)
	}
	if cfg.Forms.Contact.RateLimit != 5 || cfg.Forms.Contact.WindowMinutes != 15 {
		t.Fatalf("unexpected contact limits %+v", cfg.Forms.Contact)
	}
	if cfg.Forms.Quote.RateLimit != 3 || cfg.Forms.Quote.WindowMinutes != 30 {
		t.Fatalf("unexpected quote limits %+v", cfg.Forms.Quote)
	}
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	if err != nil {
		t.Fatalf("generated default does not parse: %v", err)
	}
	if cfg.CSRFTTL() != 24*time.Hour {
		t.Fatalf("unexpected csrf ttl %v", cfg.CSRFTTL())
	}
}

func TestFromYAMLFillsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("server:\n  addr: 0.0.0.0:9090\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9090" {
		t.Fatalf("explicit addr lost: %q", cfg.Server.Addr)
	}
	if cfg.Server.BasePath != "/api" {
		t.Fatalf("base path not defaulted: %q", cfg.Server.BasePath)
	}
	if cfg.Forms.Contact.RateLimit != 5 {
		t.Fatalf("contact limits not defaulted: %+v", cfg.Forms.Contact)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("logging not defaulted: %+v", cfg.Logging)
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	cases := []string{
		"server:\n  addr: :8080\nforms:\n  contact:\n    rate_limit: -1\n    window_minutes: 15\n",
		"logging:\n  level: loud\n",
		"logging:\n  format: xml\n",
		"{not yaml",
	}
	for _, in := range cases {
		if _, err := FromYAML([]byte(in)); err == nil {
			t.Errorf("config %q accepted", in)
		}
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with no file: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Fatalf("expected defaults, got %+v", cfg.Server)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for an explicit missing path")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luschuster.yml")
	body := "server:\n  addr: 127.0.0.1:7070\nforms:\n  quote:\n    rate_limit: 10\n    window_minutes: 5\n    processing_delay_ms: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7070" {
		t.Fatalf("addr %q", cfg.Server.Addr)
	}
	if got := cfg.Forms.Quote.Rule(); got.Limit != 10 || got.Window != 5*time.Minute {
		t.Fatalf("quote rule %+v", got)
	}
	if cfg.Forms.Quote.Delay() != 0 {
		t.Fatalf("quote delay %v", cfg.Forms.Quote.Delay())
	}
}
