package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DEADLINE_TICK_INTERVAL", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DeadlineTickInterval != time.Minute || cfg.DeadlineGraceWindow != 6*time.Hour {
		t.Fatalf("unexpected scheduler defaults %+v", cfg)
	}
	if cfg.RecurrenceMaxInstances != 365 || cfg.HTTPPort != "8080" || !cfg.EnableDeadlineScheduler {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("kafka must be opt-in, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadLayersFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheepyard.yaml")
	content := strings.Join([]string{
		"http_port: \"9000\"",
		"deadline_tick_interval: 30s",
		"kafka_brokers: [\"k1:9092\"]",
		"discord_guild_id: \"guild-file\"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DISCORD_GUILD_ID", "guild-env")
	t.Setenv("DEADLINE_GRACE_WINDOW", "3600")
	t.Setenv("ENABLE_DEADLINE_SCHEDULER", "off")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "9000" || cfg.DeadlineTickInterval != 30*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DiscordGuildID != "guild-env" || cfg.DeadlineGraceWindow != time.Hour || cfg.EnableDeadlineScheduler {
		t.Fatalf("environment must win over file: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "k1:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadRejectsUnknownKeysAndInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("no_such_key: 1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown key error")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}

	t.Setenv("RECURRENCE_MAX_INSTANCES", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags("api", []string{"--config", "/etc/sheepyard.yaml", "--port", "7000"}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if flags.ConfigPath != "/etc/sheepyard.yaml" {
		t.Fatalf("unexpected config path %q", flags.ConfigPath)
	}
	if cfg := flags.Apply(Defaults()); cfg.HTTPPort != "7000" {
		t.Fatalf("port flag not applied: %q", cfg.HTTPPort)
	}

	var out bytes.Buffer
	flags, err = ParseFlags("api", []string{"-h"}, &out)
	if err != nil || !flags.Help {
		t.Fatalf("expected help, got %+v %v", flags, err)
	}
	if _, err := ParseFlags("api", []string{"extra"}, nil); err == nil {
		t.Fatal("expected unexpected argument error")
	}
}
