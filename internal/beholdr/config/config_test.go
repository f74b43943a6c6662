package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	if err := Load(v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg := Get()
	if cfg.Version != "0.1" {
		t.Errorf("default Version = %v, want 0.1", cfg.Version)
	}
	if cfg.Relay.MaxQueueSize != 1024 {
		t.Errorf("default MaxQueueSize = %v, want 1024", cfg.Relay.MaxQueueSize)
	}
	if cfg.Relay.SendTimeout != 5*time.Second {
		t.Errorf("default SendTimeout = %v, want 5s", cfg.Relay.SendTimeout)
	}
	if cfg.Relay.RetryInitial != 10*time.Millisecond {
		t.Errorf("default RetryInitial = %v, want 10ms", cfg.Relay.RetryInitial)
	}
	if cfg.Index.WarmupSeconds != 300 {
		t.Errorf("default WarmupSeconds = %v, want 300", cfg.Index.WarmupSeconds)
	}
	if cfg.Warmup() != 5*time.Minute {
		t.Errorf("Warmup() = %v, want 5m", cfg.Warmup())
	}
	if cfg.Input.Format != "sql" {
		t.Errorf("default Format = %v, want sql", cfg.Input.Format)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Level = %v, want info", cfg.Logging.Level)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	v := viper.New()
	v.Set("relay.destination", "redis://cache:6380?list=shapes")
	v.Set("relay.max_queue_size", 16)
	v.Set("relay.send_timeout", "250ms")
	v.Set("relay.retry_initial", "1ms")
	v.Set("relay.retry_max", "1s")
	v.Set("index.warmup_seconds", 60)
	v.Set("admin.listen", ":9000")
	v.Set("input.format", "auditr")
	v.Set("input.file_path", "./events.ndjson")
	v.Set("input.user", "app")
	v.Set("input.address", "10.0.0.1")
	v.Set("output.reject_file", "./rejected.jsonl")
	v.Set("logging.level", "debug")
	v.Set("logging.console_level", "warn")
	v.Set("logging.debug_file", "./debug.log")
	v.Set("logging.run_log", "./run.jsonl")

	if err := Load(v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := Get()

	if cfg.Relay.Destination != "redis://cache:6380?list=shapes" {
		t.Errorf("Destination = %v", cfg.Relay.Destination)
	}
	if cfg.Relay.MaxQueueSize != 16 {
		t.Errorf("MaxQueueSize = %v, want 16", cfg.Relay.MaxQueueSize)
	}
	if cfg.Relay.SendTimeout != 250*time.Millisecond {
		t.Errorf("SendTimeout = %v, want 250ms", cfg.Relay.SendTimeout)
	}
	if cfg.Relay.RetryMax != time.Second {
		t.Errorf("RetryMax = %v, want 1s", cfg.Relay.RetryMax)
	}
	if cfg.Index.WarmupSeconds != 60 {
		t.Errorf("WarmupSeconds = %v, want 60", cfg.Index.WarmupSeconds)
	}
	if cfg.Admin.Listen != ":9000" {
		t.Errorf("Listen = %v, want :9000", cfg.Admin.Listen)
	}
	if cfg.Input.Format != "auditr" || cfg.Input.FilePath != "./events.ndjson" {
		t.Errorf("Input = %+v", cfg.Input)
	}
	if cfg.Input.User != "app" || cfg.Input.Address != "10.0.0.1" {
		t.Errorf("Input principal = %+v", cfg.Input)
	}
	if cfg.Output.RejectFile != "./rejected.jsonl" {
		t.Errorf("RejectFile = %v", cfg.Output.RejectFile)
	}
	if cfg.Logging.ConsoleLevel != "warn" || cfg.Logging.DebugFile != "./debug.log" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Logging.RunLog != "./run.jsonl" {
		t.Errorf("RunLog = %v", cfg.Logging.RunLog)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BEHOLDR_RELAY_DESTINATION", "file:///tmp/env.ndjson")

	v := viper.New()
	if err := Load(v); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := Get().Relay.Destination; got != "file:///tmp/env.ndjson" {
		t.Errorf("Destination = %v, want env override", got)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"zero queue size", "relay.max_queue_size", 0},
		{"negative warmup", "index.warmup_seconds", -1},
		{"negative timeout", "relay.send_timeout", "-1s"},
		{"unparseable duration", "relay.retry_max", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			if err := Load(v); err == nil {
				t.Errorf("Load() error = nil, want error for %s=%v", tt.key, tt.val)
			}
		})
	}
}

func TestGet_NilConfig(t *testing.T) {
	cfg = nil

	c := Get()
	if c == nil {
		t.Fatal("Get() = nil, want empty config")
	}
	if c.Version != "" {
		t.Errorf("Version = %v, want empty string", c.Version)
	}
}

func TestGet_Singleton(t *testing.T) {
	cfg = nil

	c1 := Get()
	c2 := Get()
	if c2 != c1 {
		t.Error("Get() returned different instance")
	}
}
