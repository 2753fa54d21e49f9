package config_test

import (
	"testing"
	"time"

	"github.com/sksmith/inventory-allocation/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.LoadDefaults()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{name: "port", got: cfg.Port, want: "8080"},
		{name: "profile", got: cfg.Profile, want: "local"},
		{name: "strategy", got: cfg.Inventory.Strategy, want: "journaling"},
		{name: "compaction", got: cfg.Inventory.CompactionInterval, want: time.Duration(0)},
		{name: "redis ttl", got: cfg.Redis.TTL, want: 24 * time.Hour},
		{name: "allocation queue", got: cfg.RabbitMQ.Allocation.Queue, want: "allocation.queue"},
		{name: "product cache", got: cfg.Cache.ProductSize, want: 1024},
		{name: "app name", got: cfg.AppName, want: config.AppName},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s got=%v want=%v", tt.name, tt.got, tt.want)
		}
	}

	if cfg.Inventory.StrategyDesc == "" {
		t.Errorf("descriptions were not set")
	}
}

func TestScrub(t *testing.T) {
	cfg := config.LoadDefaults()
	cfg.Db.Pass = "secret"
	cfg.Redis.Pass = ""

	scrubbed := cfg.Scrub()

	if scrubbed.Db.Pass == "secret" {
		t.Errorf("db password was not scrubbed")
	}
	if scrubbed.Redis.Pass != "" {
		t.Errorf("empty password should stay empty got=%s", scrubbed.Redis.Pass)
	}
	if cfg.Db.Pass != "secret" {
		t.Errorf("scrub modified the original config")
	}
	if scrubbed.Db.Host != cfg.Db.Host {
		t.Errorf("scrub changed non secret values")
	}
}
