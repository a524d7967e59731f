package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE", "TOKEN_TTL", "LOW_STOCK_THRESHOLD", "KAFKA_BROKERS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.Store != "postgres" {
		t.Errorf("Store = %q", cfg.Store)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.LowStockThreshold != 10 {
		t.Errorf("LowStockThreshold = %d", cfg.LowStockThreshold)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("EVENTS_WORKERS", "not-a-number")
	cfg := Load()
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Errorf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.EventsWorkers != 8 {
		t.Errorf("EventsWorkers = %d, want default", cfg.EventsWorkers)
	}
}
