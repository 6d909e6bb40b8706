package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("ebtfinder-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telemetry.ServiceName != "ebtfinder-test" {
		t.Errorf("service name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Search.DefaultLimit != 50 || cfg.Search.MaxLimit != 100 {
		t.Errorf("limits = %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Trending.Window() != 30*24*time.Hour {
		t.Errorf("window = %v", cfg.Trending.Window())
	}
	if cfg.Search.StorageTimeout() != 2*time.Second {
		t.Errorf("storage timeout = %v", cfg.Search.StorageTimeout())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("EBTFINDER_SEARCH_MAX_RADIUS_MILES", "250")
	t.Setenv("EBTFINDER_TRENDING_CLICK_RADIUS_MILES", "12.5")

	cfg, err := Load("ebtfinder-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.MaxRadiusMiles != 250 {
		t.Errorf("max radius = %v", cfg.Search.MaxRadiusMiles)
	}
	if cfg.Trending.ClickRadiusMiles != 12.5 {
		t.Errorf("click radius = %v", cfg.Trending.ClickRadiusMiles)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := Load("ebtfinder-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Server.Port = 0
	cfg.Search.Workers = 0
	cfg.Trending.DecayFloor = 1.5

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "search.workers", "trending.decay_floor"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestValidate_MaxLimitCapped(t *testing.T) {
	cfg, err := Load("ebtfinder-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Search.MaxLimit = 500
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "search.max_limit") {
		t.Errorf("expected max_limit error, got %v", err)
	}
}
