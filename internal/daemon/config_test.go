package daemon

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 7732 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7732)
	}
	if cfg.Network.Enabled {
		t.Errorf("Network.Enabled = true, want false (opt-in)")
	}
	if cfg.Storage.BaseDir == "" {
		t.Errorf("Storage.BaseDir is empty")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("STRAND_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("LoadConfig without a config file should return defaults")
	}
}

func TestSaveThenLoadConfigRoundTrips(t *testing.T) {
	t.Setenv("STRAND_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.API.Port = 9999
	cfg.Network.Enabled = true

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.API.Port != 9999 {
		t.Errorf("loaded API.Port = %d, want 9999", loaded.API.Port)
	}
	if !loaded.Network.Enabled {
		t.Errorf("loaded Network.Enabled = false, want true")
	}
}
