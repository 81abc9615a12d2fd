package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./tunebox.db" {
			t.Errorf("expected database path ./tunebox.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 5000 {
			t.Errorf("expected server port 5000, got %d", config.Server.Port)
		}

		if config.Server.DefaultUser != "guest" {
			t.Errorf("expected default user guest, got %s", config.Server.DefaultUser)
		}

		if config.Player.Volume != 80 {
			t.Errorf("expected player volume 80, got %d", config.Player.Volume)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20

[server]
port = 8080
upload_dir = "/srv/uploads"
default_user = "dj"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.DefaultUser != "dj" {
			t.Errorf("expected default user dj, got %s", config.Server.DefaultUser)
		}

		if config.Server.Host != "0.0.0.0" {
			t.Errorf("omitted keys should keep defaults, got host %q", config.Server.Host)
		}

		if got := config.Server.Addr(); got != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", got)
		}
	})

	t.Run("LoadConfig rejects invalid port", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server]\nport = 70000\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("missing file should fall back to defaults: %v", err)
		}
		if config.Server.Port != 5000 {
			t.Errorf("expected default port, got %d", config.Server.Port)
		}
	})

	t.Run("MaxUploadBytes", func(t *testing.T) {
		s := ServerConfig{MaxUploadMB: 2}
		if got := s.MaxUploadBytes(); got != 2<<20 {
			t.Errorf("expected %d, got %d", 2<<20, got)
		}
		if got := (ServerConfig{}).MaxUploadBytes(); got != 32<<20 {
			t.Errorf("expected fallback of 32MB, got %d", got)
		}
	})
}
