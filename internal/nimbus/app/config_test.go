package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MATRIX_HOMESERVER", "https://matrix.example.com")
	t.Setenv("MATRIX_USER_ID", "@nimbus:example.com")
	t.Setenv("MATRIX_ACCESS_TOKEN", "syt_token")
	t.Setenv("NIMBUS_NLU_ENDPOINT", "https://westus.api.cognitive.microsoft.com")
	t.Setenv("NIMBUS_NLU_APP_ID", "app-id")
	t.Setenv("NIMBUS_NLU_KEY", "nlu-key")
	t.Setenv("NIMBUS_AZURE_TENANT", "tenant-id")
	t.Setenv("NIMBUS_CONFIG", "")
}

func TestLoadConfigFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MATRIX_ROOMS", "!a:example.com, !b:example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Matrix.Homeserver != "https://matrix.example.com" {
		t.Errorf("homeserver = %q", cfg.Matrix.Homeserver)
	}
	if len(cfg.Matrix.AllowedRooms) != 2 || cfg.Matrix.AllowedRooms[1] != "!b:example.com" {
		t.Errorf("rooms = %v", cfg.Matrix.AllowedRooms)
	}
	if cfg.DatabasePath != "./nimbus.db" {
		t.Errorf("database path default = %q", cfg.DatabasePath)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MATRIX_HOMESERVER", "")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for missing homeserver")
	}
	if !strings.Contains(err.Error(), "MATRIX_HOMESERVER") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestLoadConfigFileLayering(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "nimbus.yaml")
	yaml := `
database_path: /var/lib/nimbus/bot.db
azure:
  location: brazilsouth
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NIMBUS_CONFIG", path)
	// Environment overrides the file.
	t.Setenv("NIMBUS_AZURE_LOCATION", "westeurope")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/nimbus/bot.db" {
		t.Errorf("database path = %q, want value from file", cfg.DatabasePath)
	}
	if cfg.Azure.Location != "westeurope" {
		t.Errorf("location = %q, env must override the file", cfg.Azure.Location)
	}
}
