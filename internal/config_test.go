package internal

import (
	"os"
	"path/filepath"
	"testing"

	pkgconfig "github.com/starford/inkpact/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
	cfg := HTTPConfig{Port: 3000}
	if got := cfg.Address(); got != ":3000" {
		t.Errorf("address = %q, want :3000", got)
	}
}

func TestDataConfig_PathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Data.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty data path should fail")
	}
}

func TestUploadsConfig_Bounds(t *testing.T) {
	for _, n := range []int64{0, maxUploadCeiling + 1} {
		cfg := UploadsConfig{MaxBytes: n}
		if err := cfg.Validate(); err == nil {
			t.Errorf("max_bytes %d should fail", n)
		}
	}
}

func TestJournalConfig_PathRequiredWhenEnabled(t *testing.T) {
	cfg := JournalConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled journal without path should fail")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled journal should pass: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("INKPACT_TEST_DATA", "/srv/inkpact/data")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 8088
data:
  path: ${INKPACT_TEST_DATA}
uploads:
  max_bytes: 2097152
journal:
  enabled: false
cors:
  allowed_origins: ["http://localhost:5173"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 8088 || cfg.Data.Path != "/srv/inkpact/data" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Uploads.MaxBytes != 2<<20 || cfg.Journal.Enabled {
		t.Errorf("uploads/journal = %+v %+v", cfg.Uploads, cfg.Journal)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_ = os.WriteFile(path, []byte("app:\n  http:\n    port: 0\n"), 0o644)
	if err := pkgconfig.Load(path, NewDefaultConfig()); err == nil {
		t.Fatal("invalid port should fail Load")
	}
}
