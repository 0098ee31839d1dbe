package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("unexpected write timeout: %s", cfg.Server.WriteTimeout)
	}
	if cfg.Storage.Path != defaultStoragePath {
		t.Errorf("expected default storage path %s, got %s", defaultStoragePath, cfg.Storage.Path)
	}
	if cfg.Shipping.FreeThreshold != defaultFreeThreshold {
		t.Errorf("unexpected free shipping threshold: %d", cfg.Shipping.FreeThreshold)
	}
	if cfg.Shipping.FlatFee != defaultShippingFee {
		t.Errorf("unexpected flat shipping fee: %d", cfg.Shipping.FlatFee)
	}
	if !cfg.Features.EnableCoupons {
		t.Errorf("expected coupons enabled by default")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":             "9090",
		"API_SERVER_READ_TIMEOUT":     "20s",
		"API_SERVER_WRITE_TIMEOUT":    "25s",
		"API_SERVER_IDLE_TIMEOUT":     "2m",
		"API_STORAGE_PATH":            "/var/lib/agenticmirror/state.db",
		"API_SHIPPING_FREE_THRESHOLD": "500",
		"API_SHIPPING_FLAT_FEE":       "25",
		"API_FEATURE_COUPONS":         "off",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Storage.Path != "/var/lib/agenticmirror/state.db" {
		t.Errorf("unexpected storage path: %s", cfg.Storage.Path)
	}
	if cfg.Shipping.FreeThreshold != 500 {
		t.Errorf("unexpected free shipping threshold: %d", cfg.Shipping.FreeThreshold)
	}
	if cfg.Shipping.FlatFee != 25 {
		t.Errorf("unexpected flat shipping fee: %d", cfg.Shipping.FlatFee)
	}
	if cfg.Features.EnableCoupons {
		t.Errorf("expected coupons disabled")
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "API_SERVER_PORT=7070\nexport API_STORAGE_PATH=\"mirror.db\"\n# comment\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Path != "mirror.db" {
		t.Errorf("expected storage path from .env, got %s", cfg.Storage.Path)
	}
}

func TestLoadEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("API_SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(
		WithEnvMap(map[string]string{"API_SERVER_PORT": "6060"}),
		WithoutSystemEnv(),
		WithEnvFile(envFile),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "6060" {
		t.Errorf("expected explicit env map to win, got %s", cfg.Server.Port)
	}
}

func TestLoadValidatesFields(t *testing.T) {
	env := map[string]string{
		"API_STORAGE_PATH":            " ",
		"API_SHIPPING_FREE_THRESHOLD": "-1",
	}

	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := validation.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected 2 invalid fields, got %v", fields)
	}
}

func TestLoadIgnoresInvalidNumericValues(t *testing.T) {
	env := map[string]string{
		"API_SHIPPING_FLAT_FEE":   "not-a-number",
		"API_SERVER_READ_TIMEOUT": "soon",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Shipping.FlatFee != defaultShippingFee {
		t.Errorf("expected fallback flat fee, got %d", cfg.Shipping.FlatFee)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected fallback read timeout, got %s", cfg.Server.ReadTimeout)
	}
}
