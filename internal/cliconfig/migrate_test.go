package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrate_V1ToCurrent(t *testing.T) {
	raw := map[string]any{
		"policy_arn":     "arn:aws:iam::123456789012:policy/candidate",
		"mfa_device":     "arn:aws:iam::123456789012:mfa/user",
		"settle_seconds": 15,
	}

	migrated, from, err := Migrate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != 1 {
		t.Errorf("expected detected version 1, got %d", from)
	}
	if migrated["schema_version"] != 2 {
		t.Errorf("expected schema_version 2, got %v", migrated["schema_version"])
	}
	if migrated["mfa_serial"] != "arn:aws:iam::123456789012:mfa/user" {
		t.Errorf("mfa_device not renamed: %v", migrated)
	}
	if _, ok := migrated["mfa_device"]; ok {
		t.Error("old mfa_device key still present")
	}
	if migrated["settle"] != "15s" {
		t.Errorf("settle_seconds not converted: %v", migrated["settle"])
	}

	// migrations are pure: the input map is untouched
	if _, ok := raw["mfa_serial"]; ok {
		t.Error("input map was mutated")
	}
}

func TestMigrate_AlreadyCurrent(t *testing.T) {
	raw := map[string]any{
		"schema_version": CurrentSchemaVersion,
		"policy_arn":     "arn:...",
	}

	migrated, from, err := Migrate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from != CurrentSchemaVersion {
		t.Errorf("expected detected version %d, got %d", CurrentSchemaVersion, from)
	}
	if migrated["policy_arn"] != "arn:..." {
		t.Errorf("content changed: %v", migrated)
	}
}

func TestMigrate_NewerThanSupported(t *testing.T) {
	raw := map[string]any{"schema_version": CurrentSchemaVersion + 1}
	if _, _, err := Migrate(raw); err == nil {
		t.Error("expected error for newer schema version")
	}
}

func TestLoadFrom_MigratesV1File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	v1 := "policy_arn: arn:aws:iam::123456789012:policy/candidate\nmfa_device: arn:aws:iam::123456789012:mfa/user\nsettle_seconds: 30\n"
	if err := os.WriteFile(path, []byte(v1), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MFASerial != "arn:aws:iam::123456789012:mfa/user" {
		t.Errorf("unexpected mfa serial: %s", cfg.MFASerial)
	}

	settle, err := cfg.SettleDuration()
	if err != nil {
		t.Fatal(err)
	}
	if settle.Seconds() != 30 {
		t.Errorf("expected 30s settle, got %s", settle)
	}
}

func TestSaveTo_LoadFrom_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := &Config{
		PolicyARN: "arn:aws:iam::123456789012:policy/candidate",
		MFASerial: "arn:aws:iam::123456789012:mfa/user",
		Settle:    "45s",
	}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", CurrentSchemaVersion, got.SchemaVersion)
	}
	if got.PolicyARN != cfg.PolicyARN || got.MFASerial != cfg.MFASerial || got.Settle != cfg.Settle {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestLoadFrom_NotFound(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
