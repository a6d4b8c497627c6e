package config

import (
	"path/filepath"
	"testing"
)

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	settings := NewSettingsFile(path)

	if settings.Exists() {
		t.Fatal("Exists before any write")
	}
	if settings.OpenAIAPIKey() != "" || settings.LastDriveSync() != "" {
		t.Fatal("fresh settings should be empty")
	}

	if err := settings.SetOpenAIAPIKey("sk-abc"); err != nil {
		t.Fatalf("SetOpenAIAPIKey: %v", err)
	}
	if err := settings.SetLastDriveSync("2026-08-28T10:00:00Z"); err != nil {
		t.Fatalf("SetLastDriveSync: %v", err)
	}

	// Fields must not clobber each other.
	if settings.OpenAIAPIKey() != "sk-abc" {
		t.Fatalf("key = %q", settings.OpenAIAPIKey())
	}
	if settings.LastDriveSync() != "2026-08-28T10:00:00Z" {
		t.Fatalf("lastSync = %q", settings.LastDriveSync())
	}
	if !settings.Exists() {
		t.Fatal("Exists after write")
	}

	// A second handle over the same file sees the persisted state.
	reopened := NewSettingsFile(path)
	if reopened.OpenAIAPIKey() != "sk-abc" {
		t.Fatalf("reopened key = %q", reopened.OpenAIAPIKey())
	}
}
