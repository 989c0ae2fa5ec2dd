package infra

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PROJECT_ID", "demo-project")
	t.Setenv("GCS_BUCKET", "demo-bucket")
	t.Setenv("STORAGE_PATH", "")
	t.Setenv("FIREBASE_PROJECT_ID", "")
	t.Setenv("LOCATION", "")
	t.Setenv("ALLOWED_EMAILS", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Location != "us-central1" {
		t.Fatalf("Location = %q, want us-central1", cfg.Location)
	}
	if cfg.FirebaseProjectID != "demo-project" {
		t.Fatalf("FirebaseProjectID = %q, want fallback to PROJECT_ID", cfg.FirebaseProjectID)
	}
	if cfg.GeminiImageModel == "" || cfg.VeoModel == "" {
		t.Fatalf("model defaults missing: %q / %q", cfg.GeminiImageModel, cfg.VeoModel)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without DATABASE_URL")
	}
}

func TestLoadConfigRequiresProjectID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PROJECT_ID", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without PROJECT_ID")
	}
}

func TestLoadConfigRequiresSomeStorage(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GCS_BUCKET", "")
	t.Setenv("STORAGE_PATH", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error without GCS_BUCKET or STORAGE_PATH")
	}
}

func TestLoadConfigStoragePathAlone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GCS_BUCKET", "")
	t.Setenv("STORAGE_PATH", "/tmp/blobs")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StoragePath != "/tmp/blobs" {
		t.Fatalf("StoragePath = %q", cfg.StoragePath)
	}
}

func TestLoadConfigParsesAllowedEmails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_EMAILS", "a@example.com, b@example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"a@example.com", "b@example.com"}
	if len(cfg.AllowedEmails) != len(want) {
		t.Fatalf("AllowedEmails = %#v, want %#v", cfg.AllowedEmails, want)
	}
	for i := range want {
		if cfg.AllowedEmails[i] != want[i] {
			t.Fatalf("AllowedEmails[%d] = %q, want %q", i, cfg.AllowedEmails[i], want[i])
		}
	}
}
