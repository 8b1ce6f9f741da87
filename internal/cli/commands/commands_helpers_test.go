package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"InspectVault/internal/cli/auth"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/config"
)

// withTempConfig переопределяет пользовательские каталоги на время теста,
// чтобы артефакты (токен/логин/база) создавались в temp.
func withTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	db := filepath.Join(dir, "db")
	_ = os.MkdirAll(db, 0o700)
	t.Setenv("CLIENT_DB_PATH", db)
	t.Setenv("TOKEN_FILE", "")
	return dir
}

// captureOut подменяет вывод CLI на буфер до конца теста.
func captureOut(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := Out
	buf := &bytes.Buffer{}
	Out = buf
	t.Cleanup(func() { Out = old })
	return buf
}

// seedUser имитирует выполненный login: токен, логин, организация.
func seedUser(t *testing.T) {
	t.Helper()
	if err := auth.SaveToken("test-token"); err != nil {
		t.Fatal(err)
	}
	if err := auth.SaveLastLogin("tester"); err != nil {
		t.Fatal(err)
	}
	if err := auth.SaveOrgID("org-1"); err != nil {
		t.Fatal(err)
	}
}

func openUserStore(t *testing.T) *store.Store {
	t.Helper()
	s, _, err := store.OpenForUser("tester")
	if err != nil {
		t.Fatalf("OpenForUser: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func offlineConfig() *config.Config {
	return &config.Config{
		ServerURL:      "http://127.0.0.1:1",
		HTTPTimeoutSec: 1,
		AutoSync:       false,
		Model3DMaxMB:   50,
		VesselImgMaxMB: 10,
		ScanImageMaxMB: 5,
		ScanDataMaxMB:  100,
	}
}
