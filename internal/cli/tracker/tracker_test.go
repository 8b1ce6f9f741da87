package tracker

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"InspectVault/internal/cli/model"
	"InspectVault/internal/cli/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	t.Setenv("CLIENT_DB_PATH", filepath.Join(dir, "db"))
	_ = os.MkdirAll(filepath.Join(dir, "db"), 0o700)

	s, _, err := store.OpenForUser("tracker-test")
	if err != nil {
		t.Fatalf("OpenForUser: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestTracker_LifecycleAndPendingCount(t *testing.T) {
	s := newTestStore(t)
	tr := New(s)

	rev := int64(1)
	_ = s.Put(&model.Record{ID: "r1", Kind: model.KindAsset, SyncState: model.StateClean, RemoteRevision: &rev})
	_ = s.Put(&model.Record{ID: "r2", Kind: model.KindAsset, SyncState: model.StateClean, RemoteRevision: &rev})

	n, err := tr.PendingCount()
	if err != nil || n != 0 {
		t.Fatalf("clean store must have 0 pending, got %d err=%v", n, err)
	}

	if err := tr.MarkDirty(model.KindAsset, "r1"); err != nil {
		t.Fatal(err)
	}
	if err := tr.MarkError(model.KindAsset, "r2"); err != nil {
		t.Fatal(err)
	}
	n, _ = tr.PendingCount()
	if n != 2 {
		t.Fatalf("expected 2 pending, got %d", n)
	}

	if err := tr.MarkClean(model.KindAsset, "r1", 7); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(model.KindAsset, "r1")
	if got.SyncState != model.StateClean || got.RemoteRevision == nil || *got.RemoteRevision != 7 {
		t.Fatalf("mark clean: %+v", got)
	}
	if got.DirtyAt != 0 {
		t.Fatalf("clean record must leave the queue, dirty_at=%d", got.DirtyAt)
	}

	if err := tr.MarkConflict(model.KindAsset, "r2"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(model.KindAsset, "r2")
	if got.SyncState != model.StateConflict {
		t.Fatalf("mark conflict: %+v", got)
	}

	// conflict всё ещё ожидает синхронизации
	n, _ = tr.PendingCount()
	if n != 1 {
		t.Fatalf("expected 1 pending, got %d", n)
	}
}
