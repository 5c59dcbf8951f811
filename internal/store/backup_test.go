package store

import (
	"testing"
	"time"

	"github.com/foodian-app/foodian/internal/model"
)

func setupBackupTestDB(t *testing.T) *BackupStore {
	t.Helper()
	return NewBackupStore(setupTestDB(t))
}

func TestBackupCreate(t *testing.T) {
	bs := setupBackupTestDB(t)

	b, err := bs.Create("backup-2026.db.enc", "backups/backup-2026.db.enc")
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}
	if b.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if b.Status != model.BackupStatusPending {
		t.Errorf("status = %q, want pending", b.Status)
	}

	got, err := bs.GetByID(b.ID)
	if err != nil || got == nil {
		t.Fatalf("get = %v, %v", got, err)
	}
	if got.S3Key != "backups/backup-2026.db.enc" {
		t.Errorf("s3 key = %q", got.S3Key)
	}
}

func TestBackupStatusTransitions(t *testing.T) {
	bs := setupBackupTestDB(t)
	b, _ := bs.Create("a.db.enc", "a")

	if err := bs.UpdateStatus(b.ID, model.BackupStatusFailed, "boom"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := bs.GetByID(b.ID)
	if got.Status != model.BackupStatusFailed || got.ErrorMessage != "boom" {
		t.Errorf("got = %+v, want failed with message", got)
	}

	c, _ := bs.Create("b.db.enc", "b")
	if err := bs.UpdateCompleted(c.ID, 2048); err != nil {
		t.Fatalf("update completed: %v", err)
	}
	latest, err := bs.LatestCompleted()
	if err != nil || latest == nil {
		t.Fatalf("latest = %v, %v", latest, err)
	}
	if latest.ID != c.ID || latest.SizeBytes != 2048 || latest.CompletedAt == nil {
		t.Errorf("latest = %+v", latest)
	}

	list, _ := bs.List(10)
	if len(list) != 2 {
		t.Errorf("list = %d, want 2", len(list))
	}
}

func TestBackupDeleteOlderThan(t *testing.T) {
	bs := setupBackupTestDB(t)
	b, _ := bs.Create("old.db.enc", "old")
	bs.Create("new.db.enc", "new")

	old := time.Now().UTC().AddDate(0, 0, -40)
	if _, err := bs.db.Exec(`UPDATE backups SET created_at = ? WHERE id = ?`, old, b.ID); err != nil {
		t.Fatalf("age backup: %v", err)
	}

	keys, err := bs.DeleteOlderThan(time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("delete older: %v", err)
	}
	if len(keys) != 1 || keys[0] != "old" {
		t.Errorf("keys = %v, want [old]", keys)
	}
	list, _ := bs.List(10)
	if len(list) != 1 {
		t.Errorf("remaining = %d, want 1", len(list))
	}
}
