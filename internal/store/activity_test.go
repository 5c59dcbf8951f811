package store

import (
	"testing"
	"time"

	"github.com/foodian-app/foodian/internal/model"
)

func TestActivityListNewestFirst(t *testing.T) {
	fx := setupItemTestDB(t)
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		if _, err := fx.activities.Record(model.Activity{
			FamilyID: fx.familyID, Type: model.ActivityAdd, ItemName: name,
			ActorID: &fx.userID, At: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	acts, err := fx.activities.List(fx.familyID, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(acts) != 5 {
		t.Fatalf("len = %d, want 5", len(acts))
	}
	if acts[0].ItemName != "f" || acts[4].ItemName != "b" {
		t.Errorf("order = %s..%s, want f..b", acts[0].ItemName, acts[4].ItemName)
	}
	if acts[0].Actor != "Alice" {
		t.Errorf("actor = %q, want Alice", acts[0].Actor)
	}
}

func TestEventListFilters(t *testing.T) {
	fx := setupItemTestDB(t)
	now := time.Now().UTC()

	records := []model.InventoryEvent{
		{Kind: model.EventConsumed, Qty: 1, Storage: model.StorageFrozen, At: now.AddDate(0, 0, -20)},
		{Kind: model.EventConsumed, Qty: 2, Storage: model.StorageFrozen, At: now.AddDate(0, 0, -1)},
		{Kind: model.EventDiscarded, Qty: 3, Storage: model.StoragePantry, At: now},
	}
	for _, e := range records {
		e.FamilyID = fx.familyID
		e.ItemID = "x"
		e.ExpireDate = "2026-10-10"
		if _, err := fx.events.Record(e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, _ := fx.events.List(fx.familyID, now.AddDate(0, 0, -10), "")
	if len(recent) != 2 {
		t.Errorf("recent = %d, want 2", len(recent))
	}
	frozen, _ := fx.events.List(fx.familyID, time.Time{}, model.StorageFrozen)
	if len(frozen) != 2 {
		t.Errorf("frozen = %d, want 2", len(frozen))
	}
}

func TestRecordAlertKeepsFirst(t *testing.T) {
	fx := setupItemTestDB(t)

	first := model.ExpiryAlert{FamilyID: fx.familyID, ItemID: "i1", ItemName: "milk", Qty: 2, Storage: model.StorageRefrigerated, ExpireDate: "2026-10-18"}
	if err := fx.events.RecordAlert(first); err != nil {
		t.Fatalf("record alert: %v", err)
	}
	second := first
	second.Qty = 1
	if err := fx.events.RecordAlert(second); err != nil {
		t.Fatalf("record alert again: %v", err)
	}

	alerts, err := fx.events.ListAlerts(fx.familyID, time.Time{}, "")
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Qty != 2 {
		t.Errorf("alerts = %+v, want single alert with qty 2", alerts)
	}
}
