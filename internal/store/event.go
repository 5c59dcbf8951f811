package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/foodian-app/foodian/internal/model"
)

// EventStore holds the inventory ledger and expiry alerts used for statistics.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func insertEvent(ex execer, e *model.InventoryEvent) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	result, err := ex.Exec(
		`INSERT INTO inventory_events (family_id, item_id, kind, qty, storage, expire_date, alerted, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FamilyID, e.ItemID, e.Kind, e.Qty, e.Storage, e.ExpireDate, boolToInt(e.Alerted), e.At,
	)
	if err != nil {
		return fmt.Errorf("insert inventory event: %w", err)
	}
	e.ID, _ = result.LastInsertId()
	return nil
}

func (s *EventStore) Record(e model.InventoryEvent) (*model.InventoryEvent, error) {
	if err := insertEvent(s.db, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events for a family at or after since, optionally limited to one storage.
func (s *EventStore) List(familyID int64, since time.Time, storage model.Storage) ([]model.InventoryEvent, error) {
	query := `SELECT id, family_id, item_id, kind, qty, storage, expire_date, alerted, at
		FROM inventory_events WHERE family_id = ? AND at >= ?`
	args := []any{familyID, since.UTC()}
	if storage != "" {
		query += ` AND storage = ?`
		args = append(args, storage)
	}
	query += ` ORDER BY at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory events: %w", err)
	}
	defer rows.Close()

	var out []model.InventoryEvent
	for rows.Next() {
		var e model.InventoryEvent
		var kind, st string
		var alerted int
		if err := rows.Scan(&e.ID, &e.FamilyID, &e.ItemID, &kind, &e.Qty, &st, &e.ExpireDate, &alerted, &e.At); err != nil {
			return nil, fmt.Errorf("scan inventory event: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.Storage = model.Storage(st)
		e.Alerted = alerted != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordAlert stores the first expiry alert for an item. Later alerts for the
// same item are ignored so the alerted quantity reflects the first warning.
func (s *EventStore) RecordAlert(a model.ExpiryAlert) error {
	if a.AlertedAt.IsZero() {
		a.AlertedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO expiry_alerts (family_id, item_id, item_name, qty, storage, expire_date, alerted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.FamilyID, a.ItemID, a.ItemName, a.Qty, a.Storage, a.ExpireDate, a.AlertedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record expiry alert: %w", err)
	}
	return nil
}

func wasAlerted(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, familyID int64, itemID string) (bool, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM expiry_alerts WHERE family_id = ? AND item_id = ?`, familyID, itemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check expiry alert: %w", err)
	}
	return n > 0, nil
}

// ListAlerts returns alerts sent at or after since, optionally limited to one storage.
func (s *EventStore) ListAlerts(familyID int64, since time.Time, storage model.Storage) ([]model.ExpiryAlert, error) {
	query := `SELECT family_id, item_id, item_name, qty, storage, expire_date, alerted_at
		FROM expiry_alerts WHERE family_id = ? AND alerted_at >= ?`
	args := []any{familyID, since.UTC()}
	if storage != "" {
		query += ` AND storage = ?`
		args = append(args, storage)
	}
	query += ` ORDER BY alerted_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expiry alerts: %w", err)
	}
	defer rows.Close()

	var out []model.ExpiryAlert
	for rows.Next() {
		var a model.ExpiryAlert
		var st string
		if err := rows.Scan(&a.FamilyID, &a.ItemID, &a.ItemName, &a.Qty, &st, &a.ExpireDate, &a.AlertedAt); err != nil {
			return nil, fmt.Errorf("scan expiry alert: %w", err)
		}
		a.Storage = model.Storage(st)
		out = append(out, a)
	}
	return out, rows.Err()
}
