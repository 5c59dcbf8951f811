package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodian-app/foodian/internal/model"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

func insertActivity(ex execer, a *model.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	_, err := ex.Exec(
		`INSERT INTO activities (id, family_id, type, item_name, delta_qty, actor_id, storage, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.FamilyID, a.Type, a.ItemName, a.DeltaQty, a.ActorID, a.Storage, a.At,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Record inserts a standalone activity entry.
func (s *ActivityStore) Record(a model.Activity) (*model.Activity, error) {
	if err := insertActivity(s.db, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns the newest activities of a family, newest first.
func (s *ActivityStore) List(familyID int64, limit int) ([]model.Activity, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.family_id, a.type, a.item_name, a.delta_qty, a.actor_id, COALESCE(u.name, ''), a.storage, a.at
		 FROM activities a LEFT JOIN users u ON u.id = a.actor_id
		 WHERE a.family_id = ?
		 ORDER BY a.at DESC, a.rowid DESC
		 LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		var a model.Activity
		var typ, storage string
		var delta sql.NullFloat64
		var actor sql.NullInt64
		if err := rows.Scan(&a.ID, &a.FamilyID, &typ, &a.ItemName, &delta, &actor, &a.Actor, &storage, &a.At); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = model.ActivityType(typ)
		a.Storage = model.Storage(storage)
		if delta.Valid {
			a.DeltaQty = &delta.Float64
		}
		if actor.Valid {
			a.ActorID = &actor.Int64
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
