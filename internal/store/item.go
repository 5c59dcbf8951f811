package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodian-app/foodian/internal/model"
)

// ItemStore manages fridge items. Every mutation writes its activity entry
// and inventory event in the same transaction as the item change.
type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemCols = `id, family_id, name, qty, unit, storage, expire_date, tags, added_by, added_at, updated_at`

func scanItem(sc scanner) (*model.Item, error) {
	var it model.Item
	var storage, tags string
	var addedBy sql.NullInt64
	if err := sc.Scan(&it.ID, &it.FamilyID, &it.Name, &it.Qty, &it.Unit, &storage, &it.ExpireDate,
		&tags, &addedBy, &it.AddedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Storage = model.Storage(storage)
	if addedBy.Valid {
		it.AddedBy = &addedBy.Int64
	}
	list, err := decodeList[string](tags)
	if err != nil {
		return nil, err
	}
	it.Tags = list
	return &it, nil
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getItem(q queryRower, familyID int64, id string) (*model.Item, error) {
	row := q.QueryRow(`SELECT `+itemCols+` FROM items WHERE family_id = ? AND id = ?`, familyID, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) GetByID(familyID int64, id string) (*model.Item, error) {
	return getItem(s.db, familyID, id)
}

// List returns every item of a family ordered by expiry date then name.
func (s *ItemStore) List(familyID int64) ([]model.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM items WHERE family_id = ? ORDER BY expire_date, name`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// Create inserts a new item added by actorID.
func (s *ItemStore) Create(it model.Item, actorID int64) (*model.Item, error) {
	tags, err := encodeList(it.Tags)
	if err != nil {
		return nil, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO items (id, family_id, name, qty, unit, storage, expire_date, tags, added_by, added_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.FamilyID, it.Name, it.Qty, it.Unit, it.Storage, it.ExpireDate, tags, actorID, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	qty := it.Qty
	if err := insertActivity(tx, &model.Activity{
		FamilyID: it.FamilyID, Type: model.ActivityAdd, ItemName: it.Name,
		DeltaQty: &qty, ActorID: &actorID, Storage: it.Storage, At: now,
	}); err != nil {
		return nil, err
	}
	if err := insertEvent(tx, &model.InventoryEvent{
		FamilyID: it.FamilyID, ItemID: it.ID, Kind: model.EventAdded, Qty: it.Qty,
		Storage: it.Storage, ExpireDate: it.ExpireDate, At: now,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(it.FamilyID, it.ID)
}

// Update replaces the editable fields of an existing item. Returns nil if the item does not exist.
func (s *ItemStore) Update(it model.Item, actorID int64) (*model.Item, error) {
	tags, err := encodeList(it.Tags)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	prev, err := getItem(tx, it.FamilyID, it.ID)
	if err != nil || prev == nil {
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE items SET name = ?, qty = ?, unit = ?, storage = ?, expire_date = ?, tags = ?, updated_at = ?
		 WHERE family_id = ? AND id = ?`,
		it.Name, it.Qty, it.Unit, it.Storage, it.ExpireDate, tags, now, it.FamilyID, it.ID,
	); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	activity := &model.Activity{
		FamilyID: it.FamilyID, Type: model.ActivityEdit, ItemName: it.Name,
		ActorID: &actorID, Storage: it.Storage, At: now,
	}
	if delta := it.Qty - prev.Qty; delta != 0 {
		activity.DeltaQty = &delta
	}
	if err := insertActivity(tx, activity); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(it.FamilyID, it.ID)
}

// ConsumeResult reports the outcome of consuming part of an item.
type ConsumeResult struct {
	Item     *model.Item `json:"item"`
	Consumed float64     `json:"consumed"`
	Removed  bool        `json:"removed"`
}

// Consume subtracts amount from an item's quantity, never going below zero.
// An item that reaches zero is removed. Returns nil if the item does not exist.
func (s *ItemStore) Consume(familyID int64, id string, amount float64, actorID int64) (*ConsumeResult, error) {
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	it, err := getItem(tx, familyID, id)
	if err != nil || it == nil {
		return nil, err
	}

	consumed := min(amount, it.Qty)
	remaining := it.Qty - consumed
	res := &ConsumeResult{Consumed: consumed}

	if remaining <= 0 {
		if _, err := tx.Exec(`DELETE FROM items WHERE family_id = ? AND id = ?`, familyID, id); err != nil {
			return nil, fmt.Errorf("delete consumed item: %w", err)
		}
		res.Removed = true
		it.Qty = 0
	} else {
		if _, err := tx.Exec(
			`UPDATE items SET qty = ?, updated_at = ? WHERE family_id = ? AND id = ?`,
			remaining, now, familyID, id,
		); err != nil {
			return nil, fmt.Errorf("update qty: %w", err)
		}
		it.Qty = remaining
		it.UpdatedAt = now
	}
	res.Item = it

	alerted, err := wasAlerted(tx, familyID, id)
	if err != nil {
		return nil, err
	}
	delta := -consumed
	if err := insertActivity(tx, &model.Activity{
		FamilyID: familyID, Type: model.ActivityConsume, ItemName: it.Name,
		DeltaQty: &delta, ActorID: &actorID, Storage: it.Storage, At: now,
	}); err != nil {
		return nil, err
	}
	if consumed > 0 {
		if err := insertEvent(tx, &model.InventoryEvent{
			FamilyID: familyID, ItemID: id, Kind: model.EventConsumed, Qty: consumed,
			Storage: it.Storage, ExpireDate: it.ExpireDate, Alerted: alerted, At: now,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// Discard removes an item as thrown away and records its remaining quantity as waste.
func (s *ItemStore) Discard(familyID int64, id string, actorID int64) (*model.Item, error) {
	return s.remove(familyID, id, actorID, model.ActivityDiscard)
}

// Delete removes an item without counting it toward statistics.
func (s *ItemStore) Delete(familyID int64, id string, actorID int64) (*model.Item, error) {
	return s.remove(familyID, id, actorID, model.ActivityDelete)
}

func (s *ItemStore) remove(familyID int64, id string, actorID int64, kind model.ActivityType) (*model.Item, error) {
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	it, err := getItem(tx, familyID, id)
	if err != nil || it == nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE family_id = ? AND id = ?`, familyID, id); err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}

	delta := -it.Qty
	if err := insertActivity(tx, &model.Activity{
		FamilyID: familyID, Type: kind, ItemName: it.Name,
		DeltaQty: &delta, ActorID: &actorID, Storage: it.Storage, At: now,
	}); err != nil {
		return nil, err
	}
	if kind == model.ActivityDiscard {
		alerted, err := wasAlerted(tx, familyID, id)
		if err != nil {
			return nil, err
		}
		if err := insertEvent(tx, &model.InventoryEvent{
			FamilyID: familyID, ItemID: id, Kind: model.EventDiscarded, Qty: it.Qty,
			Storage: it.Storage, ExpireDate: it.ExpireDate, Alerted: alerted, At: now,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return it, nil
}
