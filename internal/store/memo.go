package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodian-app/foodian/internal/model"
)

type MemoStore struct {
	db *sql.DB
}

func NewMemoStore(db *sql.DB) *MemoStore {
	return &MemoStore{db: db}
}

const memoCols = `id, family_id, text, checked, created_by, created_at`

func scanMemo(sc scanner) (*model.Memo, error) {
	var m model.Memo
	var checked int
	var createdBy sql.NullInt64
	if err := sc.Scan(&m.ID, &m.FamilyID, &m.Text, &checked, &createdBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Checked = checked != 0
	if createdBy.Valid {
		m.CreatedBy = &createdBy.Int64
	}
	return &m, nil
}

func (s *MemoStore) Create(familyID, userID int64, text string) (*model.Memo, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO memos (id, family_id, text, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, familyID, text, userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert memo: %w", err)
	}
	return s.GetByID(familyID, id)
}

func (s *MemoStore) GetByID(familyID int64, id string) (*model.Memo, error) {
	row := s.db.QueryRow(`SELECT `+memoCols+` FROM memos WHERE family_id = ? AND id = ?`, familyID, id)
	m, err := scanMemo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memo: %w", err)
	}
	return m, nil
}

// List returns memos in creation order.
func (s *MemoStore) List(familyID int64) ([]model.Memo, error) {
	rows, err := s.db.Query(
		`SELECT `+memoCols+` FROM memos WHERE family_id = ? ORDER BY created_at, rowid`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list memos: %w", err)
	}
	defer rows.Close()

	memos := []model.Memo{}
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memo: %w", err)
		}
		memos = append(memos, *m)
	}
	return memos, rows.Err()
}

func (s *MemoStore) UpdateText(familyID int64, id, text string) (*model.Memo, error) {
	result, err := s.db.Exec(`UPDATE memos SET text = ? WHERE family_id = ? AND id = ?`, text, familyID, id)
	if err != nil {
		return nil, fmt.Errorf("update memo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(familyID, id)
}

// Toggle flips the checked flag. Returns nil if the memo does not exist.
func (s *MemoStore) Toggle(familyID int64, id string) (*model.Memo, error) {
	result, err := s.db.Exec(
		`UPDATE memos SET checked = 1 - checked WHERE family_id = ? AND id = ?`,
		familyID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle memo: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetByID(familyID, id)
}

// Delete removes a memo and reports whether it existed.
func (s *MemoStore) Delete(familyID int64, id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM memos WHERE family_id = ? AND id = ?`, familyID, id)
	if err != nil {
		return false, fmt.Errorf("delete memo: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ClearChecked deletes every checked memo and returns how many were removed.
func (s *MemoStore) ClearChecked(familyID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM memos WHERE family_id = ? AND checked = 1`, familyID)
	if err != nil {
		return 0, fmt.Errorf("clear checked memos: %w", err)
	}
	return result.RowsAffected()
}
