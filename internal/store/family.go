package store

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/foodian-app/foodian/internal/model"
)

const (
	familyCodeLength   = 8
	familyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeAttempts       = 5
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `f.id, f.name, f.code, f.leader_id, f.storages, f.created_at`

func scanFamily(sc scanner) (*model.Family, error) {
	var f model.Family
	var storages string
	if err := sc.Scan(&f.ID, &f.Name, &f.Code, &f.LeaderID, &storages, &f.CreatedAt); err != nil {
		return nil, err
	}
	list, err := decodeList[model.Storage](storages)
	if err != nil {
		return nil, err
	}
	f.Storages = list
	return &f, nil
}

const memberSelect = `SELECT fm.family_id, fm.user_id, u.username, u.name, u.thumbnail_url, fm.role, fm.joined_at
	FROM family_members fm JOIN users u ON u.id = fm.user_id`

func scanMember(sc scanner) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var role string
	if err := sc.Scan(&m.FamilyID, &m.UserID, &m.Username, &m.Name, &m.ThumbnailURL, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}

// GenerateCode returns a random join code from an alphabet without look-alike characters.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(familyCodeAlphabet)))
	b := make([]byte, familyCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = familyCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Create makes a new family led by leaderID.
// Returns ErrAlreadyInFamily if the leader already belongs to one.
func (s *FamilyStore) Create(leaderID int64, name string) (*model.Family, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRow(`SELECT family_id FROM family_members WHERE user_id = ?`, leaderID).Scan(&existing)
	if err == nil {
		return nil, ErrAlreadyInFamily
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check membership: %w", err)
	}

	var familyID int64
	for attempt := 0; ; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		result, err := tx.Exec(
			`INSERT INTO families (name, code, leader_id) VALUES (?, ?, ?)`,
			name, code, leaderID,
		)
		if isUniqueViolation(err) && attempt < codeAttempts {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert family: %w", err)
		}
		familyID, err = result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		break
	}

	if _, err := tx.Exec(
		`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`,
		familyID, leaderID, model.RoleLeader,
	); err != nil {
		return nil, fmt.Errorf("insert leader: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(familyID)
}

func (s *FamilyStore) GetByID(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families f WHERE f.id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (s *FamilyStore) GetByCode(code string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT `+familyCols+` FROM families f WHERE f.code = ?`, code)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by code: %w", err)
	}
	return f, nil
}

// GetForUser returns the user's family and role, or a nil family if the user has none.
func (s *FamilyStore) GetForUser(userID int64) (*model.Family, model.Role, error) {
	var role string
	row := s.db.QueryRow(
		`SELECT `+familyCols+`, fm.role FROM families f
		 JOIN family_members fm ON fm.family_id = f.id
		 WHERE fm.user_id = ?`, userID,
	)
	var f model.Family
	var storages string
	err := row.Scan(&f.ID, &f.Name, &f.Code, &f.LeaderID, &storages, &f.CreatedAt, &role)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("get family for user: %w", err)
	}
	if f.Storages, err = decodeList[model.Storage](storages); err != nil {
		return nil, "", err
	}
	return &f, model.Role(role), nil
}

// Join adds userID to the family identified by code as a MEMBER.
func (s *FamilyStore) Join(userID int64, code string) (*model.Family, error) {
	f, err := s.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrInvalidFamilyCode
	}
	if err := s.addMember(f.ID, userID, model.RoleMember); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FamilyStore) addMember(familyID, userID int64, role model.Role) error {
	_, err := s.db.Exec(
		`INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)`,
		familyID, userID, role,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyInFamily
	}
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *FamilyStore) GetMember(familyID, userID int64) (*model.FamilyMember, error) {
	row := s.db.QueryRow(memberSelect+` WHERE fm.family_id = ? AND fm.user_id = ?`, familyID, userID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListMembers returns the leader first, then members in join order.
func (s *FamilyStore) ListMembers(familyID int64) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(
		memberSelect+` WHERE fm.family_id = ?
		 ORDER BY CASE fm.role WHEN 'LEADER' THEN 0 ELSE 1 END, fm.joined_at, fm.rowid`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListMemberIDs returns the user ids of every member of the family.
func (s *FamilyStore) ListMemberIDs(familyID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM family_members WHERE family_id = ?`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LeaveResult describes what happened to the family after a member left.
type LeaveResult struct {
	FamilyID      int64
	FamilyDeleted bool
	NewLeaderID   int64
}

// Leave removes userID from its family. A departing leader hands leadership to the
// longest-standing remaining member, and the last member out deletes the family.
func (s *FamilyStore) Leave(userID int64) (*LeaveResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var familyID int64
	var role string
	err = tx.QueryRow(`SELECT family_id, role FROM family_members WHERE user_id = ?`, userID).Scan(&familyID, &role)
	if err == sql.ErrNoRows {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM family_members WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("delete membership: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM push_subscriptions WHERE user_id = ? AND family_id = ?`, userID, familyID); err != nil {
		return nil, fmt.Errorf("delete push subscriptions: %w", err)
	}

	res := &LeaveResult{FamilyID: familyID}

	var next int64
	err = tx.QueryRow(
		`SELECT user_id FROM family_members WHERE family_id = ? ORDER BY joined_at, rowid LIMIT 1`,
		familyID,
	).Scan(&next)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(`DELETE FROM families WHERE id = ?`, familyID); err != nil {
			return nil, fmt.Errorf("delete family: %w", err)
		}
		res.FamilyDeleted = true
	case err != nil:
		return nil, fmt.Errorf("find next leader: %w", err)
	case model.Role(role) == model.RoleLeader:
		if _, err := tx.Exec(`UPDATE family_members SET role = ? WHERE user_id = ?`, model.RoleLeader, next); err != nil {
			return nil, fmt.Errorf("promote leader: %w", err)
		}
		if _, err := tx.Exec(`UPDATE families SET leader_id = ? WHERE id = ?`, next, familyID); err != nil {
			return nil, fmt.Errorf("update family leader: %w", err)
		}
		res.NewLeaderID = next
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (s *FamilyStore) UpdateStorages(familyID int64, storages []model.Storage) (*model.Family, error) {
	encoded, err := encodeList(storages)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`UPDATE families SET storages = ? WHERE id = ?`, encoded, familyID); err != nil {
		return nil, fmt.Errorf("update storages: %w", err)
	}
	return s.GetByID(familyID)
}

// JoinByID adds userID to familyID as a MEMBER. Used for signed invite links.
func (s *FamilyStore) JoinByID(userID, familyID int64) (*model.Family, error) {
	f, err := s.GetByID(familyID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrInvalidFamilyCode
	}
	if err := s.addMember(f.ID, userID, model.RoleMember); err != nil {
		return nil, err
	}
	return f, nil
}
