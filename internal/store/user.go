package store

import (
	"database/sql"
	"fmt"

	"github.com/foodian-app/foodian/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	var role string
	err := sc.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.ThumbnailURL, &u.KakaoID,
		&u.FamilyID, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

const userSelect = `SELECT u.id, u.username, u.password_hash, u.name, u.thumbnail_url, COALESCE(u.kakao_id, ''),
	COALESCE(fm.family_id, 0), COALESCE(fm.role, ''), u.created_at, u.updated_at
	FROM users u LEFT JOIN family_members fm ON fm.user_id = u.id`

// Create inserts a password user. Returns ErrUsernameTaken on a duplicate username.
func (s *UserStore) Create(username, passwordHash, name string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, password_hash, name) VALUES (?, ?, ?)`,
		username, passwordHash, name,
	)
	if isUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// UpsertKakao finds the user linked to a Kakao account, creating it on first login.
// Name and thumbnail are refreshed from the profile on every login.
func (s *UserStore) UpsertKakao(kakaoID, name, thumbnailURL string) (*model.User, error) {
	existing, err := s.GetByKakaoID(kakaoID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Name == name && existing.ThumbnailURL == thumbnailURL {
			return existing, nil
		}
		return s.UpdateProfile(existing.ID, name, thumbnailURL)
	}

	result, err := s.db.Exec(
		`INSERT INTO users (username, name, thumbnail_url, kakao_id) VALUES (?, ?, ?, ?)`,
		"kakao:"+kakaoID, name, thumbnailURL, kakaoID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert kakao user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	return s.getOne(`WHERE u.id = ?`, id)
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	return s.getOne(`WHERE u.username = ?`, username)
}

func (s *UserStore) GetByKakaoID(kakaoID string) (*model.User, error) {
	return s.getOne(`WHERE u.kakao_id = ?`, kakaoID)
}

func (s *UserStore) getOne(where string, arg any) (*model.User, error) {
	row := s.db.QueryRow(userSelect+` `+where, arg)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdateProfile(id int64, name, thumbnailURL string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, thumbnail_url = ? WHERE id = ?`,
		name, thumbnailURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
