package model

import "time"

// Role is a member's position within a family.
type Role string

const (
	RoleLeader Role = "LEADER"
	RoleMember Role = "MEMBER"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	KakaoID      string    `json:"-"`
	FamilyID     int64     `json:"familyId"`
	Role         Role      `json:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
