package model

import "time"

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	LeaderID  int64     `json:"leaderId"`
	Storages  []Storage `json:"storages"`
	CreatedAt time.Time `json:"createdAt"`
}

// FamilyMember is a user's membership row joined with display fields.
type FamilyMember struct {
	FamilyID     int64     `json:"familyId"`
	UserID       int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Role         Role      `json:"role"`
	JoinedAt     time.Time `json:"joinedAt"`
}
