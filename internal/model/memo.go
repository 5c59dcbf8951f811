package model

import "time"

type Memo struct {
	ID        string    `json:"id"`
	FamilyID  int64     `json:"familyId"`
	Text      string    `json:"text"`
	Checked   bool      `json:"checked"`
	CreatedBy *int64    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
