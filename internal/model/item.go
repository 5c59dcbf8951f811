package model

import "time"

// Storage is a location inside the household where food is kept.
type Storage string

const (
	StorageRefrigerated Storage = "refrigerated"
	StorageFrozen       Storage = "frozen"
	StoragePantry       Storage = "pantry"
)

// AllStorages lists every storage in display order.
var AllStorages = []Storage{StorageRefrigerated, StorageFrozen, StoragePantry}

const DefaultUnit = "개"

type Item struct {
	ID         string    `json:"id"`
	FamilyID   int64     `json:"familyId"`
	Name       string    `json:"name"`
	Qty        float64   `json:"qty"`
	Unit       string    `json:"unit"`
	Storage    Storage   `json:"storage"`
	ExpireDate string    `json:"expireDate"`
	Tags       []string  `json:"tags"`
	AddedBy    *int64    `json:"addedBy,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ItemView is an item annotated with its D-day count.
type ItemView struct {
	Item
	DDay int `json:"dday"`
}
