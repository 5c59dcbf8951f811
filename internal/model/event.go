package model

import "time"

type EventKind string

const (
	EventAdded     EventKind = "added"
	EventConsumed  EventKind = "consumed"
	EventDiscarded EventKind = "discarded"
)

// InventoryEvent records a quantity entering or leaving the inventory.
// Statistics are computed from these rows.
type InventoryEvent struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"familyId"`
	ItemID     string    `json:"itemId"`
	Kind       EventKind `json:"kind"`
	Qty        float64   `json:"qty"`
	Storage    Storage   `json:"storage"`
	ExpireDate string    `json:"expireDate"`
	Alerted    bool      `json:"alerted"`
	At         time.Time `json:"at"`
}

// ExpiryAlert is the first expiry notification sent for an item.
type ExpiryAlert struct {
	FamilyID   int64     `json:"familyId"`
	ItemID     string    `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Qty        float64   `json:"qty"`
	Storage    Storage   `json:"storage"`
	ExpireDate string    `json:"expireDate"`
	AlertedAt  time.Time `json:"alertedAt"`
}
