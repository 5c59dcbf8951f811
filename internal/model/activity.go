package model

import "time"

type ActivityType string

const (
	ActivityAdd     ActivityType = "add"
	ActivityEdit    ActivityType = "edit"
	ActivityConsume ActivityType = "consume"
	ActivityDiscard ActivityType = "discard"
	ActivityDelete  ActivityType = "delete"
)

type Activity struct {
	ID       string       `json:"id"`
	FamilyID int64        `json:"familyId"`
	Type     ActivityType `json:"type"`
	ItemName string       `json:"itemName"`
	DeltaQty *float64     `json:"deltaQty,omitempty"`
	ActorID  *int64       `json:"actorId,omitempty"`
	Actor    string       `json:"actor"`
	Storage  Storage      `json:"storage,omitempty"`
	At       time.Time    `json:"at"`
	Ago      string       `json:"ago,omitempty"`
}
