package model

import "time"

type Theme string

const (
	ThemeLight  Theme = "LIGHT"
	ThemeDark   Theme = "DARK"
	ThemeSystem Theme = "SYSTEM"
)

// Settings are one member's onboarding and notification preferences.
type Settings struct {
	IsAlarmOn  bool      `json:"isAlarmOn"`
	AlarmDays  []int     `json:"alarmDays"`
	NotifyTime string    `json:"notifyTime"`
	Storages   []Storage `json:"storages"`
	Theme      Theme     `json:"theme"`
	Onboarded  bool      `json:"onboarded"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
}
