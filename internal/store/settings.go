package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/foodian-app/foodian/internal/model"
)

// SettingsStore persists each member's onboarding preferences.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the saved settings for userID, or nil if onboarding was never completed.
func (s *SettingsStore) Get(userID int64) (*model.Settings, error) {
	var st model.Settings
	var alarmOn int
	var days, storages, theme string
	err := s.db.QueryRow(
		`SELECT is_alarm_on, alarm_days, notify_time, storages, theme, updated_at FROM settings WHERE user_id = ?`,
		userID,
	).Scan(&alarmOn, &days, &st.NotifyTime, &storages, &theme, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	st.IsAlarmOn = alarmOn != 0
	st.Theme = model.Theme(theme)
	st.Onboarded = true
	if st.AlarmDays, err = decodeList[int](days); err != nil {
		return nil, err
	}
	if st.Storages, err = decodeList[model.Storage](storages); err != nil {
		return nil, err
	}
	return &st, nil
}

// Save upserts the settings for userID.
func (s *SettingsStore) Save(userID int64, st model.Settings) (*model.Settings, error) {
	days, err := encodeList(st.AlarmDays)
	if err != nil {
		return nil, err
	}
	storages, err := encodeList(st.Storages)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (user_id, is_alarm_on, alarm_days, notify_time, storages, theme, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   is_alarm_on = excluded.is_alarm_on,
		   alarm_days = excluded.alarm_days,
		   notify_time = excluded.notify_time,
		   storages = excluded.storages,
		   theme = excluded.theme,
		   updated_at = excluded.updated_at`,
		userID, boolToInt(st.IsAlarmOn), days, st.NotifyTime, storages, st.Theme, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return s.Get(userID)
}
