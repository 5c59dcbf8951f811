package setting

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/foodian-app/foodian/internal/inventory"
	"github.com/foodian-app/foodian/internal/model"
)

const (
	MaxAlarmDay       = 30
	DefaultNotifyTime = "09:00"
)

var notifyTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidationError lists every rejected field with a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// Default returns the preferences of a member who has not completed onboarding.
func Default() model.Settings {
	return model.Settings{
		IsAlarmOn:  true,
		AlarmDays:  []int{1},
		NotifyTime: DefaultNotifyTime,
		Storages:   slices.Clone(model.AllStorages),
		Theme:      model.ThemeLight,
	}
}

// Normalize sorts and dedupes alarm days, canonicalizes storages and
// upper-cases the theme. Unknown storages are kept so Validate can report them.
func Normalize(s model.Settings) model.Settings {
	days := slices.Clone(s.AlarmDays)
	slices.Sort(days)
	s.AlarmDays = slices.Compact(days)
	if s.AlarmDays == nil {
		s.AlarmDays = []int{}
	}

	s.Storages = NormalizeStorages(s.Storages)

	s.NotifyTime = strings.TrimSpace(s.NotifyTime)
	s.Theme = model.Theme(strings.ToUpper(strings.TrimSpace(string(s.Theme))))
	return s
}

// Validate checks normalized settings and returns a *ValidationError naming every bad field.
func Validate(s model.Settings) error {
	fields := map[string]string{}

	if s.IsAlarmOn {
		if len(s.AlarmDays) == 0 {
			fields["alarmDays"] = "choose at least one alarm day"
		}
		for _, d := range s.AlarmDays {
			if d < 0 || d > MaxAlarmDay {
				fields["alarmDays"] = fmt.Sprintf("alarm days must be between 0 and %d", MaxAlarmDay)
				break
			}
		}
		if !notifyTimeRe.MatchString(s.NotifyTime) {
			fields["notifyTime"] = "notifyTime must be HH:MM"
		}
	}

	if msg := storagesProblem(s.Storages); msg != "" {
		fields["storages"] = msg
	}

	switch s.Theme {
	case model.ThemeLight, model.ThemeDark, model.ThemeSystem:
	default:
		fields["theme"] = "theme must be LIGHT, DARK or SYSTEM"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizeStorages maps storage aliases to canonical codes, dedupes them and
// orders them canonically. Unknown values are kept at the end so validation can report them.
func NormalizeStorages(raw []model.Storage) []model.Storage {
	seen := map[model.Storage]bool{}
	var unknown []model.Storage
	for _, r := range raw {
		if st, ok := inventory.ParseStorage(string(r)); ok {
			seen[st] = true
		} else {
			unknown = append(unknown, r)
		}
	}
	out := []model.Storage{}
	for _, st := range model.AllStorages {
		if seen[st] {
			out = append(out, st)
		}
	}
	return append(out, unknown...)
}

// ValidateStorages checks a normalized family storage list.
func ValidateStorages(storages []model.Storage) error {
	if msg := storagesProblem(storages); msg != "" {
		return &ValidationError{Fields: map[string]string{"storages": msg}}
	}
	return nil
}

func storagesProblem(storages []model.Storage) string {
	if len(storages) == 0 {
		return "choose at least one storage"
	}
	for _, st := range storages {
		if _, ok := inventory.ParseStorage(string(st)); !ok {
			return fmt.Sprintf("unknown storage %q", st)
		}
	}
	return ""
}

// SameStorages reports whether two normalized storage lists are equal.
func SameStorages(a, b []model.Storage) bool {
	return slices.Equal(a, b)
}
