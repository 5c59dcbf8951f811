package setting

import (
	"errors"
	"slices"
	"testing"

	"github.com/foodian-app/foodian/internal/model"
)

func TestDefaultIsValid(t *testing.T) {
	d := Default()
	if err := Validate(d); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	if !d.IsAlarmOn || d.NotifyTime != "09:00" || d.Theme != model.ThemeLight {
		t.Errorf("unexpected defaults: %+v", d)
	}
	if !slices.Equal(d.Storages, model.AllStorages) {
		t.Errorf("storages = %v", d.Storages)
	}
	d.Storages[0] = "changed"
	if model.AllStorages[0] != model.StorageRefrigerated {
		t.Error("Default shares the AllStorages backing array")
	}
}

func TestNormalize(t *testing.T) {
	in := model.Settings{
		IsAlarmOn:  true,
		AlarmDays:  []int{7, 1, 3, 1},
		NotifyTime: " 08:30 ",
		Storages:   []model.Storage{"실온", "REFRIGERATED", "냉장"},
		Theme:      "dark",
	}
	got := Normalize(in)

	if !slices.Equal(got.AlarmDays, []int{1, 3, 7}) {
		t.Errorf("alarmDays = %v", got.AlarmDays)
	}
	if !slices.Equal(got.Storages, []model.Storage{model.StorageRefrigerated, model.StoragePantry}) {
		t.Errorf("storages = %v", got.Storages)
	}
	if got.Theme != model.ThemeDark || got.NotifyTime != "08:30" {
		t.Errorf("theme/time = %q/%q", got.Theme, got.NotifyTime)
	}
	if in.AlarmDays[0] != 7 {
		t.Error("Normalize modified the caller's slice")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Settings)
		fields []string
	}{
		{"valid", func(s *model.Settings) {}, nil},
		{"alarm on without days", func(s *model.Settings) { s.AlarmDays = []int{} }, []string{"alarmDays"}},
		{"alarm off without days", func(s *model.Settings) {
			s.IsAlarmOn = false
			s.AlarmDays = []int{}
			s.NotifyTime = ""
		}, nil},
		{"day out of range", func(s *model.Settings) { s.AlarmDays = []int{1, 31} }, []string{"alarmDays"}},
		{"negative day", func(s *model.Settings) { s.AlarmDays = []int{-1} }, []string{"alarmDays"}},
		{"bad time", func(s *model.Settings) { s.NotifyTime = "24:00" }, []string{"notifyTime"}},
		{"single digit hour", func(s *model.Settings) { s.NotifyTime = "9:00" }, []string{"notifyTime"}},
		{"no storages", func(s *model.Settings) { s.Storages = nil }, []string{"storages"}},
		{"unknown storage", func(s *model.Settings) { s.Storages = []model.Storage{"garage"} }, []string{"storages"}},
		{"bad theme", func(s *model.Settings) { s.Theme = "NEON" }, []string{"theme"}},
		{"several", func(s *model.Settings) {
			s.NotifyTime = "noon"
			s.Theme = ""
		}, []string{"notifyTime", "theme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := Validate(Normalize(s))

			if tt.fields == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Fields) != len(tt.fields) {
				t.Errorf("fields = %v, want %v", ve.Fields, tt.fields)
			}
			for _, f := range tt.fields {
				if _, ok := ve.Fields[f]; !ok {
					t.Errorf("missing field %q in %v", f, ve.Fields)
				}
			}
		})
	}
}

func TestNormalizeAndValidateStorages(t *testing.T) {
	got := NormalizeStorages([]model.Storage{"실온", "냉장", "PANTRY", "attic"})
	want := []model.Storage{model.StorageRefrigerated, model.StoragePantry, "attic"}
	if !SameStorages(got, want) {
		t.Fatalf("NormalizeStorages = %v, want %v", got, want)
	}
	if err := ValidateStorages(got); err == nil {
		t.Error("expected error for unknown storage")
	}
	if err := ValidateStorages(NormalizeStorages(nil)); err == nil {
		t.Error("expected error for empty storages")
	}
	if err := ValidateStorages(want[:2]); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
