package inventory

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/foodian-app/foodian/internal/model"
)

// FieldErrors maps an input field to the reason it was rejected.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "invalid item: " + strings.Join(parts, ", ")
}

// ItemInput is the user-supplied part of an item.
// A nil Qty means 1 and an empty Storage is guessed from the name.
type ItemInput struct {
	Name       string   `json:"name"`
	Qty        *float64 `json:"qty"`
	Unit       string   `json:"unit"`
	Storage    string   `json:"storage"`
	ExpireDate string   `json:"expireDate"`
	Tags       []string `json:"tags"`
}

// ValidateItem normalizes in and returns the resulting item, or FieldErrors
// naming every invalid field.
func ValidateItem(in ItemInput) (model.Item, error) {
	errs := FieldErrors{}
	it := model.Item{
		Name:       strings.TrimSpace(in.Name),
		Qty:        1,
		Unit:       strings.TrimSpace(in.Unit),
		ExpireDate: strings.TrimSpace(in.ExpireDate),
		Tags:       NormalizeTags(in.Tags),
	}

	if it.Name == "" {
		errs["name"] = "name is required"
	}
	if in.Qty != nil {
		it.Qty = *in.Qty
	}
	if math.IsNaN(it.Qty) || math.IsInf(it.Qty, 0) || it.Qty < 0 {
		errs["qty"] = "qty must be a number of at least 0"
	}
	if it.Unit == "" {
		it.Unit = model.DefaultUnit
	}

	if strings.TrimSpace(in.Storage) == "" {
		it.Storage = SuggestStorage(it.Name)
	} else if st, ok := ParseStorage(in.Storage); ok {
		it.Storage = st
	} else {
		errs["storage"] = "unknown storage"
	}

	if !ValidDate(it.ExpireDate) {
		errs["expireDate"] = "expireDate must be a date in YYYY-MM-DD form"
	}

	if len(errs) > 0 {
		return model.Item{}, errs
	}
	return it, nil
}

// NormalizeTags trims tags and drops empty and repeated ones, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}
