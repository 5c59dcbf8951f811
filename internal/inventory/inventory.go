package inventory

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/foodian-app/foodian/internal/model"
)

// KST is the zone in which calendar days are counted.
var KST = time.FixedZone("KST", 9*60*60)

// DefaultExpiringDays is the D-day threshold of the home screen list.
const DefaultExpiringDays = 3

const dateLayout = "2006-01-02"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var storageLabels = map[model.Storage]string{
	model.StorageRefrigerated: "냉장",
	model.StorageFrozen:       "냉동",
	model.StoragePantry:       "실온",
}

// ParseStorage accepts a storage code or its Korean label, in any case.
func ParseStorage(s string) (model.Storage, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range model.AllStorages {
		if s == string(st) || s == storageLabels[st] {
			return st, true
		}
	}
	return "", false
}

// Label returns the Korean display label of a storage.
func Label(s model.Storage) string {
	return storageLabels[s]
}

// StorageOrder is the display position of a storage. Unknown storages sort last.
func StorageOrder(s model.Storage) int {
	switch s {
	case model.StorageRefrigerated:
		return 0
	case model.StorageFrozen:
		return 1
	case model.StoragePantry:
		return 2
	}
	return len(model.AllStorages)
}

// ValidDate reports whether s is a real calendar date written as YYYY-MM-DD.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.ParseInLocation(dateLayout, s, KST)
	return err == nil
}

// Today returns the current KST calendar date as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.In(KST).Format(dateLayout)
}

// DaysUntil counts calendar days from today in KST to expireDate.
// An item expiring today is 0 and one that expired yesterday is -1.
func DaysUntil(expireDate string, now time.Time) (int, error) {
	exp, err := time.ParseInLocation(dateLayout, expireDate, KST)
	if err != nil {
		return 0, err
	}
	y, m, d := now.In(KST).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, KST)
	return int(math.Round(exp.Sub(today).Hours() / 24)), nil
}

// Annotate attaches the D-day to every item. Items with an unreadable date get D-day 0.
func Annotate(items []model.Item, now time.Time) []model.ItemView {
	out := make([]model.ItemView, 0, len(items))
	for _, it := range items {
		dday, _ := DaysUntil(it.ExpireDate, now)
		out = append(out, model.ItemView{Item: it, DDay: dday})
	}
	return out
}

type SortKey string

const (
	SortExpire  SortKey = "EXPIRE"
	SortName    SortKey = "NAME"
	SortStorage SortKey = "STORAGE"
)

// ParseSort maps a query value to a sort key, defaulting to SortExpire.
func ParseSort(s string) SortKey {
	switch SortKey(strings.ToUpper(strings.TrimSpace(s))) {
	case SortName:
		return SortName
	case SortStorage:
		return SortStorage
	}
	return SortExpire
}

// StorageAll matches every storage in a Query.
const StorageAll = "ALL"

// IsAllStorages reports whether v selects every storage. Matching ignores case.
func IsAllStorages(v string) bool {
	return strings.EqualFold(v, StorageAll)
}

// Query selects and orders items for the fridge view.
type Query struct {
	Storage string
	Search  string
	Sort    SortKey
}

// Filter returns the items matching q in q.Sort order. The input slice is not modified.
func Filter(items []model.Item, q Query) []model.Item {
	var want model.Storage
	if q.Storage != "" && !IsAllStorages(q.Storage) {
		st, ok := ParseStorage(q.Storage)
		if !ok {
			return []model.Item{}
		}
		want = st
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := []model.Item{}
	for _, it := range items {
		if want != "" && it.Storage != want {
			continue
		}
		if needle != "" && !matches(it, needle) {
			continue
		}
		out = append(out, it)
	}

	switch q.Sort {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	case SortStorage:
		sort.SliceStable(out, func(i, j int) bool {
			oi, oj := StorageOrder(out[i].Storage), StorageOrder(out[j].Storage)
			if oi != oj {
				return oi < oj
			}
			return out[i].ExpireDate < out[j].ExpireDate
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].ExpireDate != out[j].ExpireDate {
				return out[i].ExpireDate < out[j].ExpireDate
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}

func matches(it model.Item, needle string) bool {
	if strings.Contains(strings.ToLower(it.Name), needle) {
		return true
	}
	for _, tag := range it.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Expiring returns items whose D-day is at most within, sorted by D-day then name.
// A negative within falls back to DefaultExpiringDays.
func Expiring(items []model.Item, now time.Time, within int) []model.ItemView {
	if within < 0 {
		within = DefaultExpiringDays
	}
	out := []model.ItemView{}
	for _, v := range Annotate(items, now) {
		if v.DDay <= within {
			out = append(out, v)
		}
	}
	slices.SortStableFunc(out, func(a, b model.ItemView) int {
		if c := cmp.Compare(a.DDay, b.DDay); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
