package inventory

import (
	"strings"

	"github.com/foodian-app/foodian/internal/model"
)

// SuggestStorage guesses where an item is usually kept from its name.
// It tries an exact match first, then a substring match, and falls back
// to refrigerated.
func SuggestStorage(itemName string) model.Storage {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" {
		return model.StorageRefrigerated
	}

	if st, ok := exactStorage[name]; ok {
		return st
	}

	for _, entry := range storageKeywords {
		if strings.Contains(name, entry.keyword) {
			return entry.storage
		}
	}

	return model.StorageRefrigerated
}

var exactStorage = map[string]model.Storage{
	"쌀":     model.StoragePantry,
	"rice":  model.StoragePantry,
	"라면":    model.StoragePantry,
	"ramen": model.StoragePantry,
	"감자":    model.StoragePantry,
	"potato": model.StoragePantry,
	"양파":    model.StoragePantry,
	"onion": model.StoragePantry,
	"마늘":    model.StoragePantry,
	"garlic": model.StoragePantry,
	"고구마":   model.StoragePantry,
	"바나나":   model.StoragePantry,
	"banana": model.StoragePantry,
	"빵":     model.StoragePantry,
	"bread": model.StoragePantry,
	"얼음":    model.StorageFrozen,
	"ice":   model.StorageFrozen,
	"만두":    model.StorageFrozen,
}

// Longer, more specific keywords come first.
var storageKeywords = []struct {
	keyword string
	storage model.Storage
}{
	{"아이스크림", model.StorageFrozen},
	{"ice cream", model.StorageFrozen},
	{"냉동", model.StorageFrozen},
	{"frozen", model.StorageFrozen},
	{"dumpling", model.StorageFrozen},
	{"만두", model.StorageFrozen},
	{"통조림", model.StoragePantry},
	{"canned", model.StoragePantry},
	{"과자", model.StoragePantry},
	{"snack", model.StoragePantry},
	{"시리얼", model.StoragePantry},
	{"cereal", model.StoragePantry},
	{"파스타", model.StoragePantry},
	{"pasta", model.StoragePantry},
	{"국수", model.StoragePantry},
	{"noodle", model.StoragePantry},
	{"라면", model.StoragePantry},
	{"소금", model.StoragePantry},
	{"설탕", model.StoragePantry},
	{"sugar", model.StoragePantry},
	{"flour", model.StoragePantry},
	{"밀가루", model.StoragePantry},
}
