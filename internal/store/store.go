package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUsernameTaken     = errors.New("username already taken")
	ErrAlreadyInFamily   = errors.New("user already belongs to a family")
	ErrInvalidFamilyCode = errors.New("invalid family code")
	ErrNotMember         = errors.New("user is not a member of the family")
)

type scanner interface{ Scan(...any) error }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// encodeList stores a slice as a JSON array column. A nil slice is stored as [].
func encodeList[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList[T any](s string) ([]T, error) {
	out := []T{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
