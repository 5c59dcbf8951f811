package auth

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

const MinPasswordLength = 8

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidCredentials when password does not match hash.
// An empty hash never matches, so OAuth-only accounts cannot log in with a password.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

type SignupInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ValidateSignup trims the input and returns a field to message map for every
// invalid field, or nil when the input is acceptable.
func ValidateSignup(in *SignupInput) map[string]string {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	in.Name = strings.TrimSpace(in.Name)

	errs := map[string]string{}
	if in.Username == "" {
		errs["username"] = "이메일을 입력해 주세요."
	} else if addr, err := mail.ParseAddress(in.Username); err != nil || addr.Address != in.Username {
		errs["username"] = "올바른 이메일 형식이 아닙니다."
	}

	switch {
	case len(in.Password) > MaxPasswordBytes:
		errs["password"] = "비밀번호가 너무 깁니다."
	case !strongPassword(in.Password):
		errs["password"] = "비밀번호는 영문과 숫자를 포함해 8자 이상이어야 합니다."
	}

	if in.Name == "" {
		errs["name"] = "이름을 입력해 주세요."
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func strongPassword(p string) bool {
	if len([]rune(p)) < MinPasswordLength {
		return false
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
