package auth

import (
	"crypto/rand"
	"math/big"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// StrongPassword reports whether password has at least eight characters with
// an upper-case letter, a lower-case letter and a digit.
func StrongPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lowerCase, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lowerCase = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lowerCase && digit
}

// GenerateTempPassword returns a random 12 character password that satisfies StrongPassword.
func GenerateTempPassword() (string, error) {
	for {
		buf := make([]byte, 12)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordAlphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = tempPasswordAlphabet[n.Int64()]
		}
		if pw := string(buf); StrongPassword(pw) {
			return pw, nil
		}
	}
}
