package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the password hashing cost
var BcryptCost = bcrypt.DefaultCost

const (
	tempPasswordLength   = 8
	tempPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the hash
func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// GenerateTempPassword returns an 8 character password of upper-case letters and digits.
func GenerateTempPassword() (string, error) {
	max := big.NewInt(int64(len(tempPasswordAlphabet)))
	buf := make([]byte, tempPasswordLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate temporary password: %w", err)
		}
		buf[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// NewTempPassword generates a temporary password and its hash.
func NewTempPassword() (plain, hash string, err error) {
	plain, err = GenerateTempPassword()
	if err != nil {
		return "", "", err
	}
	hash, err = HashPassword(plain)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash temporary password: %w", err)
	}
	return plain, hash, nil
}
