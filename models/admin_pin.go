package models

import (
	"crypto/subtle"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AdminPin append-only backoffice PIN log; the newest row is the active PIN
type AdminPin struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Pin       string    `json:"-" gorm:"size:100;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName table name
func (AdminPin) TableName() string {
	return "admin_pin"
}

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// IsValidPin reports whether pin is exactly four digits
func IsValidPin(pin string) bool {
	return pinPattern.MatchString(pin)
}

// HashPin returns the stored form of a PIN
func HashPin(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Matches compares pin with the stored value. Rows written before hashing was
// introduced hold the plain PIN and are compared in constant time.
func (p *AdminPin) Matches(pin string) bool {
	if strings.HasPrefix(p.Pin, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(p.Pin), []byte(pin)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(p.Pin), []byte(pin)) == 1
}
