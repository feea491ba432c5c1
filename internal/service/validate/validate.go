package validate

import (
	"errors"
	"strings"
)

// Minimum digits of a local phone number
const phoneMinDigits = 9

// Pin must be exactly 4 ASCII digits
func Pin(pin string) error {
	if len(pin) != 4 {
		return errors.New("pin must be 4 digits long")
	}
	if !digitsOnly(pin) {
		return errors.New("pin contains invalid characters")
	}
	return nil
}

// Phone accepts digits with optional leading '+' and at least 9 digits
func Phone(phone string) error {
	digits := strings.TrimPrefix(phone, "+")
	if !digitsOnly(digits) {
		return errors.New("phone contains invalid characters")
	}
	if len(digits) < phoneMinDigits {
		return errors.New("phone is too short")
	}
	return nil
}

// It's ok to work with string as bytes here: any multibyte rune is not a digit anyway
func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
