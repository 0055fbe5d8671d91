package utils

import (
	"regexp"
	"strings"
	"time"
)

// Vietnamese motorcycle plate: province code, 1 letter plus optional digit,
// hyphen, 5 digits. Examples: 29A-12345, 29X1-12345.
var plateRegex = regexp.MustCompile(`^[0-9]{2}[A-Z][0-9]?-[0-9]{5}$`)

// 10 digits starting with 0, mobile prefixes only.
var phoneRegex = regexp.MustCompile(`^(0)(3[2-9]|5[2-9]|7[06-9]|8[1-9]|9[0-9])[0-9]{7}$`)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Student id: enrollment year 2015-2025 followed by 5 digits.
var studentIDRegex = regexp.MustCompile(`^(201[5-9]|202[0-5])[0-9]{5}$`)

// Staff id: GV (lecturer) or NV (staff) plus 4 digits.
var staffIDRegex = regexp.MustCompile(`^(GV|NV)-[0-9]{4}$`)

// ValidLicensePlate reports whether the plate matches the display format
// after trimming and uppercasing.
func ValidLicensePlate(plate string) bool {
	clean := strings.ToUpper(strings.TrimSpace(plate))
	return plateRegex.MatchString(clean)
}

func ValidPhoneNumber(phone string) bool {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	return phoneRegex.MatchString(clean)
}

func ValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}

func ValidStudentID(id string) bool {
	return studentIDRegex.MatchString(strings.TrimSpace(id))
}

func ValidStaffID(id string) bool {
	return staffIDRegex.MatchString(strings.ToUpper(strings.TrimSpace(id)))
}

// ValidOwnerName requires 3 to 50 characters after trimming.
func ValidOwnerName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len([]rune(trimmed)) >= 3 && len([]rune(trimmed)) <= 50
}

// ValidExpiryDate requires a date strictly after now.
func ValidExpiryDate(date time.Time, now time.Time) bool {
	return !date.IsZero() && date.After(now)
}
