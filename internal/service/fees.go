package service

import (
	"time"

	"parking-service/internal/config"
	"parking-service/internal/domain/parking"
)

// DurationMinutes returns the whole minutes between entry and exit.
func DurationMinutes(entry, exit time.Time) int {
	return int(exit.Sub(entry).Minutes())
}

// IsOvernight reports whether a stay crosses the overnight window:
// either it spans a full day or it runs from the late-evening hours
// (entry at 23:00 or later) into the early morning (exit at 05:00 or
// later).
func IsOvernight(entry, exit time.Time) bool {
	if exit.Sub(entry) >= 24*time.Hour {
		return true
	}
	return entry.Hour() >= 23 && exit.Hour() >= 5
}

// CalculateFee is the fee rule. Registered vehicles are exempt; visitors
// pay a flat overnight rate or hourly accrual where any fraction of an
// hour past the first counts as a full hour.
func CalculateFee(entry, exit time.Time, vtype parking.VehicleType, pricing config.PricingConfig) int {
	if vtype != parking.VehicleVisitor {
		return 0
	}

	if IsOvernight(entry, exit) {
		return pricing.Overnight
	}

	minutes := DurationMinutes(entry, exit)
	hours := (minutes + 59) / 60
	if hours <= 1 {
		return pricing.FirstHour
	}
	return pricing.FirstHour + (hours-1)*pricing.AdditionalHour
}
