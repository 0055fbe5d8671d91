package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"parking-service/internal/domain/parking"
)

func vehicleIDPrefix(vtype parking.VehicleType) string {
	switch vtype {
	case parking.VehicleMonthlyStudent:
		return "VH-REG-"
	case parking.VehicleStaff:
		return "VH-STF-"
	default:
		return "VH-VIS-"
	}
}

// nextVehicleID scans existing ids for the highest sequence under the
// type prefix and returns the next one, zero-padded to 4 digits.
func nextVehicleID(vtype parking.VehicleType, existing []string) string {
	prefix := vehicleIDPrefix(vtype)
	next := 1
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next)
}

// nextSessionID is date-coded: SS-YYYYMMDD-NNNNN, sequence scoped to the day.
func nextSessionID(now time.Time, existing []string) string {
	prefix := fmt.Sprintf("SS-%s-", now.Format("20060102"))
	next := 1
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next)
}

// nextExceptionID is month-coded: EX-YYYYMM-NNNN.
func nextExceptionID(now time.Time, existing []string) string {
	prefix := fmt.Sprintf("EX-%s-", now.Format("200601"))
	next := 1
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next)
}
