// Package export renders already-computed records as CSV documents.
// Read-only list of records in, formatted document out.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"parking-service/internal/domain/parking"
)

const timeLayout = "2006-01-02 15:04:05"

func WriteSessionsCSV(w io.Writer, sessions []parking.ParkingSession) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "license_plate", "vehicle_type", "entry_time", "entry_gate",
		"exit_time", "exit_gate", "duration_mins", "fee", "payment_status",
		"payment_method", "overnight",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range sessions {
		exitTime, exitGate := "", ""
		if s.ExitTime != nil {
			exitTime = s.ExitTime.Format(timeLayout)
			exitGate = s.ExitGate
		}
		record := []string{
			s.ID,
			s.LicensePlate,
			string(s.VehicleType),
			s.EntryTime.Format(timeLayout),
			s.EntryGate,
			exitTime,
			exitGate,
			strconv.Itoa(s.ParkingDuration),
			strconv.Itoa(s.Fee),
			string(s.PaymentStatus),
			string(s.PaymentMethod),
			strconv.FormatBool(s.IsOvernight),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteVehiclesCSV(w io.Writer, vehicles []parking.Vehicle) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "license_plate", "type", "owner_name", "phone_number",
		"department", "registration_date", "expiry_date", "active",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, v := range vehicles {
		record := []string{
			v.ID,
			v.LicensePlate,
			string(v.Type),
			v.OwnerName,
			v.PhoneNumber,
			v.Department,
			v.RegistrationDate.Format("2006-01-02"),
			v.ExpiryDate.Format("2006-01-02"),
			strconv.FormatBool(v.IsActive),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteExceptionsCSV(w io.Writer, exceptions []parking.LPRException) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "timestamp", "gate", "direction", "detected_plate",
		"confidence", "error_type", "status", "priority", "resolved_plate",
		"resolved_by", "resolved_at",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, e := range exceptions {
		resolvedAt := ""
		if e.ResolvedAt != nil {
			resolvedAt = e.ResolvedAt.Format(timeLayout)
		}
		record := []string{
			e.ID,
			e.Timestamp.Format(timeLayout),
			e.Gate,
			string(e.Direction),
			e.DetectedPlate,
			strconv.Itoa(e.Confidence),
			string(e.ErrorType),
			string(e.Status),
			string(e.Priority),
			e.ResolvedPlate,
			e.ResolvedBy,
			resolvedAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename builds a dated export filename like sessions-20260115.csv.
func Filename(kind string, now time.Time) string {
	return kind + "-" + now.Format("20060102") + ".csv"
}
