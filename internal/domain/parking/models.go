package parking

import (
	"time"
)

type VehicleType string

const (
	VehicleMonthlyStudent VehicleType = "registered_monthly"
	VehicleStaff          VehicleType = "registered_staff"
	VehicleVisitor        VehicleType = "visitor"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentExempted PaymentStatus = "exempted"
)

type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodMomo    PaymentMethod = "momo"
	MethodBanking PaymentMethod = "banking"
	MethodCard    PaymentMethod = "card"
)

type LPRConfidence string

const (
	ConfidenceHigh   LPRConfidence = "high"
	ConfidenceMedium LPRConfidence = "medium"
	ConfidenceLow    LPRConfidence = "low"
	ConfidenceFailed LPRConfidence = "failed"
)

type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

type ExceptionStatus string

const (
	ExceptionPending   ExceptionStatus = "pending"
	ExceptionResolved  ExceptionStatus = "resolved"
	ExceptionEscalated ExceptionStatus = "escalated"
)

type ErrorType string

const (
	ErrorNoDetection   ErrorType = "no_detection"
	ErrorLowConfidence ErrorType = "low_confidence"
	ErrorDamagedPlate  ErrorType = "damaged_plate"
	ErrorObscured      ErrorType = "obscured"
	ErrorSystemError   ErrorType = "system_error"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type ResolutionMethod string

const (
	ResolutionManualInput      ResolutionMethod = "manual_input"
	ResolutionImageEnhancement ResolutionMethod = "image_enhancement"
	ResolutionVideoReview      ResolutionMethod = "video_review"
	ResolutionDeniedEntry      ResolutionMethod = "denied_entry"
)

// Gates returns the lot's gate identifiers.
func Gates() []string {
	return []string{"A", "B", "C", "D"}
}

func ValidGate(gate string) bool {
	switch gate {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

type Vehicle struct {
	ID               string      `json:"id"`
	LicensePlate     string      `json:"license_plate"`
	Type             VehicleType `json:"type"`
	OwnerName        string      `json:"owner_name"`
	PhoneNumber      string      `json:"phone_number"`
	Email            string      `json:"email,omitempty"`
	StudentID        string      `json:"student_id,omitempty"`
	StaffID          string      `json:"staff_id,omitempty"`
	Department       string      `json:"department,omitempty"`
	VehicleModel     string      `json:"vehicle_model,omitempty"`
	Color            string      `json:"color,omitempty"`
	RegistrationDate time.Time   `json:"registration_date"`
	ExpiryDate       time.Time   `json:"expiry_date"`
	IsActive         bool        `json:"is_active"`
	Notes            string      `json:"notes,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type ParkingSession struct {
	ID           string      `json:"id"`
	VehicleID    string      `json:"vehicle_id,omitempty"`
	LicensePlate string      `json:"license_plate"`
	VehicleType  VehicleType `json:"vehicle_type"`

	EntryTime       time.Time     `json:"entry_time"`
	EntryGate       string        `json:"entry_gate"`
	EntryImage      string        `json:"entry_image,omitempty"`
	EntryConfidence LPRConfidence `json:"entry_confidence"`
	EntryOperator   string        `json:"entry_operator,omitempty"`

	ExitTime       *time.Time    `json:"exit_time,omitempty"`
	ExitGate       string        `json:"exit_gate,omitempty"`
	ExitImage      string        `json:"exit_image,omitempty"`
	ExitConfidence LPRConfidence `json:"exit_confidence,omitempty"`
	ExitOperator   string        `json:"exit_operator,omitempty"`

	ParkingDuration int           `json:"parking_duration,omitempty"`
	Fee             int           `json:"fee"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	PaymentMethod   PaymentMethod `json:"payment_method,omitempty"`
	PaymentTime     *time.Time    `json:"payment_time,omitempty"`

	IsOvernight bool   `json:"is_overnight"`
	IsException bool   `json:"is_exception"`
	Notes       string `json:"notes,omitempty"`
}

// Open reports whether the vehicle is still inside the lot.
func (s *ParkingSession) Open() bool {
	return s.ExitTime == nil
}

type LPRException struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Gate      string    `json:"gate"`
	Direction Direction `json:"direction"`

	RawImage      string    `json:"raw_image,omitempty"`
	DetectedPlate string    `json:"detected_plate,omitempty"`
	Confidence    int       `json:"confidence"`
	ErrorType     ErrorType `json:"error_type"`

	Status           ExceptionStatus  `json:"status"`
	ResolvedPlate    string           `json:"resolved_plate,omitempty"`
	ResolvedBy       string           `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time       `json:"resolved_at,omitempty"`
	ResolutionMethod ResolutionMethod `json:"resolution_method,omitempty"`
	ResolutionNotes  string           `json:"resolution_notes,omitempty"`

	Priority Priority `json:"priority"`

	// QueuePosition is a view-time rank within the pending listing,
	// recomputed on every read and never persisted.
	QueuePosition int `json:"queue_position,omitempty"`
}

// EntryEvent is a confident plate read delivered by a gate camera.
type EntryEvent struct {
	LicensePlate string `json:"license_plate"`
	Gate         string `json:"gate"`
	Confidence   int    `json:"confidence"`
	Image        string `json:"image,omitempty"`
}

// ExceptionEvent is a failed or ambiguous read delivered by a gate camera.
type ExceptionEvent struct {
	DetectedPlate string    `json:"detected_plate,omitempty"`
	Confidence    int       `json:"confidence"`
	Gate          string    `json:"gate"`
	Direction     Direction `json:"direction"`
	ErrorType     ErrorType `json:"error_type"`
	Image         string    `json:"image,omitempty"`
}

// SimilarPlate is one candidate from the registry for an ambiguous read.
type SimilarPlate struct {
	Plate       string      `json:"plate"`
	OwnerName   string      `json:"owner_name,omitempty"`
	VehicleType VehicleType `json:"vehicle_type,omitempty"`
	Distance    int         `json:"distance"`
	Confidence  int         `json:"confidence"`
}

// DailyStats is the append-only end-of-day rollup snapshot.
type DailyStats struct {
	Date                string         `json:"date"`
	TotalVehicles       int            `json:"total_vehicles"`
	RegisteredVehicles  int            `json:"registered_vehicles"`
	VisitorVehicles     int            `json:"visitor_vehicles"`
	StaffVehicles       int            `json:"staff_vehicles"`
	PeakHour            string         `json:"peak_hour"`
	PeakOccupancy       int            `json:"peak_occupancy"`
	Revenue             int            `json:"revenue"`
	RevenueByMethod     map[string]int `json:"revenue_by_method"`
	ExceptionsTotal     int            `json:"exceptions_total"`
	ExceptionsResolved  int            `json:"exceptions_resolved"`
	ExceptionsPending   int            `json:"exceptions_pending"`
	AverageDurationMins int            `json:"average_duration_mins"`
	TurnoverRate        float64        `json:"turnover_rate"`
}
