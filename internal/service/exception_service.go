package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/domain/parking"
	"parking-service/internal/storage"
	"parking-service/internal/utils"
)

var priorityRank = map[parking.Priority]int{
	parking.PriorityUrgent: 0,
	parking.PriorityHigh:   1,
	parking.PriorityMedium: 2,
	parking.PriorityLow:    3,
}

// ExceptionService owns the LPR exception queue: ambiguous or failed
// reads waiting for an operator. Resolution drives the session ledger as
// a side effect.
type ExceptionService struct {
	mu         sync.Mutex
	exceptions []parking.LPRException
	sessions   *SessionService
	vehicles   *VehicleService
	store      storage.Gateway
	log        zerolog.Logger
	now        func() time.Time
}

func NewExceptionService(sessions *SessionService, vehicles *VehicleService, store storage.Gateway, log zerolog.Logger) *ExceptionService {
	return &ExceptionService{
		sessions: sessions,
		vehicles: vehicles,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

func (s *ExceptionService) Load(ctx context.Context) error {
	var persisted []parking.LPRException
	found, err := s.store.Load(ctx, storage.KeyExceptions, &persisted)
	if err != nil {
		return fmt.Errorf("load exceptions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.exceptions = persisted
	}
	return nil
}

// classifyPriority is the deterministic priority rule, first match wins.
func classifyPriority(confidence int, errorType parking.ErrorType, detectedPlate string) parking.Priority {
	switch {
	case confidence < 20 || errorType == parking.ErrorSystemError:
		return parking.PriorityUrgent
	case errorType == parking.ErrorNoDetection || detectedPlate == "":
		return parking.PriorityHigh
	case confidence < 60:
		return parking.PriorityMedium
	default:
		return parking.PriorityLow
	}
}

func validErrorType(t parking.ErrorType) bool {
	switch t {
	case parking.ErrorNoDetection, parking.ErrorLowConfidence,
		parking.ErrorDamagedPlate, parking.ErrorObscured, parking.ErrorSystemError:
		return true
	}
	return false
}

// Create queues a new exception with its priority derived from
// confidence and error type.
func (s *ExceptionService) Create(ctx context.Context, in parking.ExceptionEvent) (*parking.LPRException, error) {
	if !parking.ValidGate(in.Gate) {
		return nil, fmt.Errorf("%w: unknown gate %q", ErrInvalidInput, in.Gate)
	}
	if in.Direction != parking.DirectionEntry && in.Direction != parking.DirectionExit {
		return nil, fmt.Errorf("%w: direction must be entry or exit", ErrInvalidInput)
	}
	if !validErrorType(in.ErrorType) {
		return nil, fmt.Errorf("%w: unknown error type %q", ErrInvalidInput, in.ErrorType)
	}
	if in.Confidence < 0 || in.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be 0-100", ErrInvalidInput)
	}

	priority := classifyPriority(in.Confidence, in.ErrorType, in.DetectedPlate)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ids := make([]string, 0, len(s.exceptions))
	for _, e := range s.exceptions {
		ids = append(ids, e.ID)
	}

	exc := parking.LPRException{
		ID:            nextExceptionID(now, ids),
		Timestamp:     now,
		Gate:          in.Gate,
		Direction:     in.Direction,
		RawImage:      in.Image,
		DetectedPlate: in.DetectedPlate,
		Confidence:    in.Confidence,
		ErrorType:     in.ErrorType,
		Status:        parking.ExceptionPending,
		Priority:      priority,
	}

	s.exceptions = append(s.exceptions, exc)
	s.persistLocked()

	s.log.Info().
		Str("exception_id", exc.ID).
		Str("gate", exc.Gate).
		Str("direction", string(exc.Direction)).
		Str("priority", string(priority)).
		Int("confidence", exc.Confidence).
		Msg("LPR exception queued")

	return &exc, nil
}

type PendingFilters struct {
	Priority parking.Priority
	Gate     string
}

// ListPending returns the filtered pending queue ordered by priority
// (urgent first) then timestamp (oldest first). Queue positions are the
// 1-based ranks within this view, recomputed every call.
func (s *ExceptionService) ListPending(filters PendingFilters) []parking.LPRException {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.LPRException, 0)
	for _, e := range s.exceptions {
		if e.Status != parking.ExceptionPending {
			continue
		}
		if filters.Priority != "" && e.Priority != filters.Priority {
			continue
		}
		if filters.Gate != "" && e.Gate != filters.Gate {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	for i := range out {
		out[i].QueuePosition = i + 1
	}
	return out
}

// ListResolved returns resolved exceptions, most recently resolved first.
func (s *ExceptionService) ListResolved() []parking.LPRException {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.LPRException, 0)
	for _, e := range s.exceptions {
		if e.Status == parking.ExceptionResolved {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ResolvedAt.After(*out[j].ResolvedAt)
	})
	return out
}

func (s *ExceptionService) ListEscalated() []parking.LPRException {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.LPRException, 0)
	for _, e := range s.exceptions {
		if e.Status == parking.ExceptionEscalated {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (s *ExceptionService) QueueCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.exceptions {
		if e.Status == parking.ExceptionPending {
			count++
		}
	}
	return count
}

func (s *ExceptionService) UrgentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.exceptions {
		if e.Status == parking.ExceptionPending && e.Priority == parking.PriorityUrgent {
			count++
		}
	}
	return count
}

func (s *ExceptionService) ExceptionByID(id string) *parking.LPRException {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(id)
	if idx < 0 {
		return nil
	}
	e := s.exceptions[idx]
	return &e
}

// SuggestSimilarPlates ranks registered plates by edit distance against
// a partial read. Needs at least 3 characters; candidates further than 3
// edits away are dropped; at most maxResults returned.
func (s *ExceptionService) SuggestSimilarPlates(partialPlate string, maxResults int) []parking.SimilarPlate {
	if maxResults <= 0 {
		maxResults = 5
	}
	if len(partialPlate) < 3 {
		return []parking.SimilarPlate{}
	}

	cleaned := utils.NormalizePlate(partialPlate)
	suggestions := make([]parking.SimilarPlate, 0)

	for _, v := range s.vehicles.Snapshot() {
		candidate := utils.NormalizePlate(v.LicensePlate)
		distance := utils.Levenshtein(cleaned, candidate)
		if distance > 3 {
			continue
		}

		longest := len(cleaned)
		if len(candidate) > longest {
			longest = len(candidate)
		}
		confidence := int(math.Round((1 - float64(distance)/float64(longest)) * 100))
		if confidence < 0 {
			confidence = 0
		}

		suggestions = append(suggestions, parking.SimilarPlate{
			Plate:       v.LicensePlate,
			OwnerName:   v.OwnerName,
			VehicleType: v.Type,
			Distance:    distance,
			Confidence:  confidence,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Distance != suggestions[j].Distance {
			return suggestions[i].Distance < suggestions[j].Distance
		}
		return suggestions[i].Confidence > suggestions[j].Confidence
	})

	if len(suggestions) > maxResults {
		suggestions = suggestions[:maxResults]
	}
	return suggestions
}

type ResolveInput struct {
	ResolvedPlate string                   `json:"resolved_plate"`
	Method        parking.ResolutionMethod `json:"method"`
	Notes         string                   `json:"notes"`
	Action        string                   `json:"action"` // allow or deny
	ResolvedBy    string                   `json:"resolved_by"`
}

// ResolveResult carries the terminal exception plus whatever the session
// ledger did as a side effect. Warning is set when the ledger step was
// skipped or failed after the exception already committed as resolved.
type ResolveResult struct {
	Exception *parking.LPRException   `json:"exception"`
	Session   *parking.ParkingSession `json:"session,omitempty"`
	Warning   string                  `json:"warning,omitempty"`
}

// Resolve finishes a pending exception. The exception commits first;
// the dependent session operation runs after and is never rolled back
// into the exception state. A ledger failure at that point leaves the
// two aggregates out of sync and is logged as such.
func (s *ExceptionService) Resolve(ctx context.Context, exceptionID string, in ResolveInput) (*ResolveResult, error) {
	if in.Action != "allow" && in.Action != "deny" {
		return nil, fmt.Errorf("%w: action must be allow or deny", ErrInvalidInput)
	}
	switch in.Method {
	case parking.ResolutionManualInput, parking.ResolutionImageEnhancement,
		parking.ResolutionVideoReview, parking.ResolutionDeniedEntry:
	default:
		return nil, fmt.Errorf("%w: unknown resolution method %q", ErrInvalidInput, in.Method)
	}
	if !utils.ValidLicensePlate(in.ResolvedPlate) {
		return nil, fmt.Errorf("%w: resolved plate must match format 29A-12345", ErrInvalidInput)
	}

	resolvedPlate := utils.NormalizePlate(in.ResolvedPlate)

	s.mu.Lock()
	idx := s.indexByIDLocked(exceptionID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: exception %s", ErrNotFound, exceptionID)
	}
	if s.exceptions[idx].Status != parking.ExceptionPending {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: exception %s is already %s", ErrInvalidState, exceptionID, s.exceptions[idx].Status)
	}

	now := s.now()
	e := &s.exceptions[idx]
	e.Status = parking.ExceptionResolved
	e.ResolvedPlate = resolvedPlate
	if in.ResolvedBy != "" {
		e.ResolvedBy = in.ResolvedBy
	} else if e.ResolvedBy == "" {
		e.ResolvedBy = "operator_1"
	}
	e.ResolvedAt = &now
	e.ResolutionMethod = in.Method
	e.ResolutionNotes = in.Notes

	direction := e.Direction
	gate := e.Gate
	resolved := *e
	s.persistLocked()
	s.mu.Unlock()

	result := &ResolveResult{Exception: &resolved}

	if in.Action == "deny" {
		s.log.Info().
			Str("exception_id", exceptionID).
			Str("plate", resolvedPlate).
			Msg("exception resolved, vehicle denied")
		return result, nil
	}

	if direction == parking.DirectionEntry {
		session, err := s.sessions.AdmitEntry(ctx, EntryInput{
			LicensePlate: resolvedPlate,
			Gate:         gate,
			Confidence:   parking.ConfidenceHigh,
			Operator:     resolved.ResolvedBy,
		})
		if err != nil {
			s.log.Error().Err(err).
				Str("exception_id", exceptionID).
				Str("plate", resolvedPlate).
				Msg("cross_aggregate_inconsistency: exception resolved but entry session failed")
			result.Warning = fmt.Sprintf("exception resolved but entry was not admitted: %v", err)
			return result, nil
		}
		s.linkSession(exceptionID, session.ID)
		result.Exception.SessionID = session.ID
		result.Session = session
		return result, nil
	}

	open := s.sessions.OpenSessionForPlate(resolvedPlate)
	if open == nil {
		// Lenient on exit: a missing open session must not block the
		// operator, it is reported as a warning only.
		s.log.Warn().
			Str("exception_id", exceptionID).
			Str("plate", resolvedPlate).
			Msg("exit exception resolved with no open session for plate")
		result.Warning = fmt.Sprintf("no open session found for plate %s", resolvedPlate)
		return result, nil
	}

	session, err := s.sessions.CompleteExit(ctx, open.ID, ExitInput{
		Gate:       gate,
		Confidence: parking.ConfidenceHigh,
		Operator:   resolved.ResolvedBy,
	})
	if err != nil {
		s.log.Error().Err(err).
			Str("exception_id", exceptionID).
			Str("session_id", open.ID).
			Msg("cross_aggregate_inconsistency: exception resolved but exit completion failed")
		result.Warning = fmt.Sprintf("exception resolved but exit was not completed: %v", err)
		return result, nil
	}
	s.linkSession(exceptionID, session.ID)
	result.Exception.SessionID = session.ID
	result.Session = session
	return result, nil
}

// Escalate moves a pending exception to the terminal escalated state.
func (s *ExceptionService) Escalate(ctx context.Context, exceptionID, reason string) (*parking.LPRException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(exceptionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: exception %s", ErrNotFound, exceptionID)
	}
	if s.exceptions[idx].Status != parking.ExceptionPending {
		return nil, fmt.Errorf("%w: exception %s is already %s", ErrInvalidState, exceptionID, s.exceptions[idx].Status)
	}

	e := &s.exceptions[idx]
	e.Status = parking.ExceptionEscalated
	e.ResolutionNotes = reason

	s.persistLocked()

	s.log.Warn().
		Str("exception_id", exceptionID).
		Str("reason", reason).
		Msg("exception escalated")

	escalated := *e
	return &escalated, nil
}

// Assign tags a pending exception with the operator working on it.
func (s *ExceptionService) Assign(ctx context.Context, exceptionID, operatorID string) (*parking.LPRException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(exceptionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: exception %s", ErrNotFound, exceptionID)
	}

	e := &s.exceptions[idx]
	e.ResolvedBy = operatorID

	s.persistLocked()

	assigned := *e
	return &assigned, nil
}

func (s *ExceptionService) Snapshot() []parking.LPRException {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.LPRException, len(s.exceptions))
	copy(out, s.exceptions)
	return out
}

func (s *ExceptionService) Restore(ctx context.Context, exceptions []parking.LPRException) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exceptions = make([]parking.LPRException, len(exceptions))
	copy(s.exceptions, exceptions)
	s.persistLocked()
}

func (s *ExceptionService) linkSession(exceptionID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(exceptionID)
	if idx >= 0 {
		s.exceptions[idx].SessionID = sessionID
		s.persistLocked()
	}
}

func (s *ExceptionService) indexByIDLocked(id string) int {
	for i := range s.exceptions {
		if s.exceptions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *ExceptionService) persistLocked() {
	snapshot := make([]parking.LPRException, len(s.exceptions))
	copy(snapshot, s.exceptions)
	s.store.DebouncedSave(storage.KeyExceptions, snapshot)
}
