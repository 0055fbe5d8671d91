package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"parking-service/internal/config"
	"parking-service/internal/domain/parking"
)

// LPRService routes camera events: confident reads go straight to the
// session ledger, everything under the failed threshold is queued as an
// exception for an operator.
type LPRService struct {
	sessions   *SessionService
	exceptions *ExceptionService
	cfg        config.LPRConfig
	log        zerolog.Logger
}

func NewLPRService(sessions *SessionService, exceptions *ExceptionService, cfg config.LPRConfig, log zerolog.Logger) *LPRService {
	return &LPRService{
		sessions:   sessions,
		exceptions: exceptions,
		cfg:        cfg,
		log:        log,
	}
}

// BandConfidence maps a 0-100 recognition score onto the ledger's
// confidence bands.
func BandConfidence(score int, cfg config.LPRConfig) parking.LPRConfidence {
	switch {
	case score >= cfg.HighThreshold:
		return parking.ConfidenceHigh
	case score >= cfg.MediumThreshold:
		return parking.ConfidenceMedium
	case score >= cfg.LowThreshold:
		return parking.ConfidenceLow
	default:
		return parking.ConfidenceFailed
	}
}

// IngestResult reports what an event produced: a session when the read
// was confident enough, or a queued exception otherwise.
type IngestResult struct {
	Session   *parking.ParkingSession `json:"session,omitempty"`
	Exception *parking.LPRException   `json:"exception,omitempty"`
}

// ProcessEntryEvent handles an entry-side camera read.
func (s *LPRService) ProcessEntryEvent(ctx context.Context, ev parking.EntryEvent) (*IngestResult, error) {
	if ev.Confidence < 0 || ev.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be 0-100", ErrInvalidInput)
	}

	band := BandConfidence(ev.Confidence, s.cfg)
	if band == parking.ConfidenceFailed {
		exc, err := s.exceptions.Create(ctx, parking.ExceptionEvent{
			DetectedPlate: ev.LicensePlate,
			Confidence:    ev.Confidence,
			Gate:          ev.Gate,
			Direction:     parking.DirectionEntry,
			ErrorType:     parking.ErrorLowConfidence,
			Image:         ev.Image,
		})
		if err != nil {
			return nil, err
		}
		return &IngestResult{Exception: exc}, nil
	}

	session, err := s.sessions.AdmitEntry(ctx, EntryInput{
		LicensePlate: ev.LicensePlate,
		Gate:         ev.Gate,
		Confidence:   band,
		Image:        ev.Image,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("plate", session.LicensePlate).
		Int("confidence", ev.Confidence).
		Str("band", string(band)).
		Msg("entry event admitted")

	return &IngestResult{Session: session}, nil
}

// ProcessExitEvent handles an exit-side camera read. A confident read
// with no matching open session still queues an exception so the
// operator can sort out which vehicle is at the barrier.
func (s *LPRService) ProcessExitEvent(ctx context.Context, ev parking.EntryEvent) (*IngestResult, error) {
	if ev.Confidence < 0 || ev.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence must be 0-100", ErrInvalidInput)
	}

	band := BandConfidence(ev.Confidence, s.cfg)
	if band != parking.ConfidenceFailed {
		if open := s.sessions.OpenSessionForPlate(ev.LicensePlate); open != nil {
			session, err := s.sessions.CompleteExit(ctx, open.ID, ExitInput{
				Gate:       ev.Gate,
				Confidence: band,
				Image:      ev.Image,
			})
			if err != nil {
				return nil, err
			}
			return &IngestResult{Session: session}, nil
		}

		s.log.Warn().
			Str("plate", ev.LicensePlate).
			Str("gate", ev.Gate).
			Msg("confident exit read with no open session, queueing exception")
	}

	exc, err := s.exceptions.Create(ctx, parking.ExceptionEvent{
		DetectedPlate: ev.LicensePlate,
		Confidence:    ev.Confidence,
		Gate:          ev.Gate,
		Direction:     parking.DirectionExit,
		ErrorType:     parking.ErrorLowConfidence,
		Image:         ev.Image,
	})
	if err != nil {
		return nil, err
	}
	return &IngestResult{Exception: exc}, nil
}
