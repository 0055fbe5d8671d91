package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"parking-service/internal/storage"
)

// BackupService snapshots all three aggregates into the gateway's backup
// ring and restores them from the most recent record.
type BackupService struct {
	vehicles   *VehicleService
	sessions   *SessionService
	exceptions *ExceptionService
	store      storage.Gateway
	log        zerolog.Logger
}

func NewBackupService(vehicles *VehicleService, sessions *SessionService, exceptions *ExceptionService, store storage.Gateway, log zerolog.Logger) *BackupService {
	return &BackupService{
		vehicles:   vehicles,
		sessions:   sessions,
		exceptions: exceptions,
		store:      store,
		log:        log,
	}
}

func (s *BackupService) Create(ctx context.Context) (*storage.Backup, error) {
	payload := storage.BackupPayload{
		Vehicles:   s.vehicles.Snapshot(),
		Sessions:   s.sessions.Snapshot(),
		Exceptions: s.exceptions.Snapshot(),
		Settings:   map[string]interface{}{},
	}

	backup, err := s.store.CreateBackup(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}

	s.log.Info().
		Str("backup_id", backup.ID).
		Int("vehicles", len(payload.Vehicles)).
		Int("sessions", len(payload.Sessions)).
		Int("exceptions", len(payload.Exceptions)).
		Msg("backup created")

	return backup, nil
}

func (s *BackupService) List(ctx context.Context) ([]storage.Backup, error) {
	return s.store.ListBackups(ctx)
}

// RestoreLatest replaces all aggregate state with the newest backup.
func (s *BackupService) RestoreLatest(ctx context.Context) (*storage.Backup, error) {
	backup, err := s.store.LatestBackup(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest backup: %w", err)
	}
	if backup == nil {
		return nil, fmt.Errorf("%w: no backups", ErrNotFound)
	}

	s.vehicles.Restore(ctx, backup.Data.Vehicles)
	s.sessions.Restore(ctx, backup.Data.Sessions)
	s.exceptions.Restore(ctx, backup.Data.Exceptions)

	s.log.Info().
		Str("backup_id", backup.ID).
		Time("taken_at", backup.Timestamp).
		Msg("state restored from backup")

	return backup, nil
}
