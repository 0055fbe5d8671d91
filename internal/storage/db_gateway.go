package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kvEntry struct {
	Key       string         `gorm:"primaryKey;column:key"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

type backupRow struct {
	ID        string         `gorm:"primaryKey"`
	Version   string         `gorm:"not null"`
	Data      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
}

func (backupRow) TableName() string { return "backups" }

// DBGateway persists aggregate snapshots as jsonb values keyed by
// aggregate, with an append-only backup ring alongside.
type DBGateway struct {
	db  *gorm.DB
	log zerolog.Logger
	deb *debouncer
}

func NewDBGateway(db *gorm.DB, debounce time.Duration, log zerolog.Logger) *DBGateway {
	g := &DBGateway{db: db, log: log}
	g.deb = newDebouncer(debounce, g.Save, log)
	return g
}

func (g *DBGateway) Save(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	entry := kvEntry{Key: key, Value: raw, UpdatedAt: time.Now()}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (g *DBGateway) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	var entry kvEntry
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *DBGateway) Remove(ctx context.Context, key string) error {
	return g.db.WithContext(ctx).Where("key = ?", key).Delete(&kvEntry{}).Error
}

func (g *DBGateway) DebouncedSave(key string, value interface{}) {
	g.deb.put(key, value)
}

func (g *DBGateway) Flush(ctx context.Context) error {
	return g.deb.flush(ctx)
}

func (g *DBGateway) CreateBackup(ctx context.Context, data BackupPayload) (*Backup, error) {
	backup := &Backup{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Version:   BackupVersion,
		Data:      data,
	}

	raw, err := json.Marshal(backup.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}

	row := backupRow{
		ID:        backup.ID,
		Version:   backup.Version,
		Data:      raw,
		CreatedAt: backup.Timestamp,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}

	if err := g.pruneBackups(ctx); err != nil {
		g.log.Error().Err(err).Msg("failed to prune old backups")
	}

	return backup, nil
}

// pruneBackups keeps the MaxBackups most recent rows, oldest deleted first.
func (g *DBGateway) pruneBackups(ctx context.Context) error {
	var keep []string
	err := g.db.WithContext(ctx).
		Model(&backupRow{}).
		Order("created_at DESC").
		Limit(MaxBackups).
		Pluck("id", &keep).Error
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).
		Where("id NOT IN ?", keep).
		Delete(&backupRow{}).Error
}

func (g *DBGateway) ListBackups(ctx context.Context) ([]Backup, error) {
	var rows []backupRow
	err := g.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	backups := make([]Backup, 0, len(rows))
	for _, row := range rows {
		b := Backup{
			ID:        row.ID,
			Timestamp: row.CreatedAt,
			Version:   row.Version,
		}
		if err := json.Unmarshal(row.Data, &b.Data); err != nil {
			return nil, fmt.Errorf("decode backup %s: %w", row.ID, err)
		}
		backups = append(backups, b)
	}
	return backups, nil
}

func (g *DBGateway) LatestBackup(ctx context.Context) (*Backup, error) {
	var row backupRow
	err := g.db.WithContext(ctx).Order("created_at DESC").First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest backup: %w", err)
	}

	b := &Backup{ID: row.ID, Timestamp: row.CreatedAt, Version: row.Version}
	if err := json.Unmarshal(row.Data, &b.Data); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", row.ID, err)
	}
	return b, nil
}
