package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/domain/parking"
)

// Storage keys. Each aggregate reads and writes only its own key.
const (
	KeyVehicles   = "parking:vehicles"
	KeySessions   = "parking:sessions"
	KeyExceptions = "parking:exceptions"
	KeySettings   = "parking:settings"
	KeyDailyStats = "parking:daily-stats"
)

// BackupVersion is stamped on every backup record.
const BackupVersion = "1.0.0"

// MaxBackups is the size of the retained backup ring. When a new backup
// pushes the count past this limit the oldest records are pruned.
const MaxBackups = 5

type BackupPayload struct {
	Vehicles   []parking.Vehicle        `json:"vehicles"`
	Sessions   []parking.ParkingSession `json:"sessions"`
	Exceptions []parking.LPRException   `json:"exceptions"`
	Settings   map[string]interface{}   `json:"settings"`
}

type Backup struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	Data      BackupPayload `json:"data"`
}

// Gateway is the durable key/value store shared by all aggregates.
type Gateway interface {
	Save(ctx context.Context, key string, value interface{}) error
	Load(ctx context.Context, key string, dest interface{}) (bool, error)
	Remove(ctx context.Context, key string) error

	// DebouncedSave coalesces rapid successive saves of the same key into
	// one persisted write after a quiet interval. Flush must be called on
	// every shutdown path so the persisted state reflects the most recent
	// in-memory state.
	DebouncedSave(key string, value interface{})
	Flush(ctx context.Context) error

	CreateBackup(ctx context.Context, data BackupPayload) (*Backup, error)
	ListBackups(ctx context.Context) ([]Backup, error)
	LatestBackup(ctx context.Context) (*Backup, error)
}

// debouncer is an explicit write buffer: the latest value per key is held
// until the delay elapses or Flush drains everything.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]interface{}
	timers  map[string]*time.Timer
	save    func(ctx context.Context, key string, value interface{}) error
	log     zerolog.Logger
}

func newDebouncer(delay time.Duration, save func(ctx context.Context, key string, value interface{}) error, log zerolog.Logger) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]interface{}),
		timers:  make(map[string]*time.Timer),
		save:    save,
		log:     log,
	}
}

func (d *debouncer) put(key string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[key] = value
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.flushKey(key)
	})
}

func (d *debouncer) flushKey(key string) {
	d.mu.Lock()
	value, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
		delete(d.timers, key)
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	if err := d.save(context.Background(), key, value); err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("debounced save failed")
	}
}

func (d *debouncer) flush(ctx context.Context) error {
	d.mu.Lock()
	drained := make(map[string]interface{}, len(d.pending))
	for key, value := range d.pending {
		drained[key] = value
		if t, ok := d.timers[key]; ok {
			t.Stop()
		}
		delete(d.pending, key)
		delete(d.timers, key)
	}
	d.mu.Unlock()

	var firstErr error
	for key, value := range drained {
		if err := d.save(ctx, key, value); err != nil {
			d.log.Error().Err(err).Str("key", key).Msg("flush failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
