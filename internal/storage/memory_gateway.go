package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MemoryGateway keeps everything in process memory. Used by tests and by
// deployments that run without a database.
type MemoryGateway struct {
	mu      sync.RWMutex
	entries map[string][]byte
	backups []Backup
	deb     *debouncer
}

func NewMemoryGateway(debounce time.Duration, log zerolog.Logger) *MemoryGateway {
	g := &MemoryGateway{entries: make(map[string][]byte)}
	g.deb = newDebouncer(debounce, g.Save, log)
	return g
}

// NewTestGateway returns a memory gateway with no debounce window, so
// every save lands immediately.
func NewTestGateway() *MemoryGateway {
	return NewMemoryGateway(0, zerolog.Nop())
}

func (g *MemoryGateway) Save(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[key] = raw
	return nil
}

func (g *MemoryGateway) Load(_ context.Context, key string, dest interface{}) (bool, error) {
	g.mu.RLock()
	raw, ok := g.entries[key]
	g.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *MemoryGateway) Remove(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

func (g *MemoryGateway) DebouncedSave(key string, value interface{}) {
	g.deb.put(key, value)
}

func (g *MemoryGateway) Flush(ctx context.Context) error {
	return g.deb.flush(ctx)
}

func (g *MemoryGateway) CreateBackup(_ context.Context, data BackupPayload) (*Backup, error) {
	backup := Backup{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Version:   BackupVersion,
		Data:      data,
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.backups = append(g.backups, backup)
	if len(g.backups) > MaxBackups {
		g.backups = g.backups[len(g.backups)-MaxBackups:]
	}
	return &backup, nil
}

func (g *MemoryGateway) ListBackups(_ context.Context) ([]Backup, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Newest first, matching the database gateway.
	out := make([]Backup, 0, len(g.backups))
	for i := len(g.backups) - 1; i >= 0; i-- {
		out = append(out, g.backups[i])
	}
	return out, nil
}

func (g *MemoryGateway) LatestBackup(_ context.Context) (*Backup, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.backups) == 0 {
		return nil, nil
	}
	latest := g.backups[len(g.backups)-1]
	return &latest, nil
}
