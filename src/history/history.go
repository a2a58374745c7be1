// Package history keeps a ledger of completed captures in SQLite.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"finalshot/src/screenshot"
)

// ErrDisabled is returned by Open when no path is configured.
var ErrDisabled = errors.New("capture history disabled")

// Capture is one saved screenshot.
type Capture struct {
	ID        string `gorm:"primaryKey"`
	Trigger   string `gorm:"not null;index"` // full, region, window, select
	Path      string
	Format    string
	X         int
	Y         int
	Width     int
	Height    int
	CreatedAt int64 `gorm:"autoCreateTime;index"`
}

// BeforeCreate hook to generate UUID
func (c *Capture) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	return nil
}

// Region returns the captured rectangle.
func (c Capture) Region() screenshot.Region {
	return screenshot.Region{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open creates or migrates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrDisabled
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&Capture{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores c and fills in its ID and timestamp.
func (s *Store) Record(c *Capture) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to record capture: %w", err)
	}
	return nil
}

// List returns the newest captures first. A limit of zero or less means all.
func (s *Store) List(limit int) ([]Capture, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.db.Order("created_at DESC").Order("rowid DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Capture
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list captures: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
