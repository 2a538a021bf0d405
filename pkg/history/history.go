// Package history is a supplementary run ledger, separate from the
// directory-based image store (image listing/deletion stays plain
// directory enumeration and never touches this database). It opens a
// per-install sqlite database through gorm and records start/finish
// timestamps for every run, so an audit pass can flag containers whose
// directories or cgroups outlived their recorded finish time.
package history

import (
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one row of the ledger: a single container's lifecycle outcome.
type Run struct {
	ID          uint   `gorm:"primaryKey"`
	ContainerId string `gorm:"index"`
	Distro      string
	Command     string
	BuildImage  bool
	StartedAt   time.Time
	EndedAt     time.Time
	ExitCode    int
	CleanedUp   bool
}

// Ledger wraps the gorm handle.
type Ledger struct {
	db *gorm.DB
}

// Open opens (and migrates, creating it if absent) <root>/kapsel.db.
func Open(rootDir string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(rootDir, "kapsel.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying sql.DB connection.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start records the beginning of a run and returns the row so the caller
// can Finish it later.
func (l *Ledger) Start(containerId, distro, command string, buildImage bool) (Run, error) {
	r := Run{
		ContainerId: containerId,
		Distro:      distro,
		Command:     command,
		BuildImage:  buildImage,
		StartedAt:   time.Now(),
	}
	err := l.db.Create(&r).Error
	return r, err
}

// Finish updates a run's end time, exit code, and cleanup outcome.
func (l *Ledger) Finish(id uint, exitCode int, cleanedUp bool) error {
	return l.db.Model(&Run{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ended_at":   time.Now(),
		"exit_code":  exitCode,
		"cleaned_up": cleanedUp,
	}).Error
}

// All returns every recorded run, most recent first.
func (l *Ledger) All() ([]Run, error) {
	var runs []Run
	err := l.db.Order("started_at desc").Find(&runs).Error
	return runs, err
}

// Leaked returns runs marked as not cleaned up.
func (l *Ledger) Leaked() ([]Run, error) {
	var runs []Run
	err := l.db.Where("cleaned_up = ?", false).Order("started_at desc").Find(&runs).Error
	return runs, err
}
